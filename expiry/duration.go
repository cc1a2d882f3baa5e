// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package expiry

import (
	"fmt"
	"strings"
	"time"

	"github.com/luxfi/bridge"
)

// TimeUnit is the granularity of a Duration amount.
type TimeUnit int

const (
	Nanoseconds TimeUnit = iota
	Microseconds
	Milliseconds
	Seconds
	Minutes
	Hours
	Days
)

var unitNames = [...]string{
	Nanoseconds:  "NANOSECONDS",
	Microseconds: "MICROSECONDS",
	Milliseconds: "MILLISECONDS",
	Seconds:      "SECONDS",
	Minutes:      "MINUTES",
	Hours:        "HOURS",
	Days:         "DAYS",
}

var unitBases = [...]time.Duration{
	Nanoseconds:  time.Nanosecond,
	Microseconds: time.Microsecond,
	Milliseconds: time.Millisecond,
	Seconds:      time.Second,
	Minutes:      time.Minute,
	Hours:        time.Hour,
	Days:         24 * time.Hour,
}

func (u TimeUnit) valid() bool { return u >= Nanoseconds && u <= Days }

func (u TimeUnit) String() string {
	if !u.valid() {
		return fmt.Sprintf("TimeUnit(%d)", int(u))
	}
	return unitNames[u]
}

// ParseTimeUnit parses a unit name such as "MILLISECONDS" (case-insensitive).
func ParseTimeUnit(s string) (TimeUnit, error) {
	for u, name := range unitNames {
		if strings.EqualFold(s, name) {
			return TimeUnit(u), nil
		}
	}
	return 0, fmt.Errorf("%w: unknown time unit %q", bridge.ErrIllegalArgument, s)
}

// Duration is an amount of time in a given unit, or eternal.
type Duration struct {
	Unit    TimeUnit
	Amount  int64
	eternal bool
}

var (
	// Eternal never expires.
	Eternal = Duration{eternal: true}
	// Zero expires immediately.
	Zero = Duration{Unit: Seconds}
)

// NewDuration returns amount of unit. Negative amounts and unknown units are
// rejected.
func NewDuration(unit TimeUnit, amount int64) (Duration, error) {
	if !unit.valid() {
		return Duration{}, fmt.Errorf("%w: invalid time unit %d", bridge.ErrIllegalArgument, int(unit))
	}
	if amount < 0 {
		return Duration{}, fmt.Errorf("%w: negative duration amount %d", bridge.ErrIllegalArgument, amount)
	}
	return Duration{Unit: unit, Amount: amount}, nil
}

// FromDuration converts d using the coarsest unit that represents it
// exactly.
func FromDuration(d time.Duration) (Duration, error) {
	if d < 0 {
		return Duration{}, fmt.Errorf("%w: negative duration %s", bridge.ErrIllegalArgument, d)
	}
	if d == 0 {
		return Zero, nil
	}
	for u := Days; u > Nanoseconds; u-- {
		if d%unitBases[u] == 0 {
			return Duration{Unit: u, Amount: int64(d / unitBases[u])}, nil
		}
	}
	return Duration{Unit: Nanoseconds, Amount: int64(d)}, nil
}

// ParseDuration accepts "eternal" or anything time.ParseDuration accepts.
func ParseDuration(s string) (Duration, error) {
	if strings.EqualFold(strings.TrimSpace(s), "eternal") {
		return Eternal, nil
	}
	d, err := time.ParseDuration(s)
	if err != nil {
		return Duration{}, fmt.Errorf("%w: %v", bridge.ErrIllegalArgument, err)
	}
	return FromDuration(d)
}

func (d Duration) IsEternal() bool { return d.eternal }

func (d Duration) IsZero() bool { return !d.eternal && d.Amount == 0 }

// ToDuration converts to a time.Duration; ok is false for Eternal and for
// an invalid unit.
func (d Duration) ToDuration() (time.Duration, bool) {
	if d.eternal || !d.Unit.valid() {
		return 0, false
	}
	return time.Duration(d.Amount) * unitBases[d.Unit], true
}

func (d Duration) String() string {
	if d.eternal {
		return "ETERNAL"
	}
	return fmt.Sprintf("%d %s", d.Amount, d.Unit)
}
