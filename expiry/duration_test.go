// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package expiry

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/luxfi/bridge"
)

func TestParseDuration(t *testing.T) {
	tests := []struct {
		in   string
		want Duration
	}{
		{"20ms", Duration{Unit: Milliseconds, Amount: 20}},
		{"1500ms", Duration{Unit: Milliseconds, Amount: 1500}},
		{"90s", Duration{Unit: Seconds, Amount: 90}},
		{"2h", Duration{Unit: Hours, Amount: 2}},
		{"48h", Duration{Unit: Days, Amount: 2}},
		{"0s", Zero},
		{"eternal", Eternal},
		{" ETERNAL ", Eternal},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseDuration(tt.in)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	for _, bad := range []string{"", "soon", "-5s"} {
		_, err := ParseDuration(bad)
		assert.ErrorIs(t, err, bridge.ErrIllegalArgument, bad)
	}
}

func TestNewDuration(t *testing.T) {
	d, err := NewDuration(Minutes, 3)
	require.NoError(t, err)
	td, ok := d.ToDuration()
	require.True(t, ok)
	assert.Equal(t, 3*time.Minute, td)
	assert.Equal(t, "3 MINUTES", d.String())

	_, err = NewDuration(Minutes, -1)
	require.ErrorIs(t, err, bridge.ErrIllegalArgument)
	_, err = NewDuration(TimeUnit(42), 1)
	require.ErrorIs(t, err, bridge.ErrIllegalArgument)
}

func TestDurationPredicates(t *testing.T) {
	assert.True(t, Eternal.IsEternal())
	assert.False(t, Eternal.IsZero())
	assert.Equal(t, "ETERNAL", Eternal.String())
	_, ok := Eternal.ToDuration()
	assert.False(t, ok)

	assert.True(t, Zero.IsZero())
	td, ok := Zero.ToDuration()
	assert.True(t, ok)
	assert.Zero(t, td)

	_, ok = Duration{Unit: TimeUnit(-1), Amount: 1}.ToDuration()
	assert.False(t, ok)
}

func TestParseTimeUnit(t *testing.T) {
	u, err := ParseTimeUnit("milliseconds")
	require.NoError(t, err)
	assert.Equal(t, Milliseconds, u)
	assert.Equal(t, "DAYS", Days.String())
	assert.Equal(t, "TimeUnit(9)", TimeUnit(9).String())

	_, err = ParseTimeUnit("FORTNIGHTS")
	require.ErrorIs(t, err, bridge.ErrIllegalArgument)
}
