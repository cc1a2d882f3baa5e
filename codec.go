// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package bridge

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"time"

	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/anypb"
	"google.golang.org/protobuf/types/known/durationpb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// Encoder appends length-prefixed protobuf messages to a frame body.
type Encoder struct {
	buf bytes.Buffer
}

// Encode appends m to the body.
func (e *Encoder) Encode(m proto.Message) error {
	b, err := proto.Marshal(m)
	if err != nil {
		return fmt.Errorf("encode %T: %w", m, err)
	}
	var lenbuf [binary.MaxVarintLen64]byte
	n := binary.PutUvarint(lenbuf[:], uint64(len(b)))
	e.buf.Write(lenbuf[:n])
	e.buf.Write(b)
	return nil
}

// EncodeValue packs an arbitrary value (key, argument, result) and appends it.
func (e *Encoder) EncodeValue(v any) error {
	a, err := PackValue(v)
	if err != nil {
		return err
	}
	return e.Encode(a)
}

// Bytes returns the encoded body.
func (e *Encoder) Bytes() []byte { return e.buf.Bytes() }

// Reset discards everything encoded so far.
func (e *Encoder) Reset() { e.buf.Reset() }

// Decoder reads length-prefixed protobuf messages from a frame body. The
// first decoding failure is kept, so the server can tell a malformed request
// apart from a handler that failed for its own reasons.
type Decoder struct {
	r   *bytes.Reader
	err error
}

// NewDecoder returns a Decoder over body.
func NewDecoder(body []byte) *Decoder {
	return &Decoder{r: bytes.NewReader(body)}
}

// Decode reads the next message into dst.
func (d *Decoder) Decode(dst proto.Message) error {
	ln, err := binary.ReadUvarint(d.r)
	if err != nil {
		if err == io.EOF {
			return d.Malformed(errors.New("body exhausted"))
		}
		return d.Malformed(err)
	}
	if ln > uint64(d.r.Len()) {
		return d.Malformed(fmt.Errorf("message length %d exceeds body", ln))
	}
	b := make([]byte, ln)
	if _, err := io.ReadFull(d.r, b); err != nil {
		return d.Malformed(err)
	}
	if err := proto.Unmarshal(b, dst); err != nil {
		return d.Malformed(fmt.Errorf("decode %T: %v", dst, err))
	}
	return nil
}

// Malformed marks the body as invalid and returns cause wrapped in
// ErrProtocol. Operation codecs call it for payloads that decode but make no
// sense, such as an unknown enum name.
func (d *Decoder) Malformed(cause error) error {
	err := fmt.Errorf("%w: %v", ErrProtocol, cause)
	if d.err == nil {
		d.err = err
	}
	return err
}

// Err returns the first decoding failure, or nil.
func (d *Decoder) Err() error { return d.err }

// DecodeValue reads the next packed value.
func (d *Decoder) DecodeValue() (any, error) {
	var a anypb.Any
	if err := d.Decode(&a); err != nil {
		return nil, err
	}
	v, err := UnpackValue(&a)
	if err != nil && d.err == nil {
		d.err = err
	}
	return v, err
}

// More reports whether unread messages remain.
func (d *Decoder) More() bool { return d.r.Len() > 0 }

// PackValue converts a Go value to an Any. Integers widen to 64 bits, so an
// int key arrives as int64 on the other side.
func PackValue(v any) (*anypb.Any, error) {
	var m proto.Message
	switch x := v.(type) {
	case nil:
		return &anypb.Any{}, nil
	case proto.Message:
		m = x
	case bool:
		m = wrapperspb.Bool(x)
	case string:
		m = wrapperspb.String(x)
	case []byte:
		m = wrapperspb.Bytes(x)
	case int:
		m = wrapperspb.Int64(int64(x))
	case int8:
		m = wrapperspb.Int64(int64(x))
	case int16:
		m = wrapperspb.Int64(int64(x))
	case int32:
		m = wrapperspb.Int64(int64(x))
	case int64:
		m = wrapperspb.Int64(x)
	case uint:
		m = wrapperspb.UInt64(uint64(x))
	case uint8:
		m = wrapperspb.UInt64(uint64(x))
	case uint16:
		m = wrapperspb.UInt64(uint64(x))
	case uint32:
		m = wrapperspb.UInt64(uint64(x))
	case uint64:
		m = wrapperspb.UInt64(x)
	case float32:
		m = wrapperspb.Double(float64(x))
	case float64:
		m = wrapperspb.Double(x)
	case time.Duration:
		m = durationpb.New(x)
	default:
		sv, err := structpb.NewValue(v)
		if err != nil {
			return nil, fmt.Errorf("%w: cannot pack %T: %v", ErrIllegalArgument, v, err)
		}
		m = sv
	}
	a, err := anypb.New(m)
	if err != nil {
		return nil, fmt.Errorf("pack %T: %w", v, err)
	}
	return a, nil
}

// UnpackValue is the inverse of PackValue. Messages that are not one of the
// well-known scalar wrappers are returned as proto.Message.
func UnpackValue(a *anypb.Any) (any, error) {
	if a == nil || a.GetTypeUrl() == "" {
		return nil, nil
	}
	m, err := a.UnmarshalNew()
	if err != nil {
		return nil, fmt.Errorf("%w: unpack %s: %v", ErrProtocol, a.GetTypeUrl(), err)
	}
	switch x := m.(type) {
	case *wrapperspb.BoolValue:
		return x.GetValue(), nil
	case *wrapperspb.StringValue:
		return x.GetValue(), nil
	case *wrapperspb.BytesValue:
		return x.GetValue(), nil
	case *wrapperspb.Int64Value:
		return x.GetValue(), nil
	case *wrapperspb.UInt64Value:
		return x.GetValue(), nil
	case *wrapperspb.DoubleValue:
		return x.GetValue(), nil
	case *durationpb.Duration:
		return x.AsDuration(), nil
	case *structpb.Value:
		return x.AsInterface(), nil
	}
	return m, nil
}
