// Copyright (C) 2019-2025, Lux Industries, Inc. All rights reserved.
// See the file LICENSE for licensing terms.

package bridge

import (
	"errors"
	"fmt"

	"google.golang.org/genproto/googleapis/rpc/errdetails"
	spb "google.golang.org/genproto/googleapis/rpc/status"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

var (
	// Transport errors.
	ErrUnreachable  = errors.New("bridge: server unreachable")
	ErrConnection   = errors.New("bridge: connection failed")
	ErrServerClosed = errors.New("bridge: server closed")

	// Protocol errors.
	ErrProtocol = errors.New("bridge: protocol error")

	// Usage errors.
	ErrDuplicateHandler = errors.New("bridge: duplicate operation handler")
	ErrNoDelegate       = errors.New("bridge: no delegate configured")
	ErrAlreadyDone      = errors.New("bridge: signal already done")

	ErrTimeout         = errors.New("bridge: timed out")
	ErrUnsupported     = errors.New("bridge: unsupported operation")
	ErrIllegalState    = errors.New("bridge: illegal state")
	ErrIllegalArgument = errors.New("bridge: illegal argument")
	ErrSignalFailed    = errors.New("bridge: signal failed")
)

const errorDomain = "bridge.luxfi.network"

// ErrorInfo reasons carried in marshalled statuses.
const (
	reasonUnknownOperation = "UNKNOWN_OPERATION"
	reasonMalformedRequest = "MALFORMED_REQUEST"
	reasonNoDelegate       = "NO_DELEGATE"
	reasonAlreadyDone      = "ALREADY_DONE"
	reasonDuplicate        = "DUPLICATE_HANDLER"
	reasonSignalFailed     = "SIGNAL_FAILED"
	reasonHandlerPanic     = "HANDLER_PANIC"
	reasonDomain           = "DOMAIN"
)

// sentinelReasons names the sentinels that travel by reason rather than by
// code, because their code is shared with a broader sentinel.
var sentinelReasons = []struct {
	err    error
	reason string
}{
	{ErrNoDelegate, reasonNoDelegate},
	{ErrAlreadyDone, reasonAlreadyDone},
	{ErrDuplicateHandler, reasonDuplicate},
	{ErrSignalFailed, reasonSignalFailed},
}

// Kinder is implemented by errors that name their own kind. The kind travels
// with a marshalled error so the caller can tell failures apart by type.
type Kinder interface {
	Kind() string
}

// RemoteError is a failure that happened on the far side of the bridge and was
// marshalled back to the caller.
type RemoteError struct {
	Op      OperationType
	Code    codes.Code
	Reason  string
	Kind    string
	Message string
}

func (e *RemoteError) Error() string {
	if e.Kind != "" {
		return fmt.Sprintf("remote %s: %s: %s", e.Op, e.Kind, e.Message)
	}
	return fmt.Sprintf("remote %s: %s", e.Op, e.Message)
}

// Unwrap maps the remote failure back onto the local sentinel it was raised
// with, so errors.Is works the same on both sides. The package sentinels all
// survive the trip; other errors keep only their code, Kind and Message.
func (e *RemoteError) Unwrap() error {
	switch e.Reason {
	case reasonUnknownOperation, reasonMalformedRequest:
		return ErrProtocol
	}
	for _, sr := range sentinelReasons {
		if e.Reason == sr.reason {
			return sr.err
		}
	}
	switch e.Code {
	case codes.FailedPrecondition:
		return ErrIllegalState
	case codes.InvalidArgument:
		return ErrIllegalArgument
	case codes.Unimplemented:
		return ErrUnsupported
	case codes.DeadlineExceeded:
		return ErrTimeout
	}
	return nil
}

// IsProtocol reports whether the remote side rejected the request framing
// rather than failing in domain logic.
func (e *RemoteError) IsProtocol() bool {
	return errors.Is(e.Unwrap(), ErrProtocol)
}

// TransportError wraps a failure of the bridge itself (dial, read, write).
type TransportError struct {
	Op   string
	Addr string
	Err  error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("bridge %s %s: %v", e.Op, e.Addr, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

func codeOf(err error) codes.Code {
	switch {
	case errors.Is(err, ErrNoDelegate), errors.Is(err, ErrIllegalState), errors.Is(err, ErrAlreadyDone):
		return codes.FailedPrecondition
	case errors.Is(err, ErrDuplicateHandler):
		return codes.AlreadyExists
	case errors.Is(err, ErrIllegalArgument):
		return codes.InvalidArgument
	case errors.Is(err, ErrUnsupported):
		return codes.Unimplemented
	case errors.Is(err, ErrTimeout):
		return codes.DeadlineExceeded
	case errors.Is(err, ErrSignalFailed):
		return codes.Aborted
	}
	return codes.Unknown
}

func kindOf(err error) string {
	var k Kinder
	if errors.As(err, &k) {
		return k.Kind()
	}
	return fmt.Sprintf("%T", err)
}

// toStatus marshals err as a google.rpc.Status. Errors that already carry a
// gRPC status keep its code.
func toStatus(err error, reason string) *spb.Status {
	var st *status.Status
	switch {
	case reason == reasonUnknownOperation || reason == reasonMalformedRequest:
		st = status.New(codes.Unimplemented, err.Error())
	default:
		if s, ok := status.FromError(err); ok && s.Code() != codes.Unknown {
			st = s
		} else {
			st = status.New(codeOf(err), err.Error())
		}
	}
	if reason == "" {
		reason = reasonDomain
		for _, sr := range sentinelReasons {
			if errors.Is(err, sr.err) {
				reason = sr.reason
				break
			}
		}
	}
	info := &errdetails.ErrorInfo{
		Reason:   reason,
		Domain:   errorDomain,
		Metadata: map[string]string{"kind": kindOf(err)},
	}
	if withInfo, derr := st.WithDetails(info); derr == nil {
		st = withInfo
	}
	return st.Proto()
}

// fromStatus is the inverse of toStatus.
func fromStatus(op OperationType, p *spb.Status) *RemoteError {
	st := status.FromProto(p)
	re := &RemoteError{
		Op:      op,
		Code:    st.Code(),
		Message: st.Message(),
	}
	for _, d := range st.Details() {
		if info, ok := d.(*errdetails.ErrorInfo); ok {
			re.Reason = info.GetReason()
			re.Kind = info.GetMetadata()["kind"]
		}
	}
	return re
}
