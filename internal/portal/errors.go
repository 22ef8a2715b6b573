package portal

import (
	"context"
	"errors"
	"fmt"
	"net"
)

// ErrKind classifies portal fetch failures. Downstream retry policy keys
// off the kind, never off error text.
type ErrKind string

const (
	KindTimeout          ErrKind = "timeout"
	KindNetwork          ErrKind = "network"
	KindNotFound         ErrKind = "not_found"
	KindInvalidResponse  ErrKind = "invalid_response"
	KindNoImageAvailable ErrKind = "no_image_available"
	KindParseError       ErrKind = "parse_error"
)

// FetchError is any failure talking to or interpreting a county portal.
// When the result page parsed but no document could be produced, Meta
// carries whatever the page reported.
type FetchError struct {
	Kind ErrKind
	Msg  string
	Err  error
	Meta Metadata
}

func (e *FetchError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Msg, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Msg)
}

func (e *FetchError) Unwrap() error { return e.Err }

func fetchErr(kind ErrKind, msg string, err error) *FetchError {
	return &FetchError{Kind: kind, Msg: msg, Err: err}
}

func fetchErrf(kind ErrKind, format string, args ...any) *FetchError {
	return &FetchError{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// KindOf extracts the fetch classification from an error chain. Unknown
// errors report as network failures, the conservative retryable bucket.
func KindOf(err error) ErrKind {
	var fe *FetchError
	if errors.As(err, &fe) {
		return fe.Kind
	}
	if isTimeout(err) {
		return KindTimeout
	}
	return KindNetwork
}

func isTimeout(err error) bool {
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var ne net.Error
	return errors.As(err, &ne) && ne.Timeout()
}

// wrapTransport classifies a raw HTTP transport error.
func wrapTransport(op string, err error) *FetchError {
	if isTimeout(err) {
		return fetchErr(KindTimeout, op, err)
	}
	return fetchErr(KindNetwork, op, err)
}
