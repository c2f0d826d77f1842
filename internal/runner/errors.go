package runner

import (
	"errors"
	"fmt"

	"github.com/petasbytes/botsh/internal/provider"
)

// Kind classifies a failed turn.
type Kind string

const (
	KindTransport Kind = "transport"
	KindMalformed Kind = "malformed_stream"
	KindEmpty     Kind = "empty_reply"
	KindCancelled Kind = "cancelled"
)

// ErrEmptyReply is the cause of a turn whose stream ended without content.
var ErrEmptyReply = errors.New("no response received")

// TurnError is returned for every failed turn. Fragments counts what was
// streamed before the failure; when it is non-zero the runner has already
// ended the output line.
type TurnError struct {
	Kind      Kind
	Err       error
	Fragments int
}

func (e *TurnError) Error() string {
	switch e.Kind {
	case KindEmpty:
		return e.Err.Error()
	case KindMalformed:
		return fmt.Sprintf("unexpected response from service: %v", e.Err)
	case KindCancelled:
		return "request cancelled"
	default:
		return fmt.Sprintf("request failed: %v", e.Err)
	}
}

func (e *TurnError) Unwrap() error { return e.Err }

func classify(err error, cancelled bool) *TurnError {
	switch {
	case cancelled:
		return &TurnError{Kind: KindCancelled, Err: err}
	case errors.Is(err, provider.ErrMalformedStream):
		return &TurnError{Kind: KindMalformed, Err: err}
	default:
		return &TurnError{Kind: KindTransport, Err: err}
	}
}
