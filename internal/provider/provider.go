// Package provider talks to remote completion services.
//
// Every backend exposes the same blocking iterator: Stream returns
// immediately, and the caller pulls text fragments with Next until it
// reports false, then checks Err. Errors, including request failures, are
// only ever reported through Err.
package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/openai/openai-go"

	"github.com/petasbytes/botsh/internal/config"
	"github.com/petasbytes/botsh/memory"
)

// ErrMalformedStream reports a stream chunk the client could not interpret.
var ErrMalformedStream = errors.New("malformed stream")

// Request is one completion call.
type Request struct {
	Model    string
	Messages []memory.Message
}

// Stream is a lazy, finite, non-restartable sequence of text fragments.
type Stream interface {
	// Next advances to the next fragment, blocking until one arrives.
	Next() bool
	// Fragment returns the current fragment.
	Fragment() string
	// Err returns the error that ended the stream, if any.
	Err() error
	Close() error
}

// Completer starts streaming completions.
type Completer interface {
	Stream(ctx context.Context, req Request) Stream
}

// StatusError is a non-2xx response from the service.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("service returned status %d", e.StatusCode)
	}
	return fmt.Sprintf("service returned status %d: %s", e.StatusCode, e.Body)
}

// New builds the Completer named by cfg.Provider.
func New(cfg *config.Config) (Completer, error) {
	switch cfg.Provider {
	case config.ProviderOpenAI, "":
		return NewOpenAI(cfg.APIKey, cfg.BaseURL), nil
	case config.ProviderAnthropic:
		return NewAnthropic(cfg.APIKey, cfg.BaseURL, cfg.MaxTokens), nil
	default:
		return nil, fmt.Errorf("unknown provider %q", cfg.Provider)
	}
}

// fromSDK maps SDK errors onto StatusError and ErrMalformedStream. Anything
// else, including context errors, passes through unchanged.
func fromSDK(err error) error {
	if err == nil {
		return nil
	}
	var oe *openai.Error
	if errors.As(err, &oe) {
		return &StatusError{StatusCode: oe.StatusCode, Body: strings.TrimSpace(oe.RawJSON())}
	}
	var ae *anthropic.Error
	if errors.As(err, &ae) {
		return &StatusError{StatusCode: ae.StatusCode, Body: strings.TrimSpace(ae.RawJSON())}
	}
	var syn *json.SyntaxError
	var typ *json.UnmarshalTypeError
	if errors.As(err, &syn) || errors.As(err, &typ) {
		return fmt.Errorf("%w: %v", ErrMalformedStream, err)
	}
	return err
}
