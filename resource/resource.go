// Package resource implements the injected module/resource reader
// collaborators spec §4.8/§6 describe ("import through the
// resource.ModuleReader/resource.ResourceReader interfaces it is
// given"). Retries of transient I/O failures use
// github.com/sethvargo/go-retry with the same
// WithMaxRetries(N, NewExponential(base)) + RetryableError shape
// holomush's internal/world/events.go uses for its own external calls.
package resource

import (
	"context"
	"time"

	"github.com/sethvargo/go-retry"

	"github.com/pklgo/pklcore/diag"
	"github.com/pklgo/pklcore/token"
)

// ModuleReader resolves a module URI (spec §6's file:/http(s):/
// modulepath:/pkl:/package:/projectpackage: schemes) to its source text.
type ModuleReader interface {
	ReadModule(ctx context.Context, uri string) ([]byte, error)
}

// ResourceReader resolves a `read(...)`/`read?(...)` resource URI
// (spec §3/§6) to its contents.
type ResourceReader interface {
	ReadResource(ctx context.Context, uri string) ([]byte, error)
}

// RetryPolicy bounds how many times, and with what backoff, a
// transient read failure is retried before surfacing a diag.KindIO
// error (spec §7 "I/O: ... surfaced as a Pkl error preserving the
// resource URI").
type RetryPolicy struct {
	MaxRetries int
	Base       time.Duration
}

// DefaultRetryPolicy matches the three-retry, 50ms-base exponential
// backoff holomush's event dispatch uses.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{MaxRetries: 3, Base: 50 * time.Millisecond}
}

func (p RetryPolicy) backoff() retry.Backoff {
	return retry.WithMaxRetries(uint64(p.MaxRetries), retry.NewExponential(p.Base))
}

// RetryingModuleReader wraps a ModuleReader, retrying a read whose
// error implements the transient marker below.
type RetryingModuleReader struct {
	Reader ModuleReader
	Policy RetryPolicy
}

func (r RetryingModuleReader) ReadModule(ctx context.Context, uri string) ([]byte, error) {
	var out []byte
	err := retry.Do(ctx, r.Policy.backoff(), func(ctx context.Context) error {
		b, err := r.Reader.ReadModule(ctx, uri)
		if err != nil {
			if isTransient(err) {
				return retry.RetryableError(err)
			}
			return err
		}
		out = b
		return nil
	})
	if err != nil {
		return nil, wrapIOError(uri, err, token.Span{})
	}
	return out, nil
}

// RetryingResourceReader is RetryingModuleReader's ResourceReader twin.
type RetryingResourceReader struct {
	Reader ResourceReader
	Policy RetryPolicy
}

func (r RetryingResourceReader) ReadResource(ctx context.Context, uri string) ([]byte, error) {
	var out []byte
	err := retry.Do(ctx, r.Policy.backoff(), func(ctx context.Context) error {
		b, err := r.Reader.ReadResource(ctx, uri)
		if err != nil {
			if isTransient(err) {
				return retry.RetryableError(err)
			}
			return err
		}
		out = b
		return nil
	})
	if err != nil {
		return nil, wrapIOError(uri, err, token.Span{})
	}
	return out, nil
}

// transient is implemented by reader errors the caller knows are worth
// retrying (timeouts, connection resets); readers that don't implement
// it are treated as permanent failures.
type transient interface {
	Temporary() bool
}

func isTransient(err error) bool {
	t, ok := err.(transient)
	return ok && t.Temporary()
}

// wrapIOError folds a reader failure into the structured diagnostic
// model, preserving the offending URI as a program value per spec §7.
func wrapIOError(uri string, cause error, at token.Span) error {
	return diag.New(diag.KindIO, at, "could not read %q", uri).
		WithValue("uri", stringer(uri)).
		Wrap(cause)
}

type stringer string

func (s stringer) String() string { return string(s) }
