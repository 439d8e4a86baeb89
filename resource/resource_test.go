package resource_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/pklgo/pklcore/resource"
)

type temporaryErr struct{ msg string }

func (e temporaryErr) Error() string  { return e.msg }
func (e temporaryErr) Temporary() bool { return true }

type flakyModuleReader struct {
	failures int
	body     []byte
}

func (r *flakyModuleReader) ReadModule(ctx context.Context, uri string) ([]byte, error) {
	if r.failures > 0 {
		r.failures--
		return nil, temporaryErr{"connection reset"}
	}
	return r.body, nil
}

func TestRetryingModuleReader_RecoversFromTransientFailures(t *testing.T) {
	reader := &flakyModuleReader{failures: 2, body: []byte("module content")}
	rr := resource.RetryingModuleReader{Reader: reader, Policy: resource.RetryPolicy{MaxRetries: 3}}

	b, err := rr.ReadModule(context.Background(), "https:example.com/a.pkl")
	require.NoError(t, err)
	require.Equal(t, "module content", string(b))
}

type permanentErr struct{ msg string }

func (e permanentErr) Error() string { return e.msg }

type alwaysFailsReader struct{}

func (alwaysFailsReader) ReadModule(ctx context.Context, uri string) ([]byte, error) {
	return nil, permanentErr{"not found"}
}

func TestRetryingModuleReader_PermanentFailureSurfacesImmediately(t *testing.T) {
	rr := resource.RetryingModuleReader{Reader: alwaysFailsReader{}, Policy: resource.DefaultRetryPolicy()}
	_, err := rr.ReadModule(context.Background(), "https:example.com/missing.pkl")
	require.Error(t, err)
	var perm permanentErr
	require.True(t, errors.As(err, &perm))
}
