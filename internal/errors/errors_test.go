package errors

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/groovy-lsp/engine/internal/types"
)

func TestNewWrapsUnderlyingError(t *testing.T) {
	underlying := errors.New("boom")
	e := New(KindParse, "parse", underlying)
	assert.Equal(t, KindParse, e.Kind)
	assert.Equal(t, "parse", e.Operation)
	assert.Same(t, underlying, e.Underlying)
	assert.False(t, e.Timestamp.IsZero())
}

func TestWithURIAndWithRecoverableAreChainable(t *testing.T) {
	e := New(KindProvider, "diagnostics", errors.New("oops")).
		WithURI(types.URI("file:///a.groovy")).
		WithRecoverable(true)

	assert.Equal(t, types.URI("file:///a.groovy"), e.URI)
	assert.True(t, e.Recoverable)
}

func TestErrorMessageIncludesURIWhenSet(t *testing.T) {
	withURI := New(KindParse, "parse", errors.New("bad token")).WithURI(types.URI("file:///a.groovy"))
	assert.Contains(t, withURI.Error(), "file:///a.groovy")

	withoutURI := New(KindParse, "parse", errors.New("bad token"))
	assert.NotContains(t, withoutURI.Error(), "file://")
}

func TestUnwrapExposesUnderlyingCause(t *testing.T) {
	underlying := errors.New("root cause")
	e := New(KindFatal, "compile", underlying)
	require.ErrorIs(t, e, underlying)
}

func TestIsCancellationDetectsEngineErrorKind(t *testing.T) {
	e := New(KindCancellation, "compile", context.Canceled)
	assert.True(t, IsCancellation(e))
	assert.True(t, IsCancellation(context.Canceled))
	assert.True(t, IsCancellation(context.DeadlineExceeded))
	assert.False(t, IsCancellation(errors.New("unrelated")))
}

func TestKindOfReturnsEmptyForNonEngineError(t *testing.T) {
	assert.Equal(t, KindResolution, KindOf(New(KindResolution, "resolve", errors.New("x"))))
	assert.Equal(t, Kind(""), KindOf(errors.New("plain")))
}
