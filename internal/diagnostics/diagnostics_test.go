package diagnostics

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/groovy-lsp/engine/internal/compiler"
	"github.com/groovy-lsp/engine/internal/parser"
	"github.com/groovy-lsp/engine/internal/types"
)

// TestMain ensures the per-provider goroutine fan-out never leaves a
// provider goroutine running past Publish's return, panicking provider
// included.
func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

type fakeProvider struct {
	id      string
	enabled bool
	ds      []types.Diagnostic
	err     error
	panics  bool
	delay   time.Duration
}

func (f fakeProvider) ID() string      { return f.id }
func (f fakeProvider) Enabled() bool   { return f.enabled }
func (f fakeProvider) Provide(ctx context.Context, unit *parser.ParseUnit, text string) ([]types.Diagnostic, error) {
	if f.panics {
		panic("boom")
	}
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	return f.ds, nil
}

func TestPublishEmitsCompilerOnlyStageFirst(t *testing.T) {
	comp := compiler.New(nil)
	p := New(comp)

	var stages []Stage
	err := p.Publish(context.Background(), "file:///a.groovy", "class A {}", func(pub Publication) {
		stages = append(stages, pub.Stage)
	})
	require.NoError(t, err)
	require.Len(t, stages, 2)
	assert.Equal(t, StageCompilerOnly, stages[0])
	assert.Equal(t, StageFull, stages[1])
}

func TestPublishMergesEnabledProviderDiagnostics(t *testing.T) {
	comp := compiler.New(nil)
	p := New(comp)
	p.Register(fakeProvider{id: "lint", enabled: true, ds: []types.Diagnostic{{Message: "lint warning", Severity: types.SeverityWarning, Source: "lint"}}})
	p.Register(fakeProvider{id: "disabled", enabled: false, ds: []types.Diagnostic{{Message: "should not appear"}}})

	var full Publication
	err := p.Publish(context.Background(), "file:///a.groovy", "class A {}", func(pub Publication) {
		if pub.Stage == StageFull {
			full = pub
		}
	})
	require.NoError(t, err)
	require.Len(t, full.Diagnostics, 1)
	assert.Equal(t, "lint warning", full.Diagnostics[0].Message)
}

func TestPublishIsolatesPanickingProvider(t *testing.T) {
	comp := compiler.New(nil)
	p := New(comp)
	p.Register(fakeProvider{id: "panicky", enabled: true, panics: true})
	p.Register(fakeProvider{id: "fine", enabled: true, ds: []types.Diagnostic{{Message: "ok"}}})

	var full Publication
	err := p.Publish(context.Background(), "file:///a.groovy", "class A {}", func(pub Publication) {
		if pub.Stage == StageFull {
			full = pub
		}
	})
	require.NoError(t, err)
	require.Len(t, full.Diagnostics, 1)
	assert.Equal(t, "ok", full.Diagnostics[0].Message)
}

func TestPublishIgnoresProviderError(t *testing.T) {
	comp := compiler.New(nil)
	p := New(comp)
	p.Register(fakeProvider{id: "broken", enabled: true, err: errors.New("boom")})

	var full Publication
	err := p.Publish(context.Background(), "file:///a.groovy", "class A {}", func(pub Publication) {
		if pub.Stage == StageFull {
			full = pub
		}
	})
	require.NoError(t, err)
	assert.Empty(t, full.Diagnostics)
}

func TestSkipIfCompilerErrorsStillEmitsFullStage(t *testing.T) {
	comp := compiler.New(nil)
	p := New(comp)
	p.SkipIfCompilerErrors = true
	p.Register(fakeProvider{id: "lint", enabled: true, ds: []types.Diagnostic{{Message: "should be skipped"}}})

	var stages []Publication
	err := p.Publish(context.Background(), "file:///broken.groovy", "class Error { void foo() { println 'bar'", func(pub Publication) {
		stages = append(stages, pub)
	})
	require.NoError(t, err)
	require.Len(t, stages, 2)
	assert.NotEmpty(t, stages[1].Diagnostics)
	for _, d := range stages[1].Diagnostics {
		assert.NotEqual(t, "should be skipped", d.Message)
	}
}

func TestHasErrorsDetectsErrorSeverity(t *testing.T) {
	assert.True(t, hasErrors([]types.Diagnostic{{Severity: types.SeverityError}}))
	assert.False(t, hasErrors([]types.Diagnostic{{Severity: types.SeverityWarning}}))
	assert.False(t, hasErrors(nil))
}

func TestNewPublishForSameURICancelsPreviousJob(t *testing.T) {
	comp := compiler.New(nil)
	p := New(comp)
	p.Register(fakeProvider{id: "slow", enabled: true, delay: 200 * time.Millisecond, ds: []types.Diagnostic{{Message: "late"}}})

	done := make(chan struct{})
	go func() {
		_ = p.Publish(context.Background(), "file:///a.groovy", "class A {}", func(Publication) {})
		close(done)
	}()
	time.Sleep(20 * time.Millisecond)

	var full Publication
	err := p.Publish(context.Background(), "file:///a.groovy", "class A {}", func(pub Publication) {
		if pub.Stage == StageFull {
			full = pub
		}
	})
	require.NoError(t, err)
	_ = full
	<-done
}
