package logging

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func resetState(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	SetStdioMode(false)
	SetOutput(&buf)
	SetLevel(LevelInfo)
	t.Cleanup(func() {
		SetStdioMode(false)
		SetLevel(LevelInfo)
	})
	return &buf
}

func TestParseLevelRecognizesKnownNames(t *testing.T) {
	assert.Equal(t, LevelDebug, ParseLevel("debug"))
	assert.Equal(t, LevelInfo, ParseLevel("info"))
	assert.Equal(t, LevelWarn, ParseLevel("warn"))
	assert.Equal(t, LevelWarn, ParseLevel("warning"))
	assert.Equal(t, LevelError, ParseLevel("error"))
	assert.Equal(t, LevelError, ParseLevel("bogus"))
}

func TestInfofWritesAtOrBelowConfiguredLevel(t *testing.T) {
	buf := resetState(t)

	Infof(Compiler, "compiled %s", "a.groovy")
	assert.Contains(t, buf.String(), "[compiler] compiled a.groovy")
}

func TestDebugfIsSuppressedAboveConfiguredLevel(t *testing.T) {
	buf := resetState(t)
	SetLevel(LevelInfo)

	Debugf(Workspace, "should not appear")
	assert.Empty(t, buf.String())
}

func TestStdioModeSuppressesAllOutput(t *testing.T) {
	buf := resetState(t)
	SetStdioMode(true)

	Errorf(Boundary, "should be suppressed")
	assert.Empty(t, buf.String())
}

func TestSetOutputNilDisablesLogging(t *testing.T) {
	SetStdioMode(false)
	SetLevel(LevelInfo)
	SetOutput(nil)
	t.Cleanup(func() { SetOutput(nil) })

	assert.NotPanics(t, func() { Infof(Status, "noop") })
}
