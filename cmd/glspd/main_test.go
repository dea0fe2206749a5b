package main

import (
	"bytes"
	"io"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/groovy-lsp/engine/internal/boundary"
	"github.com/groovy-lsp/engine/internal/types"
)

func captureStdout(t *testing.T, fn func()) string {
	t.Helper()
	old := os.Stdout
	r, w, err := os.Pipe()
	require.NoError(t, err)
	os.Stdout = w

	fn()

	require.NoError(t, w.Close())
	os.Stdout = old

	out, err := io.ReadAll(r)
	require.NoError(t, err)
	return string(out)
}

func TestConsoleNotifierPublishDiagnosticsPrintsEachDiagnostic(t *testing.T) {
	n := consoleNotifier{}
	out := captureStdout(t, func() {
		n.PublishDiagnostics(types.URI("file:///a.groovy"), []boundary.Diagnostic{
			{Message: "unexpected token", Severity: "error"},
		})
	})
	assert.Contains(t, out, "file:///a.groovy")
	assert.Contains(t, out, "unexpected token")
}

func TestConsoleNotifierPublishDiagnosticsSkipsEmptySlice(t *testing.T) {
	n := consoleNotifier{}
	out := captureStdout(t, func() {
		n.PublishDiagnostics(types.URI("file:///a.groovy"), nil)
	})
	assert.Empty(t, out)
}

func TestConsoleNotifierStatusIncludesProgressWhenFilesTotalSet(t *testing.T) {
	n := consoleNotifier{}
	out := captureStdout(t, func() {
		n.Status(boundary.StatusNotification{Health: "ready", FilesIndexed: 3, FilesTotal: 10})
	})
	assert.Contains(t, out, "3/10")
}

func TestConsoleNotifierStatusOmitsProgressWhenFilesTotalZero(t *testing.T) {
	n := consoleNotifier{}
	out := captureStdout(t, func() {
		n.Status(boundary.StatusNotification{Health: "starting"})
	})
	assert.NotContains(t, out, "/")
}

func TestConsoleNotifierShowMessagePrintsText(t *testing.T) {
	n := consoleNotifier{}
	out := captureStdout(t, func() {
		n.ShowMessage(boundary.MessageError, "something broke")
	})
	assert.Contains(t, out, "something broke")
}
