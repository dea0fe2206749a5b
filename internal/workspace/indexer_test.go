package workspace

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/groovy-lsp/engine/internal/compiler"
	"github.com/groovy-lsp/engine/internal/symbols"
	"github.com/groovy-lsp/engine/internal/types"
)

func TestReindexWorkspaceIndexesAllDiscoveredFiles(t *testing.T) {
	root := writeTree(t, map[string]string{
		"Greeter.groovy": `class Greeter {}`,
		"Helper.groovy":  `class Helper {}`,
	})

	sidx := symbols.NewWorkspaceIndex()
	idx := New(compiler.New(nil), sidx)

	var last Progress
	err := idx.ReindexWorkspace(context.Background(), []string{root}, func(p Progress) { last = p })
	require.NoError(t, err)
	assert.Equal(t, 2, last.Total)
	assert.Equal(t, 2, last.Done)

	assert.NotEmpty(t, sidx.Find("Greeter", 10))
	assert.NotEmpty(t, sidx.Find("Helper", 10))
}

func TestReindexWorkspaceWithNoFilesReportsZeroProgress(t *testing.T) {
	root := t.TempDir()
	sidx := symbols.NewWorkspaceIndex()
	idx := New(compiler.New(nil), sidx)

	var last Progress
	called := false
	err := idx.ReindexWorkspace(context.Background(), []string{root}, func(p Progress) {
		called = true
		last = p
	})
	require.NoError(t, err)
	assert.True(t, called)
	assert.Equal(t, Progress{Done: 0, Total: 0}, last)
}

func TestReindexWorkspaceAcceptsNilProgressCallback(t *testing.T) {
	root := writeTree(t, map[string]string{"Greeter.groovy": `class Greeter {}`})
	sidx := symbols.NewWorkspaceIndex()
	idx := New(compiler.New(nil), sidx)

	err := idx.ReindexWorkspace(context.Background(), []string{root}, nil)
	require.NoError(t, err)
	assert.NotEmpty(t, sidx.Find("Greeter", 10))
}

func TestWatchAndSyncIndexesCreatedFile(t *testing.T) {
	root := t.TempDir()
	sidx := symbols.NewWorkspaceIndex()
	idx := New(compiler.New(nil), sidx)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	require.NoError(t, idx.WatchAndSync(ctx, []string{root}))
	defer idx.Close()

	path := filepath.Join(root, "New.groovy")
	require.NoError(t, os.WriteFile(path, []byte("class New {}"), 0o644))

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if len(sidx.Find("New", 10)) > 0 {
			return
		}
		time.Sleep(50 * time.Millisecond)
	}
	t.Fatal("expected watcher to index newly created file within timeout")
}

func TestWatchAndSyncRemovesDeletedFile(t *testing.T) {
	root := writeTree(t, map[string]string{"Gone.groovy": `class Gone {}`})
	sidx := symbols.NewWorkspaceIndex()
	idx := New(compiler.New(nil), sidx)

	require.NoError(t, idx.ReindexWorkspace(context.Background(), []string{root}, nil))
	require.NotEmpty(t, sidx.Find("Gone", 10))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	require.NoError(t, idx.WatchAndSync(ctx, []string{root}))
	defer idx.Close()

	require.NoError(t, os.Remove(filepath.Join(root, "Gone.groovy")))

	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if len(sidx.Find("Gone", 10)) == 0 {
			return
		}
		time.Sleep(50 * time.Millisecond)
	}
	t.Fatal("expected watcher to remove deleted file's symbols within timeout")
}

func TestReadURIReadsFileContent(t *testing.T) {
	root := writeTree(t, map[string]string{"X.groovy": "class X {}"})
	uri := types.URI("file://" + filepath.Join(root, "X.groovy"))
	text, err := ReadURI(uri)
	require.NoError(t, err)
	assert.Equal(t, "class X {}", text)
}
