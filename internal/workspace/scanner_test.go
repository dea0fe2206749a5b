package workspace

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTree(t *testing.T, files map[string]string) string {
	t.Helper()
	root := t.TempDir()
	for rel, content := range files {
		path := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(path), 0o755))
		require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	}
	return root
}

func TestScanFindsGroovyAndJavaSources(t *testing.T) {
	root := writeTree(t, map[string]string{
		"src/Greeter.groovy": "class Greeter {}",
		"src/Helper.java":    "class Helper {}",
		"README.md":          "not a source file",
	})

	s := NewScanner()
	uris, err := s.Scan(root)
	require.NoError(t, err)
	assert.Len(t, uris, 2)
}

func TestScanExcludesBuildDirectories(t *testing.T) {
	root := writeTree(t, map[string]string{
		"src/Greeter.groovy":       "class Greeter {}",
		"build/classes/Gen.groovy": "class Gen {}",
		".git/hooks/Fake.groovy":   "class Fake {}",
	})

	s := NewScanner()
	uris, err := s.Scan(root)
	require.NoError(t, err)
	require.Len(t, uris, 1)
	assert.Contains(t, string(uris[0]), "Greeter.groovy")
}

func TestScanRespectsCustomIncludeExclude(t *testing.T) {
	root := writeTree(t, map[string]string{
		"a.txt":       "text",
		"sub/b.txt":   "text",
		"sub/c.groovy": "class C {}",
	})

	s := &Scanner{Include: []string{"**/*.txt"}, Exclude: []string{"sub/**"}}
	uris, err := s.Scan(root)
	require.NoError(t, err)
	require.Len(t, uris, 1)
	assert.Contains(t, string(uris[0]), "a.txt")
}

func TestPathToURIProducesFileScheme(t *testing.T) {
	u := pathToURI("/tmp/x/Greeter.groovy")
	assert.Equal(t, "file:///tmp/x/Greeter.groovy", string(u))
}

func TestUriToPathRoundTripsPathToURI(t *testing.T) {
	u := pathToURI("/tmp/x/Greeter.groovy")
	assert.Equal(t, "/tmp/x/Greeter.groovy", uriToPath(u))
}
