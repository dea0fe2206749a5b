// Package workspace is the Workspace Indexer (spec §4.8, C8): it
// discovers source files under configured roots, watches them for
// changes, and drives them through the Compilation Service so the
// Symbol Index stays current without every component re-scanning the
// filesystem itself.
package workspace

import (
	"io/fs"
	"path/filepath"
	"strings"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/groovy-lsp/engine/internal/types"
)

// defaultInclude matches Groovy and Java sources (case variants
// included, since some filesystems are case-sensitive and Groovy
// scripts sometimes carry a .GROOVY extension from Windows editors).
var defaultInclude = []string{
	"**/*.groovy", "**/*.Groovy", "**/*.GROOVY",
	"**/*.java", "**/*.Java", "**/*.JAVA",
	"**/*.gradle",
}

// defaultExclude mirrors the directories the teacher's scanner treats
// as noise by default, extended with Groovy/Gradle build output dirs.
var defaultExclude = []string{
	"**/.git/**", "**/.svn/**", "**/.hg/**",
	"**/node_modules/**", "**/build/**", "**/.gradle/**", "**/target/**",
}

// Scanner discovers source roots for the Workspace Indexer (spec §4.8
// operation "scan_workspace"), honoring a minimal gitignore-style
// exclude list the way the teacher's FileScanner honors
// config.Exclude, grounded on
// internal/indexing/watcher.go's shouldIgnoreDirectory/shouldProcessPath
// pattern matching, here built on doublestar for ** support instead of
// filepath.Match.
type Scanner struct {
	Include []string
	Exclude []string
}

// NewScanner creates a Scanner with the engine's default Groovy/Java
// source patterns.
func NewScanner() *Scanner {
	return &Scanner{Include: defaultInclude, Exclude: defaultExclude}
}

// Scan walks root and returns every file URI matching Include and not
// matching Exclude.
func (s *Scanner) Scan(root string) ([]types.URI, error) {
	var out []types.URI
	err := filepath.WalkDir(root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return nil // best-effort: skip unreadable entries
		}
		rel, relErr := filepath.Rel(root, path)
		if relErr != nil {
			rel = path
		}
		rel = filepath.ToSlash(rel)

		if d.IsDir() {
			if s.excluded(rel) {
				return filepath.SkipDir
			}
			return nil
		}
		if s.excluded(rel) {
			return nil
		}
		if s.included(rel) {
			out = append(out, pathToURI(path))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Scanner) included(rel string) bool {
	for _, pat := range s.Include {
		if ok, _ := doublestar.Match(pat, rel); ok {
			return true
		}
	}
	return false
}

func (s *Scanner) excluded(rel string) bool {
	for _, pat := range s.Exclude {
		if ok, _ := doublestar.Match(pat, rel); ok {
			return true
		}
		if ok, _ := doublestar.Match(pat, rel+"/"); ok {
			return true
		}
	}
	return false
}

func pathToURI(path string) types.URI {
	p := filepath.ToSlash(path)
	if !strings.HasPrefix(p, "/") {
		p = "/" + p
	}
	return types.URI("file://" + p)
}
