// Package fs loads the benchmark corpus from a directory tree.
package fs

import (
	"os"
	"path/filepath"
	"sort"

	"github.com/bmatcuk/doublestar/v4"

	"vecbench/internal/domain"
)

// Loader turns files matching include/exclude globs into documents.
type Loader struct {
	includes []string
	excludes []string
	// limit caps the number of documents loaded; 0 means no cap.
	limit int
}

// NewLoader creates a corpus loader. Empty includes match everything.
func NewLoader(includes, excludes []string, limit int) *Loader {
	if len(includes) == 0 {
		includes = []string{"**/*"}
	}
	return &Loader{
		includes: includes,
		excludes: excludes,
		limit:    limit,
	}
}

// Load walks root and reads every matched file into a Document. The
// document id is the slash-separated path relative to root; documents
// come back sorted by id so a corpus loads identically across runs.
func (l *Loader) Load(root string) ([]domain.Document, error) {
	root, err := filepath.Abs(root)
	if err != nil {
		return nil, err
	}

	var paths []string
	err = filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		rel, err := filepath.Rel(root, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)

		if info.IsDir() {
			if l.matchesAny(l.excludes, rel+"/") {
				return filepath.SkipDir
			}
			return nil
		}

		if l.matchesAny(l.includes, rel) && !l.matchesAny(l.excludes, rel) {
			paths = append(paths, rel)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	sort.Strings(paths)
	if l.limit > 0 && len(paths) > l.limit {
		paths = paths[:l.limit]
	}

	docs := make([]domain.Document, 0, len(paths))
	for _, rel := range paths {
		data, err := os.ReadFile(filepath.Join(root, filepath.FromSlash(rel)))
		if err != nil {
			return nil, err
		}
		docs = append(docs, domain.Document{
			ID:   rel,
			Text: string(data),
			Metadata: map[string]string{
				"path": rel,
			},
		})
	}

	return docs, nil
}

func (l *Loader) matchesAny(patterns []string, path string) bool {
	for _, pattern := range patterns {
		matched, err := doublestar.Match(pattern, path)
		if err == nil && matched {
			return true
		}
	}
	return false
}
