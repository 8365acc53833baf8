package fs

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeFile(t *testing.T, root, rel, content string) {
	t.Helper()
	path := filepath.Join(root, filepath.FromSlash(rel))
	require.NoError(t, os.MkdirAll(filepath.Dir(path), 0755))
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
}

func TestLoad_GlobsAndOrder(t *testing.T) {
	root := t.TempDir()
	writeFile(t, root, "b.txt", "beta")
	writeFile(t, root, "a.txt", "alpha")
	writeFile(t, root, "notes/c.md", "gamma")
	writeFile(t, root, "skip.bin", "binary")
	writeFile(t, root, "vendor/v.txt", "vendored")

	loader := NewLoader(
		[]string{"**/*.txt", "**/*.md"},
		[]string{"**/vendor/**"},
		0,
	)
	docs, err := loader.Load(root)
	require.NoError(t, err)

	var ids []string
	for _, d := range docs {
		ids = append(ids, d.ID)
	}
	assert.Equal(t, []string{"a.txt", "b.txt", "notes/c.md"}, ids)
	assert.Equal(t, "alpha", docs[0].Text)
	assert.Equal(t, "a.txt", docs[0].Metadata["path"])
}

func TestLoad_Limit(t *testing.T) {
	root := t.TempDir()
	for _, name := range []string{"1.txt", "2.txt", "3.txt", "4.txt"} {
		writeFile(t, root, name, "doc")
	}

	loader := NewLoader([]string{"**/*.txt"}, nil, 2)
	docs, err := loader.Load(root)
	require.NoError(t, err)
	assert.Len(t, docs, 2)
}

func TestLoad_EmptyDir(t *testing.T) {
	loader := NewLoader([]string{"**/*.txt"}, nil, 0)
	docs, err := loader.Load(t.TempDir())
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestLoad_MissingRoot(t *testing.T) {
	loader := NewLoader(nil, nil, 0)
	_, err := loader.Load(filepath.Join(t.TempDir(), "does-not-exist"))
	require.Error(t, err)
}
