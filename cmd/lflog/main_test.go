package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpenFilesConcurrently_PreservesOrder(t *testing.T) {
	dir := t.TempDir()
	var paths []string
	for i := 0; i < 5; i++ {
		p := filepath.Join(dir, string(rune('a'+i))+".log")
		require.NoError(t, os.WriteFile(p, []byte("x\n"), 0o644))
		paths = append(paths, p)
	}

	files, err := openFilesConcurrently(paths, 2)
	require.NoError(t, err)
	defer func() {
		for _, f := range files {
			_ = f.Close()
		}
	}()

	require.Len(t, files, len(paths))
	for i, f := range files {
		assert.Equal(t, paths[i], f.Path())
	}
}

func TestOpenFilesConcurrently_PropagatesOpenError(t *testing.T) {
	_, err := openFilesConcurrently([]string{"/nonexistent/path/for/lflog/test"}, 2)
	assert.Error(t, err)
}
