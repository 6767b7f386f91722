package source

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeTempFile(t *testing.T, contents string) *File {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "log.txt")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	f, err := Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = f.Close() })
	return f
}

func TestPlanner_PartitionsCoverWholeFileWithoutSplittingLines(t *testing.T) {
	var lines []string
	for i := 0; i < 5000; i++ {
		lines = append(lines, strings.Repeat("x", 50))
	}
	contents := strings.Join(lines, "\n") + "\n"

	f := writeTempFile(t, contents)
	planner := NewPlanner(4)
	partitions := planner.Plan([]*File{f})

	require.NotEmpty(t, partitions)
	var prevEnd int64
	for i, p := range partitions {
		assert.Equal(t, prevEnd, p.Start, "partition %d should start where previous ended", i)
		if p.End < int64(len(f.Bytes())) {
			assert.Equal(t, byte('\n'), f.Bytes()[p.End-1], "partition %d boundary must land right after a newline", i)
		}
		prevEnd = p.End
	}
	assert.EqualValues(t, len(f.Bytes()), prevEnd)
}

func TestPlanner_EmptyFileProducesNoPartitions(t *testing.T) {
	f := writeTempFile(t, "")
	partitions := NewPlanner(4).Plan([]*File{f})
	assert.Empty(t, partitions)
}

func TestPlanner_NoTrailingNewlineStillCoversLastLine(t *testing.T) {
	f := writeTempFile(t, "a\nb\nc")
	partitions := NewPlanner(8).Plan([]*File{f})
	require.NotEmpty(t, partitions)
	last := partitions[len(partitions)-1]
	assert.EqualValues(t, len(f.Bytes()), last.End)
}

func TestExpandGlobs_DedupesAndResolves(t *testing.T) {
	dir := t.TempDir()
	a := filepath.Join(dir, "a.log")
	b := filepath.Join(dir, "b.log")
	require.NoError(t, os.WriteFile(a, []byte("x\n"), 0o644))
	require.NoError(t, os.WriteFile(b, []byte("y\n"), 0o644))

	got, err := ExpandGlobs([]string{filepath.Join(dir, "*.log"), a})
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{a, b}, got)
}
