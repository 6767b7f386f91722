package batch

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lflog/lflog/internal/macro"
	"github.com/lflog/lflog/internal/scanner"
	"github.com/lflog/lflog/internal/source"
)

func openTempFile(t *testing.T, contents string) *source.File {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "access.log")
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))
	f, err := source.Open(path)
	require.NoError(t, err)
	t.Cleanup(func() { _ = f.Close() })
	return f
}

func buildScannerFor(t *testing.T, pattern string) *scanner.Scanner {
	t.Helper()
	exp, err := macro.ExpandPattern(pattern, nil)
	require.NoError(t, err)
	s, err := scanner.New(exp.Regex, exp.Fields)
	require.NoError(t, err)
	return s
}

func TestBuilder_AggregatesAcrossMultipleBatches(t *testing.T) {
	sc := buildScannerFor(t, `{{method:var_name}} {{path:any}} {{status:number}} {{bytes:number}}`)
	f := openTempFile(t, "GET /a 200 100\nGET /b 404 0\nPOST /c 500 1523\n")
	p := &source.Partition{File: f, Start: 0, End: int64(len(f.Bytes()))}

	b := NewBuilder(sc, Options{TargetRows: 2})
	var total int64
	var batches int
	err := b.Scan(p, nil, func(rec arrow.Record) error {
		batches++
		total += rec.NumRows()
		rec.Release()
		return nil
	})
	require.NoError(t, err)
	assert.EqualValues(t, 3, total)
	assert.Equal(t, 2, batches, "3 rows at target 2 should flush a full batch then a short final one")

	scanned, matched, skipped := b.Stats().Snapshot()
	assert.EqualValues(t, 3, scanned)
	assert.EqualValues(t, 3, matched)
	assert.EqualValues(t, 0, skipped)
}

func TestBuilder_NonMatchingLineSkippedAlongsideMatchingRow(t *testing.T) {
	sc := buildScannerFor(t, `{{status:number}} (?P<note>.*)`)
	// The second line has no digits, so it fails the regex and is skipped
	// while the first line still produces a row.
	f := openTempFile(t, "200 ok\nnot-a-status-line\n")
	p := &source.Partition{File: f, Start: 0, End: int64(len(f.Bytes()))}

	b := NewBuilder(sc, Options{})
	var rows int64
	err := b.Scan(p, nil, func(rec arrow.Record) error {
		rows += rec.NumRows()
		rec.Release()
		return nil
	})
	require.NoError(t, err)
	assert.EqualValues(t, 1, rows)

	scanned, matched, skipped := b.Stats().Snapshot()
	assert.EqualValues(t, 2, scanned)
	assert.EqualValues(t, 1, matched)
	assert.EqualValues(t, 1, skipped)
}

func TestBuilder_MetadataColumnsAppendedAfterCaptures(t *testing.T) {
	sc := buildScannerFor(t, `{{level:enum(INFO,ERROR)}}: {{message:any}}`)
	f := openTempFile(t, "INFO: starting up\n")
	p := &source.Partition{File: f, Start: 0, End: int64(len(f.Bytes()))}

	b := NewBuilder(sc, Options{IncludeFile: true, IncludeRaw: true})
	names := make([]string, 0)
	for _, fld := range b.schema.Fields() {
		names = append(names, fld.Name)
	}
	assert.Equal(t, []string{"level", "message", FileColumn, RawColumn}, names)

	var rec arrow.Record
	err := b.Scan(p, nil, func(r arrow.Record) error {
		r.Retain()
		rec = r
		r.Release()
		return nil
	})
	require.NoError(t, err)
	require.NotNil(t, rec)
	defer rec.Release()

	assert.EqualValues(t, 1, rec.NumRows())
	assert.Equal(t, f.Path(), rec.Column(2).(interface{ Value(int) string }).Value(0))
	assert.Equal(t, "INFO: starting up", rec.Column(3).(interface{ Value(int) string }).Value(0))
}

func TestBuilder_NoTrailingNewlineStillProducesLastRow(t *testing.T) {
	sc := buildScannerFor(t, `{{n:number}}`)
	f := openTempFile(t, "1\n2\n3")
	p := &source.Partition{File: f, Start: 0, End: int64(len(f.Bytes()))}

	b := NewBuilder(sc, Options{})
	var rows int64
	err := b.Scan(p, nil, func(rec arrow.Record) error {
		rows += rec.NumRows()
		rec.Release()
		return nil
	})
	require.NoError(t, err)
	assert.EqualValues(t, 3, rows)
}

func TestBuilder_CancellationStopsEarlyWithoutPartialEmit(t *testing.T) {
	sc := buildScannerFor(t, `{{n:number}}`)
	f := openTempFile(t, "1\n2\n3\n4\n5\n")
	p := &source.Partition{File: f, Start: 0, End: int64(len(f.Bytes()))}

	calls := 0
	done := func() bool {
		calls++
		return calls > 1
	}

	b := NewBuilder(sc, Options{TargetRows: 1})
	var rows int64
	err := b.Scan(p, done, func(rec arrow.Record) error {
		rows += rec.NumRows()
		rec.Release()
		return nil
	})
	require.NoError(t, err)
	assert.Less(t, rows, int64(5))
}
