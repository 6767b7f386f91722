package table

import (
	"errors"
	"fmt"
	"io"

	"github.com/apache/arrow-go/v18/arrow"
	gmssql "github.com/dolthub/go-mysql-server/sql"
	"github.com/rs/zerolog/log"

	"github.com/lflog/lflog/internal/batch"
	"github.com/lflog/lflog/internal/scanner"
	"github.com/lflog/lflog/internal/source"
)

var errUnexpectedPartition = errors.New("table: partition is not a *logPartition")

// logPartition wraps one planned byte range as a gmssql.Partition. Its key
// is the partition's file path plus byte offsets, which is unique within a
// single scan and stable enough for the engine's bookkeeping.
type logPartition struct {
	partition *source.Partition
	key       []byte
}

func (p *logPartition) Key() []byte { return p.key }

func newLogPartition(p *source.Partition) *logPartition {
	key := []byte(fmt.Sprintf("%s:%d-%d", p.File.Path(), p.Start, p.End))
	return &logPartition{partition: p, key: key}
}

// partitionIter hands out one logPartition per call to Next, in plan order
// (spec §4.4: partitions are the unit of the engine's declared parallelism).
type partitionIter struct {
	partitions []*source.Partition
	pos        int
}

func (it *partitionIter) Next(ctx *gmssql.Context) (gmssql.Partition, error) {
	if it.pos >= len(it.partitions) {
		return nil, io.EOF
	}
	p := it.partitions[it.pos]
	it.pos++
	return newLogPartition(p), nil
}

func (it *partitionIter) Close(ctx *gmssql.Context) error {
	return nil
}

// scanRowIter pulls arrow.Record batches from a batch.Builder for a single
// partition and flattens them one row at a time into gmssql.Row, applying
// whatever projection was pushed down (spec §4.7: component C8, "the
// physical scan node").
type scanRowIter struct {
	ctx       *gmssql.Context
	builder   *batch.Builder
	partition *source.Partition
	projIdx   []int
	agg       *scanner.Stats

	recordsCh chan arrow.Record
	errCh     chan error
	started   bool
	cur       arrow.Record
	curRow    int
	done      bool
}

// newScanRowIter builds the row iterator for one partition. agg is the
// table-wide running total (SPEC_FULL §C); it receives this partition's
// counters once the scan finishes.
func newScanRowIter(ctx *gmssql.Context, b *batch.Builder, p *source.Partition, projIdx []int, agg *scanner.Stats) *scanRowIter {
	return &scanRowIter{
		ctx:       ctx,
		builder:   b,
		partition: p,
		projIdx:   projIdx,
		agg:       agg,
		recordsCh: make(chan arrow.Record),
		errCh:     make(chan error, 1),
	}
}

// start launches the builder's scan in the background, emitting batches
// onto recordsCh; it stops as soon as the row iterator's context is
// cancelled (spec §5: a cancelled scan drops its partial output rather than
// completing it).
func (it *scanRowIter) start() {
	it.started = true
	go func() {
		defer close(it.recordsCh)
		err := it.builder.Scan(it.partition, it.isCancelled, func(rec arrow.Record) error {
			rec.Retain()
			select {
			case it.recordsCh <- rec:
				return nil
			case <-it.ctx.Context.Done():
				rec.Release()
				return it.ctx.Context.Err()
			}
		})
		if err != nil {
			it.errCh <- err
		}
		it.reportStats()
	}()
}

// reportStats surfaces this partition's line-scanned/matched/skipped
// counters as a single aggregate Debug log (spec AMBIENT STACK: per-line
// parse failures aren't logged individually, but are counted and reported
// once the partition finishes) and folds them into the table-wide total.
func (it *scanRowIter) reportStats() {
	scanned, matched, skipped := it.builder.Stats().Snapshot()
	log.Debug().
		Str("file", it.partition.File.Path()).
		Int64("offset", it.partition.Start).
		Int64("lines_scanned", scanned).
		Int64("lines_matched", matched).
		Int64("lines_skipped", skipped).
		Msg("partition scan finished")
	if it.agg != nil {
		it.agg.Add(it.builder.Stats())
	}
}

func (it *scanRowIter) isCancelled() bool {
	select {
	case <-it.ctx.Context.Done():
		return true
	default:
		return false
	}
}

func (it *scanRowIter) Next(ctx *gmssql.Context) (gmssql.Row, error) {
	if !it.started {
		it.start()
	}
	for {
		if it.cur != nil && it.curRow < int(it.cur.NumRows()) {
			row := extractRow(it.cur, it.curRow, it.projIdx)
			it.curRow++
			return row, nil
		}
		if it.cur != nil {
			it.cur.Release()
			it.cur = nil
		}
		if it.done {
			return nil, io.EOF
		}
		rec, ok := <-it.recordsCh
		if !ok {
			select {
			case err := <-it.errCh:
				return nil, err
			default:
			}
			it.done = true
			continue
		}
		it.cur = rec
		it.curRow = 0
	}
}

func (it *scanRowIter) Close(ctx *gmssql.Context) error {
	if it.cur != nil {
		it.cur.Release()
		it.cur = nil
	}
	// Drain any in-flight batch so the producer goroutine's send doesn't
	// block forever after the consumer has stopped reading.
	for rec := range it.recordsCh {
		rec.Release()
	}
	return nil
}

func extractRow(rec arrow.Record, row int, projIdx []int) gmssql.Row {
	out := make(gmssql.Row, len(projIdx))
	for i, col := range projIdx {
		out[i] = columnValue(rec.Column(col), row)
	}
	return out
}

func columnValue(col arrow.Array, row int) interface{} {
	if col.IsNull(row) {
		return nil
	}
	switch a := col.(type) {
	case interface{ Value(int) int32 }:
		return a.Value(row)
	case interface{ Value(int) float64 }:
		return a.Value(row)
	case interface{ Value(int) string }:
		return a.Value(row)
	default:
		return nil
	}
}
