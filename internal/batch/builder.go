// Package batch turns a scanned partition into a stream of Arrow record
// batches (spec §4.5, component C6). A Builder owns no state across
// partitions: one is constructed per partition task and discarded once the
// partition is exhausted.
package batch

import (
	"bytes"
	"strconv"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/lflog/lflog/internal/fieldtype"
	"github.com/lflog/lflog/internal/scanner"
	"github.com/lflog/lflog/internal/source"
)

// DefaultTargetRows is the row count a Builder flushes a batch at when the
// partition hasn't ended yet (spec §4.5: "configurable target, default
// 8192").
const DefaultTargetRows = 8192

// Metadata column names, appended after every regex-derived column when
// enabled (spec §4.6: referenced in SQL as double-quoted identifiers). Both
// names are themselves valid capture names ([A-Za-z_][A-Za-z0-9_]*), and a
// pattern field that uses one is not rejected here.
const (
	FileColumn = "__FILE__"
	RawColumn  = "__RAW__"
)

// Options configures what a Builder appends beyond the scanner's own
// columns.
type Options struct {
	TargetRows  int
	IncludeFile bool
	IncludeRaw  bool
}

// Builder iterates the lines of a single partition, parses each with a
// *scanner.Scanner, and accumulates the results into Arrow columnar
// builders, flushing arrow.Record batches at a row-count target or at
// partition end.
type Builder struct {
	scanner *scanner.Scanner
	opts    Options
	alloc   memory.Allocator
	schema  *arrow.Schema
	stats   *scanner.Stats
}

// NewBuilder constructs a Builder for sc's schema. opts.TargetRows <= 0
// falls back to DefaultTargetRows.
func NewBuilder(sc *scanner.Scanner, opts Options) *Builder {
	if opts.TargetRows <= 0 {
		opts.TargetRows = DefaultTargetRows
	}
	return &Builder{
		scanner: sc,
		opts:    opts,
		alloc:   memory.NewGoAllocator(),
		schema:  Schema(sc, opts.IncludeFile, opts.IncludeRaw),
		stats:   &scanner.Stats{},
	}
}

// Schema returns the Arrow schema this builder's batches conform to: the
// scanner's fields in order, followed by __FILE__ and/or __RAW__ when
// enabled.
func Schema(sc *scanner.Scanner, includeFile, includeRaw bool) *arrow.Schema {
	fields := make([]arrow.Field, 0, sc.NumFields()+2)
	for i, name := range sc.FieldNames() {
		fields = append(fields, arrow.Field{
			Name:     name,
			Type:     sc.FieldTypes()[i].ArrowType(),
			Nullable: true,
		})
	}
	if includeFile {
		fields = append(fields, arrow.Field{Name: FileColumn, Type: arrow.BinaryTypes.String})
	}
	if includeRaw {
		fields = append(fields, arrow.Field{Name: RawColumn, Type: arrow.BinaryTypes.String})
	}
	return arrow.NewSchema(fields, nil)
}

// Stats returns the running counters for every line this builder has
// consumed so far, for aggregation into a whole-scan total (spec §5).
func (b *Builder) Stats() *scanner.Stats {
	return b.stats
}

// SchemaColumnNames returns this builder's full, unprojected column order.
func (b *Builder) SchemaColumnNames() []string {
	names := make([]string, b.schema.NumFields())
	for i, f := range b.schema.Fields() {
		names[i] = f.Name
	}
	return names
}

// Schema exposes the builder's Arrow schema.
func (b *Builder) Schema() *arrow.Schema {
	return b.schema
}

// Scan walks p line by line, invoking emit with each flushed batch. Scan
// does not release a record after emit returns: emit receives the record's
// reference and is responsible for calling Release on it. Scan honors
// cancellation by checking isDone before each line; when isDone returns
// true, Scan returns immediately without emitting the partial batch.
func (b *Builder) Scan(p *source.Partition, isDone func() bool, emit func(arrow.Record) error) error {
	data := p.Bytes()
	fieldBuilders := newFieldBuilders(b.alloc, b.schema)
	defer releaseFieldBuilders(fieldBuilders)

	rows := 0
	pos := 0
	for pos < len(data) {
		if isDone != nil && isDone() {
			return nil
		}

		nl := bytes.IndexByte(data[pos:], '\n')
		var line []byte
		if nl < 0 {
			line = data[pos:]
			pos = len(data)
		} else {
			line = data[pos : pos+nl]
			pos += nl + 1
		}

		values, ok := b.scanner.Parse(string(line))
		if !ok {
			b.stats.RecordSkip()
			continue
		}
		b.stats.RecordMatch()

		appendRow(fieldBuilders, b.scanner, values, p.File.Path(), string(line), b.opts)
		rows++

		if rows >= b.opts.TargetRows {
			rec := buildRecord(b.schema, fieldBuilders)
			rows = 0
			if err := emit(rec); err != nil {
				return err
			}
		}
	}

	if rows > 0 {
		rec := buildRecord(b.schema, fieldBuilders)
		if err := emit(rec); err != nil {
			return err
		}
	}
	return nil
}

type fieldBuilder struct {
	kind   fieldtype.Kind
	i32    *array.Int32Builder
	f64    *array.Float64Builder
	str    *array.StringBuilder
}

func newFieldBuilders(alloc memory.Allocator, schema *arrow.Schema) []*fieldBuilder {
	out := make([]*fieldBuilder, schema.NumFields())
	for i, f := range schema.Fields() {
		switch f.Type.ID() {
		case arrow.INT32:
			out[i] = &fieldBuilder{kind: fieldtype.Integer32, i32: array.NewInt32Builder(alloc)}
		case arrow.FLOAT64:
			out[i] = &fieldBuilder{kind: fieldtype.Float64, f64: array.NewFloat64Builder(alloc)}
		default:
			out[i] = &fieldBuilder{kind: fieldtype.Utf8String, str: array.NewStringBuilder(alloc)}
		}
	}
	return out
}

func releaseFieldBuilders(fbs []*fieldBuilder) {
	for _, fb := range fbs {
		switch {
		case fb.i32 != nil:
			fb.i32.Release()
		case fb.f64 != nil:
			fb.f64.Release()
		default:
			fb.str.Release()
		}
	}
}

// appendRow appends one parsed row's worth of values into fbs, in column
// order: the scanner's fields first, then __FILE__/__RAW__ when enabled.
// Integer32/Float64 columns that fail to parse become null rather than
// failing the row (spec §4.5: "a value that fails to parse as its column's
// storage type becomes null, the row is still produced").
func appendRow(fbs []*fieldBuilder, sc *scanner.Scanner, values []*string, filePath, rawLine string, opts Options) {
	col := 0
	for _, v := range values {
		appendScalar(fbs[col], v)
		col++
	}
	if opts.IncludeFile {
		fbs[col].str.Append(filePath)
		col++
	}
	if opts.IncludeRaw {
		fbs[col].str.Append(rawLine)
		col++
	}
}

func appendScalar(fb *fieldBuilder, v *string) {
	switch fb.kind {
	case fieldtype.Integer32:
		if v == nil {
			fb.i32.AppendNull()
			return
		}
		n, err := strconv.ParseInt(*v, 10, 32)
		if err != nil {
			fb.i32.AppendNull()
			return
		}
		fb.i32.Append(int32(n))
	case fieldtype.Float64:
		if v == nil {
			fb.f64.AppendNull()
			return
		}
		n, err := strconv.ParseFloat(*v, 64)
		if err != nil {
			fb.f64.AppendNull()
			return
		}
		fb.f64.Append(n)
	default:
		if v == nil {
			fb.str.AppendNull()
			return
		}
		fb.str.Append(*v)
	}
}

func buildRecord(schema *arrow.Schema, fbs []*fieldBuilder) arrow.Record {
	cols := make([]arrow.Array, len(fbs))
	for i, fb := range fbs {
		switch {
		case fb.i32 != nil:
			cols[i] = fb.i32.NewArray()
		case fb.f64 != nil:
			cols[i] = fb.f64.NewArray()
		default:
			cols[i] = fb.str.NewArray()
		}
	}
	rows := int64(0)
	if len(cols) > 0 {
		rows = int64(cols[0].Len())
	}
	rec := array.NewRecord(schema, cols, rows)
	for _, c := range cols {
		c.Release()
	}
	return rec
}
