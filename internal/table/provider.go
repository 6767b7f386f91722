package table

import (
	gmssql "github.com/dolthub/go-mysql-server/sql"

	"github.com/lflog/lflog/internal/batch"
	"github.com/lflog/lflog/internal/scanner"
	"github.com/lflog/lflog/internal/source"
)

// LogTable adapts one scanned pattern over a set of partitions into a
// gmssql.Table. It implements gmssql.ProjectedTable but deliberately does
// not implement any filter-pushdown interface: predicates are always
// evaluated by the engine above the scan (spec §4.6).
type LogTable struct {
	name        string
	scanner     *scanner.Scanner
	partitions  []*source.Partition
	includeFile bool
	includeRaw  bool
	targetRows  int
	projections []string
	stats       *scanner.Stats
}

var (
	_ gmssql.Table          = (*LogTable)(nil)
	_ gmssql.ProjectedTable = (*LogTable)(nil)
)

// New builds a LogTable named name over partitions, using sc to parse every
// line. includeFile/includeRaw append the __FILE__/__RAW__ metadata columns
// (spec §4.5-§4.6); targetRows <= 0 falls back to batch.DefaultTargetRows.
func New(name string, sc *scanner.Scanner, partitions []*source.Partition, includeFile, includeRaw bool, targetRows int) *LogTable {
	return &LogTable{
		name:        name,
		scanner:     sc,
		partitions:  partitions,
		includeFile: includeFile,
		includeRaw:  includeRaw,
		targetRows:  targetRows,
		stats:       &scanner.Stats{},
	}
}

// Stats returns the running total of every line this table's partitions have
// scanned so far, across every PartitionRows call issued for it (spec §5,
// SPEC_FULL §C: the physical scan node aggregates lines-scanned/matched/
// skipped so a silently-dropped parse failure is still observable).
func (t *LogTable) Stats() *scanner.Stats {
	return t.stats
}

func (t *LogTable) Name() string { return t.name }

func (t *LogTable) String() string { return t.name }

func (t *LogTable) Schema() gmssql.Schema {
	full := RelationalSchema(t.name, t.scanner, t.includeFile, t.includeRaw)
	if t.projections == nil {
		return full
	}
	return projectSchema(full, t.projections)
}

func (t *LogTable) Collation() gmssql.CollationID {
	return gmssql.Collation_Default
}

// Partitions reports one gmssql.Partition per planned byte range; the count
// is what the engine uses as this scan's parallelism (spec §4.4).
func (t *LogTable) Partitions(ctx *gmssql.Context) (gmssql.PartitionIter, error) {
	return &partitionIter{partitions: t.partitions}, nil
}

// PartitionRows streams the rows of a single partition, honoring whatever
// projection the engine has pushed down via WithProjections.
func (t *LogTable) PartitionRows(ctx *gmssql.Context, part gmssql.Partition) (gmssql.RowIter, error) {
	p, ok := part.(*logPartition)
	if !ok {
		return nil, errUnexpectedPartition
	}
	opts := batch.Options{
		TargetRows:  t.targetRows,
		IncludeFile: t.includeFile,
		IncludeRaw:  t.includeRaw,
	}
	b := batch.NewBuilder(t.scanner, opts)
	projIdx := projectionIndices(b.SchemaColumnNames(), t.projections)
	return newScanRowIter(ctx, b, p.partition, projIdx, t.stats), nil
}

// WithProjections returns a copy of t restricted to the named columns, in
// the order columns lists them. A nil or empty columns list means
// "all columns" (spec §4.6: "projection is the only pushdown this table
// claims").
func (t *LogTable) WithProjections(columns []string) gmssql.Table {
	clone := *t
	clone.projections = columns
	return &clone
}

// Projections returns the currently pushed-down projection, or nil if none.
func (t *LogTable) Projections() []string {
	return t.projections
}

func projectSchema(full gmssql.Schema, keep []string) gmssql.Schema {
	index := map[string]*gmssql.Column{}
	for _, c := range full {
		index[c.Name] = c
	}
	out := make(gmssql.Schema, 0, len(keep))
	for _, name := range keep {
		if c, ok := index[name]; ok {
			out = append(out, c)
		}
	}
	return out
}

// projectionIndices resolves a projected column-name list into indices into
// the builder's full (unprojected) column order. A nil/empty projection
// means every column, in order.
func projectionIndices(allNames []string, projection []string) []int {
	if len(projection) == 0 {
		idx := make([]int, len(allNames))
		for i := range allNames {
			idx[i] = i
		}
		return idx
	}
	pos := map[string]int{}
	for i, n := range allNames {
		pos[n] = i
	}
	out := make([]int, 0, len(projection))
	for _, name := range projection {
		if i, ok := pos[name]; ok {
			out = append(out, i)
		}
	}
	return out
}
