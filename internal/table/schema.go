// Package table exposes a scanned pattern as a go-mysql-server table
// provider (spec §4.6-§4.7, components C7/C8): the relational schema a
// query planner sees, and the physical scan that feeds it rows.
package table

import (
	gmssql "github.com/dolthub/go-mysql-server/sql"
	"github.com/dolthub/go-mysql-server/sql/types"

	"github.com/lflog/lflog/internal/batch"
	"github.com/lflog/lflog/internal/scanner"
)

// RelationalSchema builds the go-mysql-server schema for sc's columns, in
// the same order a Builder would emit them, including __FILE__/__RAW__ when
// requested. tableName is stamped onto every gmssql.Column (required by the
// engine's column resolution).
func RelationalSchema(tableName string, sc *scanner.Scanner, includeFile, includeRaw bool) gmssql.Schema {
	cols := make(gmssql.Schema, 0, sc.NumFields()+2)
	for i, name := range sc.FieldNames() {
		cols = append(cols, &gmssql.Column{
			Name:     name,
			Type:     sc.FieldTypes()[i].RelationalType(),
			Nullable: true,
			Source:   tableName,
		})
	}
	if includeFile {
		cols = append(cols, &gmssql.Column{Name: batch.FileColumn, Type: types.Text, Source: tableName})
	}
	if includeRaw {
		cols = append(cols, &gmssql.Column{Name: batch.RawColumn, Type: types.Text, Source: tableName})
	}
	return cols
}
