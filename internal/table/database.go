package table

import (
	"strings"

	gmssql "github.com/dolthub/go-mysql-server/sql"
)

// Database is the single-table gmssql.Database lflog registers with the
// engine: one query process, one table (spec §6: "--table NAME, default
// log"). There is no CREATE/DROP support — the table set is fixed for the
// lifetime of the process.
type Database struct {
	name  string
	table *LogTable
}

var _ gmssql.Database = (*Database)(nil)

// NewDatabase wraps tbl as the sole table of a database named name.
func NewDatabase(name string, tbl *LogTable) *Database {
	return &Database{name: name, table: tbl}
}

func (d *Database) Name() string { return d.name }

func (d *Database) GetTableInsensitive(ctx *gmssql.Context, tblName string) (gmssql.Table, bool, error) {
	if !strings.EqualFold(tblName, d.table.Name()) {
		return nil, false, nil
	}
	return d.table, true, nil
}

func (d *Database) GetTableNames(ctx *gmssql.Context) ([]string, error) {
	return []string{d.table.Name()}, nil
}

// Provider is the gmssql.DatabaseProvider lflog registers with the engine:
// a single fixed database (cmd/lflog gives it the same name as the table).
type Provider struct {
	db *Database
}

var _ gmssql.DatabaseProvider = (*Provider)(nil)

// NewProvider wraps db as the engine's only visible database.
func NewProvider(db *Database) *Provider {
	return &Provider{db: db}
}

func (p *Provider) Database(ctx *gmssql.Context, name string) (gmssql.Database, error) {
	if !strings.EqualFold(name, p.db.Name()) {
		return nil, gmssql.ErrDatabaseNotFound.New(name)
	}
	return p.db, nil
}

func (p *Provider) HasDatabase(ctx *gmssql.Context, name string) bool {
	return strings.EqualFold(name, p.db.Name())
}

func (p *Provider) AllDatabases(ctx *gmssql.Context) []gmssql.Database {
	return []gmssql.Database{p.db}
}
