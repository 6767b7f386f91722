// Package fieldtype enumerates the column semantic types lflog can derive
// from a pattern and maps each one onto the concrete storage and relational
// representation the rest of the pipeline uses.
package fieldtype

import (
	"fmt"
	"strings"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/dolthub/go-mysql-server/sql/types"
	gmssql "github.com/dolthub/go-mysql-server/sql"
)

// Kind is the closed set of column semantic types a macro or raw capture
// can produce. It is a sum type on purpose (§9 design notes: "avoid open
// dispatch to keep compile-time exhaustiveness") — adding a case means
// touching ArrowType, RelationalType and String together.
type Kind int

const (
	// Integer32 stores decimal integers; unparsable text becomes null.
	Integer32 Kind = iota
	// Float64 stores decimal floating point values; unparsable text becomes null.
	Float64
	// Utf8String stores the captured text verbatim.
	Utf8String
	// DateTime stores the captured text verbatim; the strftime-style format
	// string supplied to datetime(...) is retained as metadata only (§9
	// open question: no temporal typing is specified).
	DateTime
	// Enum stores the captured text verbatim; the allowed-value set is
	// retained as metadata for documentation/validation, not enforced
	// again at the storage layer (the regex already enforces it).
	Enum
)

func (k Kind) String() string {
	switch k {
	case Integer32:
		return "Integer32"
	case Float64:
		return "Float64"
	case Utf8String:
		return "Utf8String"
	case DateTime:
		return "DateTime"
	case Enum:
		return "Enum"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// ArrowType returns the Arrow column type backing this kind in a batch
// (spec §3: "Every variant maps to exactly one relational type").
func (k Kind) ArrowType() arrow.DataType {
	switch k {
	case Integer32:
		return arrow.PrimitiveTypes.Int32
	case Float64:
		return arrow.PrimitiveTypes.Float64
	case Utf8String, DateTime, Enum:
		return arrow.BinaryTypes.String
	default:
		panic("fieldtype: unhandled kind in ArrowType: " + k.String())
	}
}

// RelationalType returns the go-mysql-server type the table provider
// advertises for a column of this kind.
func (k Kind) RelationalType() gmssql.Type {
	switch k {
	case Integer32:
		return types.Int32
	case Float64:
		return types.Float64
	case Utf8String, DateTime, Enum:
		return types.Text
	default:
		panic("fieldtype: unhandled kind in RelationalType: " + k.String())
	}
}

// ParseKind resolves a type-hint string (as supplied alongside a custom
// macro kind in the configuration file, spec §4.2) to a Kind. Matching is
// case-insensitive; an unrecognised name falls back to Utf8String, the same
// default a custom kind gets when no hint is supplied.
func ParseKind(name string) Kind {
	switch strings.ToLower(name) {
	case "integer32", "int32", "int":
		return Integer32
	case "float64", "float":
		return Float64
	case "datetime":
		return DateTime
	case "enum":
		return Enum
	default:
		return Utf8String
	}
}

// Metadata carries the per-kind side information the storage representation
// doesn't need but downstream tooling (UDFs, documentation, `DESCRIBE`) does:
// the retained strftime format for DateTime fields, and the allowed-value
// set for Enum fields. Zero value means "no extra metadata".
type Metadata struct {
	// DateTimeFormat is the strftime-style format string passed to
	// datetime(fmt); empty unless Kind == DateTime.
	DateTimeFormat string
	// EnumValues is the allowed-value set passed to enum(a,b,...), in the
	// order they were declared; empty unless Kind == Enum.
	EnumValues []string
}

// Field is one column of the derived schema: a unique name, its semantic
// kind, and any per-kind metadata.
type Field struct {
	Name string
	Kind Kind
	Meta Metadata
}
