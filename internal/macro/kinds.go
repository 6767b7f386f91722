package macro

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/lflog/lflog/internal/fieldtype"
	"github.com/lflog/lflog/internal/lflogerr"
)

// expansion is what a macro kind resolves to: a regex fragment and the
// field's semantic kind/metadata. Builtin kinds produce an inner pattern
// this package wraps in (?P<name>...); custom kinds supply a fragment that
// already contains its own named capture and is used verbatim (§4.2).
type expansion struct {
	inner    string
	verbatim bool
	kind     fieldtype.Kind
	meta     fieldtype.Metadata
}

// builtinKinds is the closed sum type of macro kinds lflog understands
// without any configuration collaborator (spec §4.2's table), expressed as
// a side table rather than a switch so custom kinds can be layered on
// top without the two dispatch paths diverging in shape (§9 design notes).
var builtinKinds = map[string]func(args string, offset int) (expansion, error){
	"number": func(args string, offset int) (expansion, error) {
		return expansion{inner: `\d+`, kind: fieldtype.Integer32}, nil
	},
	"string": func(args string, offset int) (expansion, error) {
		return expansion{inner: `.*?`, kind: fieldtype.Utf8String}, nil
	},
	"any": func(args string, offset int) (expansion, error) {
		return expansion{inner: `.*?`, kind: fieldtype.Utf8String}, nil
	},
	"var_name": func(args string, offset int) (expansion, error) {
		return expansion{inner: `[A-Za-z_][A-Za-z0-9_]*`, kind: fieldtype.Utf8String}, nil
	},
	"uuid": func(args string, offset int) (expansion, error) {
		return expansion{
			inner: `[0-9a-fA-F]{8}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{4}-[0-9a-fA-F]{12}`,
			kind:  fieldtype.Utf8String,
		}, nil
	},
	"ip": func(args string, offset int) (expansion, error) {
		return expansion{inner: `\d{1,3}\.\d{1,3}\.\d{1,3}\.\d{1,3}`, kind: fieldtype.Utf8String}, nil
	},
	"datetime": func(args string, offset int) (expansion, error) {
		format, err := unquoteDatetimeArg(args, offset)
		if err != nil {
			return expansion{}, err
		}
		// §9 open question: the source never distinguishes actual temporal
		// typing from string storage; we store the text verbatim and keep
		// the format string as metadata only.
		return expansion{
			inner: `.*?`,
			kind:  fieldtype.DateTime,
			meta:  fieldtype.Metadata{DateTimeFormat: format},
		}, nil
	},
	"enum": func(args string, offset int) (expansion, error) {
		values := splitEnumArgs(args)
		if len(values) == 0 {
			return expansion{}, lflogerr.New(lflogerr.PatternSyntax,
				"enum(...) at offset %d has no values", offset)
		}
		escaped := make([]string, len(values))
		for i, v := range values {
			escaped[i] = regexp.QuoteMeta(v)
		}
		return expansion{
			inner: strings.Join(escaped, "|"),
			kind:  fieldtype.Enum,
			meta:  fieldtype.Metadata{EnumValues: values},
		}, nil
	},
}

// unquoteDatetimeArg validates that args is exactly one double-quoted
// string (spec §6: "a single double-quoted format string") and returns its
// contents. The grammar allows no escaping other than the literal `"`
// terminator, so the body is everything between the first and last quote.
func unquoteDatetimeArg(args string, offset int) (string, error) {
	args = trimSpace(args)
	if len(args) < 2 || args[0] != '"' || args[len(args)-1] != '"' {
		return "", lflogerr.New(lflogerr.PatternSyntax,
			"datetime(...) at offset %d requires a double-quoted format string", offset)
	}
	return args[1 : len(args)-1], nil
}

// splitEnumArgs splits a comma-separated bare token list, trimming
// surrounding whitespace from each token.
func splitEnumArgs(args string) []string {
	if trimSpace(args) == "" {
		return nil
	}
	parts := strings.Split(args, ",")
	values := make([]string, 0, len(parts))
	for _, p := range parts {
		v := trimSpace(p)
		if v != "" {
			values = append(values, v)
		}
	}
	return values
}

// CustomKind is a macro kind supplied by the configuration collaborator
// (spec §6: custom_macros entries with name, pattern, optional type_hint).
// Pattern must contain the literal placeholder "{{name}}" exactly once,
// substituted with the macro occurrence's field name to build the named
// capture group — the same macro-substitution idea lflog itself uses,
// applied one level up.
type CustomKind struct {
	Pattern  string
	TypeHint fieldtype.Kind
}

func (c CustomKind) expand(name string) (expansion, error) {
	if !strings.Contains(c.Pattern, "{{name}}") {
		return expansion{}, fmt.Errorf("custom macro pattern missing {{name}} placeholder: %q", c.Pattern)
	}
	fragment := strings.ReplaceAll(c.Pattern, "{{name}}", name)
	return expansion{inner: fragment, verbatim: true, kind: c.TypeHint}, nil
}
