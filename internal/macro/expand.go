package macro

import (
	"regexp"
	"strings"

	"github.com/lflog/lflog/internal/fieldtype"
	"github.com/lflog/lflog/internal/lflogerr"
)

// Expanded is the output of expanding a tokenised pattern: the plain
// named-capture regex the scanner compiles, and the ordered, uniquely-named
// field list the rest of the pipeline treats as the table's schema.
type Expanded struct {
	Regex  string
	Fields []fieldtype.Field
}

// rawCapturePattern finds the named captures a user wrote directly into a
// literal segment, e.g. `(?P<level>\w+)`, so they contribute columns too
// (spec §4.2).
var rawCapturePattern = regexp.MustCompile(`\(\?P<([A-Za-z_][A-Za-z0-9_]*)>`)

// Expand walks segments in order and produces the expanded regex plus field
// list. custom is the set of config-supplied macro kinds (spec §6's
// custom_macros); it may be nil.
func Expand(segments []Segment, custom map[string]CustomKind) (*Expanded, error) {
	var regexBuf strings.Builder
	var fields []fieldtype.Field
	seen := map[string]bool{}

	addField := func(f fieldtype.Field) error {
		if seen[f.Name] {
			return lflogerr.New(lflogerr.DuplicateField,
				"field %q is declared more than once", f.Name)
		}
		seen[f.Name] = true
		fields = append(fields, f)
		return nil
	}

	for _, seg := range segments {
		switch seg.Kind {
		case Literal:
			regexBuf.WriteString(seg.Text)
			for _, m := range rawCapturePattern.FindAllStringSubmatchIndex(seg.Text, -1) {
				name := seg.Text[m[2]:m[3]]
				if err := addField(fieldtype.Field{Name: name, Kind: fieldtype.Utf8String}); err != nil {
					return nil, err
				}
			}
		case Macro:
			exp, err := resolveMacro(seg, custom)
			if err != nil {
				return nil, err
			}
			if exp.verbatim {
				regexBuf.WriteString(exp.inner)
			} else {
				regexBuf.WriteString("(?P<")
				regexBuf.WriteString(seg.Name)
				regexBuf.WriteString(">")
				regexBuf.WriteString(exp.inner)
				regexBuf.WriteString(")")
			}
			if err := addField(fieldtype.Field{Name: seg.Name, Kind: exp.kind, Meta: exp.meta}); err != nil {
				return nil, err
			}
		}
	}

	return &Expanded{Regex: regexBuf.String(), Fields: fields}, nil
}

// resolveMacro dispatches a macro occurrence to its builtin or
// config-supplied expansion. A bare {{name}} (seg.MacroKind == "") defaults
// to "any" per §4.2.
func resolveMacro(seg Segment, custom map[string]CustomKind) (expansion, error) {
	kind := seg.MacroKind
	if kind == "" {
		kind = "any"
	}

	if fn, ok := builtinKinds[kind]; ok {
		return fn(seg.Args, seg.Offset)
	}
	if custom != nil {
		if ck, ok := custom[kind]; ok {
			return ck.expand(seg.Name)
		}
	}
	return expansion{}, lflogerr.New(lflogerr.UnknownMacroKind,
		"macro kind %q (field %q, offset %d) is neither builtin nor configured", kind, seg.Name, seg.Offset)
}

// ExpandPattern is the convenience entry point: tokenise then expand.
func ExpandPattern(pattern string, custom map[string]CustomKind) (*Expanded, error) {
	segments, err := Parse(pattern)
	if err != nil {
		return nil, err
	}
	return Expand(segments, custom)
}
