// Package macro tokenises an lflog pattern into literal regex text and
// `{{name:kind(args)}}` macro occurrences (spec §4.1, component C2), then
// expands those occurrences into a plain named-capture regex plus a typed
// field list (spec §4.2, component C3).
package macro

import (
	"regexp"

	"github.com/lflog/lflog/internal/lflogerr"
)

// SegmentKind distinguishes the two forms a parsed pattern decomposes into.
type SegmentKind int

const (
	// Literal is regex text the user wrote outside of any {{...}} form,
	// passed through to the expanded regex unchanged.
	Literal SegmentKind = iota
	// Macro is a parsed {{name:kind(args)}} (or bare {{name}}) occurrence.
	Macro
)

// Segment is one unit of a tokenised pattern.
type Segment struct {
	Kind SegmentKind

	// Offset is the byte offset in the original pattern where this
	// segment starts (the literal text, or the "{{" of a macro).
	Offset int

	// Text is the literal text; only set when Kind == Literal.
	Text string

	// Name, MacroKind and Args are only set when Kind == Macro.
	// MacroKind is "" for a bare {{name}} (defaults to "any" per §4.2).
	Name      string
	MacroKind string
	Args      string
}

var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// ValidIdentifier reports whether name is legal as both an lflog field name
// and a regexp named-capture group name.
func ValidIdentifier(name string) bool {
	return identifierPattern.MatchString(name)
}

// Parse tokenises pattern into an ordered stream of segments, rejecting
// unbalanced braces, malformed macro heads, and macro-name duplicates
// among the macros themselves (raw named captures are checked for
// duplicates later, during expansion, once they're known too).
func Parse(pattern string) ([]Segment, error) {
	var segments []Segment
	seenNames := map[string]bool{}

	i := 0
	literalStart := 0
	n := len(pattern)

	flushLiteral := func(end int) {
		if end > literalStart {
			segments = append(segments, Segment{
				Kind:   Literal,
				Offset: literalStart,
				Text:   pattern[literalStart:end],
			})
		}
	}

	for i < n {
		if i+1 < n && pattern[i] == '{' && pattern[i+1] == '{' {
			flushLiteral(i)
			macroStart := i
			bodyStart := i + 2
			end, err := findMacroEnd(pattern, bodyStart)
			if err != nil {
				return nil, err
			}
			body := pattern[bodyStart:end]
			seg, err := parseMacroBody(body, macroStart)
			if err != nil {
				return nil, err
			}
			if seenNames[seg.Name] {
				return nil, lflogerr.New(lflogerr.DuplicateField,
					"field %q declared by more than one macro", seg.Name)
			}
			seenNames[seg.Name] = true

			segments = append(segments, *seg)
			i = end + 2
			literalStart = i
			continue
		}
		i++
	}
	flushLiteral(n)

	return segments, nil
}

// findMacroEnd scans from the first byte after "{{" and returns the index
// of the "}}" that closes the macro, honoring paren nesting and the
// no-escape double-quoted string form used by datetime("...").
func findMacroEnd(pattern string, start int) (int, error) {
	depth := 0
	inQuote := false
	for i := start; i < len(pattern); i++ {
		c := pattern[i]
		if inQuote {
			if c == '"' {
				inQuote = false
			}
			continue
		}
		switch c {
		case '"':
			inQuote = true
		case '(':
			depth++
		case ')':
			if depth > 0 {
				depth--
			}
		case '}':
			if depth == 0 && i+1 < len(pattern) && pattern[i+1] == '}' {
				return i, nil
			}
		}
	}
	return 0, lflogerr.New(lflogerr.PatternSyntax,
		"unbalanced braces in macro starting at offset %d", start-2)
}

// parseMacroBody splits "name:kind(args)" / "name:kind" / "name" into its
// parts. offset is the absolute offset of the macro's opening "{{".
func parseMacroBody(body string, offset int) (*Segment, error) {
	name, rest, hasKind := splitTopLevel(body, ':')
	name = trimSpace(name)
	if name == "" {
		return nil, lflogerr.New(lflogerr.PatternSyntax,
			"macro at offset %d has an empty name", offset)
	}
	if !ValidIdentifier(name) {
		return nil, lflogerr.New(lflogerr.PatternSyntax,
			"macro name %q at offset %d is not a valid identifier", name, offset)
	}

	seg := &Segment{Kind: Macro, Offset: offset, Name: name}
	if !hasKind {
		return seg, nil
	}

	kind, args, err := splitKindArgs(trimSpace(rest), offset)
	if err != nil {
		return nil, err
	}
	seg.MacroKind = kind
	seg.Args = args
	return seg, nil
}

// splitTopLevel splits s on the first occurrence of sep that is not inside
// parens or a double-quoted string, reporting whether sep was found at all.
func splitTopLevel(s string, sep byte) (before, after string, found bool) {
	depth := 0
	inQuote := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if inQuote {
			if c == '"' {
				inQuote = false
			}
			continue
		}
		switch c {
		case '"':
			inQuote = true
		case '(':
			depth++
		case ')':
			if depth > 0 {
				depth--
			}
		default:
			if c == sep && depth == 0 {
				return s[:i], s[i+1:], true
			}
		}
	}
	return s, "", false
}

// splitKindArgs splits "kind(args)" into ("kind", "args"); a kind with no
// parenthesised argument list returns args == "".
func splitKindArgs(s string, offset int) (kind, args string, err error) {
	paren := -1
	depth := 0
	inQuote := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if inQuote {
			if c == '"' {
				inQuote = false
			}
			continue
		}
		switch c {
		case '"':
			inQuote = true
		case '(':
			if depth == 0 && paren == -1 {
				paren = i
			}
			depth++
		case ')':
			depth--
		}
	}
	if paren == -1 {
		return s, "", nil
	}
	if !(len(s) > 0 && s[len(s)-1] == ')') {
		return "", "", lflogerr.New(lflogerr.PatternSyntax,
			"macro at offset %d has an unterminated argument list", offset)
	}
	return trimSpace(s[:paren]), s[paren+1 : len(s)-1], nil
}

func trimSpace(s string) string {
	start := 0
	for start < len(s) && isSpace(s[start]) {
		start++
	}
	end := len(s)
	for end > start && isSpace(s[end-1]) {
		end--
	}
	return s[start:end]
}

func isSpace(b byte) bool {
	return b == ' ' || b == '\t' || b == '\n' || b == '\r'
}
