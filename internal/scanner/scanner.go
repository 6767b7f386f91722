// Package scanner compiles an expanded pattern into an immutable, regex
// match → column-value extractor (spec §4.3, component C4). A *Scanner is
// constructed once per pattern and shared by reference across every
// partition task; it holds no mutable state.
package scanner

import (
	"regexp"

	"github.com/lflog/lflog/internal/fieldtype"
	"github.com/lflog/lflog/internal/lflogerr"
)

// Scanner parses single lines into positional value vectors according to a
// compiled regex and a typed field list.
type Scanner struct {
	regex         *regexp.Regexp
	fieldNames    []string
	fieldTypes    []fieldtype.Kind
	fieldMeta     []fieldtype.Metadata
	captureIndex  []int // capture group index for field i, into FindSubmatchIndex's pairs
}

// New compiles regexStr, anchored so it must match a whole line, and
// resolves each field to its capture group, failing construction (spec
// §4.3: "failure to resolve is a fatal construction error") if any field
// name isn't a named capture the compiled regex actually declares.
func New(regexStr string, fields []fieldtype.Field) (*Scanner, error) {
	re, err := regexp.Compile(`^(?:` + regexStr + `)$`)
	if err != nil {
		return nil, lflogerr.Wrap(lflogerr.RegexCompile, err, "failed to compile expanded pattern %q", regexStr)
	}

	subexpIndex := map[string]int{}
	for i, name := range re.SubexpNames() {
		if name != "" {
			subexpIndex[name] = i
		}
	}

	s := &Scanner{
		regex:        re,
		fieldNames:   make([]string, len(fields)),
		fieldTypes:   make([]fieldtype.Kind, len(fields)),
		fieldMeta:    make([]fieldtype.Metadata, len(fields)),
		captureIndex: make([]int, len(fields)),
	}
	for i, f := range fields {
		idx, ok := subexpIndex[f.Name]
		if !ok {
			return nil, lflogerr.New(lflogerr.SchemaMismatch,
				"field %q has no corresponding named capture in the compiled regex", f.Name)
		}
		s.fieldNames[i] = f.Name
		s.fieldTypes[i] = f.Kind
		s.fieldMeta[i] = f.Meta
		s.captureIndex[i] = idx
	}
	return s, nil
}

// NumFields returns the number of columns this scanner produces per line.
func (s *Scanner) NumFields() int {
	return len(s.fieldNames)
}

// FieldNames returns the ordered column names.
func (s *Scanner) FieldNames() []string {
	return s.fieldNames
}

// FieldTypes returns the ordered column semantic kinds.
func (s *Scanner) FieldTypes() []fieldtype.Kind {
	return s.fieldTypes
}

// FieldMeta returns the ordered per-column metadata (datetime format,
// enum values).
func (s *Scanner) FieldMeta() []fieldtype.Metadata {
	return s.fieldMeta
}

// Regex exposes the compiled regex (read-only use: e.g. to report the
// expanded pattern back to the caller).
func (s *Scanner) Regex() *regexp.Regexp {
	return s.regex
}

// Parse matches the whole of line against the compiled regex. A line the
// regex does not match from start to end returns (nil, false): the line is
// skipped, no row produced (spec §4.3). On a
// match it returns one *string per field, in field order; a nil entry
// means the corresponding optional group did not participate in the
// match. Non-nil strings are always substrings of line (zero-copy when the
// caller's line itself is a zero-copy slice into a memory-mapped file).
func (s *Scanner) Parse(line string) ([]*string, bool) {
	loc := s.regex.FindStringSubmatchIndex(line)
	if loc == nil {
		return nil, false
	}

	values := make([]*string, len(s.fieldNames))
	for i, capIdx := range s.captureIndex {
		start, end := loc[2*capIdx], loc[2*capIdx+1]
		if start < 0 || end < 0 {
			continue // optional group did not participate
		}
		v := line[start:end]
		values[i] = &v
	}
	return values, true
}
