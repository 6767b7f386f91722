package scanner

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lflog/lflog/internal/fieldtype"
	"github.com/lflog/lflog/internal/lflogerr"
	"github.com/lflog/lflog/internal/macro"
)

func buildScanner(t *testing.T, pattern string) *Scanner {
	t.Helper()
	exp, err := macro.ExpandPattern(pattern, nil)
	require.NoError(t, err)
	s, err := New(exp.Regex, exp.Fields)
	require.NoError(t, err)
	return s
}

func TestScanner_NonMatchSkipped(t *testing.T) {
	s := buildScanner(t, `{{lvl:enum(INFO,WARN,ERROR)}}: {{message:any}}`)

	lines := []string{"INFO: starting up", "this line matches nothing"}
	var matched, skipped int
	for _, l := range lines {
		if _, ok := s.Parse(l); ok {
			matched++
		} else {
			skipped++
		}
	}
	assert.Equal(t, 1, matched)
	assert.Equal(t, 1, skipped)
}

func TestScanner_OptionalGroupYieldsNilNotEmptyString(t *testing.T) {
	exp, err := macro.ExpandPattern(`(?P<a>\d+)(?: (?P<b>\w+))?$`, nil)
	require.NoError(t, err)
	s, err := New(exp.Regex, exp.Fields)
	require.NoError(t, err)

	values, ok := s.Parse("42")
	require.True(t, ok)
	require.Len(t, values, 2)
	require.NotNil(t, values[0])
	assert.Equal(t, "42", *values[0])
	assert.Nil(t, values[1])
}

func TestScanner_ValuesAreSubstringsOfLine(t *testing.T) {
	s := buildScanner(t, `{{method:var_name}} {{path:any}} {{status:number}} {{bytes:number}}`)
	line := "GET /x 200 1523"
	values, ok := s.Parse(line)
	require.True(t, ok)
	require.Len(t, values, s.NumFields())
	for _, v := range values {
		if v != nil {
			assert.Contains(t, line, *v)
		}
	}
}

func TestScanner_SchemaMismatchIsFatal(t *testing.T) {
	_, err := New(`(?P<a>\d+)`, []fieldtype.Field{{Name: "b", Kind: fieldtype.Utf8String}})
	require.Error(t, err)
	var lfErr *lflogerr.Error
	require.True(t, errors.As(err, &lfErr))
	assert.Equal(t, lflogerr.SchemaMismatch, lfErr.Kind)
}

func TestScanner_InvariantLengths(t *testing.T) {
	s := buildScanner(t, `{{a:number}} {{b:any}}`)
	assert.Len(t, s.FieldNames(), s.NumFields())
	assert.Len(t, s.FieldTypes(), s.NumFields())
	assert.Len(t, s.FieldMeta(), s.NumFields())
}
