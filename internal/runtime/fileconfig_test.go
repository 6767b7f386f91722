package runtime

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lflog/lflog/internal/fieldtype"
)

func TestFileConfig_ResolveProfile(t *testing.T) {
	fc := &FileConfig{Profiles: []ProfileEntry{
		{Name: "apache", Pattern: "{{level:var_name}}"},
		{Name: "nginx", Pattern: "{{status:number}}"},
	}}

	p, err := fc.ResolveProfile("nginx")
	require.NoError(t, err)
	assert.Equal(t, "{{status:number}}", p.Pattern)

	_, err = fc.ResolveProfile("missing")
	assert.Error(t, err)
}

func TestFileConfig_ResolveProfile_DuplicateNameIsError(t *testing.T) {
	fc := &FileConfig{Profiles: []ProfileEntry{
		{Name: "apache", Pattern: "a"},
		{Name: "apache", Pattern: "b"},
	}}

	_, err := fc.ResolveProfile("apache")
	assert.Error(t, err)
}

func TestFileConfig_CustomKinds(t *testing.T) {
	fc := &FileConfig{CustomMacros: []CustomMacroEntry{
		{Name: "hexid", Pattern: `(?P<{{name}}>[0-9a-f]+)`, TypeHint: "Integer32"},
	}}

	kinds := fc.CustomKinds()
	require.Contains(t, kinds, "hexid")
	assert.Equal(t, fieldtype.Integer32, kinds["hexid"].TypeHint)
}

func TestConfig_LoadPrefersExplicitThreadsOverEnv(t *testing.T) {
	t.Setenv("LFLOGTHREADS", "16")
	cfg := Load(4, 1000)
	assert.Equal(t, 4, cfg.Threads)
	assert.Equal(t, 1000, cfg.TargetRows)
}

func TestConfig_LoadFallsBackToEnv(t *testing.T) {
	t.Setenv("LFLOGTHREADS", "16")
	cfg := Load(0, 1000)
	assert.Equal(t, 16, cfg.Threads)
}
