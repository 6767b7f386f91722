package runtime

import (
	"github.com/lflog/lflog/internal/fieldtype"
	"github.com/lflog/lflog/internal/lflogerr"
	"github.com/lflog/lflog/internal/macro"
)

// FileConfig is the deserialized shape of the TOML configuration document
// (spec §6): two top-level arrays, custom_macros and profiles. The core
// never parses TOML itself; cmd/lflog decodes into this struct with
// github.com/BurntSushi/toml and hands the result here.
type FileConfig struct {
	CustomMacros []CustomMacroEntry `toml:"custom_macros"`
	Profiles     []ProfileEntry     `toml:"profiles"`
}

// CustomMacroEntry is one custom_macros record.
type CustomMacroEntry struct {
	Name     string `toml:"name"`
	Pattern  string `toml:"pattern"`
	TypeHint string `toml:"type_hint"`
}

// ProfileEntry is one profiles record.
type ProfileEntry struct {
	Name        string `toml:"name"`
	Pattern     string `toml:"pattern"`
	Description string `toml:"description"`
}

// CustomKinds converts the config's custom_macros array into the map shape
// internal/macro.Expand expects, keyed by macro kind name.
func (fc *FileConfig) CustomKinds() map[string]macro.CustomKind {
	if len(fc.CustomMacros) == 0 {
		return nil
	}
	out := make(map[string]macro.CustomKind, len(fc.CustomMacros))
	for _, m := range fc.CustomMacros {
		out[m.Name] = macro.CustomKind{
			Pattern:  m.Pattern,
			TypeHint: fieldtype.ParseKind(m.TypeHint),
		}
	}
	return out
}

// ResolveProfile looks up name among the config's profiles. Two profiles
// sharing a name is rejected here, at load time, rather than letting the
// second silently win (spec §9 open question, resolved as "treat as an
// error").
func (fc *FileConfig) ResolveProfile(name string) (ProfileEntry, error) {
	seen := map[string]bool{}
	var found *ProfileEntry
	for i := range fc.Profiles {
		p := fc.Profiles[i]
		if seen[p.Name] {
			return ProfileEntry{}, lflogerr.New(lflogerr.InputUnavailable,
				"config declares profile %q more than once", p.Name)
		}
		seen[p.Name] = true
		if p.Name == name {
			found = &fc.Profiles[i]
		}
	}
	if found == nil {
		return ProfileEntry{}, lflogerr.New(lflogerr.InputUnavailable, "no profile named %q", name)
	}
	return *found, nil
}
