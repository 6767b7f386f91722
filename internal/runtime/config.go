// Package runtime holds lflog's process-level settings and the
// deserialized shape of its TOML configuration file (spec §6). Neither the
// env/flag parsing nor the TOML decoding itself is core logic — both are
// external collaborators per spec §1 — but the core depends on the
// resulting values, so they live here rather than in cmd/lflog.
package runtime

import (
	"os"
	"strconv"

	"github.com/lflog/lflog/internal/source"
)

// Config is the process-level settings the core consults: how many worker
// tasks to plan partitions for, and the default batch row-count target.
// Adapted from the teacher's internal/config.Config + getEnv pattern.
type Config struct {
	Threads    int
	TargetRows int
}

// Load builds a Config from LFLOGTHREADS (falling back to
// source.DefaultThreads) and the given defaultTargetRows, letting an
// explicit --num-threads flag override the environment (spec §5:
// "overridable by LFLOGTHREADS environment variable or explicit option").
func Load(explicitThreads, defaultTargetRows int) *Config {
	threads := explicitThreads
	if threads <= 0 {
		threads = getEnvInt("LFLOGTHREADS", source.DefaultThreads)
	}
	return &Config{
		Threads:    threads,
		TargetRows: defaultTargetRows,
	}
}

func getEnvInt(key string, defaultValue int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return defaultValue
	}
	return n
}

// ConfigPath resolves --config's default: LFLOG_CONFIG if set, otherwise
// ~/.config/lflog/config.toml (spec §6).
func ConfigPath(explicit string) string {
	if explicit != "" {
		return explicit
	}
	if v := os.Getenv("LFLOG_CONFIG"); v != "" {
		return v
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".config/lflog/config.toml"
	}
	return home + "/.config/lflog/config.toml"
}
