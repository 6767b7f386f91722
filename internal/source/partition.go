package source

import (
	"bytes"
	"path/filepath"

	"github.com/rs/zerolog/log"
)

// DefaultThreads is the fallback worker count when neither an explicit
// option nor LFLOGTHREADS is set (spec §5).
const DefaultThreads = 8

// minPartitionSize is the smallest byte range the planner will create
// before preferring fewer, larger partitions (spec §4.4: "a minimum range
// size to avoid excessive small partitions").
const minPartitionSize = 1 << 20 // 1 MiB

// Partition is a half-open byte range [Start, End) into a specific mapped
// file, aligned so no line straddles two partitions (spec §3).
type Partition struct {
	File  *File
	Start int64
	End   int64
}

// Bytes returns the partition's slice of its file's mapped region.
func (p *Partition) Bytes() []byte {
	return p.File.Bytes()[p.Start:p.End]
}

// Planner splits a set of input files into partitions sized to keep
// roughly `threads` of them busy per file.
type Planner struct {
	threads int
}

// NewPlanner builds a Planner targeting threads workers; threads <= 0
// falls back to DefaultThreads.
func NewPlanner(threads int) *Planner {
	if threads <= 0 {
		threads = DefaultThreads
	}
	return &Planner{threads: threads}
}

// Plan computes the partition set for files, in file order. The returned
// count is what the caller reports to the SQL engine as the scan's
// parallelism level (spec §4.4).
func (p *Planner) Plan(files []*File) []*Partition {
	var partitions []*Partition
	for _, f := range files {
		parts := p.planFile(f)
		log.Debug().Str("file", f.Path()).Int("partitions", len(parts)).Msg("planned partitions")
		partitions = append(partitions, parts...)
	}
	return partitions
}

func (p *Planner) planFile(f *File) []*Partition {
	data := f.Bytes()
	size := int64(len(data))
	if size == 0 {
		return nil
	}

	n := int64(p.threads)
	if n < 1 {
		n = 1
	}
	// Prefer fewer, larger partitions over many tiny ones.
	if size/n < minPartitionSize {
		n = size / minPartitionSize
		if n < 1 {
			n = 1
		}
	}
	target := size / n
	if target < 1 {
		target = size
	}

	var partitions []*Partition
	start := int64(0)
	for start < size {
		end := start + target
		switch {
		case end >= size:
			end = size
		default:
			end = nextLineBoundary(data, end)
		}
		partitions = append(partitions, &Partition{File: f, Start: start, End: end})
		start = end
	}
	return partitions
}

// nextLineBoundary advances from to the byte immediately after the next
// newline at or after from, or to len(data) if there is none (the final
// partition then simply runs to EOF, with or without a trailing newline,
// per spec §4.4).
func nextLineBoundary(data []byte, from int64) int64 {
	idx := bytes.IndexByte(data[from:], '\n')
	if idx < 0 {
		return int64(len(data))
	}
	return from + int64(idx) + 1
}

// ExpandGlobs resolves a list of paths/globs into a deduplicated list of
// concrete file paths (spec §6: "positional: input path or glob"). Paths
// appear in pattern order; each glob's own matches are in lexical order,
// but the combined list is not sorted.
func ExpandGlobs(patterns []string) ([]string, error) {
	seen := map[string]bool{}
	var out []string
	for _, pat := range patterns {
		matches, err := filepath.Glob(pat)
		if err != nil {
			return nil, err
		}
		if len(matches) == 0 {
			// A literal path with no glob metacharacters that doesn't
			// exist is kept and will be caught later when we try to open
			// it; a glob that matches nothing contributes no paths and is
			// not an error here.
			if !containsGlobMeta(pat) {
				matches = []string{pat}
			}
		}
		for _, m := range matches {
			if !seen[m] {
				seen[m] = true
				out = append(out, m)
			}
		}
	}
	return out, nil
}

func containsGlobMeta(pat string) bool {
	return bytes.ContainsAny([]byte(pat), "*?[")
}
