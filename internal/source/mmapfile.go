// Package source owns the memory-mapped input files and splits them into
// newline-aligned byte ranges for parallel scanning (spec §4.4, §3's
// "Partition", component C5).
package source

import (
	"os"
	"path/filepath"

	"github.com/edsrzf/mmap-go"

	"github.com/lflog/lflog/internal/lflogerr"
)

// File is a single memory-mapped input file. It is shared, read-only,
// across every partition derived from it; the underlying mapping stays
// alive until Close, which the scan's owner calls once the whole scan has
// torn down (spec §5: "Mmap region: shared read-only across tasks").
type File struct {
	path string
	f    *os.File
	data mmap.MMap
}

// Open memory-maps path read-only. An empty file maps to a zero-length
// region rather than failing.
func Open(path string) (*File, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		return nil, lflogerr.Wrap(lflogerr.InputUnavailable, err, "resolving path %q", path)
	}

	f, err := os.Open(abs)
	if err != nil {
		return nil, lflogerr.Wrap(lflogerr.InputUnavailable, err, "opening %q", abs)
	}

	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, lflogerr.Wrap(lflogerr.InputUnavailable, err, "statting %q", abs)
	}

	if info.Size() == 0 {
		return &File{path: abs, f: f, data: nil}, nil
	}

	data, err := mmap.Map(f, mmap.RDONLY, 0)
	if err != nil {
		f.Close()
		return nil, lflogerr.Wrap(lflogerr.InputUnavailable, err, "mmap %q", abs)
	}
	return &File{path: abs, f: f, data: data}, nil
}

// Path returns the file's absolute path, used verbatim as the __FILE__
// metadata column value (spec §4.5).
func (fl *File) Path() string {
	return fl.path
}

// Bytes returns the whole mapped region. Callers must not mutate it.
func (fl *File) Bytes() []byte {
	return []byte(fl.data)
}

// Close unmaps the file and releases its handle. Safe to call once all
// partitions derived from this file have been consumed.
func (fl *File) Close() error {
	var err error
	if fl.data != nil {
		err = fl.data.Unmap()
	}
	if cerr := fl.f.Close(); err == nil {
		err = cerr
	}
	return err
}
