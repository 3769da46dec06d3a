package sink

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"

	"github.com/klauspost/compress/zstd"

	"github.com/jonathan/issues-dataset/internal/records"
)

// Compression selects how file sinks encode their output.
type Compression string

const (
	CompressionNone Compression = "none"
	CompressionZstd Compression = "zstd"
)

// ParseCompression converts a flag value to a Compression. The empty string
// means no compression.
func ParseCompression(s string) (Compression, error) {
	switch Compression(s) {
	case "", CompressionNone:
		return CompressionNone, nil
	case CompressionZstd:
		return CompressionZstd, nil
	default:
		return "", fmt.Errorf("unknown compression %q: expected none or zstd", s)
	}
}

// Ext returns the filename suffix added for the compression, if any.
func (c Compression) Ext() string {
	if c == CompressionZstd {
		return ".zst"
	}
	return ""
}

// File is an NDJSON file sink. The file is truncated when opened and every
// Write is flushed to the operating system before returning.
type File struct {
	path  string
	file  *os.File
	buf   *bufio.Writer
	zw    *zstd.Encoder
	lines int

	closeOnce sync.Once
	closeErr  error
}

// OpenFile creates or truncates path and returns a sink appending to it.
func OpenFile(path string, compression Compression) (*File, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create output directory %s: %w", dir, err)
		}
	}

	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC|os.O_APPEND, 0644)
	if err != nil {
		return nil, fmt.Errorf("failed to open output file %s: %w", path, err)
	}

	fs := &File{path: path, file: f}
	var w io.Writer = f
	if compression == CompressionZstd {
		zw, err := zstd.NewWriter(f)
		if err != nil {
			_ = f.Close()
			return nil, fmt.Errorf("failed to create zstd writer for %s: %w", path, err)
		}
		fs.zw = zw
		w = zw
	}
	fs.buf = bufio.NewWriter(w)
	return fs, nil
}

// Path returns the file path.
func (f *File) Path() string {
	return f.path
}

// Lines returns the number of records written.
func (f *File) Lines() int {
	return f.lines
}

// Write implements Sink.
func (f *File) Write(_ context.Context, recs []records.Record) error {
	for _, r := range recs {
		line, err := records.MarshalLine(r)
		if err != nil {
			return err
		}
		if _, err := f.buf.Write(line); err != nil {
			return fmt.Errorf("failed to write %s: %w", f.path, err)
		}
		f.lines++
	}
	if err := f.buf.Flush(); err != nil {
		return fmt.Errorf("failed to flush %s: %w", f.path, err)
	}
	if f.zw != nil {
		if err := f.zw.Flush(); err != nil {
			return fmt.Errorf("failed to flush %s: %w", f.path, err)
		}
	}
	return nil
}

// Close flushes and closes the file. It is safe to call more than once.
func (f *File) Close() error {
	f.closeOnce.Do(func() {
		if err := f.buf.Flush(); err != nil {
			f.closeErr = fmt.Errorf("failed to flush %s: %w", f.path, err)
		}
		if f.zw != nil {
			if err := f.zw.Close(); err != nil && f.closeErr == nil {
				f.closeErr = fmt.Errorf("failed to finish zstd stream %s: %w", f.path, err)
			}
		}
		if err := f.file.Close(); err != nil && f.closeErr == nil {
			f.closeErr = fmt.Errorf("failed to close %s: %w", f.path, err)
		}
	})
	return f.closeErr
}

// Pair holds the issue and activity file sinks for one run.
type Pair struct {
	Issues     *File
	Activities *File
}

// OpenPair truncates both output files. When both paths are the same the
// two kinds of record share one file and one handle.
func OpenPair(issuesPath, activitiesPath string, compression Compression) (*Pair, error) {
	issues, err := OpenFile(issuesPath, compression)
	if err != nil {
		return nil, err
	}
	if filepath.Clean(issuesPath) == filepath.Clean(activitiesPath) {
		return &Pair{Issues: issues, Activities: issues}, nil
	}
	activities, err := OpenFile(activitiesPath, compression)
	if err != nil {
		_ = issues.Close()
		return nil, err
	}
	return &Pair{Issues: issues, Activities: activities}, nil
}

// Close closes both files.
func (p *Pair) Close() error {
	err := p.Issues.Close()
	if p.Activities != p.Issues {
		if aerr := p.Activities.Close(); err == nil {
			err = aerr
		}
	}
	return err
}
