package ingest

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/dejisec/tattletale/internal/model"
)

// DefaultMmapThreshold is the file size at which inputs are memory-mapped.
const DefaultMmapThreshold int64 = 16 << 20

// LineSource yields the lines of one input file.
// Lines are split on '\n' with a trailing '\r' removed. A final segment
// without a newline is yielded only when it is non-empty.
type LineSource interface {
	ForEachLine(fn func(line string) error) error
	Strategy() model.ReadStrategy
	Size() int64
	Close() error
}

// Open picks a read strategy for path. Files of at least threshold bytes are
// memory-mapped; a threshold of zero or less always streams.
func Open(path string, threshold int64) (LineSource, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("failed to stat %s: %w", path, err)
	}
	if info.IsDir() {
		f.Close()
		return nil, fmt.Errorf("%s is a directory", path)
	}

	size := info.Size()
	if threshold > 0 && size > 0 && size >= threshold {
		data, unmap, err := mmapFile(f, size)
		if err == nil {
			// The mapping stays valid after the descriptor is closed.
			f.Close()
			return &mappedSource{data: data, unmap: unmap}, nil
		}
		if _, serr := f.Seek(0, io.SeekStart); serr != nil {
			f.Close()
			return nil, fmt.Errorf("failed to map %s: %w", path, err)
		}
	}

	return &streamSource{f: f, size: size}, nil
}

type streamSource struct {
	f    *os.File
	size int64
}

func (s *streamSource) Strategy() model.ReadStrategy { return model.StrategyStream }
func (s *streamSource) Size() int64                  { return s.size }
func (s *streamSource) Close() error                 { return s.f.Close() }

func (s *streamSource) ForEachLine(fn func(line string) error) error {
	r := bufio.NewReaderSize(s.f, 64*1024)
	for {
		seg, err := r.ReadString('\n')
		if len(seg) > 0 {
			if ferr := fn(trimEOL(seg)); ferr != nil {
				return ferr
			}
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
	}
}

type mappedSource struct {
	data  []byte
	unmap func() error
}

func (m *mappedSource) Strategy() model.ReadStrategy { return model.StrategyMmap }
func (m *mappedSource) Size() int64                  { return int64(len(m.data)) }

func (m *mappedSource) Close() error {
	if m.unmap == nil {
		return nil
	}
	err := m.unmap()
	m.unmap = nil
	m.data = nil
	return err
}

// ForEachLine copies every line out of the mapping, so callers may keep the
// strings after Close.
func (m *mappedSource) ForEachLine(fn func(line string) error) error {
	data := m.data
	for len(data) > 0 {
		i := bytes.IndexByte(data, '\n')
		var seg []byte
		if i < 0 {
			seg, data = data, nil
		} else {
			seg, data = data[:i], data[i+1:]
		}
		seg = bytes.TrimSuffix(seg, []byte{'\r'})
		if err := fn(string(seg)); err != nil {
			return err
		}
	}
	return nil
}

func trimEOL(s string) string {
	s = strings.TrimSuffix(s, "\n")
	return strings.TrimSuffix(s, "\r")
}

// ReadLines collects every line of path using the given threshold.
func ReadLines(path string, threshold int64) ([]string, error) {
	src, err := Open(path, threshold)
	if err != nil {
		return nil, err
	}
	defer src.Close()

	var lines []string
	err = src.ForEachLine(func(line string) error {
		lines = append(lines, line)
		return nil
	})
	return lines, err
}
