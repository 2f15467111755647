package dataset

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"

	"github.com/resul4e/shapeeval/internal/pkg/errors"
)

// Open opens a table file, transparently decompressing .gz and .zst files.
// Full 1813x1813 result tables are large enough that they are usually shipped
// compressed.
func Open(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.NotFoundError(fmt.Sprintf("file %s", path))
		}
		return nil, errors.Wrap(errors.CodeInternal, "opening table", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".gz":
		zr, err := gzip.NewReader(f)
		if err != nil {
			f.Close()
			return nil, errors.Wrap(errors.CodeInvalidInput, "reading gzip header", err)
		}
		return &stackedCloser{Reader: zr, closers: []io.Closer{zr, f}}, nil

	case ".zst", ".zstd":
		zr, err := zstd.NewReader(f)
		if err != nil {
			f.Close()
			return nil, errors.Wrap(errors.CodeInvalidInput, "reading zstd stream", err)
		}
		return &stackedCloser{Reader: zr, closers: []io.Closer{zr.IOReadCloser(), f}}, nil

	default:
		return f, nil
	}
}

// LoadResults opens and parses a result table.
func LoadResults(path string) (*Table, error) {
	rc, err := Open(path)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	t, err := ParseResults(rc)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return t, nil
}

// LoadClassCounts opens and parses a class count table.
func LoadClassCounts(path string) (ClassCounts, error) {
	rc, err := Open(path)
	if err != nil {
		return ClassCounts{}, err
	}
	defer rc.Close()

	cc, err := ParseClassCounts(rc)
	if err != nil {
		return ClassCounts{}, fmt.Errorf("%s: %w", path, err)
	}
	return cc, nil
}

// stackedCloser closes a decompressor and the file beneath it, innermost first.
type stackedCloser struct {
	io.Reader
	closers []io.Closer
}

func (s *stackedCloser) Close() error {
	var first error
	for _, c := range s.closers {
		if err := c.Close(); err != nil && first == nil {
			first = err
		}
	}
	return first
}
