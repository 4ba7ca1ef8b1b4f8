package tables

import (
	"compress/gzip"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// ReadOptions describes a delimited text file.
type ReadOptions struct {
	Comma  rune
	Header bool
}

var (
	// CSV is a comma separated file with a header row.
	CSV = ReadOptions{Comma: ',', Header: true}
	// Bed is a tab separated, header-less interval file.
	Bed = ReadOptions{Comma: '\t', Header: false}
	// List is a header-less, single-column identifier list.
	List = ReadOptions{Comma: ',', Header: false}
)

// ReadFile loads a delimited file. Files ending in ".gz" are decompressed
// transparently; files ending in ".feather" or ".arrow" are read as Arrow IPC.
func ReadFile(path string, opts ReadOptions) (*Table, error) {
	if isFeather(path) {
		return ReadFeather(path)
	}

	rc, err := open(path)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	return Read(rc, opts)
}

// ReadHeader returns the first record of a delimited file without loading
// the rest of it.
func ReadHeader(path string, comma rune) ([]string, error) {
	rc, err := open(path)
	if err != nil {
		return nil, err
	}
	defer rc.Close()

	header, err := newReader(rc, comma).Read()
	if err != nil {
		return nil, fmt.Errorf("read header of %s: %w", path, err)
	}
	return header, nil
}

// Read parses delimited text from r.
func Read(r io.Reader, opts ReadOptions) (*Table, error) {
	cr := newReader(r, opts.Comma)

	t := &Table{Rows: make([][]string, 0)}
	first := true
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parse table: %w", err)
		}
		if first && opts.Header {
			t.Header = rec
			first = false
			continue
		}
		first = false
		t.Rows = append(t.Rows, rec)
	}
	return t, nil
}

// Write serializes t as delimited text. The header is written when present.
func Write(w io.Writer, t *Table, comma rune) error {
	cw := csv.NewWriter(w)
	cw.Comma = comma
	if t.Header != nil {
		if err := cw.Write(t.Header); err != nil {
			return err
		}
	}
	if err := cw.WriteAll(t.Rows); err != nil {
		return err
	}
	return cw.Error()
}

func newReader(r io.Reader, comma rune) *csv.Reader {
	cr := csv.NewReader(r)
	cr.Comma = comma
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.ReuseRecord = false
	return cr
}

type gzipFile struct {
	*gzip.Reader
	f *os.File
}

func (g *gzipFile) Close() error {
	err := g.Reader.Close()
	if ferr := g.f.Close(); err == nil {
		err = ferr
	}
	return err
}

func open(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	if !strings.HasSuffix(path, ".gz") {
		return f, nil
	}
	gz, err := gzip.NewReader(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("open gzip stream %s: %w", path, err)
	}
	return &gzipFile{Reader: gz, f: f}, nil
}

func isFeather(path string) bool {
	return strings.HasSuffix(path, ".feather") || strings.HasSuffix(path, ".arrow")
}
