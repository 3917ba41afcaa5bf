package table

import (
	"compress/gzip"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
)

// Source describes a delimited raw data file with a header row.
type Source struct {
	Path string `mapstructure:"path"`
	// Delimiter defaults to a tab.
	Delimiter string `mapstructure:"delimiter"`
	// Comment marks lines to skip, e.g. "#" for VCF-style preambles.
	Comment string `mapstructure:"comment"`
}

const ctxCheckEvery = 10000

// ReadSource loads a raw source file into an unkeyed table named name.
// Files ending in .gz are decompressed on the fly.
func (e *Engine) ReadSource(ctx context.Context, name string, src Source) (*Table, error) {
	if strings.TrimSpace(src.Path) == "" {
		return nil, fmt.Errorf("source %s: path is not configured", name)
	}
	// #nosec G304 -- source paths come from operator configuration.
	f, err := os.Open(src.Path)
	if err != nil {
		return nil, fmt.Errorf("source %s: %w", name, err)
	}
	defer f.Close() //nolint:errcheck // read-only handle

	var r io.Reader = f
	if strings.HasSuffix(src.Path, ".gz") {
		gz, err := gzip.NewReader(f)
		if err != nil {
			return nil, fmt.Errorf("source %s: open gzip: %w", name, err)
		}
		defer gz.Close() //nolint:errcheck // read-only handle
		r = gz
	}

	columns, rows, err := readDelimited(ctx, r, src.Delimiter, src.Comment)
	if err != nil {
		return nil, fmt.Errorf("source %s (%s): %w", name, src.Path, err)
	}
	return e.NewTable(name, columns, rows)
}

// DecodeRows reads the rows object of a checkpointed artifact.
func DecodeRows(r io.Reader) ([]string, [][]string, error) {
	gz, err := gzip.NewReader(r)
	if err != nil {
		return nil, nil, fmt.Errorf("open gzip: %w", err)
	}
	defer gz.Close() //nolint:errcheck // read-only handle
	return readDelimited(context.Background(), gz, "\t", "")
}

func readDelimited(ctx context.Context, r io.Reader, delimiter, comment string) ([]string, [][]string, error) {
	cr := csv.NewReader(r)
	cr.Comma = '\t'
	if delimiter != "" {
		d := []rune(delimiter)
		if len(d) != 1 {
			return nil, nil, fmt.Errorf("delimiter must be a single character, got %q", delimiter)
		}
		cr.Comma = d[0]
	}
	if comment != "" {
		c := []rune(comment)
		if len(c) != 1 {
			return nil, nil, fmt.Errorf("comment must be a single character, got %q", comment)
		}
		cr.Comment = c[0]
	}
	cr.LazyQuotes = true
	cr.ReuseRecord = false

	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return nil, nil, fmt.Errorf("missing header row")
		}
		return nil, nil, fmt.Errorf("read header: %w", err)
	}
	columns := make([]string, len(header))
	for i, h := range header {
		columns[i] = strings.TrimSpace(h)
	}

	var rows [][]string
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, nil, fmt.Errorf("read row: %w", err)
		}
		rows = append(rows, rec)
		if len(rows)%ctxCheckEvery == 0 {
			if err := ctx.Err(); err != nil {
				return nil, nil, err
			}
		}
	}
	return columns, rows, nil
}
