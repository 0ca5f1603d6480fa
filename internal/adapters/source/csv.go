// Package source reads participant rows from a delimited text file.
package source

import (
	"bufio"
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/JX3BOX/analysis-dungeon-rank/internal/domain/normalize"
)

const utf8BOM = "\ufeff"

// Row is one data line of the source.
type Row struct {
	header map[string]int
	fields []string
	line   int
}

// Get returns the value of column. Short lines report trailing columns as
// absent.
func (r Row) Get(column string) (string, bool) {
	i, ok := r.header[column]
	if !ok || i >= len(r.fields) {
		return "", false
	}
	return r.fields[i], true
}

// Line returns the 1-based line number the row starts on.
func (r Row) Line() int {
	return r.line
}

// Read loads every row of the file at path.
func Read(ctx context.Context, path string, required []string) ([]normalize.Row, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnreadable, err)
	}
	defer f.Close()
	return Parse(ctx, f, required)
}

// Parse reads a header line followed by data rows. A header missing any
// required column fails with ErrMissingColumn.
func Parse(ctx context.Context, r io.Reader, required []string) ([]normalize.Row, error) {
	cr := csv.NewReader(bufio.NewReader(r))
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true
	cr.ReuseRecord = false

	head, err := cr.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("%w: empty input", ErrUnreadable)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: header: %v", ErrUnreadable, err)
	}
	header := make(map[string]int, len(head))
	for i, name := range head {
		if i == 0 {
			name = strings.TrimPrefix(name, utf8BOM)
		}
		name = strings.TrimSpace(name)
		if _, dup := header[name]; !dup {
			header[name] = i
		}
	}
	var missing []string
	for _, col := range required {
		if _, ok := header[col]; !ok {
			missing = append(missing, col)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: %s", ErrMissingColumn, strings.Join(missing, ", "))
	}

	var rows []normalize.Row
	for {
		if len(rows)%4096 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		fields, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUnreadable, err)
		}
		line, _ := cr.FieldPos(0)
		rows = append(rows, Row{header: header, fields: fields, line: line})
	}
	return rows, nil
}
