// Package csvio turns CSV files into the tokenized row stream the engine
// consumes. It tolerates the artifacts real accounting exports carry:
// UTF-8 BOMs, invalid byte sequences, ragged rows, and blank lines.
package csvio

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"

	"github.com/quickledger/importer/internal/engine"
)

// Source reads one CSV file as a stream of SourceRows. The first non-empty
// record is the header; every row shares the header index built from it.
type Source struct {
	r      *csv.Reader
	header []string
	index  engine.HeaderIndex
}

// NewSource wraps a reader (BOM-skipped and UTF-8 sanitized) and consumes the
// header row. Fails on an empty file.
func NewSource(r io.Reader) (*Source, error) {
	cr := csv.NewReader(Sanitize(r))
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	for {
		record, err := cr.Read()
		if err == io.EOF {
			return nil, fmt.Errorf("empty file: no header row")
		}
		if err != nil {
			return nil, fmt.Errorf("read header: %w", err)
		}
		if isEmptyRow(record) {
			continue
		}
		return &Source{
			r:      cr,
			header: record,
			index:  engine.MakeHeaderIndex(record),
		}, nil
	}
}

// Header returns the raw header row.
func (s *Source) Header() []string {
	return s.header
}

// Next returns the next non-empty data row, or io.EOF when drained.
// Line numbers are 1-based positions in the file, so the first data row of a
// file whose header is on line 1 reports line 2.
func (s *Source) Next() (engine.SourceRow, error) {
	for {
		cells, err := s.r.Read()
		if err == io.EOF {
			return engine.SourceRow{}, io.EOF
		}
		if err != nil {
			return engine.SourceRow{}, fmt.Errorf("read row: %w", err)
		}
		if isEmptyRow(cells) {
			continue
		}

		line, _ := s.r.FieldPos(0)
		return engine.SourceRow{
			Line:  line,
			Index: s.index,
			Cells: cells,
		}, nil
	}
}

func isEmptyRow(cells []string) bool {
	for _, c := range cells {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
