package fetcher

import (
	"context"
	"os"
	"path/filepath"
	"strings"

	"github.com/rotisserie/eris"
)

// Table is a header row plus data rows read from one export.
type Table struct {
	Path   string
	Header []string
	Rows   [][]string

	// Lines holds the 1-based spreadsheet row (or file line) of each entry
	// in Rows.
	Lines []int
}

// Line returns the spreadsheet row number of Rows[i]. Tables built without
// line information number data rows from 2, directly below the header.
func (t *Table) Line(i int) int {
	if i < len(t.Lines) {
		return t.Lines[i]
	}
	return i + 2
}

// TableOptions selects the sheet of a workbook. It is ignored for CSV.
type TableOptions struct {
	SheetName string
}

// ReadTable reads a .csv, .tsv or .xlsx export. The first non-blank row is
// taken as the header; blank rows after it are dropped.
func ReadTable(ctx context.Context, path string, opts TableOptions) (*Table, error) {
	var (
		raw []Row
		err error
	)
	switch strings.ToLower(filepath.Ext(path)) {
	case ".xlsx", ".xlsm":
		raw, err = readWorkbook(path, opts.SheetName)
	case ".csv", ".tsv", ".txt":
		raw, err = readDelimited(ctx, path)
	default:
		return nil, eris.Errorf("fetcher: unsupported file type %q", filepath.Ext(path))
	}
	if err != nil {
		return nil, eris.Wrapf(err, "fetcher: read %s", filepath.Base(path))
	}

	t := &Table{Path: path}
	for _, row := range raw {
		if blank(row.Fields) {
			continue
		}
		if t.Header == nil {
			t.Header = row.Fields
			continue
		}
		t.Rows = append(t.Rows, row.Fields)
		t.Lines = append(t.Lines, row.Line)
	}
	if t.Header == nil {
		return nil, eris.Errorf("fetcher: %s has no header row", filepath.Base(path))
	}
	return t, nil
}

func readWorkbook(path, sheet string) ([]Row, error) {
	cells, err := ReadXLSX(path, XLSXOptions{SheetName: sheet})
	if err != nil {
		return nil, err
	}
	rows := make([]Row, len(cells))
	for i, c := range cells {
		rows[i] = Row{Line: i + 1, Fields: c}
	}
	return rows, nil
}

func readDelimited(ctx context.Context, path string) ([]Row, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, eris.Wrap(err, "csv: open file")
	}
	defer f.Close() //nolint:errcheck

	opts := CSVOptions{LazyQuotes: true, TrimSpace: true}
	if strings.EqualFold(filepath.Ext(path), ".tsv") {
		opts.Delimiter = '\t'
	}
	return ReadCSV(ctx, f, opts)
}

func blank(row []string) bool {
	for _, c := range row {
		if strings.TrimSpace(c) != "" {
			return false
		}
	}
	return true
}
