// Package export renders aggregated tables as downloadable CSV or XLSX files.
package export

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/xuri/excelize/v2"
)

var (
	ErrUnknownFormat = errors.New("unknown export format")
	// ErrRender reports that the file could not be produced. Nothing has been
	// written to the response when Serve returns it.
	ErrRender = errors.New("render export")
)

// Format is an output file type.
type Format string

const (
	CSV  Format = "csv"
	XLSX Format = "xlsx"
)

// ParseFormat accepts "csv" and "xlsx". An empty string selects CSV.
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "csv":
		return CSV, nil
	case "xlsx", "excel":
		return XLSX, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, s)
}

func (f Format) ContentType() string {
	if f == XLSX {
		return "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
	}
	return "text/csv; charset=utf-8"
}

// FileName builds "<base>_<YYYY-MM-DD>.<ext>".
func (f Format) FileName(base string, at time.Time) string {
	base = strings.TrimSpace(base)
	if base == "" {
		base = "export"
	}
	return fmt.Sprintf("%s_%s.%s", base, at.Format("2006-01-02"), f)
}

// Sheet is one table: a title, a header row and data rows.
type Sheet struct {
	Title   string
	Headers []string
	Rows    [][]any
}

// AddRow appends one row of cells.
func (s *Sheet) AddRow(cells ...any) {
	s.Rows = append(s.Rows, cells)
}

// Write renders s in format f.
func Write(w io.Writer, f Format, s Sheet) error {
	switch f {
	case CSV:
		return WriteCSV(w, s)
	case XLSX:
		return WriteXLSX(w, s)
	}
	return fmt.Errorf("%w: %q", ErrUnknownFormat, string(f))
}

// Serve writes s as an attachment named after base. The file is rendered in
// full before any header goes out.
func Serve(w http.ResponseWriter, f Format, base string, s Sheet) error {
	var buf bytes.Buffer
	if err := Write(&buf, f, s); err != nil {
		return fmt.Errorf("%w: %w", ErrRender, err)
	}
	w.Header().Set("Content-Type", f.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, f.FileName(base, time.Now())))
	w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
	w.WriteHeader(http.StatusOK)
	_, err := buf.WriteTo(w)
	return err
}

// WriteCSV writes the header row followed by the data rows.
func WriteCSV(w io.Writer, s Sheet) error {
	cw := csv.NewWriter(w)
	if len(s.Headers) > 0 {
		if err := cw.Write(s.Headers); err != nil {
			return fmt.Errorf("write csv header: %w", err)
		}
	}
	rec := make([]string, 0, len(s.Headers))
	for _, row := range s.Rows {
		rec = rec[:0]
		for _, c := range row {
			rec = append(rec, csvSafe(cellText(c)))
		}
		if err := cw.Write(rec); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	cw.Flush()
	return cw.Error()
}

// WriteXLSX writes s as a single-sheet workbook with a bold header row.
func WriteXLSX(w io.Writer, s Sheet) error {
	f := excelize.NewFile()
	defer f.Close()

	name := sheetName(s.Title)
	if err := f.SetSheetName("Sheet1", name); err != nil {
		return fmt.Errorf("name sheet: %w", err)
	}
	r := 1
	if len(s.Headers) > 0 {
		hdr := make([]any, len(s.Headers))
		for i, h := range s.Headers {
			hdr[i] = h
		}
		if err := f.SetSheetRow(name, "A1", &hdr); err != nil {
			return fmt.Errorf("write header: %w", err)
		}
		style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
		if err != nil {
			return fmt.Errorf("header style: %w", err)
		}
		if err := f.SetRowStyle(name, 1, 1, style); err != nil {
			return fmt.Errorf("header style: %w", err)
		}
		r++
	}
	for _, row := range s.Rows {
		cells := make([]any, len(row))
		for i, c := range row {
			cells[i] = xlsxValue(c)
		}
		cell, err := excelize.CoordinatesToCellName(1, r)
		if err != nil {
			return err
		}
		if err := f.SetSheetRow(name, cell, &cells); err != nil {
			return fmt.Errorf("write row %d: %w", r, err)
		}
		r++
	}
	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("write xlsx: %w", err)
	}
	return nil
}

func xlsxValue(v any) any {
	switch x := v.(type) {
	case nil:
		return ""
	case time.Time:
		return x.Format("2006-01-02")
	case *string:
		if x == nil {
			return ""
		}
		return *x
	}
	return v
}

func cellText(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case *string:
		if x == nil {
			return ""
		}
		return *x
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32)
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case bool:
		return strconv.FormatBool(x)
	case time.Time:
		return x.Format("2006-01-02")
	case fmt.Stringer:
		return x.String()
	}
	return fmt.Sprint(v)
}

// csvSafe quotes text that a spreadsheet would read as a formula.
func csvSafe(s string) string {
	if s == "" {
		return s
	}
	switch s[0] {
	case '=', '+', '-', '@', '\t', '\r':
		if _, err := strconv.ParseFloat(s, 64); err == nil {
			return s
		}
		return "'" + s
	}
	return s
}

// sheetName trims a title to what Excel accepts: at most 31 characters and
// none of : \ / ? * [ ].
func sheetName(title string) string {
	clean := strings.Map(func(r rune) rune {
		switch r {
		case ':', '\\', '/', '?', '*', '[', ']':
			return '-'
		}
		return r
	}, strings.TrimSpace(title))
	if clean == "" {
		return "Sheet1"
	}
	if rs := []rune(clean); len(rs) > 31 {
		clean = string(rs[:31])
	}
	return clean
}
