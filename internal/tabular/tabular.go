// Package tabular renders record lists as CSV for download.
package tabular

import (
	"io"
	"strings"
	"time"
)

// ContentType is sent with every export.
const ContentType = "text/csv; charset=utf-8"

// Column maps one record to one cell.
type Column[T any] struct {
	Header string
	Value  func(T) string
}

// Headers returns the header row of cols.
func Headers[T any](cols []Column[T]) []string {
	hs := make([]string, len(cols))
	for i, c := range cols {
		hs[i] = c.Header
	}
	return hs
}

// Quote wraps v in double quotes, doubling any quote inside it.
func Quote(v string) string {
	return `"` + strings.ReplaceAll(v, `"`, `""`) + `"`
}

// Render produces the header line followed by one line per row, joined by \n.
// Headers are written as-is; every data cell is quoted.
func Render[T any](cols []Column[T], rows []T) string {
	var b strings.Builder
	b.WriteString(strings.Join(Headers(cols), ","))
	for _, row := range rows {
		b.WriteByte('\n')
		for i, c := range cols {
			if i > 0 {
				b.WriteByte(',')
			}
			b.WriteString(Quote(c.Value(row)))
		}
	}
	return b.String()
}

// Write renders into w.
func Write[T any](w io.Writer, cols []Column[T], rows []T) error {
	_, err := io.WriteString(w, Render(cols, rows))
	return err
}

// Filename derives a download name such as "ocorrencias-2026-10-15.csv".
func Filename(prefix string, at time.Time) string {
	return prefix + "-" + at.Format("2006-01-02") + ".csv"
}
