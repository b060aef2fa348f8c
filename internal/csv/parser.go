// Package csv implements the delimited-text parser shared by every import
// screen. It replaces the per-screen ad-hoc parsers with one implementation
// that handles quoted fields, embedded commas, escaped quotes, and multiline
// cell content.
//
// The parser is deliberately forgiving about structure: short rows, ragged
// widths, and trailing unmatched quotes all produce rows rather than errors.
// The only fatal condition is input that is not decodable as text at all.
package csv

import (
	"errors"
	"strings"
	"unicode/utf8"
)

// ErrMalformedInput is returned when the input is not valid UTF-8 text.
// Structural problems (ragged rows, unmatched quotes) never produce an error;
// they surface as short or empty rows handled by the caller.
var ErrMalformedInput = errors.New("input is not decodable as UTF-8 text")

// Parse tokenizes raw delimited text into a table of trimmed string cells.
//
// Rules, matching the behavior of the import screens this replaces:
//   - A quote outside a quoted field opens one; "" inside a quoted field is a
//     literal quote; any other quote inside closes the field.
//   - Commas inside quotes are content; commas outside separate fields.
//   - Line breaks inside quotes are content, so a logical row may span
//     multiple physical lines.
//   - A line break outside quotes terminates the row. Rows whose every cell
//     is empty are dropped, except the very first row, which is always kept
//     so a missing header is diagnosed downstream instead of silently
//     skipped.
//   - Each cell is trimmed of surrounding whitespace, including whitespace
//     that was inside the quotes.
//   - Whatever is still buffered at end of input (including after an
//     unmatched trailing quote) is flushed as a final row.
//
// Row widths may vary; padding short rows to header width is the caller's
// concern.
func Parse(raw string) ([][]string, error) {
	if !utf8.ValidString(raw) {
		return nil, ErrMalformedInput
	}

	var (
		table      [][]string
		row        []string
		field      strings.Builder
		inQuotes   bool
		rowStarted bool
		firstRow   = true
	)

	endField := func() {
		row = append(row, strings.TrimSpace(field.String()))
		field.Reset()
	}

	endRow := func() {
		endField()
		keep := firstRow || !isBlankRow(row)
		if keep {
			table = append(table, row)
		}
		firstRow = false
		row = nil
		rowStarted = false
	}

	runes := []rune(raw)
	for i := 0; i < len(runes); i++ {
		c := runes[i]

		if inQuotes {
			switch c {
			case '"':
				if i+1 < len(runes) && runes[i+1] == '"' {
					field.WriteRune('"')
					i++
				} else {
					inQuotes = false
				}
			default:
				field.WriteRune(c)
			}
			continue
		}

		switch c {
		case '"':
			inQuotes = true
			rowStarted = true
		case ',':
			endField()
			rowStarted = true
		case '\n':
			endRow()
		case '\r':
			// Consumed silently; \r\n terminates on the \n and a stray
			// \r would be trimmed from the cell anyway.
		default:
			field.WriteRune(c)
			rowStarted = true
		}
	}

	// Flush anything still buffered, including the content of an unmatched
	// trailing quote.
	if rowStarted || inQuotes || field.Len() > 0 || len(row) > 0 {
		endRow()
	}

	return table, nil
}

// isBlankRow reports whether every cell in the row is empty after trimming.
func isBlankRow(row []string) bool {
	for _, cell := range row {
		if cell != "" {
			return false
		}
	}
	return true
}

// PadRow returns row extended with empty cells to width. Rows wider than
// width are returned unchanged; truncation is left to the caller that knows
// which columns it mapped.
func PadRow(row []string, width int) []string {
	if len(row) >= width {
		return row
	}
	padded := make([]string, width)
	copy(padded, row)
	return padded
}
