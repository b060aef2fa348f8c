package csv

import "strings"

// Serialize renders a table back to delimited text. Cells containing commas,
// quotes, or line breaks are quoted, with embedded quotes doubled, so that
// Parse(Serialize(table)) reproduces the table cell for cell.
//
// Used for template downloads and failed-row exports.
func Serialize(table [][]string) string {
	var b strings.Builder
	for _, row := range table {
		for i, cell := range row {
			if i > 0 {
				b.WriteByte(',')
			}
			b.WriteString(escapeCell(cell))
		}
		b.WriteByte('\n')
	}
	return b.String()
}

func escapeCell(cell string) string {
	if !strings.ContainsAny(cell, ",\"\n\r") {
		return cell
	}
	return `"` + strings.ReplaceAll(cell, `"`, `""`) + `"`
}
