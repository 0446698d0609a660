package domain

import "time"

// ColumnMapping translates spreadsheet header strings to canonical member
// field names. Keys are headers; each header maps to at most one field.
type ColumnMapping map[string]string

// SheetSnapshot is a header row plus data rows read from a spreadsheet range.
// Row cells align to headers by position; rows may be shorter than the header
// list, in which case trailing cells are absent.
type SheetSnapshot struct {
	Headers []string
	Rows    [][]string
}

// IsEmpty reports whether the snapshot holds no headers and no rows.
func (s SheetSnapshot) IsEmpty() bool {
	return len(s.Headers) == 0 && len(s.Rows) == 0
}

// Cell returns the cell of row at column index i, or "" when the row is too
// short.
func Cell(row []string, i int) string {
	if i < 0 || i >= len(row) {
		return ""
	}
	return row[i]
}

// SheetConfig binds a spreadsheet resource to its column mapping. One row
// exists per sheet role (form responses, member roster); the latest row wins.
type SheetConfig struct {
	ID         string        `json:"id"`
	ResourceID string        `json:"resource_id"`
	Mapping    ColumnMapping `json:"corresponding_values"`
	CreatedAt  time.Time     `json:"created_at"`
	UpdatedAt  time.Time     `json:"updated_at"`
}
