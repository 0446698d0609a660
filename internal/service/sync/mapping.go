package syncservice

import (
	"fmt"

	"github.com/ibtikar-org-tr/membership-app/internal/domain"
	"github.com/ibtikar-org-tr/membership-app/pkg/xerrors"
)

// FieldForHeader returns the canonical field a header is mapped to, or ""
// when the header is unmapped.
func FieldForHeader(mapping domain.ColumnMapping, header string) string {
	return mapping[header]
}

// HeaderForField returns the header mapped to a canonical field. When several
// headers map to the same field the first match wins; ValidateMapping rejects
// such mappings before they are persisted.
func HeaderForField(mapping domain.ColumnMapping, field string) string {
	for header, f := range mapping {
		if f == field {
			return header
		}
	}
	return ""
}

// ColumnIndex returns the position of header in headers, or -1. Comparison is
// exact and case-sensitive; stray whitespace in the sheet is the operator's
// problem, not silently repaired here.
func ColumnIndex(headers []string, header string) int {
	if header == "" {
		return -1
	}
	for i, h := range headers {
		if h == header {
			return i
		}
	}
	return -1
}

// fieldColumn resolves the column index of a canonical field through the
// mapping, or -1 when either hop is missing.
func fieldColumn(headers []string, mapping domain.ColumnMapping, field string) int {
	return ColumnIndex(headers, HeaderForField(mapping, field))
}

// ValidateMapping rejects mappings where two headers target the same field.
// Persisting such a mapping would make HeaderForField resolution arbitrary.
func ValidateMapping(mapping domain.ColumnMapping) error {
	seen := make(map[string]string, len(mapping))
	for header, field := range mapping {
		if field == "" {
			continue
		}
		if prev, ok := seen[field]; ok {
			return fmt.Errorf("%w: %q and %q both map to %q", xerrors.ErrDuplicateMapping, prev, header, field)
		}
		seen[field] = header
	}
	return nil
}
