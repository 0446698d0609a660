package syncservice

import (
	"errors"

	"github.com/ibtikar-org-tr/membership-app/internal/domain"
)

// Extraction reject reasons. Rejected rows are routine data noise (half-filled
// form submissions), counted but not treated as failures.
var (
	ErrMissingEmail = errors.New("row has no email value")
	ErrMissingName  = errors.New("row has no name value")
)

// Extract converts one raw sheet row into a MemberRecord using the column
// mapping. Cells align to headers by position: short rows are padded with
// absent cells, cells beyond the header list are ignored. The membership
// number is whatever the row carries, usually empty; allocation is a separate
// concern.
func Extract(row []string, headers []string, mapping domain.ColumnMapping) (domain.MemberRecord, error) {
	var record domain.MemberRecord

	for i, header := range headers {
		field := FieldForHeader(mapping, header)
		if field == "" {
			continue
		}
		if cell := domain.Cell(row, i); cell != "" {
			record.SetField(field, cell)
		}
	}

	if record.Email == "" {
		return domain.MemberRecord{}, ErrMissingEmail
	}
	if record.LatinName == "" {
		return domain.MemberRecord{}, ErrMissingName
	}
	return record, nil
}
