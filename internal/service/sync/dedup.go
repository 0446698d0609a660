package syncservice

import (
	"strings"

	"github.com/ibtikar-org-tr/membership-app/internal/domain"
)

// MatchKey names the identifier space a duplicate was detected in.
type MatchKey string

const (
	MatchByEmail MatchKey = "email"
	MatchByPhone MatchKey = "phone"
)

// DuplicateIndex is an in-memory lookup over the roster, built once per
// reconciliation run and discarded at run end. It is mutated as accepted
// candidates are added so near-identical submissions within one run collide.
type DuplicateIndex struct {
	byEmail map[string]domain.MemberRecord
	byPhone map[string]domain.MemberRecord
}

// BuildIndex indexes every roster row by normalized (lower-cased) email and
// by raw phone string. Rows missing a key are simply not indexed under it;
// required-field validation does not apply to the existing roster.
func BuildIndex(snapshot domain.SheetSnapshot, mapping domain.ColumnMapping) *DuplicateIndex {
	ix := &DuplicateIndex{
		byEmail: make(map[string]domain.MemberRecord),
		byPhone: make(map[string]domain.MemberRecord),
	}

	for _, row := range snapshot.Rows {
		var record domain.MemberRecord
		for i, header := range snapshot.Headers {
			field := FieldForHeader(mapping, header)
			if field == "" {
				continue
			}
			if cell := domain.Cell(row, i); cell != "" {
				record.SetField(field, cell)
			}
		}
		ix.Add(record)
	}
	return ix
}

// Classify checks the candidate against the index: email first
// (case-insensitive), then phone (exact raw string, formatting significant).
// The first matching key wins; a candidate conflicting with different members
// on each key reports only the email conflict.
func (ix *DuplicateIndex) Classify(candidate domain.MemberRecord) (domain.MemberRecord, MatchKey, bool) {
	if candidate.Email != "" {
		if existing, ok := ix.byEmail[strings.ToLower(candidate.Email)]; ok {
			return existing, MatchByEmail, true
		}
	}
	if candidate.Phone != "" {
		if existing, ok := ix.byPhone[candidate.Phone]; ok {
			return existing, MatchByPhone, true
		}
	}
	return domain.MemberRecord{}, "", false
}

// Add inserts a record under both keys it carries. Called for every roster
// row at build time and for every candidate accepted during the run.
func (ix *DuplicateIndex) Add(record domain.MemberRecord) {
	if record.Email != "" {
		ix.byEmail[strings.ToLower(record.Email)] = record
	}
	if record.Phone != "" {
		ix.byPhone[record.Phone] = record
	}
}
