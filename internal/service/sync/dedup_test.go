package syncservice

import (
	"testing"

	"github.com/ibtikar-org-tr/membership-app/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func snapshotWith(rows ...[]string) domain.SheetSnapshot {
	return domain.SheetSnapshot{
		Headers: []string{"Membership Number", "Full Name", "Email", "Phone"},
		Rows:    rows,
	}
}

func TestClassify(t *testing.T) {
	ix := BuildIndex(snapshotWith(
		[]string{"2501001", "Alice", "alice@x.com", "+90 111"},
		[]string{"2501002", "Berk", "berk@x.com", "+90222"},
	), testMapping)

	tests := []struct {
		name      string
		candidate domain.MemberRecord
		wantDup   bool
		wantKey   MatchKey
		wantMatch string // membership number of the matched member
	}{
		{
			name:      "exact email",
			candidate: domain.MemberRecord{Email: "alice@x.com"},
			wantDup:   true,
			wantKey:   MatchByEmail,
			wantMatch: "2501001",
		},
		{
			name:      "email is case-insensitive",
			candidate: domain.MemberRecord{Email: "ALICE@X.COM"},
			wantDup:   true,
			wantKey:   MatchByEmail,
			wantMatch: "2501001",
		},
		{
			name:      "phone exact match",
			candidate: domain.MemberRecord{Email: "new@x.com", Phone: "+90222"},
			wantDup:   true,
			wantKey:   MatchByPhone,
			wantMatch: "2501002",
		},
		{
			name:      "phone formatting is significant",
			candidate: domain.MemberRecord{Email: "new@x.com", Phone: "+90111"},
			wantDup:   false,
		},
		{
			name: "email match wins over phone match",
			candidate: domain.MemberRecord{
				Email: "alice@x.com",
				Phone: "+90222",
			},
			wantDup:   true,
			wantKey:   MatchByEmail,
			wantMatch: "2501001",
		},
		{
			name:      "no match",
			candidate: domain.MemberRecord{Email: "new@x.com", Phone: "+90333"},
			wantDup:   false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			existing, key, dup := ix.Classify(tt.candidate)
			assert.Equal(t, tt.wantDup, dup)
			if tt.wantDup {
				assert.Equal(t, tt.wantKey, key)
				assert.Equal(t, tt.wantMatch, existing.MembershipNumber)
			}
		})
	}
}

func TestClassify_IsReadOnly(t *testing.T) {
	ix := BuildIndex(snapshotWith(), testMapping)
	candidate := domain.MemberRecord{Email: "new@x.com", Phone: "+90333"}

	_, _, dup := ix.Classify(candidate)
	require.False(t, dup)

	// Classification alone must not register the candidate.
	_, _, dup = ix.Classify(candidate)
	assert.False(t, dup)
}

func TestAdd_MakesLaterSubmissionsCollide(t *testing.T) {
	ix := BuildIndex(snapshotWith(), testMapping)
	first := domain.MemberRecord{MembershipNumber: "2501001", Email: "carol@x.com", Phone: "+90333"}
	ix.Add(first)

	_, key, dup := ix.Classify(domain.MemberRecord{Email: "CAROL@x.com"})
	require.True(t, dup)
	assert.Equal(t, MatchByEmail, key)

	_, key, dup = ix.Classify(domain.MemberRecord{Email: "other@x.com", Phone: "+90333"})
	require.True(t, dup)
	assert.Equal(t, MatchByPhone, key)
}

func TestBuildIndex_SkipsRowsWithoutKeys(t *testing.T) {
	ix := BuildIndex(snapshotWith(
		[]string{"2501001", "No Contact", "", ""},
		[]string{"2501002", "Phone Only", "", "+90444"},
	), testMapping)

	_, _, dup := ix.Classify(domain.MemberRecord{Email: "anything@x.com"})
	assert.False(t, dup)

	_, key, dup := ix.Classify(domain.MemberRecord{Email: "anything@x.com", Phone: "+90444"})
	require.True(t, dup)
	assert.Equal(t, MatchByPhone, key)
}
