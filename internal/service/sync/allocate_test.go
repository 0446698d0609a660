package syncservice

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/ibtikar-org-tr/membership-app/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func rosterConfig() *domain.SheetConfig {
	return &domain.SheetConfig{ID: "r1", ResourceID: rosterSheetID, Mapping: testMapping}
}

func storeWithRoster(numbers ...string) *fakeStore {
	store := newFakeStore()
	rows := make([][]string, len(numbers))
	for i, n := range numbers {
		rows[i] = []string{n, "Member", "m@x.com", ""}
	}
	store.sheets[rosterSheetID] = domain.SheetSnapshot{
		Headers: []string{"Membership Number", "Full Name", "Email", "Phone"},
		Rows:    rows,
	}
	return store
}

func TestAllocator_Next(t *testing.T) {
	tests := []struct {
		name    string
		numbers []string
		want    string
	}{
		{
			name:    "empty roster starts at one",
			numbers: nil,
			want:    "2501001",
		},
		{
			name:    "continues after highest",
			numbers: []string{"2501001", "2501002"},
			want:    "2501003",
		},
		{
			name:    "gaps are not reused",
			numbers: []string{"2501001", "2501002", "2501005"},
			want:    "2501006",
		},
		{
			name:    "foreign prefixes ignored",
			numbers: []string{"2401099", "2501003", "not-a-number"},
			want:    "2501004",
		},
		{
			name:    "widens past three digits",
			numbers: []string{"2501999"},
			want:    "25011000",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := storeWithRoster(tt.numbers...)
			a := NewAllocator(store, rosterConfig(), testPrefix, zap.NewNop())
			assert.Equal(t, tt.want, a.Next(context.Background()))
		})
	}
}

func TestAllocator_EmptyPrefix(t *testing.T) {
	store := storeWithRoster("001", "002", "not-a-number")
	a := NewAllocator(store, rosterConfig(), "", zap.NewNop())

	assert.Equal(t, "003", a.Next(context.Background()))
	// The reservation set must keep counting even though the roster never
	// catches up within the run.
	assert.Equal(t, "004", a.Next(context.Background()))
	assert.Equal(t, "005", a.Next(context.Background()))
}

func TestAllocator_SequentialCallsAreDistinct(t *testing.T) {
	store := storeWithRoster("2501001")
	a := NewAllocator(store, rosterConfig(), testPrefix, zap.NewNop())

	seen := make(map[string]struct{})
	for i := 0; i < 50; i++ {
		id := a.Next(context.Background())
		_, dup := seen[id]
		require.False(t, dup, "allocator repeated %s", id)
		seen[id] = struct{}{}
	}
	// The roster never changed, so uniqueness came from the reservation set.
	assert.Contains(t, seen, "2501002")
	assert.Contains(t, seen, "2501051")
}

func TestAllocator_TimestampFallback(t *testing.T) {
	store := newFakeStore()
	store.readErr[rosterSheetID] = errors.New("upstream 503")
	a := NewAllocator(store, rosterConfig(), testPrefix, zap.NewNop())

	id := a.Next(context.Background())
	require.True(t, strings.HasPrefix(id, testPrefix))
	assert.Len(t, id, len(testPrefix)+6, "fallback suffix is six digits")

	// Repeated fallbacks stay distinct within the run.
	other := a.Next(context.Background())
	assert.NotEqual(t, id, other)
}
