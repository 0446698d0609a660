package workers

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/ibtikar-org-tr/membership-app/internal/domain"
	syncservice "github.com/ibtikar-org-tr/membership-app/internal/service/sync"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// slowStore serves an empty form sheet with a deliberate delay per read and
// records how many readers were in flight at once.
type slowStore struct {
	mu          sync.Mutex
	reads       int
	inFlight    int
	maxInFlight int
	readDelay   time.Duration
}

func (s *slowStore) ReadRange(ctx context.Context, resourceID, rangeSpec string) (domain.SheetSnapshot, error) {
	s.mu.Lock()
	s.reads++
	s.inFlight++
	if s.inFlight > s.maxInFlight {
		s.maxInFlight = s.inFlight
	}
	s.mu.Unlock()

	time.Sleep(s.readDelay)

	s.mu.Lock()
	s.inFlight--
	s.mu.Unlock()
	return domain.SheetSnapshot{}, nil
}

func (s *slowStore) OverwriteRange(ctx context.Context, resourceID, rangeSpec string, rows [][]string) error {
	return nil
}

func (s *slowStore) WriteCell(ctx context.Context, resourceID, cellAddr, value string) error {
	return nil
}

type noopProvisioner struct{}

func (noopProvisioner) FindByEmail(ctx context.Context, email string) (*domain.ProvisionedAccount, error) {
	return nil, nil
}

func (noopProvisioner) Create(ctx context.Context, m domain.MemberRecord) (int, error) {
	return 0, nil
}

func (noopProvisioner) UpdateCredential(ctx context.Context, accountID int, newPassword string) error {
	return nil
}

type noopNotifier struct{}

func (noopNotifier) SendWelcome(ctx context.Context, m domain.MemberRecord, tempPassword string) error {
	return nil
}

func (noopNotifier) SendDuplicateNotice(ctx context.Context, m domain.MemberRecord, cc string) error {
	return nil
}

type noopAudit struct{}

func (noopAudit) Append(ctx context.Context, user, action, status string) error { return nil }

type emptyFormConfigs struct{}

func (emptyFormConfigs) FormSheetConfig(ctx context.Context) (*domain.SheetConfig, error) {
	return &domain.SheetConfig{ID: "f1", ResourceID: "form", Mapping: domain.ColumnMapping{}}, nil
}

func (emptyFormConfigs) RosterSheetConfig(ctx context.Context) (*domain.SheetConfig, error) {
	return &domain.SheetConfig{ID: "r1", ResourceID: "roster", Mapping: domain.ColumnMapping{}}, nil
}

// Triggered runs go through the same worker loop as scheduled ones, so two
// reconciliations can never interleave their roster read/overwrite windows
// within one process.
func TestTriggerSync_NeverOverlapsRuns(t *testing.T) {
	store := &slowStore{readDelay: 30 * time.Millisecond}
	svc := syncservice.NewService(store, noopProvisioner{}, noopNotifier{}, noopAudit{},
		emptyFormConfigs{}, "2501", time.Second, zap.NewNop())

	// Hour-long intervals: every run in this test comes from startup or an
	// explicit trigger.
	w := New(svc, nil, nil, time.Hour, time.Hour, zap.NewNop())
	w.Start()
	defer w.Stop()

	// Hammer the trigger while the startup run is still inside its read.
	for i := 0; i < 5; i++ {
		w.TriggerSync()
	}

	deadline := time.Now().Add(2 * time.Second)
	for {
		store.mu.Lock()
		reads := store.reads
		store.mu.Unlock()
		if reads >= 2 || time.Now().After(deadline) {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}

	store.mu.Lock()
	defer store.mu.Unlock()
	require.GreaterOrEqual(t, store.reads, 2, "a triggered run should have executed after the startup run")
	assert.Equal(t, 1, store.maxInFlight, "runs must execute strictly one at a time")
}

func TestTriggerSync_CoalescesPendingTriggers(t *testing.T) {
	store := &slowStore{readDelay: 50 * time.Millisecond}
	svc := syncservice.NewService(store, noopProvisioner{}, noopNotifier{}, noopAudit{},
		emptyFormConfigs{}, "2501", time.Second, zap.NewNop())

	w := New(svc, nil, nil, time.Hour, time.Hour, zap.NewNop())

	// Before Start there is no consumer; only one trigger fits the buffer and
	// the rest coalesce instead of spawning anything.
	for i := 0; i < 10; i++ {
		w.TriggerSync()
	}
	assert.Len(t, w.trigger, 1)
}
