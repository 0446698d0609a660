package authservice

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/ibtikar-org-tr/membership-app/internal/domain"
	"github.com/ibtikar-org-tr/membership-app/pkg/xerrors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var rosterMapping = domain.ColumnMapping{
	"Membership Number": domain.FieldMembershipNumber,
	"Full Name":         domain.FieldLatinName,
	"Email":             domain.FieldEmail,
	"Whatsapp":          domain.FieldWhatsapp,
	"Password":          domain.FieldPassword,
}

type rosterStore struct {
	snapshot domain.SheetSnapshot
	written  map[string]string // cellAddr -> value
}

func (s *rosterStore) ReadRange(ctx context.Context, resourceID, rangeSpec string) (domain.SheetSnapshot, error) {
	return s.snapshot, nil
}

func (s *rosterStore) OverwriteRange(ctx context.Context, resourceID, rangeSpec string, rows [][]string) error {
	return nil
}

func (s *rosterStore) WriteCell(ctx context.Context, resourceID, cellAddr, value string) error {
	if s.written == nil {
		s.written = make(map[string]string)
	}
	s.written[cellAddr] = value
	return nil
}

type rosterConfigs struct{}

func (rosterConfigs) FormSheetConfig(ctx context.Context) (*domain.SheetConfig, error) {
	return nil, xerrors.ErrNotFound
}

func (rosterConfigs) RosterSheetConfig(ctx context.Context) (*domain.SheetConfig, error) {
	return &domain.SheetConfig{ID: "r1", ResourceID: "roster", Mapping: rosterMapping}, nil
}

func newTestService(store *rosterStore) *Service {
	return NewService(store, rosterConfigs{}, nil, NewTokenMaker("test-secret"), "admin-pass", zap.NewNop())
}

func testRoster() *rosterStore {
	return &rosterStore{
		snapshot: domain.SheetSnapshot{
			Headers: []string{"Membership Number", "Full Name", "Email", "Whatsapp", "Password"},
			Rows: [][]string{
				{"2501001", "Alice", "alice@x.com", "+90111", "alicepw"},
				{"2501002", "Berk", "berk@x.com", "+90222", "berkpw"},
			},
		},
	}
}

func TestAuthenticateAdmin(t *testing.T) {
	svc := newTestService(testRoster())

	assert.True(t, svc.AuthenticateAdmin("admin-pass"))
	assert.False(t, svc.AuthenticateAdmin("wrong"))
	assert.False(t, svc.AuthenticateAdmin(""))

	unset := NewService(testRoster(), rosterConfigs{}, nil, NewTokenMaker("s"), "", zap.NewNop())
	assert.False(t, unset.AuthenticateAdmin(""), "unset admin password rejects everything")
}

func TestAuthenticateMember(t *testing.T) {
	svc := newTestService(testRoster())
	ctx := context.Background()

	tests := []struct {
		name       string
		identifier string
		password   string
		wantNumber string
		wantErr    error
	}{
		{name: "by email", identifier: "alice@x.com", password: "alicepw", wantNumber: "2501001"},
		{name: "by membership number", identifier: "2501002", password: "berkpw", wantNumber: "2501002"},
		{name: "by whatsapp", identifier: "+90111", password: "alicepw", wantNumber: "2501001"},
		{name: "wrong password", identifier: "alice@x.com", password: "nope", wantErr: xerrors.ErrInvalidCredentials},
		{name: "unknown identifier", identifier: "ghost@x.com", password: "x", wantErr: xerrors.ErrMemberNotFound},
		{name: "empty identifier", identifier: "", password: "x", wantErr: xerrors.ErrMemberNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			member, err := svc.AuthenticateMember(ctx, tt.identifier, tt.password)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantNumber, member.MembershipNumber)
		})
	}
}

func TestAuthenticateMember_EmptyRosterPasswordNeverMatches(t *testing.T) {
	store := testRoster()
	store.snapshot.Rows = [][]string{{"2501003", "Cem", "cem@x.com", "", ""}}
	svc := newTestService(store)

	_, err := svc.AuthenticateMember(context.Background(), "cem@x.com", "")
	assert.ErrorIs(t, err, xerrors.ErrInvalidCredentials)
}

func TestUpdateMemberPassword(t *testing.T) {
	store := testRoster()
	svc := newTestService(store)

	err := svc.UpdateMemberPassword(context.Background(), "2501002", "newpw")
	require.NoError(t, err)

	// Password column E, second data row = sheet row 3.
	assert.Equal(t, map[string]string{"E3": "newpw"}, store.written)
}

func TestUpdateMemberPassword_UnknownMember(t *testing.T) {
	svc := newTestService(testRoster())
	err := svc.UpdateMemberPassword(context.Background(), "2501099", "newpw")
	assert.ErrorIs(t, err, xerrors.ErrMemberNotFound)
}

func TestUpdateMemberPassword_MissingPasswordColumn(t *testing.T) {
	store := testRoster()
	store.snapshot.Headers = []string{"Membership Number", "Full Name", "Email"}
	svc := newTestService(store)

	err := svc.UpdateMemberPassword(context.Background(), "2501001", "newpw")
	assert.ErrorIs(t, err, xerrors.ErrColumnNotFound)
}

type recordingCache struct {
	entries map[string]string
	deleted []string
}

func newRecordingCache() *recordingCache {
	return &recordingCache{entries: make(map[string]string)}
}

func (c *recordingCache) Get(ctx context.Context, namespace, key string) (string, error) {
	if v, ok := c.entries[namespace+":"+key]; ok {
		return v, nil
	}
	return "", errCacheMiss
}

func (c *recordingCache) Set(ctx context.Context, namespace, key string, value interface{}, ttl time.Duration) error {
	c.entries[namespace+":"+key] = string(value.([]byte))
	return nil
}

func (c *recordingCache) Delete(ctx context.Context, namespace, key string) error {
	c.deleted = append(c.deleted, namespace+":"+key)
	delete(c.entries, namespace+":"+key)
	return nil
}

var errCacheMiss = errors.New("cache miss")

func TestUpdateMemberPassword_InvalidatesEveryIdentifierKey(t *testing.T) {
	store := testRoster()
	memberCache := newRecordingCache()
	svc := NewService(store, rosterConfigs{}, memberCache, NewTokenMaker("s"), "admin-pass", zap.NewNop())
	ctx := context.Background()

	// Prime the cache through two different identifiers.
	_, err := svc.FindMemberByIdentifier(ctx, "alice@x.com")
	require.NoError(t, err)
	_, err = svc.FindMemberByIdentifier(ctx, "+90111")
	require.NoError(t, err)
	require.Len(t, memberCache.entries, 2)

	require.NoError(t, svc.UpdateMemberPassword(ctx, "2501001", "newpw"))

	// Every identifier the member can be looked up by must be gone, not just
	// the membership number.
	assert.Contains(t, memberCache.deleted, "member:2501001")
	assert.Contains(t, memberCache.deleted, "member:alice@x.com")
	assert.Contains(t, memberCache.deleted, "member:+90111")
	assert.Empty(t, memberCache.entries, "no stale credential entry may survive the reset")
}

func TestColumnLetter(t *testing.T) {
	tests := []struct {
		col  int
		want string
	}{
		{0, "A"},
		{1, "B"},
		{25, "Z"},
		{26, "AA"},
		{27, "AB"},
		{51, "AZ"},
		{52, "BA"},
		{701, "ZZ"},
		{702, "AAA"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, columnLetter(tt.col), "col %d", tt.col)
	}
}
