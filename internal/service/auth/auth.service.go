package authservice

import (
	"context"
	"crypto/subtle"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ibtikar-org-tr/membership-app/internal/domain"
	syncservice "github.com/ibtikar-org-tr/membership-app/internal/service/sync"
	"github.com/ibtikar-org-tr/membership-app/pkg/cache"
	"github.com/ibtikar-org-tr/membership-app/pkg/xerrors"

	"go.uber.org/zap"
)

const (
	memberCacheNS  = "member"
	memberCacheTTL = 5 * time.Minute
)

// MemberCache is the subset of the cache used for member lookups. Satisfied
// by *cache.Cache.
type MemberCache interface {
	Get(ctx context.Context, namespace, key string) (string, error)
	Set(ctx context.Context, namespace, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, namespace, key string) error
}

// Service authenticates members against the roster sheet and manages
// credential updates. The roster is the only member store; passwords live in
// its password column as plaintext, a documented property of the underlying
// system, so comparison happens here rather than against a hash.
type Service struct {
	store         syncservice.TabularStore
	configs       syncservice.ConfigSource
	cache         MemberCache
	tokens        *TokenMaker
	adminPassword string
	logger        *zap.Logger
}

func NewService(
	store syncservice.TabularStore,
	configs syncservice.ConfigSource,
	memberCache MemberCache,
	tokens *TokenMaker,
	adminPassword string,
	logger *zap.Logger,
) *Service {
	return &Service{
		store:         store,
		configs:       configs,
		cache:         memberCache,
		tokens:        tokens,
		adminPassword: adminPassword,
		logger:        logger,
	}
}

// Tokens exposes the token maker for handlers that only verify.
func (s *Service) Tokens() *TokenMaker {
	return s.tokens
}

// AuthenticateAdmin checks the shared admin password.
func (s *Service) AuthenticateAdmin(password string) bool {
	if s.adminPassword == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(password), []byte(s.adminPassword)) == 1
}

// AuthenticateMember verifies identifier + password against the roster.
func (s *Service) AuthenticateMember(ctx context.Context, identifier, password string) (*domain.MemberRecord, error) {
	member, err := s.FindMemberByIdentifier(ctx, identifier)
	if err != nil {
		return nil, err
	}
	if member.Password == "" || member.Password != password {
		return nil, xerrors.ErrInvalidCredentials
	}
	return member, nil
}

// FindMemberByIdentifier locates a member by email, phone, whatsapp handle or
// membership number. Lookups are cached briefly to avoid a whole-sheet read
// per login.
func (s *Service) FindMemberByIdentifier(ctx context.Context, identifier string) (*domain.MemberRecord, error) {
	if identifier == "" {
		return nil, xerrors.ErrMemberNotFound
	}

	if cached := s.cacheGet(ctx, identifier); cached != nil {
		return cached, nil
	}

	cfg, err := s.configs.RosterSheetConfig(ctx)
	if err != nil {
		if errors.Is(err, xerrors.ErrNotFound) {
			return nil, xerrors.ErrMissingConfig
		}
		return nil, err
	}

	snapshot, err := s.store.ReadRange(ctx, cfg.ResourceID, syncservice.FullRange)
	if err != nil {
		return nil, err
	}

	for _, row := range snapshot.Rows {
		var record domain.MemberRecord
		for i, header := range snapshot.Headers {
			field := syncservice.FieldForHeader(cfg.Mapping, header)
			if field == "" {
				continue
			}
			if cell := domain.Cell(row, i); cell != "" {
				record.SetField(field, cell)
			}
		}

		if record.Email == identifier ||
			record.Phone == identifier ||
			record.Whatsapp == identifier ||
			record.MembershipNumber == identifier {
			s.cacheSet(ctx, identifier, &record)
			return &record, nil
		}
	}

	return nil, xerrors.ErrMemberNotFound
}

// UpdateMemberPassword overwrites only the member's password cell, leaving
// concurrent edits to other columns untouched.
func (s *Service) UpdateMemberPassword(ctx context.Context, membershipNumber, newPassword string) error {
	cfg, err := s.configs.RosterSheetConfig(ctx)
	if err != nil {
		if errors.Is(err, xerrors.ErrNotFound) {
			return xerrors.ErrMissingConfig
		}
		return err
	}

	snapshot, err := s.store.ReadRange(ctx, cfg.ResourceID, syncservice.FullRange)
	if err != nil {
		return err
	}

	passwordHeader := syncservice.HeaderForField(cfg.Mapping, domain.FieldPassword)
	numberHeader := syncservice.HeaderForField(cfg.Mapping, domain.FieldMembershipNumber)
	passwordCol := syncservice.ColumnIndex(snapshot.Headers, passwordHeader)
	numberCol := syncservice.ColumnIndex(snapshot.Headers, numberHeader)
	if passwordCol < 0 || numberCol < 0 {
		return fmt.Errorf("%w: password or membership number column unresolved", xerrors.ErrColumnNotFound)
	}

	for i, row := range snapshot.Rows {
		if domain.Cell(row, numberCol) != membershipNumber {
			continue
		}
		// +2: one for the header row, one for 1-based sheet addressing.
		cellAddr := fmt.Sprintf("%s%d", columnLetter(passwordCol), i+2)
		if err := s.store.WriteCell(ctx, cfg.ResourceID, cellAddr, newPassword); err != nil {
			return err
		}

		// The member may be cached under any identifier that reached
		// FindMemberByIdentifier; a stale entry would keep the old password
		// valid until its TTL.
		var record domain.MemberRecord
		for j, header := range snapshot.Headers {
			if field := syncservice.FieldForHeader(cfg.Mapping, header); field != "" {
				record.SetField(field, domain.Cell(row, j))
			}
		}
		s.InvalidateMember(ctx, &record)
		return nil
	}

	return xerrors.ErrMemberNotFound
}

// InvalidateMember drops every cached lookup key the record can be found
// under.
func (s *Service) InvalidateMember(ctx context.Context, m *domain.MemberRecord) {
	if s.cache == nil || m == nil {
		return
	}
	for _, key := range []string{m.MembershipNumber, m.Email, m.Phone, m.Whatsapp} {
		if key == "" {
			continue
		}
		if err := s.cache.Delete(ctx, memberCacheNS, strings.ToLower(key)); err != nil {
			s.logger.Warn("member cache invalidation failed", zap.String("key", key), zap.Error(err))
		}
	}
}

// columnLetter converts a zero-based column index to sheet letters (A, B,
// ..., Z, AA, AB, ...).
func columnLetter(col int) string {
	letters := ""
	for col >= 0 {
		letters = string(rune('A'+col%26)) + letters
		col = col/26 - 1
	}
	return letters
}

func (s *Service) cacheGet(ctx context.Context, identifier string) *domain.MemberRecord {
	if s.cache == nil {
		return nil
	}
	raw, err := s.cache.Get(ctx, memberCacheNS, strings.ToLower(identifier))
	if err != nil {
		if !cache.IsMiss(err) {
			s.logger.Warn("member cache read failed", zap.Error(err))
		}
		return nil
	}
	var record domain.MemberRecord
	if err := json.Unmarshal([]byte(raw), &record); err != nil {
		return nil
	}
	return &record
}

func (s *Service) cacheSet(ctx context.Context, identifier string, record *domain.MemberRecord) {
	if s.cache == nil {
		return
	}
	raw, err := json.Marshal(record)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, memberCacheNS, strings.ToLower(identifier), raw, memberCacheTTL); err != nil {
		s.logger.Warn("member cache write failed", zap.Error(err))
	}
}
