package memberservice

import (
	"context"
	"errors"
	"fmt"

	"github.com/ibtikar-org-tr/membership-app/internal/domain"
	syncservice "github.com/ibtikar-org-tr/membership-app/internal/service/sync"
	"github.com/ibtikar-org-tr/membership-app/pkg/xerrors"

	"go.uber.org/zap"
)

const adminActor = "admin"

// Provisioner is the learning-platform surface member administration needs:
// accounts are located by username (the membership number) and then updated
// or removed.
type Provisioner interface {
	FindByUsername(ctx context.Context, username string) (*domain.ProvisionedAccount, error)
	UpdateCredential(ctx context.Context, accountID int, newPassword string) error
	Delete(ctx context.Context, accountID int) error
}

// Service administers the member roster: listing, field updates and removal.
// Like the reconciliation job, roster writes are whole-range read-modify-write
// and rely on the single-writer discipline of the deployment.
type Service struct {
	store       syncservice.TabularStore
	configs     syncservice.ConfigSource
	provisioner Provisioner
	audit       syncservice.AuditSink
	logger      *zap.Logger
}

func NewService(
	store syncservice.TabularStore,
	configs syncservice.ConfigSource,
	provisioner Provisioner,
	audit syncservice.AuditSink,
	logger *zap.Logger,
) *Service {
	return &Service{
		store:       store,
		configs:     configs,
		provisioner: provisioner,
		audit:       audit,
		logger:      logger,
	}
}

// List returns every roster row as a member record, mapped through the
// roster's column mapping. Unmapped columns are ignored.
func (s *Service) List(ctx context.Context) ([]domain.MemberRecord, error) {
	cfg, snapshot, err := s.readRoster(ctx)
	if err != nil {
		return nil, err
	}

	members := make([]domain.MemberRecord, 0, len(snapshot.Rows))
	for _, row := range snapshot.Rows {
		members = append(members, recordFromRow(cfg.Mapping, snapshot.Headers, row))
	}
	return members, nil
}

// Update merges the given field values into the member's roster row and
// rewrites the sheet. When the password field changes, the learning-platform
// credential is rotated to match; the account is looked up by username, which
// carries the membership number. Returns the record as written.
func (s *Service) Update(ctx context.Context, membershipNumber string, updates map[string]string) (*domain.MemberRecord, error) {
	cfg, snapshot, err := s.readRoster(ctx)
	if err != nil {
		return nil, err
	}

	numberCol, err := membershipColumn(cfg.Mapping, snapshot.Headers)
	if err != nil {
		return nil, err
	}

	rowIdx := -1
	for i, row := range snapshot.Rows {
		if domain.Cell(row, numberCol) == membershipNumber {
			rowIdx = i
			break
		}
	}
	if rowIdx == -1 {
		return nil, xerrors.ErrMemberNotFound
	}

	row := snapshot.Rows[rowIdx]
	for field, value := range updates {
		header := syncservice.HeaderForField(cfg.Mapping, field)
		col := syncservice.ColumnIndex(snapshot.Headers, header)
		if col < 0 {
			continue
		}
		for len(row) <= col {
			row = append(row, "")
		}
		row[col] = value
	}
	snapshot.Rows[rowIdx] = row

	if err := s.overwriteRoster(ctx, cfg.ResourceID, snapshot); err != nil {
		return nil, err
	}

	if newPassword := updates[domain.FieldPassword]; newPassword != "" {
		if err := s.rotateCredential(ctx, membershipNumber, newPassword); err != nil {
			return nil, err
		}
	}

	s.auditLog(ctx, fmt.Sprintf("update_member_%s", membershipNumber))

	record := recordFromRow(cfg.Mapping, snapshot.Headers, row)
	return &record, nil
}

// Delete removes the member's roster row and the matching learning-platform
// account. Returns the removed record so callers can drop cached lookups.
func (s *Service) Delete(ctx context.Context, membershipNumber string) (*domain.MemberRecord, error) {
	cfg, snapshot, err := s.readRoster(ctx)
	if err != nil {
		return nil, err
	}

	numberCol, err := membershipColumn(cfg.Mapping, snapshot.Headers)
	if err != nil {
		return nil, err
	}

	var removed *domain.MemberRecord
	kept := make([][]string, 0, len(snapshot.Rows))
	for _, row := range snapshot.Rows {
		if domain.Cell(row, numberCol) == membershipNumber {
			if removed == nil {
				record := recordFromRow(cfg.Mapping, snapshot.Headers, row)
				removed = &record
			}
			continue
		}
		kept = append(kept, row)
	}
	if removed == nil {
		return nil, xerrors.ErrMemberNotFound
	}

	snapshot.Rows = kept
	if err := s.overwriteRoster(ctx, cfg.ResourceID, snapshot); err != nil {
		return nil, err
	}

	account, err := s.provisioner.FindByUsername(ctx, membershipNumber)
	if err != nil {
		return nil, err
	}
	if account != nil {
		if err := s.provisioner.Delete(ctx, account.ID); err != nil {
			return nil, err
		}
	}

	s.auditLog(ctx, fmt.Sprintf("delete_member_%s", membershipNumber))
	return removed, nil
}

func (s *Service) readRoster(ctx context.Context) (*domain.SheetConfig, domain.SheetSnapshot, error) {
	cfg, err := s.configs.RosterSheetConfig(ctx)
	if err != nil {
		if errors.Is(err, xerrors.ErrNotFound) {
			return nil, domain.SheetSnapshot{}, xerrors.ErrMissingConfig
		}
		return nil, domain.SheetSnapshot{}, err
	}

	snapshot, err := s.store.ReadRange(ctx, cfg.ResourceID, syncservice.FullRange)
	if err != nil {
		return nil, domain.SheetSnapshot{}, err
	}
	return cfg, snapshot, nil
}

func (s *Service) overwriteRoster(ctx context.Context, resourceID string, snapshot domain.SheetSnapshot) error {
	rows := make([][]string, 0, len(snapshot.Rows)+1)
	rows = append(rows, snapshot.Headers)
	rows = append(rows, snapshot.Rows...)
	return s.store.OverwriteRange(ctx, resourceID, syncservice.FullRange, rows)
}

func (s *Service) rotateCredential(ctx context.Context, membershipNumber, newPassword string) error {
	account, err := s.provisioner.FindByUsername(ctx, membershipNumber)
	if err != nil {
		return err
	}
	if account == nil {
		s.logger.Warn("no platform account to rotate credential for",
			zap.String("membership_number", membershipNumber))
		return nil
	}
	return s.provisioner.UpdateCredential(ctx, account.ID, newPassword)
}

func (s *Service) auditLog(ctx context.Context, action string) {
	if err := s.audit.Append(ctx, adminActor, action, "success"); err != nil {
		s.logger.Warn("failed to append audit log", zap.String("action", action), zap.Error(err))
	}
}

func membershipColumn(mapping domain.ColumnMapping, headers []string) (int, error) {
	header := syncservice.HeaderForField(mapping, domain.FieldMembershipNumber)
	col := syncservice.ColumnIndex(headers, header)
	if col < 0 {
		return 0, fmt.Errorf("%w: membership number column unresolved", xerrors.ErrColumnNotFound)
	}
	return col, nil
}

func recordFromRow(mapping domain.ColumnMapping, headers []string, row []string) domain.MemberRecord {
	var record domain.MemberRecord
	for i, header := range headers {
		field := syncservice.FieldForHeader(mapping, header)
		if field == "" {
			continue
		}
		if cell := domain.Cell(row, i); cell != "" {
			record.SetField(field, cell)
		}
	}
	return record
}
