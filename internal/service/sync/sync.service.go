package syncservice

import (
	"context"
	"errors"
	"sort"
	"strings"
	"time"

	"github.com/ibtikar-org-tr/membership-app/internal/domain"
	"github.com/ibtikar-org-tr/membership-app/pkg/id"
	"github.com/ibtikar-org-tr/membership-app/pkg/xerrors"

	"go.uber.org/zap"
)

// FullRange addresses every populated cell of a sheet.
const FullRange = "A:Z"

const systemActor = "system"

// TabularStore is the spreadsheet backend. Reads and writes are whole-range;
// there is no row-level update or locking primitive.
type TabularStore interface {
	ReadRange(ctx context.Context, resourceID, rangeSpec string) (domain.SheetSnapshot, error)
	OverwriteRange(ctx context.Context, resourceID, rangeSpec string, rows [][]string) error
	WriteCell(ctx context.Context, resourceID, cellAddr, value string) error
}

// Provisioner creates and updates accounts in the learning platform.
type Provisioner interface {
	FindByEmail(ctx context.Context, email string) (*domain.ProvisionedAccount, error)
	Create(ctx context.Context, m domain.MemberRecord) (int, error)
	UpdateCredential(ctx context.Context, accountID int, newPassword string) error
}

// Notifier sends the outbound mails of a run. Failures are caught and logged
// by the orchestrator, never propagated.
type Notifier interface {
	SendWelcome(ctx context.Context, m domain.MemberRecord, tempPassword string) error
	SendDuplicateNotice(ctx context.Context, m domain.MemberRecord, cc string) error
}

// AuditSink is the append-only log the job reports into.
type AuditSink interface {
	Append(ctx context.Context, user, action, status string) error
}

// ConfigSource supplies the form-sheet and roster-sheet bindings. Absence is
// xerrors.ErrNotFound, a "nothing to do" outcome rather than a failure.
type ConfigSource interface {
	FormSheetConfig(ctx context.Context) (*domain.SheetConfig, error)
	RosterSheetConfig(ctx context.Context) (*domain.SheetConfig, error)
}

// RunSummary counts the outcomes of one reconciliation run.
type RunSummary struct {
	Processed  int // data rows seen
	New        int // members registered
	Duplicates int // rows matching an existing member
	Failed     int // rows that errored and were skipped
	Skipped    int // rows rejected at extraction (routine noise)
}

// Service is the registration reconciliation orchestrator: it reads form
// responses, deduplicates against the member roster, allocates membership
// numbers, provisions learning-platform accounts, appends new members to the
// roster and mails the results.
type Service struct {
	store       TabularStore
	provisioner Provisioner
	notifier    Notifier
	audit       AuditSink
	configs     ConfigSource
	logger      *zap.Logger

	prefix      string
	callTimeout time.Duration
}

func NewService(
	store TabularStore,
	provisioner Provisioner,
	notifier Notifier,
	audit AuditSink,
	configs ConfigSource,
	prefix string,
	callTimeout time.Duration,
	logger *zap.Logger,
) *Service {
	if callTimeout <= 0 {
		callTimeout = 30 * time.Second
	}
	return &Service{
		store:       store,
		provisioner: provisioner,
		notifier:    notifier,
		audit:       audit,
		configs:     configs,
		logger:      logger,
		prefix:      prefix,
		callTimeout: callTimeout,
	}
}

// Run executes one reconciliation pass. Structural failures (configuration,
// roster read) abort the run; per-row failures are isolated and never abort
// the batch. The run is designed for a single, non-overlapping scheduler:
// roster mutation is read-modify-write over the whole range and a concurrent
// writer would be silently overwritten.
func (s *Service) Run(ctx context.Context) (RunSummary, error) {
	var summary RunSummary
	runRef := id.GenerateRef("run")
	logger := s.logger.With(zap.String("run", runRef))
	logger.Info("starting registration reconciliation")

	formCfg, rosterCfg, err := s.loadConfigs(ctx)
	if err != nil {
		if errors.Is(err, xerrors.ErrNotFound) || errors.Is(err, xerrors.ErrMissingConfig) {
			logger.Info("form or roster sheet not configured, nothing to do")
			s.auditLog(ctx, systemActor, domain.ActionProcessRegistrations, domain.StatusMissingConfig)
			return summary, nil
		}
		s.auditLog(ctx, systemActor, domain.ActionProcessRegistrations, domain.StatusFailed)
		return summary, err
	}

	formSnap, err := s.readSheet(ctx, formCfg.ResourceID)
	if err != nil {
		logger.Error("failed to read form responses", zap.Error(err))
		s.auditLog(ctx, systemActor, domain.ActionProcessRegistrations, domain.StatusFailed)
		return summary, err
	}
	if len(formSnap.Rows) == 0 {
		logger.Info("no form responses found")
		return summary, nil
	}

	rosterSnap, err := s.readSheet(ctx, rosterCfg.ResourceID)
	if err != nil {
		logger.Error("failed to read member roster", zap.Error(err))
		s.auditLog(ctx, systemActor, domain.ActionProcessRegistrations, domain.StatusFailed)
		return summary, err
	}

	// Single baseline read: every row in this run is classified against this
	// snapshot plus in-run acceptances. Concurrent roster edits are invisible
	// until the next run.
	index := BuildIndex(rosterSnap, rosterCfg.Mapping)
	allocator := NewAllocator(s.store, rosterCfg, s.prefix, logger)

	for i, row := range formSnap.Rows {
		summary.Processed++
		rowLogger := logger.With(zap.Int("row", i+2))

		outcome := s.processRow(ctx, row, formSnap.Headers, formCfg.Mapping, rosterCfg, index, allocator, rowLogger)
		switch outcome {
		case rowNew:
			summary.New++
		case rowDuplicate:
			summary.Duplicates++
		case rowSkipped:
			summary.Skipped++
		case rowFailed:
			summary.Failed++
		}
	}

	logger.Info("reconciliation run completed",
		zap.Int("processed", summary.Processed),
		zap.Int("new", summary.New),
		zap.Int("duplicates", summary.Duplicates),
		zap.Int("failed", summary.Failed),
		zap.Int("skipped", summary.Skipped),
	)
	s.auditLog(ctx, systemActor, domain.ActionProcessRegistrations, domain.StatusSuccess)
	return summary, nil
}

type rowOutcome int

const (
	rowNew rowOutcome = iota
	rowDuplicate
	rowSkipped
	rowFailed
)

func (s *Service) processRow(
	ctx context.Context,
	row []string,
	headers []string,
	formMapping domain.ColumnMapping,
	rosterCfg *domain.SheetConfig,
	index *DuplicateIndex,
	allocator *Allocator,
	logger *zap.Logger,
) rowOutcome {
	candidate, err := Extract(row, headers, formMapping)
	if err != nil {
		// Routine noise: half-filled submissions are counted, not logged as
		// errors.
		logger.Debug("row rejected at extraction", zap.Error(err))
		return rowSkipped
	}

	if existing, matchedBy, dup := index.Classify(candidate); dup {
		s.handleDuplicate(ctx, candidate, existing, matchedBy, logger)
		return rowDuplicate
	}

	if err := s.registerMember(ctx, &candidate, rosterCfg, allocator, logger); err != nil {
		if xerrors.IsProvisioningRejection(err) {
			// The platform rejected this applicant's data; the row is bad,
			// not the platform.
			logger.Warn("registration rejected by learning platform", zap.String("email", candidate.Email), zap.Error(err))
		} else {
			logger.Error("failed to process registration", zap.String("email", candidate.Email), zap.Error(err))
		}
		s.auditLog(ctx, systemActor, domain.ActionRegistrationError, domain.StatusFailed)
		return rowFailed
	}

	index.Add(candidate)
	s.auditLog(ctx, candidate.MembershipNumber, domain.ActionRegistrationProcessed, domain.StatusSuccess)
	return rowNew
}

func (s *Service) handleDuplicate(ctx context.Context, candidate, existing domain.MemberRecord, matchedBy MatchKey, logger *zap.Logger) {
	logger.Info("submission matches existing member",
		zap.String("email", candidate.Email),
		zap.String("matched_by", string(matchedBy)),
	)

	// When the match came through the phone number the two submissions may
	// carry different emails; copy the existing member in so they see the
	// attempt.
	cc := ""
	if matchedBy == MatchByPhone && !strings.EqualFold(existing.Email, candidate.Email) {
		cc = existing.Email
	}

	cctx, cancel := context.WithTimeout(ctx, s.callTimeout)
	defer cancel()
	if err := s.notifier.SendDuplicateNotice(cctx, candidate, cc); err != nil {
		logger.Warn("failed to send duplicate notice", zap.String("email", candidate.Email), zap.Error(err))
	}

	s.auditLog(ctx, candidate.Email, domain.ActionRegistrationDuplicate, domain.StatusDuplicate)
}

// registerMember runs the NEW path: allocate, provision, append to roster,
// welcome mail. A notification failure after the roster append leaves the
// member registered; that inconsistency is audit-visible and accepted.
func (s *Service) registerMember(
	ctx context.Context,
	candidate *domain.MemberRecord,
	rosterCfg *domain.SheetConfig,
	allocator *Allocator,
	logger *zap.Logger,
) error {
	tempPassword, err := id.GeneratePassword()
	if err != nil {
		return err
	}
	candidate.Password = tempPassword

	if candidate.MembershipNumber == "" {
		actx, cancel := context.WithTimeout(ctx, s.callTimeout)
		candidate.MembershipNumber = allocator.Next(actx)
		cancel()
	}

	if err := s.provision(ctx, *candidate, tempPassword, logger); err != nil {
		return err
	}

	if err := s.appendToRoster(ctx, *candidate, rosterCfg); err != nil {
		return err
	}

	cctx, cancel := context.WithTimeout(ctx, s.callTimeout)
	defer cancel()
	if err := s.notifier.SendWelcome(cctx, *candidate, tempPassword); err != nil {
		logger.Warn("welcome mail failed, member remains registered",
			zap.String("membership_number", candidate.MembershipNumber),
			zap.Error(err),
		)
		s.auditLog(ctx, candidate.MembershipNumber, domain.ActionRegistrationProcessed, "welcome_mail_failed")
	}

	logger.Info("registered new member",
		zap.String("membership_number", candidate.MembershipNumber),
		zap.String("email", candidate.Email),
	)
	return nil
}

// provision creates the learning-platform account, or rotates its credential
// when an account with this email already exists there. Existing-elsewhere is
// not a roster duplicate; both flows can occur for the same applicant.
func (s *Service) provision(ctx context.Context, m domain.MemberRecord, tempPassword string, logger *zap.Logger) error {
	fctx, cancel := context.WithTimeout(ctx, s.callTimeout)
	account, err := s.provisioner.FindByEmail(fctx, m.Email)
	cancel()
	if err != nil {
		return err
	}

	if account != nil {
		logger.Info("learning platform account exists, updating credential",
			zap.String("email", m.Email),
			zap.Int("account_id", account.ID),
		)
		uctx, cancel := context.WithTimeout(ctx, s.callTimeout)
		defer cancel()
		return s.provisioner.UpdateCredential(uctx, account.ID, tempPassword)
	}

	cctx, cancel := context.WithTimeout(ctx, s.callTimeout)
	defer cancel()
	accountID, err := s.provisioner.Create(cctx, m)
	if err != nil {
		return err
	}
	logger.Info("created learning platform account",
		zap.String("email", m.Email),
		zap.Int("account_id", accountID),
	)
	return nil
}

// appendToRoster performs the read-full-range, append, overwrite-full-range
// sequence. It is not atomic: a write landing between the read and the
// overwrite is lost (last writer wins). The mitigation is the single-writer
// scheduling discipline, not locking.
func (s *Service) appendToRoster(ctx context.Context, m domain.MemberRecord, rosterCfg *domain.SheetConfig) error {
	snapshot, err := s.readSheet(ctx, rosterCfg.ResourceID)
	if err != nil {
		return err
	}

	headers := snapshot.Headers
	if len(headers) == 0 {
		// Roster sheet is blank: seed headers from the mapping, sorted for a
		// stable layout.
		headers = make([]string, 0, len(rosterCfg.Mapping))
		for header := range rosterCfg.Mapping {
			headers = append(headers, header)
		}
		sort.Strings(headers)
	}

	memberRow := make([]string, len(headers))
	for i, header := range headers {
		memberRow[i] = m.Field(FieldForHeader(rosterCfg.Mapping, header))
	}

	rows := make([][]string, 0, len(snapshot.Rows)+2)
	rows = append(rows, headers)
	rows = append(rows, snapshot.Rows...)
	rows = append(rows, memberRow)

	wctx, cancel := context.WithTimeout(ctx, s.callTimeout)
	defer cancel()
	return s.store.OverwriteRange(wctx, rosterCfg.ResourceID, FullRange, rows)
}

func (s *Service) loadConfigs(ctx context.Context) (*domain.SheetConfig, *domain.SheetConfig, error) {
	formCfg, err := s.configs.FormSheetConfig(ctx)
	if err != nil {
		return nil, nil, err
	}
	rosterCfg, err := s.configs.RosterSheetConfig(ctx)
	if err != nil {
		return nil, nil, err
	}

	if err := ValidateMapping(formCfg.Mapping); err != nil {
		return nil, nil, err
	}
	if err := ValidateMapping(rosterCfg.Mapping); err != nil {
		return nil, nil, err
	}
	return formCfg, rosterCfg, nil
}

func (s *Service) readSheet(ctx context.Context, resourceID string) (domain.SheetSnapshot, error) {
	rctx, cancel := context.WithTimeout(ctx, s.callTimeout)
	defer cancel()
	return s.store.ReadRange(rctx, resourceID, FullRange)
}

// auditLog appends one audit record; audit failures are logged and swallowed
// so they never break a run.
func (s *Service) auditLog(ctx context.Context, user, action, status string) {
	actx, cancel := context.WithTimeout(ctx, s.callTimeout)
	defer cancel()
	if err := s.audit.Append(actx, user, action, status); err != nil {
		s.logger.Warn("failed to append audit log",
			zap.String("action", action),
			zap.String("status", status),
			zap.Error(err),
		)
	}
}
