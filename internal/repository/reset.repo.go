package repository

import (
	"context"
	"errors"
	"time"

	"github.com/ibtikar-org-tr/membership-app/internal/domain"
	"github.com/ibtikar-org-tr/membership-app/pkg/xerrors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ResetRepository persists password reset requests.
type ResetRepository struct {
	db *pgxpool.Pool
}

func NewResetRepository(db *pgxpool.Pool) *ResetRepository {
	return &ResetRepository{db: db}
}

// Create inserts a new pending reset request.
func (r *ResetRepository) Create(ctx context.Context, membershipNumber, email, token string) (*domain.PasswordResetRequest, error) {
	req := &domain.PasswordResetRequest{
		ID:               uuid.NewString(),
		MembershipNumber: membershipNumber,
		Email:            email,
		Status:           domain.ResetPending,
		Token:            token,
	}

	const q = `
		INSERT INTO password_reset_request (id, membership_number, email, status, token, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, NOW(), NOW())
		RETURNING created_at, updated_at
	`
	if err := r.db.QueryRow(ctx, q, req.ID, req.MembershipNumber, req.Email, req.Status, req.Token).
		Scan(&req.CreatedAt, &req.UpdatedAt); err != nil {
		return nil, err
	}
	return req, nil
}

// GetPendingByToken fetches a pending request for the given token.
func (r *ResetRepository) GetPendingByToken(ctx context.Context, token string) (*domain.PasswordResetRequest, error) {
	const q = `
		SELECT id, membership_number, email, status, token, created_at, updated_at
		FROM password_reset_request
		WHERE token = $1 AND status = 'pending'
	`
	req := &domain.PasswordResetRequest{}
	err := r.db.QueryRow(ctx, q, token).Scan(
		&req.ID,
		&req.MembershipNumber,
		&req.Email,
		&req.Status,
		&req.Token,
		&req.CreatedAt,
		&req.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, xerrors.ErrNotFound
		}
		return nil, err
	}
	return req, nil
}

// UpdateStatus moves a request to completed or failed.
func (r *ResetRepository) UpdateStatus(ctx context.Context, id, status string) error {
	const q = `
		UPDATE password_reset_request
		SET status = $2, updated_at = NOW()
		WHERE id = $1
	`
	tag, err := r.db.Exec(ctx, q, id, status)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return xerrors.ErrNotFound
	}
	return nil
}

// ExpirePending marks pending requests older than maxAge as failed and
// returns how many were expired.
func (r *ResetRepository) ExpirePending(ctx context.Context, maxAge time.Duration) (int64, error) {
	const q = `
		UPDATE password_reset_request
		SET status = 'failed', updated_at = NOW()
		WHERE status = 'pending' AND created_at < $1
	`
	tag, err := r.db.Exec(ctx, q, time.Now().Add(-maxAge))
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
