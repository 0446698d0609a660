package repository

import (
	"context"

	"github.com/ibtikar-org-tr/membership-app/internal/domain"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// AuditRepository is the append-only sink for reconciliation and auth events.
type AuditRepository struct {
	db *pgxpool.Pool
}

func NewAuditRepository(db *pgxpool.Pool) *AuditRepository {
	return &AuditRepository{db: db}
}

// Append inserts one audit record. Entries are never updated or deleted.
func (r *AuditRepository) Append(ctx context.Context, user, action, status string) error {
	const q = `
		INSERT INTO logs (id, "user", action, status, created_at)
		VALUES ($1, $2, $3, $4, NOW())
	`
	_, err := r.db.Exec(ctx, q, uuid.NewString(), user, action, status)
	return err
}

// List returns the newest entries first.
func (r *AuditRepository) List(ctx context.Context, limit, offset int) ([]domain.LogEntry, error) {
	const q = `
		SELECT id, "user", action, status, created_at
		FROM logs
		ORDER BY created_at DESC
		LIMIT $1 OFFSET $2
	`
	rows, err := r.db.Query(ctx, q, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanLogEntries(rows)
}

// ListByUser returns the newest entries for one actor.
func (r *AuditRepository) ListByUser(ctx context.Context, user string, limit int) ([]domain.LogEntry, error) {
	const q = `
		SELECT id, "user", action, status, created_at
		FROM logs
		WHERE "user" = $1
		ORDER BY created_at DESC
		LIMIT $2
	`
	rows, err := r.db.Query(ctx, q, user, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return scanLogEntries(rows)
}

func scanLogEntries(rows pgx.Rows) ([]domain.LogEntry, error) {
	var entries []domain.LogEntry
	for rows.Next() {
		var e domain.LogEntry
		if err := rows.Scan(&e.ID, &e.User, &e.Action, &e.Status, &e.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
