package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/ibtikar-org-tr/membership-app/internal/domain"
	"github.com/ibtikar-org-tr/membership-app/pkg/xerrors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// SheetConfigRepository persists the form-sheet and roster-sheet bindings.
// The latest row per table wins, matching how operators re-save mappings.
type SheetConfigRepository struct {
	db *pgxpool.Pool
}

func NewSheetConfigRepository(db *pgxpool.Pool) *SheetConfigRepository {
	return &SheetConfigRepository{db: db}
}

// UpsertFormConfig stores a new form-sheet binding.
func (r *SheetConfigRepository) UpsertFormConfig(ctx context.Context, resourceID string, mapping domain.ColumnMapping) (*domain.SheetConfig, error) {
	return r.upsert(ctx, "google_form", "google_form_id", resourceID, mapping)
}

// UpsertRosterConfig stores a new roster-sheet binding.
func (r *SheetConfigRepository) UpsertRosterConfig(ctx context.Context, resourceID string, mapping domain.ColumnMapping) (*domain.SheetConfig, error) {
	return r.upsert(ctx, "google_sheet", "google_sheet_id", resourceID, mapping)
}

func (r *SheetConfigRepository) upsert(ctx context.Context, table, idColumn, resourceID string, mapping domain.ColumnMapping) (*domain.SheetConfig, error) {
	mappingJSON, err := json.Marshal(mapping)
	if err != nil {
		return nil, fmt.Errorf("failed to encode column mapping: %w", err)
	}

	cfg := &domain.SheetConfig{
		ID:         uuid.NewString(),
		ResourceID: resourceID,
		Mapping:    mapping,
	}

	q := fmt.Sprintf(`
		INSERT INTO %s (id, %s, corresponding_values, created_at, updated_at)
		VALUES ($1, $2, $3, NOW(), NOW())
		RETURNING created_at, updated_at
	`, table, idColumn)

	if err := r.db.QueryRow(ctx, q, cfg.ID, resourceID, mappingJSON).Scan(&cfg.CreatedAt, &cfg.UpdatedAt); err != nil {
		return nil, err
	}
	return cfg, nil
}

// FormSheetConfig returns the current form-sheet binding, or
// xerrors.ErrNotFound when none has been configured.
func (r *SheetConfigRepository) FormSheetConfig(ctx context.Context) (*domain.SheetConfig, error) {
	return r.latest(ctx, "google_form", "google_form_id")
}

// RosterSheetConfig returns the current roster-sheet binding, or
// xerrors.ErrNotFound when none has been configured.
func (r *SheetConfigRepository) RosterSheetConfig(ctx context.Context) (*domain.SheetConfig, error) {
	return r.latest(ctx, "google_sheet", "google_sheet_id")
}

func (r *SheetConfigRepository) latest(ctx context.Context, table, idColumn string) (*domain.SheetConfig, error) {
	q := fmt.Sprintf(`
		SELECT id, %s, corresponding_values, created_at, updated_at
		FROM %s
		ORDER BY created_at DESC
		LIMIT 1
	`, idColumn, table)

	cfg := &domain.SheetConfig{}
	var mappingJSON []byte
	var createdAt, updatedAt time.Time

	err := r.db.QueryRow(ctx, q).Scan(&cfg.ID, &cfg.ResourceID, &mappingJSON, &createdAt, &updatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, xerrors.ErrNotFound
		}
		return nil, err
	}

	if err := json.Unmarshal(mappingJSON, &cfg.Mapping); err != nil {
		return nil, fmt.Errorf("failed to decode column mapping: %w", err)
	}
	cfg.CreatedAt = createdAt
	cfg.UpdatedAt = updatedAt
	return cfg, nil
}
