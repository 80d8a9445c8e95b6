package repositories

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/desertthunder/qcat/internal/models"
	"github.com/desertthunder/qcat/internal/shared"
)

// LookupRepository implements [models.Repository] for [models.Lookup] history.
type LookupRepository struct {
	db *sql.DB
}

// NewLookupRepository creates a new [LookupRepository] with the given database connection
func NewLookupRepository(db *sql.DB) *LookupRepository {
	return &LookupRepository{db: db}
}

// Create inserts a lookup with a generated ID and sequence
func (r *LookupRepository) Create(lookup *models.Lookup) error {
	if err := lookup.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	sequence, err := NextSequence(r.db, "lookups")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	id := shared.GenerateID()
	lookup.SetID(id)
	lookup.SetSequence(sequence)

	query := `
		INSERT INTO lookups (id, sequence, operation, query, entity_hint, region, result_count, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err = r.db.Exec(query,
		id, sequence, lookup.Operation(), lookup.Query(), string(lookup.EntityHint()),
		lookup.Region(), lookup.ResultCount(), lookup.CreatedAt(), lookup.UpdatedAt(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert lookup: %w", err)
	}

	return nil
}

// Get retrieves a lookup by ID, excluding soft-deleted rows
func (r *LookupRepository) Get(id string) (*models.Lookup, error) {
	query := `
		SELECT id, sequence, operation, query, entity_hint, region, result_count, created_at, updated_at, deleted_at
		FROM lookups
		WHERE id = ? AND deleted_at IS NULL
	`

	lookup, err := scanLookup(r.db.QueryRow(query, id))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: lookup %s", shared.ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query lookup: %w", err)
	}
	return lookup, nil
}

// Update stores the hint and result count of an existing lookup
func (r *LookupRepository) Update(lookup *models.Lookup) error {
	if err := lookup.Validate(); err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	now := time.Now()
	lookup.SetUpdatedAt(now)

	query := `
		UPDATE lookups
		SET entity_hint = ?, result_count = ?, updated_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`

	result, err := r.db.Exec(query, string(lookup.EntityHint()), lookup.ResultCount(), now, lookup.ID())
	if err != nil {
		return fmt.Errorf("failed to update lookup: %w", err)
	}
	return expectAffected(result, "lookup", lookup.ID())
}

// Delete soft-deletes a lookup by ID
func (r *LookupRepository) Delete(id string) error {
	query := `UPDATE lookups SET deleted_at = ? WHERE id = ? AND deleted_at IS NULL`

	result, err := r.db.Exec(query, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to delete lookup: %w", err)
	}
	return expectAffected(result, "lookup", id)
}

// List returns lookups newest first.
//
// Supported criteria: "operation" (string), "region" (string) and "limit" (int).
func (r *LookupRepository) List(criteria map[string]any) ([]*models.Lookup, error) {
	query := `
		SELECT id, sequence, operation, query, entity_hint, region, result_count, created_at, updated_at, deleted_at
		FROM lookups
		WHERE deleted_at IS NULL
	`
	var args []any

	if op, ok := criteria["operation"].(string); ok && op != "" {
		query += " AND operation = ?"
		args = append(args, op)
	}

	if region, ok := criteria["region"].(string); ok && region != "" {
		query += " AND region = ?"
		args = append(args, shared.NormalizeRegion(region))
	}

	query += " ORDER BY sequence DESC"

	if limit, ok := criteria["limit"].(int); ok && limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query lookups: %w", err)
	}
	defer rows.Close()

	var lookups []*models.Lookup
	for rows.Next() {
		lookup, err := scanLookup(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan lookup: %w", err)
		}
		lookups = append(lookups, lookup)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}

	return lookups, nil
}

// Clear soft-deletes every live lookup and returns how many were removed.
func (r *LookupRepository) Clear() (int64, error) {
	result, err := r.db.Exec(`UPDATE lookups SET deleted_at = ? WHERE deleted_at IS NULL`, time.Now())
	if err != nil {
		return 0, fmt.Errorf("failed to clear lookups: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get affected rows: %w", err)
	}
	return n, nil
}

// Record is a convenience for surfaces that log a finished call in one step.
func (r *LookupRepository) Record(operation, query, region string, hint models.EntityHint, results int) (*models.Lookup, error) {
	lookup := models.NewLookup(0, operation, query, region)
	lookup.SetEntityHint(hint)
	lookup.SetResultCount(results)

	if err := r.Create(lookup); err != nil {
		return nil, err
	}
	return lookup, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanLookup(row rowScanner) (*models.Lookup, error) {
	var (
		id          string
		sequence    int
		operation   string
		query       string
		hint        string
		region      string
		resultCount int
		createdAt   time.Time
		updatedAt   time.Time
		deletedAt   sql.NullTime
	)

	err := row.Scan(&id, &sequence, &operation, &query, &hint, &region, &resultCount, &createdAt, &updatedAt, &deletedAt)
	if err != nil {
		return nil, err
	}

	lookup := models.NewLookup(sequence, operation, query, region)
	lookup.SetID(id)
	lookup.SetEntityHint(models.EntityHint(hint))
	lookup.SetResultCount(resultCount)
	lookup.SetCreatedAt(createdAt)
	lookup.SetUpdatedAt(updatedAt)
	if deletedAt.Valid {
		lookup.SetDeletedAt(&deletedAt.Time)
	}
	return lookup, nil
}

func expectAffected(result sql.Result, entity, id string) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s %s not found or already deleted", shared.ErrNotFound, entity, id)
	}
	return nil
}
