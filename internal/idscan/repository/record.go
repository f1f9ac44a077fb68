package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/jmoiron/sqlx"

	"github.com/medflow/idscan/internal/idscan/domain"
	"github.com/medflow/idscan/pkg/database"
	"github.com/medflow/idscan/pkg/errors"
)

const recordColumns = `
	id, id_number, last_name, first_name, middle_initial,
	street, city, state, zip_code, sex, date_of_birth,
	confidence, source_file_name, extracted_at, last_modified, is_manually_edited`

// RecordRepository handles identity record persistence
type RecordRepository struct {
	db *database.DB
}

// NewRecordRepository creates a new record repository
func NewRecordRepository(db *database.DB) *RecordRepository {
	return &RecordRepository{db: db}
}

// Create inserts a new record
func (r *RecordRepository) Create(ctx context.Context, rec *domain.Record) error {
	query := `
		INSERT INTO identity_records (` + recordColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
	`

	_, err := r.db.ExecContext(ctx, query,
		rec.ID, rec.IDNumber, rec.LastName, rec.FirstName, rec.MiddleInitial,
		rec.Street, rec.City, rec.State, rec.ZipCode, rec.Sex, rec.DateOfBirth,
		rec.Confidence, rec.SourceFileName, rec.ExtractedAt, rec.LastModified, rec.IsManuallyEdited,
	)
	return mapError(err)
}

// GetByID gets a record by ID
func (r *RecordRepository) GetByID(ctx context.Context, id string) (*domain.Record, error) {
	var rec domain.Record
	query := `SELECT ` + recordColumns + ` FROM identity_records WHERE id = $1`

	err := r.db.GetContext(ctx, &rec, query, strings.ToLower(id))
	if err == sql.ErrNoRows {
		return nil, errors.NotFound("record")
	}
	if err != nil {
		return nil, mapError(err)
	}

	return &rec, nil
}

// List lists records newest first with pagination
func (r *RecordRepository) List(ctx context.Context, page, limit int) ([]*domain.Record, int64, error) {
	var total int64
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM identity_records`); err != nil {
		return nil, 0, mapError(err)
	}

	records := []*domain.Record{}
	offset := (page - 1) * limit
	query := `
		SELECT ` + recordColumns + `
		FROM identity_records
		ORDER BY extracted_at DESC, id DESC
		LIMIT $1 OFFSET $2
	`
	if err := r.db.SelectContext(ctx, &records, query, limit, offset); err != nil {
		return nil, 0, mapError(err)
	}

	return records, total, nil
}

// Search does a case-insensitive substring match on id number, first and last name
func (r *RecordRepository) Search(ctx context.Context, q string, limit int) ([]*domain.Record, error) {
	records := []*domain.Record{}
	query := `
		SELECT ` + recordColumns + `
		FROM identity_records
		WHERE id_number ILIKE $1 ESCAPE '\'
		   OR first_name ILIKE $1 ESCAPE '\'
		   OR last_name ILIKE $1 ESCAPE '\'
		ORDER BY extracted_at DESC, id DESC
		LIMIT $2
	`
	if err := r.db.SelectContext(ctx, &records, query, ContainsPattern(q), limit); err != nil {
		return nil, mapError(err)
	}

	return records, nil
}

// Update locks the record, lets fn modify it and writes it back in one transaction.
// If fn returns an error nothing is written.
func (r *RecordRepository) Update(ctx context.Context, id string, fn func(*domain.Record) error) (*domain.Record, error) {
	var rec domain.Record

	err := r.db.Transaction(ctx, func(tx *sqlx.Tx) error {
		query := `SELECT ` + recordColumns + ` FROM identity_records WHERE id = $1 FOR UPDATE`
		if err := tx.GetContext(ctx, &rec, query, strings.ToLower(id)); err != nil {
			if err == sql.ErrNoRows {
				return errors.NotFound("record")
			}
			return err
		}

		if err := fn(&rec); err != nil {
			return err
		}

		update := `
			UPDATE identity_records SET
				id_number = $2, last_name = $3, first_name = $4, middle_initial = $5,
				street = $6, city = $7, state = $8, zip_code = $9, sex = $10, date_of_birth = $11,
				confidence = $12, source_file_name = $13, last_modified = $14, is_manually_edited = $15
			WHERE id = $1
		`
		_, err := tx.ExecContext(ctx, update,
			rec.ID, rec.IDNumber, rec.LastName, rec.FirstName, rec.MiddleInitial,
			rec.Street, rec.City, rec.State, rec.ZipCode, rec.Sex, rec.DateOfBirth,
			rec.Confidence, rec.SourceFileName, rec.LastModified, rec.IsManuallyEdited,
		)
		return err
	})
	if err != nil {
		return nil, mapError(err)
	}

	return &rec, nil
}

// ContainsPattern escapes LIKE wildcards in q and wraps it for a substring match
func ContainsPattern(q string) string {
	escaped := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(q)
	return "%" + escaped + "%"
}

// mapError passes AppErrors through and translates known Postgres errors
func mapError(err error) error {
	if err == nil {
		return nil
	}
	var appErr *errors.AppError
	if errors.As(err, &appErr) {
		return appErr
	}
	if mapped := database.MapPQError(err); mapped != nil {
		return mapped
	}
	return errors.Internal(err)
}
