package database

import (
	"net/http"
	"strings"

	"github.com/lib/pq"

	"github.com/medflow/idscan/pkg/errors"
)

// MapPQError converts a PostgreSQL error to an AppError with meaningful messages.
// Returns nil if the error is not a pq.Error or has no mapping.
func MapPQError(err error) *errors.AppError {
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return nil
	}

	switch pqErr.Code {
	// Check constraint violation (23514)
	case "23514":
		return mapCheckConstraint(pqErr)

	// Unique constraint violation (23505)
	case "23505":
		return duplicate(pqErr)

	// Not null violation (23502)
	case "23502":
		col := pqErr.Column
		if col == "" {
			col = "required field"
		}
		return errors.Validation(map[string]string{
			columnField(col): "must not be empty",
		})

	// Value too long for column (22001)
	case "22001":
		return errors.Validation(map[string]string{
			columnField(pqErr.Column): "value is too long",
		})

	// Invalid text representation (22P02)
	case "22P02":
		return errors.BadRequest("invalid value format")

	default:
		return nil
	}
}

// mapCheckConstraint maps the identity_records CHECK constraints to field errors
func mapCheckConstraint(pqErr *pq.Error) *errors.AppError {
	constraint := pqErr.Constraint

	switch {
	case strings.Contains(constraint, "names_not_blank"):
		return errors.Validation(map[string]string{
			"lastName":  "must not be blank",
			"firstName": "must not be blank",
		})

	case strings.Contains(constraint, "middle_initial_format"):
		return errors.Validation(map[string]string{
			"middleInitial": "must be a single letter",
		})

	case strings.Contains(constraint, "zip_format"):
		return errors.Validation(map[string]string{
			"zipCode": "must be a US ZIP code (12345 or 12345-6789)",
		})

	case strings.Contains(constraint, "sex_valid"):
		return errors.Validation(map[string]string{
			"sex": "must be one of: M, F, Male, Female",
		})

	case strings.Contains(constraint, "confidence_range"):
		return errors.Validation(map[string]string{
			"confidence": "must be between 0 and 1",
		})

	default:
		return errors.Validation(map[string]string{
			"record": "data validation failed: " + constraint,
		})
	}
}

func duplicate(pqErr *pq.Error) *errors.AppError {
	appErr := errors.NewWithKey("CONFLICT", "records.duplicate", http.StatusConflict)
	appErr.Kind = errors.ErrConflict
	if strings.Contains(pqErr.Constraint, "id_number") {
		appErr.Details = map[string]string{"idNumber": "already exists"}
	}
	return appErr
}

// columnField turns a snake_case column into the camelCase API field name
func columnField(col string) string {
	parts := strings.Split(col, "_")
	for i := 1; i < len(parts); i++ {
		if parts[i] != "" {
			parts[i] = strings.ToUpper(parts[i][:1]) + parts[i][1:]
		}
	}
	return strings.Join(parts, "")
}
