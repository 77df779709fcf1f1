package postgres_test

import (
	"database/sql"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phrazzld/gauge/internal/platform/postgres"
	"github.com/phrazzld/gauge/internal/store"
)

func newPgError(code, constraint string) *pgconn.PgError {
	return &pgconn.PgError{
		Code:           code,
		Message:        "error message",
		TableName:      "diagnostic_responses",
		ColumnName:     "item_id",
		ConstraintName: constraint,
	}
}

// mockResult implements sql.Result for testing
type mockResult struct {
	rowsAffected int64
	err          error
}

func (m mockResult) LastInsertId() (int64, error) { return 0, m.err }
func (m mockResult) RowsAffected() (int64, error) { return m.rowsAffected, m.err }

func TestIsUniqueViolation(t *testing.T) {
	t.Parallel()

	assert.True(t, postgres.IsUniqueViolation(newPgError("23505", "c")))
	assert.True(t, postgres.IsUniqueViolation(fmt.Errorf("wrapped: %w", newPgError("23505", "c"))))
	assert.False(t, postgres.IsUniqueViolation(newPgError("23503", "c")))
	assert.False(t, postgres.IsUniqueViolation(errors.New("plain")))
	assert.False(t, postgres.IsUniqueViolation(nil))
}

func TestMapError(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		err      error
		expected error
	}{
		{"no rows", sql.ErrNoRows, store.ErrNotFound},
		{"duplicate item in session", newPgError("23505", "uq_diagnostic_responses_item"), store.ErrDuplicateResponse},
		{"duplicate sequence", newPgError("23505", "uq_diagnostic_responses_sequence"), store.ErrDuplicateResponse},
		{"second active plan", newPgError("23505", "uq_learning_plans_active_user"), store.ErrActivePlanExists},
		{"other unique", newPgError("23505", "domains_pkey"), store.ErrDuplicate},
		{"foreign key", newPgError("23503", "items_domain_code_fkey"), store.ErrInvalidEntity},
		{"check", newPgError("23514", "diagnostic_sessions_check"), store.ErrInvalidEntity},
		{"not null", newPgError("23502", ""), store.ErrInvalidEntity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.ErrorIs(t, postgres.MapError(tt.err), tt.expected)
		})
	}

	assert.NoError(t, postgres.MapError(nil))
	other := errors.New("connection reset")
	assert.Equal(t, other, postgres.MapError(other))

	dup := postgres.MapError(newPgError("23505", "uq_diagnostic_responses_item"))
	assert.ErrorIs(t, dup, store.ErrDuplicate)
	assert.NotErrorIs(t, postgres.MapError(newPgError("23505", "domains_pkey")), store.ErrDuplicateResponse)
}

func TestCheckRowsAffected(t *testing.T) {
	t.Parallel()

	require.NoError(t, postgres.CheckRowsAffected(mockResult{rowsAffected: 1}, "plan"))

	err := postgres.CheckRowsAffected(mockResult{rowsAffected: 0}, "plan")
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.Contains(t, err.Error(), "plan not found")

	assert.Equal(t, store.ErrNotFound, postgres.CheckRowsAffected(mockResult{}, ""))

	err = postgres.CheckRowsAffected(mockResult{err: errors.New("driver")}, "plan")
	assert.Contains(t, err.Error(), "failed to get rows affected")

	assert.Error(t, postgres.CheckRowsAffected(nil, "plan"))
}
