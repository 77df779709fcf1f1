package postgres_test

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/phrazzld/gauge/internal/domain"
	"github.com/phrazzld/gauge/internal/platform/postgres"
	"github.com/phrazzld/gauge/internal/store"
)

// arrayConverter lets text[] parameters through to sqlmock unchanged.
type arrayConverter struct{}

func (arrayConverter) ConvertValue(v any) (driver.Value, error) {
	if s, ok := v.([]string); ok {
		return s, nil
	}
	return driver.DefaultParameterConverter.ConvertValue(v)
}

func newMock(t *testing.T) (*sql.DB, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.ValueConverterOption(arrayConverter{}))
	require.NoError(t, err)
	t.Cleanup(func() {
		assert.NoError(t, mock.ExpectationsWereMet())
		_ = db.Close()
	})
	return db, mock
}

func activeSession() *domain.DiagnosticSession {
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	return &domain.DiagnosticSession{
		ID:                 uuid.New(),
		UserID:             uuid.New(),
		SessionType:        domain.SessionTypeInitial,
		MaxQuestions:       20,
		PrecisionThreshold: 0.3,
		PriorSD:            1,
		StandardError:      1,
		DomainAbilities:    domain.DomainAbilityMap{"ANAT": {}, "PHYS": {}},
		Status:             domain.SessionStatusActive,
		Version:            3,
		StartedAt:          now,
		LastActivityAt:     now,
	}
}

func TestPostgresStoresRejectNilDB(t *testing.T) {
	t.Parallel()

	assert.Panics(t, func() { postgres.NewPostgresSessionStore(nil, nil) })
	assert.Panics(t, func() { postgres.NewPostgresPlanStore(nil, nil) })
	assert.Panics(t, func() { postgres.NewPostgresItemStore(nil, nil) })
	assert.Panics(t, func() { postgres.NewPostgresMasteryStore(nil, nil) })
}

func TestSessionStoreUpdate(t *testing.T) {
	t.Parallel()

	t.Run("writes estimates and bumps the version", func(t *testing.T) {
		t.Parallel()
		db, mock := newMock(t)
		session := activeSession()

		mock.ExpectExec("UPDATE diagnostic_sessions SET").WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec("INSERT INTO session_domain_estimates").
			WithArgs(session.ID, "ANAT", 0.0, 0.0, 0, 0).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec("INSERT INTO session_domain_estimates").
			WithArgs(session.ID, "PHYS", 0.0, 0.0, 0, 0).
			WillReturnResult(sqlmock.NewResult(0, 1))

		err := postgres.NewPostgresSessionStore(db, nil).Update(context.Background(), session)
		require.NoError(t, err)
		assert.Equal(t, 4, session.Version)
	})

	t.Run("stale version is a conflict", func(t *testing.T) {
		t.Parallel()
		db, mock := newMock(t)
		session := activeSession()

		mock.ExpectExec("UPDATE diagnostic_sessions SET").WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery("SELECT EXISTS").WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))

		err := postgres.NewPostgresSessionStore(db, nil).Update(context.Background(), session)
		assert.ErrorIs(t, err, store.ErrVersionConflict)
		assert.Equal(t, 3, session.Version)
	})

	t.Run("missing session", func(t *testing.T) {
		t.Parallel()
		db, mock := newMock(t)

		mock.ExpectExec("UPDATE diagnostic_sessions SET").WillReturnResult(sqlmock.NewResult(0, 0))
		mock.ExpectQuery("SELECT EXISTS").WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))

		err := postgres.NewPostgresSessionStore(db, nil).Update(context.Background(), activeSession())
		assert.ErrorIs(t, err, store.ErrSessionNotFound)
	})

	t.Run("invalid session never reaches the database", func(t *testing.T) {
		t.Parallel()
		db, _ := newMock(t)
		session := activeSession()
		session.MaxQuestions = 0

		err := postgres.NewPostgresSessionStore(db, nil).Update(context.Background(), session)
		assert.ErrorIs(t, err, domain.ErrInvalidMaxQuestions)
	})
}

func TestSessionStoreGetNotFound(t *testing.T) {
	t.Parallel()
	db, mock := newMock(t)

	mock.ExpectQuery("SELECT (.+) FROM diagnostic_sessions WHERE id = \\$1 FOR UPDATE").
		WillReturnError(sql.ErrNoRows)

	_, err := postgres.NewPostgresSessionStore(db, nil).GetForUpdate(context.Background(), uuid.New())
	assert.ErrorIs(t, err, store.ErrSessionNotFound)
}

func TestResponseStoreDuplicate(t *testing.T) {
	t.Parallel()
	db, mock := newMock(t)

	mock.ExpectExec("INSERT INTO diagnostic_responses").
		WillReturnError(newPgError("23505", "uq_diagnostic_responses_item"))

	err := postgres.NewPostgresResponseStore(db, nil).Create(context.Background(), &domain.DiagnosticResponse{
		ID:        uuid.New(),
		SessionID: uuid.New(),
		ItemID:    uuid.New(),
		Sequence:  1,
		CreatedAt: time.Now().UTC(),
	})
	assert.ErrorIs(t, err, store.ErrDuplicateResponse)
	assert.ErrorIs(t, err, store.ErrDuplicate)
}

func TestPlanStoreClaimReminder(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 3, 28, 8, 0, 0, 0, time.UTC)

	t.Run("wins the claim", func(t *testing.T) {
		t.Parallel()
		db, mock := newMock(t)
		planID := uuid.New()

		mock.ExpectExec("UPDATE learning_plans SET").
			WithArgs(planID, "final", domain.ReminderTierFinal.Rank(), now).
			WillReturnResult(sqlmock.NewResult(0, 1))

		won, err := postgres.NewPostgresPlanStore(db, nil).
			ClaimReminder(context.Background(), planID, domain.ReminderTierFinal, now)
		require.NoError(t, err)
		assert.True(t, won)
	})

	t.Run("already claimed", func(t *testing.T) {
		t.Parallel()
		db, mock := newMock(t)

		mock.ExpectExec("UPDATE learning_plans SET").WillReturnResult(sqlmock.NewResult(0, 0))

		won, err := postgres.NewPostgresPlanStore(db, nil).
			ClaimReminder(context.Background(), uuid.New(), domain.ReminderTierFinal, now)
		require.NoError(t, err)
		assert.False(t, won)
	})

	t.Run("no tier", func(t *testing.T) {
		t.Parallel()
		db, _ := newMock(t)

		_, err := postgres.NewPostgresPlanStore(db, nil).
			ClaimReminder(context.Background(), uuid.New(), domain.ReminderTierNone, now)
		assert.ErrorIs(t, err, domain.ErrInvalidReminderTier)
	})
}

func TestPlanStoreMarkReminderFailedMissing(t *testing.T) {
	t.Parallel()
	db, mock := newMock(t)

	mock.ExpectExec("UPDATE learning_plans SET last_reminder_failed").WillReturnResult(sqlmock.NewResult(0, 0))

	err := postgres.NewPostgresPlanStore(db, nil).MarkReminderFailed(context.Background(), uuid.New())
	assert.ErrorIs(t, err, store.ErrPlanNotFound)
}

func TestPlanStoreCreateActiveConflict(t *testing.T) {
	t.Parallel()
	db, mock := newMock(t)

	mock.ExpectExec("INSERT INTO learning_plans").
		WillReturnError(newPgError("23505", "uq_learning_plans_active_user"))

	now := time.Now().UTC()
	err := postgres.NewPostgresPlanStore(db, nil).Create(context.Background(), &domain.PersonalLearningPlan{
		ID:        uuid.New(),
		UserID:    uuid.New(),
		Status:    domain.PlanStatusActive,
		CreatedAt: now,
		UpdatedAt: now,
	})
	assert.ErrorIs(t, err, store.ErrActivePlanExists)
}

func TestPlanStoreGetLatestBeforeNotFound(t *testing.T) {
	t.Parallel()
	db, mock := newMock(t)
	userID, sessionID := uuid.New(), uuid.New()
	before := time.Date(2026, 3, 28, 8, 0, 0, 0, time.UTC)

	mock.ExpectQuery("SELECT (.+) FROM learning_plans (.+) ORDER BY created_at DESC").
		WithArgs(userID, before, sessionID).
		WillReturnError(sql.ErrNoRows)

	_, err := postgres.NewPostgresPlanStore(db, nil).GetLatestBefore(context.Background(), userID, before, sessionID)
	assert.ErrorIs(t, err, store.ErrPlanNotFound)
}

func TestItemStoreScansCalibration(t *testing.T) {
	t.Parallel()
	db, mock := newMock(t)

	calibrated := uuid.New()
	uncalibrated := uuid.New()
	created := time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC)
	columns := []string{
		"id", "domain_code", "stem", "correct_answer",
		"discrimination", "difficulty", "guessing",
		"calibration_sample_size", "discrimination_se", "difficulty_se", "guessing_se",
		"fit_statistic", "calibrated_at", "created_at",
	}
	mock.ExpectQuery("SELECT (.+) FROM items").
		WithArgs([]string{"ANAT"}).
		WillReturnRows(sqlmock.NewRows(columns).
			AddRow(calibrated.String(), "ANAT", "Which bone?", "B", 1.4, -0.3, 0.2, 850, 0.08, 0.05, 0.02, 1.01, created, created).
			AddRow(uncalibrated.String(), "ANAT", "Which nerve?", "D", nil, nil, nil, nil, nil, nil, nil, nil, nil, created))

	items, err := postgres.NewPostgresItemStore(db, nil).ListByDomains(context.Background(), []string{"ANAT"})
	require.NoError(t, err)
	require.Len(t, items, 2)

	require.NotNil(t, items[0].Params)
	assert.InDelta(t, 1.4, items[0].Params.Discrimination, 1e-12)
	require.NotNil(t, items[0].Calibration)
	assert.Equal(t, 850, items[0].Calibration.SampleSize)
	require.NotNil(t, items[0].Calibration.FitStatistic)

	assert.Nil(t, items[1].Params)
	assert.Nil(t, items[1].Calibration)
	_, defaulted := items[1].ResolvedParams()
	assert.True(t, defaulted)
}

func TestItemStoreGetByIDNotFound(t *testing.T) {
	t.Parallel()
	db, mock := newMock(t)

	mock.ExpectQuery("SELECT (.+) FROM items WHERE id").WillReturnError(sql.ErrNoRows)

	_, err := postgres.NewPostgresItemStore(db, nil).GetByID(context.Background(), uuid.New())
	assert.True(t, errors.Is(err, store.ErrItemNotFound))
}

func TestMasteryStoreUpsertWritesCalendarDate(t *testing.T) {
	t.Parallel()
	db, mock := newMock(t)

	userID := uuid.New()
	date := time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC)
	correct := true
	now := time.Date(2026, 3, 2, 22, 15, 0, 0, time.UTC)
	m := &domain.UserItemMastery{
		UserID:                     userID,
		ItemType:                   domain.ItemTypeDiagnosticItem,
		ItemID:                     "item-1",
		Attempts:                   2,
		Correct:                    2,
		ConsecutiveCorrectSessions: 2,
		LastResult:                 &correct,
		LastSessionDate:            &date,
		MasteredAt:                 &now,
		CreatedAt:                  now,
		UpdatedAt:                  now,
	}

	mock.ExpectExec("INSERT INTO user_item_mastery").
		WithArgs(userID, "diagnostic_item", "item-1", 2, 2, 2, true, "2026-03-02", "",
			sqlmock.AnyArg(), sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, postgres.NewPostgresMasteryStore(db, nil).Upsert(context.Background(), m))
}

func TestMasteryStoreGetForUpdateNotFound(t *testing.T) {
	t.Parallel()
	db, mock := newMock(t)

	mock.ExpectQuery("SELECT (.+) FROM user_item_mastery").WillReturnError(sql.ErrNoRows)

	_, err := postgres.NewPostgresMasteryStore(db, nil).
		GetForUpdate(context.Background(), uuid.New(), domain.ItemTypeFlashcard, "card-9")
	assert.ErrorIs(t, err, store.ErrMasteryNotFound)
}

func TestMasteryStoreEnsure(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		affected int64
		created  bool
	}{
		{"new entry", 1, true},
		{"existing entry", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			db, mock := newMock(t)
			m, err := domain.NewUserItemMastery(uuid.New(), domain.ItemTypeDiagnosticItem, "item-1", time.Now().UTC())
			require.NoError(t, err)

			mock.ExpectExec("INSERT INTO user_item_mastery (.+) ON CONFLICT (.+) DO NOTHING").
				WithArgs(m.UserID, "diagnostic_item", "item-1", sqlmock.AnyArg(), sqlmock.AnyArg()).
				WillReturnResult(sqlmock.NewResult(0, tt.affected))

			created, err := postgres.NewPostgresMasteryStore(db, nil).Ensure(context.Background(), m)
			require.NoError(t, err)
			assert.Equal(t, tt.created, created)
		})
	}
}
