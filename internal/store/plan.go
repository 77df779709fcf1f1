package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/phrazzld/gauge/internal/domain"
)

// PlanStore defines the interface for learning plan persistence.
type PlanStore interface {
	// Create saves a plan with its domain analysis, schedule and milestones.
	// Returns ErrDuplicate if the user already has an active plan.
	// IMPORTANT: This method writes several tables and MUST run within a transaction.
	Create(ctx context.Context, plan *domain.PersonalLearningPlan) error

	// GetByID retrieves a plan with all of its parts.
	// Returns ErrPlanNotFound if the plan does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.PersonalLearningPlan, error)

	// GetActiveByUser retrieves the user's active plan with all of its parts.
	// Returns ErrPlanNotFound if the user has no active plan.
	GetActiveByUser(ctx context.Context, userID uuid.UUID) (*domain.PersonalLearningPlan, error)

	// GetLatestBefore retrieves the user's most recent plan of any status
	// created no later than before, skipping plans generated from
	// excludeSessionID.
	// Returns ErrPlanNotFound if there is no such plan.
	GetLatestBefore(ctx context.Context, userID uuid.UUID, before time.Time, excludeSessionID uuid.UUID) (*domain.PersonalLearningPlan, error)

	// AbandonActive marks the user's active plan, if any, as abandoned and
	// returns how many plans changed.
	AbandonActive(ctx context.Context, userID uuid.UUID, now time.Time) (int64, error)

	// ListDueForReminder returns active plans that have a next diagnostic date
	// no later than horizon. Only plan-level fields are loaded.
	ListDueForReminder(ctx context.Context, horizon time.Time) ([]domain.PersonalLearningPlan, error)

	// ClaimReminder records tier as the plan's last reminder, but only if the
	// stored marker ranks below it. It reports whether this call won the claim;
	// a concurrent batch that already claimed the tier makes it return false.
	ClaimReminder(ctx context.Context, planID uuid.UUID, tier domain.ReminderTier, now time.Time) (bool, error)

	// MarkReminderFailed flags the last reminder as failed to send.
	MarkReminderFailed(ctx context.Context, planID uuid.UUID) error

	// WithTx returns a new PlanStore instance that uses the provided transaction.
	WithTx(tx *sql.Tx) PlanStore
}

// MasteryStore defines the interface for the per-item mastery ledger.
type MasteryStore interface {
	// Ensure inserts m unless an entry for the same user and item exists.
	// It reports whether a row was created.
	Ensure(ctx context.Context, m *domain.UserItemMastery) (bool, error)

	// GetForUpdate retrieves the ledger entry and locks it until the
	// surrounding transaction ends.
	// Returns ErrMasteryNotFound if the user has never attempted the item.
	GetForUpdate(ctx context.Context, userID uuid.UUID, itemType domain.ItemType, itemID string) (*domain.UserItemMastery, error)

	// Upsert creates or replaces the ledger entry.
	Upsert(ctx context.Context, m *domain.UserItemMastery) error

	// ListByUser returns every ledger entry of a user ordered by item.
	ListByUser(ctx context.Context, userID uuid.UUID) ([]domain.UserItemMastery, error)

	// WithTx returns a new MasteryStore instance that uses the provided transaction.
	WithTx(tx *sql.Tx) MasteryStore
}
