// Package mastery keeps the per-item mastery ledger up to date as users answer
// learning items across study sessions.
package mastery

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/phrazzld/gauge/internal/domain"
	domainmastery "github.com/phrazzld/gauge/internal/domain/mastery"
	"github.com/phrazzld/gauge/internal/platform/logger"
	"github.com/phrazzld/gauge/internal/store"
)

// RecordAttemptParams is one scored answer to a learning item.
type RecordAttemptParams struct {
	UserID   uuid.UUID       `json:"user_id"`
	ItemType domain.ItemType `json:"item_type"`
	ItemID   string          `json:"item_id"`
	Correct  bool            `json:"correct"`
	// SessionDate is when the study session took place. Zero means now.
	SessionDate time.Time `json:"session_date"`
	SessionRef  string    `json:"session_ref,omitempty"`
}

// Service records attempts against the mastery ledger.
type Service interface {
	// RecordAttempt applies one attempt to the user's ledger entry for the
	// item, creating the entry on the first attempt. The read and the write
	// happen in one transaction under a row lock.
	RecordAttempt(ctx context.Context, params RecordAttemptParams) (*domain.UserItemMastery, error)

	// ListMastery returns every ledger entry of a user.
	ListMastery(ctx context.Context, userID uuid.UUID) ([]domain.UserItemMastery, error)
}

// ServiceError wraps errors from the mastery service with additional context.
type ServiceError struct {
	// Operation is the operation that failed (e.g., "record_attempt")
	Operation string
	// Message is a human-readable description of the error
	Message string
	// Err is the underlying error that caused the failure
	Err error
}

// Error implements the error interface for ServiceError.
func (e *ServiceError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s operation failed: %s: %v", e.Operation, e.Message, e.Err)
	}
	return fmt.Sprintf("%s operation failed: %s", e.Operation, e.Message)
}

// Unwrap returns the wrapped error to support errors.Is/errors.As.
func (e *ServiceError) Unwrap() error {
	return e.Err
}

// NewServiceError returns a new ServiceError for the given operation.
func NewServiceError(operation, message string, err error) *ServiceError {
	return &ServiceError{
		Operation: operation,
		Message:   message,
		Err:       err,
	}
}

// Verify interface compliance at compile time
var _ Service = (*serviceImpl)(nil)

type serviceImpl struct {
	tx        store.TxRunner
	masteries store.MasteryStore
	tracker   domainmastery.Tracker
	now       func() time.Time
	logger    *slog.Logger
}

// NewService creates a new mastery Service. A nil tracker uses the default
// mastery rule; a nil clock uses the current UTC time.
func NewService(
	tx store.TxRunner,
	masteries store.MasteryStore,
	tracker domainmastery.Tracker,
	clock func() time.Time,
	logger *slog.Logger,
) Service {
	if tx == nil {
		panic("tx runner cannot be nil")
	}
	if masteries == nil {
		panic("mastery store cannot be nil")
	}
	if tracker == nil {
		tracker = domainmastery.NewDefaultTracker()
	}
	if clock == nil {
		clock = func() time.Time { return time.Now().UTC() }
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &serviceImpl{
		tx:        tx,
		masteries: masteries,
		tracker:   tracker,
		now:       clock,
		logger:    logger.With(slog.String("component", "mastery_service")),
	}
}

// RecordAttempt implements Service.RecordAttempt
func (s *serviceImpl) RecordAttempt(ctx context.Context, p RecordAttemptParams) (*domain.UserItemMastery, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)

	p.ItemID = strings.TrimSpace(p.ItemID)
	switch {
	case p.UserID == uuid.Nil:
		return nil, domain.NewValidationError("user_id", "cannot be empty", nil)
	case !p.ItemType.IsValid():
		return nil, domain.NewValidationError("item_type", "is not a known item type", nil)
	case p.ItemID == "":
		return nil, domain.NewValidationError("item_id", "cannot be empty", nil)
	}

	now := s.now()
	if p.SessionDate.IsZero() {
		p.SessionDate = now
	}

	var (
		updated     *domain.UserItemMastery
		wasMastered bool
	)
	err := s.tx.RunInTx(ctx, func(ctx context.Context, tx *sql.Tx) error {
		masteries := s.masteries.WithTx(tx)
		// The entry must exist before it can be locked, otherwise two first
		// attempts would both start from an empty ledger.
		fresh, err := domain.NewUserItemMastery(p.UserID, p.ItemType, p.ItemID, now)
		if err != nil {
			return err
		}
		if _, err := masteries.Ensure(ctx, fresh); err != nil {
			return err
		}
		current, err := masteries.GetForUpdate(ctx, p.UserID, p.ItemType, p.ItemID)
		if err != nil {
			return err
		}
		wasMastered = current.IsMastered()

		next, err := s.tracker.Record(current, domainmastery.Attempt{
			Correct:     p.Correct,
			SessionDate: p.SessionDate,
			SessionRef:  p.SessionRef,
		}, now)
		if err != nil {
			return err
		}
		if err := masteries.Upsert(ctx, next); err != nil {
			return err
		}
		updated = next
		return nil
	})
	if err != nil {
		log.Error("failed to record attempt",
			slog.String("error", err.Error()),
			slog.String("user_id", p.UserID.String()),
			slog.String("item_id", p.ItemID))
		return nil, NewServiceError("record_attempt", "failed to update mastery ledger", err)
	}

	switch {
	case updated.IsMastered() && !wasMastered:
		log.Info("item mastered",
			slog.String("user_id", p.UserID.String()),
			slog.String("item_type", string(p.ItemType)),
			slog.String("item_id", p.ItemID),
			slog.Int("sessions", updated.ConsecutiveCorrectSessions))
	case wasMastered && !updated.IsMastered():
		log.Info("item mastery lost",
			slog.String("user_id", p.UserID.String()),
			slog.String("item_type", string(p.ItemType)),
			slog.String("item_id", p.ItemID))
	}
	return updated, nil
}

// ListMastery implements Service.ListMastery
func (s *serviceImpl) ListMastery(ctx context.Context, userID uuid.UUID) ([]domain.UserItemMastery, error) {
	if userID == uuid.Nil {
		return nil, domain.NewValidationError("user_id", "cannot be empty", nil)
	}
	entries, err := s.masteries.ListByUser(ctx, userID)
	if err != nil {
		return nil, NewServiceError("list_mastery", "failed to load mastery ledger", err)
	}
	return entries, nil
}
