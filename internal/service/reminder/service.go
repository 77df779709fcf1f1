// Package reminder runs the re-assessment reminder batch: it finds active plans
// whose next diagnostic date is approaching or past, and notifies each user at
// most once per reminder tier.
package reminder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/phrazzld/gauge/internal/domain"
)

// NotificationSender delivers reminders. Delivery itself, and any retry
// policy, belong to the sender.
type NotificationSender interface {
	// SendReminder notifies the user that a re-assessment is due. It reports
	// whether the notification was accepted.
	SendReminder(ctx context.Context, userID, planID uuid.UUID, tier domain.ReminderTier) (bool, error)
}

// LogSender records reminders in the log instead of delivering them. It is
// the sender used when no delivery channel is configured.
type LogSender struct {
	Logger *slog.Logger
}

// SendReminder implements NotificationSender.
func (s LogSender) SendReminder(ctx context.Context, userID, planID uuid.UUID, tier domain.ReminderTier) (bool, error) {
	log := s.Logger
	if log == nil {
		log = slog.Default()
	}
	log.InfoContext(ctx, "re-assessment reminder",
		slog.String("user_id", userID.String()),
		slog.String("plan_id", planID.String()),
		slog.String("tier", string(tier)))
	return true, nil
}

// TierCounts summarizes one batch run.
type TierCounts struct {
	// Scanned is the number of plans the batch looked at.
	Scanned int `json:"scanned"`
	// Sent counts delivered reminders per tier.
	Sent map[domain.ReminderTier]int `json:"sent"`
	// Failed counts claimed reminders the sender did not deliver.
	Failed int `json:"failed"`
	// Skipped counts reminders another run claimed first.
	Skipped int `json:"skipped"`
}

// TotalSent returns the number of reminders delivered across all tiers.
func (c TierCounts) TotalSent() int {
	var n int
	for _, v := range c.Sent {
		n += v
	}
	return n
}

// TriggerResult reports an on-demand reminder.
type TriggerResult struct {
	PlanID uuid.UUID           `json:"plan_id"`
	Tier   domain.ReminderTier `json:"tier"`
	Sent   bool                `json:"sent"`
	// Advanced is set when the plan's reminder marker moved to the tier.
	Advanced bool `json:"advanced"`
}

// Service runs the reminder batch.
type Service interface {
	// CheckReminders sends every reminder owed at now. Each reminder is
	// claimed with a compare-and-set on the plan's marker before it is sent,
	// so overlapping runs never send the same tier twice. A failed send keeps
	// the claim and flags the marker as failed.
	CheckReminders(ctx context.Context, now time.Time) (TierCounts, error)

	// TriggerReminder sends the given tier for one active plan regardless of
	// its schedule. The marker only moves forward.
	//
	// Returns:
	//   - store.ErrPlanNotFound if the plan does not exist
	//   - ErrPlanInactive if the plan is not active
	//   - ErrSendFailed if the sender did not deliver
	TriggerReminder(ctx context.Context, planID uuid.UUID, tier domain.ReminderTier) (*TriggerResult, error)
}

// Errors returned by the reminder service.
var (
	ErrPlanInactive = fmt.Errorf("%w: plan is not active", domain.ErrValidation)
	ErrSendFailed   = errors.New("reminder was not delivered")
)

// ServiceError wraps errors from the reminder service with additional context.
type ServiceError struct {
	// Operation is the operation that failed (e.g., "check_reminders")
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
