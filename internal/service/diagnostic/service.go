// Package diagnostic runs adaptive diagnostic sessions: it picks the first
// item, records answers under a per-session row lock, re-estimates ability
// after each answer and stops the session when a stopping rule fires.
package diagnostic

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/phrazzld/gauge/internal/domain"
)

// StartSessionParams describes a session to start. Zero values take the
// service defaults.
type StartSessionParams struct {
	UserID      uuid.UUID          `json:"user_id"`
	SessionType domain.SessionType `json:"session_type"`
	// Domains restricts the session to the given domain codes. Empty means
	// every active domain.
	Domains            []string       `json:"domains,omitempty"`
	MaxQuestions       int            `json:"max_questions,omitempty"`
	PrecisionThreshold float64        `json:"precision_threshold,omitempty"`
	TimeLimit          *time.Duration `json:"time_limit,omitempty"` // zero means no limit
}

// StartSessionResult is a newly started session with its first item.
type StartSessionResult struct {
	Session *domain.DiagnosticSession `json:"session"`
	Item    *domain.Item              `json:"item"`
}

// SubmitResponseParams is one answer to the session's pending item.
type SubmitResponseParams struct {
	SessionID    uuid.UUID     `json:"session_id"`
	ItemID       uuid.UUID     `json:"item_id"`
	Answer       string        `json:"answer"`
	ResponseTime time.Duration `json:"response_time"`
	// ExpectedVersion, when non-zero, must equal the session's stored version.
	ExpectedVersion int `json:"expected_version,omitempty"`
}

// SubmitResponseResult reports the session state after an answer.
type SubmitResponseResult struct {
	// NextItem is nil once the session has stopped.
	NextItem *domain.Item               `json:"next_item,omitempty"`
	Ability  float64                    `json:"ability"`
	SE       float64                    `json:"se"`
	Status   domain.SessionStatus       `json:"status"`
	Reason   domain.TerminationReason   `json:"reason,omitempty"`
	Response *domain.DiagnosticResponse `json:"response"`
	Session  *domain.DiagnosticSession  `json:"-"`
}

// NextItemID returns the ID of the next item, or nil when the session stopped.
func (r *SubmitResponseResult) NextItemID() *uuid.UUID {
	if r.NextItem == nil {
		return nil
	}
	id := r.NextItem.ID
	return &id
}

// Service manages the lifecycle of diagnostic sessions.
type Service interface {
	// StartSession creates an active session and selects its first item.
	//
	// For reassessment sessions the prior mean is the current ability of the
	// user's active plan; without one the default prior is used.
	//
	// Returns:
	//   - ErrUnknownDomain (a validation error) if a requested domain is not active
	//   - ErrEmptyItemPool (a data integrity error) if no item can be served
	StartSession(ctx context.Context, params StartSessionParams) (*StartSessionResult, error)

	// SubmitResponse records an answer to the session's pending item,
	// re-estimates overall and per-domain ability, evaluates the stopping rule
	// and selects the next item. Everything happens in one transaction under
	// a row lock on the session; a rejected answer leaves the session as it was.
	//
	// Returns:
	//   - store.ErrSessionNotFound if the session does not exist
	//   - store.ErrVersionConflict if ExpectedVersion is stale
	//   - ErrSessionTerminal if the session already stopped
	//   - ErrDuplicateResponse if the item was already answered
	//   - ErrUnknownItem if the item does not exist or is outside the session
	//   - ErrOutOfOrder if the item is not the pending one
	SubmitResponse(ctx context.Context, params SubmitResponseParams) (*SubmitResponseResult, error)

	// ForceTerminate stops an active session with the given reason, or
	// admin_clear when reason is empty. Only admin_clear and time_limit may be
	// forced. A terminal session is returned as-is.
	ForceTerminate(ctx context.Context, sessionID uuid.UUID, reason domain.TerminationReason) (*domain.DiagnosticSession, error)

	// SweepTimedOut terminates active sessions that ran past their time limit
	// and have been idle for longer than the inactivity grace, and returns
	// their IDs. Failures on individual sessions do not stop the sweep.
	SweepTimedOut(ctx context.Context, now time.Time) ([]uuid.UUID, error)

	// GetSession returns a session with its domain estimates.
	GetSession(ctx context.Context, sessionID uuid.UUID) (*domain.DiagnosticSession, error)
}

// Errors returned for rejected input. All of them wrap domain.ErrValidation
// except ErrEmptyItemPool.
var (
	ErrSessionTerminal   = fmt.Errorf("%w: session is no longer active", domain.ErrValidation)
	ErrDuplicateResponse = fmt.Errorf("%w: item already answered in this session", domain.ErrValidation)
	ErrUnknownItem       = fmt.Errorf("%w: item does not belong to this session", domain.ErrValidation)
	ErrOutOfOrder        = fmt.Errorf("%w: item is not the one awaiting an answer", domain.ErrValidation)
	ErrUnknownDomain     = fmt.Errorf("%w: domain is not active", domain.ErrValidation)
	ErrEmptyItemPool     = fmt.Errorf("%w: no items available for the session's domains", domain.ErrDataIntegrity)
)

// IsRejection reports whether err is one of the input rejections above.
func IsRejection(err error) bool {
	return errors.Is(err, ErrSessionTerminal) ||
		errors.Is(err, ErrDuplicateResponse) ||
		errors.Is(err, ErrUnknownItem) ||
		errors.Is(err, ErrOutOfOrder)
}

// ServiceError wraps errors from the diagnostic service with additional context.
type ServiceError struct {
	// Operation is the operation that failed (e.g., "start_session", "submit_response")
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
