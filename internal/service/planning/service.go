// Package planning turns finished diagnostic sessions into domain analyses and
// personal learning plans.
package planning

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/phrazzld/gauge/internal/domain"
)

// DomainAnalysis is the ranked per-domain ability profile of a session.
type DomainAnalysis struct {
	SessionID      uuid.UUID                   `json:"session_id"`
	UserID         uuid.UUID                   `json:"user_id"`
	TargetAbility  float64                     `json:"target_ability"`
	CurrentAbility float64                     `json:"current_ability"`
	Domains        []domain.PlanDomainEstimate `json:"domains"`
	WeakDomains    []string                    `json:"weak_domains"`
	StrongDomains  []string                    `json:"strong_domains"`
	// NonConverged lists domains whose estimate fell back to the prior.
	NonConverged []string `json:"non_converged,omitempty"`
}

// GeneratePlanParams identifies the session a plan is generated from.
type GeneratePlanParams struct {
	UserID    uuid.UUID `json:"user_id"`
	SessionID uuid.UUID `json:"session_id"`
	// TargetAbility overrides the configured target when set.
	TargetAbility *float64 `json:"target_ability,omitempty"`
}

// Service builds domain analyses and learning plans.
type Service interface {
	// GetDomainAnalysis estimates ability per domain from a finished session's
	// responses. Estimates of the latest plan that predates the session serve
	// as priors and are inherited by domains the session did not sample.
	//
	// Returns:
	//   - store.ErrSessionNotFound if the session does not exist
	//   - ErrSessionActive if the session has not stopped yet
	//   - domain.ErrDataIntegrity if a response references a missing item or domain
	GetDomainAnalysis(ctx context.Context, sessionID uuid.UUID) (*DomainAnalysis, error)

	// GeneratePlan analyses a finished session and stores a new active plan for
	// the user, abandoning the previous one in the same transaction. When no
	// catalog path fits, or the catalog cannot be read, the plan falls back to
	// a single synthesized module.
	//
	// Returns:
	//   - ErrSessionActive if the session has not stopped yet
	//   - ErrSessionNotOwned if the session belongs to another user
	//   - store.ErrActivePlanExists if a concurrent generation won the race
	GeneratePlan(ctx context.Context, params GeneratePlanParams) (*domain.PersonalLearningPlan, error)

	// GetActivePlan returns the user's active plan.
	// Returns store.ErrPlanNotFound if there is none.
	GetActivePlan(ctx context.Context, userID uuid.UUID) (*domain.PersonalLearningPlan, error)
}

// Errors returned for rejected plan requests.
var (
	ErrSessionActive   = fmt.Errorf("%w: session is still in progress", domain.ErrValidation)
	ErrSessionNotOwned = fmt.Errorf("%w: session belongs to another user", domain.ErrUnauthorized)
)

// ServiceError wraps errors from the planning service with additional context.
type ServiceError struct {
	// Operation is the operation that failed (e.g., "generate_plan")
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
