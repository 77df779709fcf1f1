package domain

import (
	"errors"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"
)

// SessionType distinguishes why a diagnostic session was started.
type SessionType string

// Possible session types
const (
	SessionTypeInitial      SessionType = "initial"
	SessionTypeReassessment SessionType = "reassessment"
	SessionTypePractice     SessionType = "practice"
)

// SessionStatus is the lifecycle state of a diagnostic session.
type SessionStatus string

// Possible session statuses. Completed and terminated are terminal.
const (
	SessionStatusActive     SessionStatus = "active"
	SessionStatusCompleted  SessionStatus = "completed"
	SessionStatusTerminated SessionStatus = "terminated"
)

// TerminationReason records why a session stopped.
type TerminationReason string

// Possible termination reasons
const (
	ReasonPrecisionReached  TerminationReason = "precision_reached"
	ReasonMaxQuestions      TerminationReason = "max_questions"
	ReasonTimeLimit         TerminationReason = "time_limit"
	ReasonAdminClear        TerminationReason = "admin_clear"
	ReasonItemPoolExhausted TerminationReason = "item_pool_exhausted"
)

// Common validation errors for DiagnosticSession
var (
	ErrEmptySessionUserID       = errors.New("session user ID cannot be empty")
	ErrInvalidSessionType       = errors.New("invalid session type")
	ErrInvalidMaxQuestions      = errors.New("max questions must be greater than 0")
	ErrInvalidTimeLimit         = errors.New("time limit cannot be negative")
	ErrInvalidPrecision         = errors.New("precision threshold must be greater than 0")
	ErrInvalidSessionStatus     = errors.New("invalid session status")
	ErrInvalidTerminationReason = errors.New("invalid termination reason")
	ErrSessionAlreadyTerminal   = errors.New("session is already in a terminal state")
)

// IsValid reports whether the session type is known.
func (t SessionType) IsValid() bool {
	switch t {
	case SessionTypeInitial, SessionTypeReassessment, SessionTypePractice:
		return true
	default:
		return false
	}
}

// IsValid reports whether the status is known.
func (s SessionStatus) IsValid() bool {
	switch s {
	case SessionStatusActive, SessionStatusCompleted, SessionStatusTerminated:
		return true
	default:
		return false
	}
}

// IsTerminal reports whether no further transitions are allowed.
func (s SessionStatus) IsTerminal() bool {
	return s == SessionStatusCompleted || s == SessionStatusTerminated
}

// IsValid reports whether the reason is known.
func (r TerminationReason) IsValid() bool {
	switch r {
	case ReasonPrecisionReached, ReasonMaxQuestions, ReasonTimeLimit,
		ReasonAdminClear, ReasonItemPoolExhausted:
		return true
	default:
		return false
	}
}

// IsForcible reports whether an operator may end a session early for this
// reason. Stopping-rule reasons are reserved for the answer path.
func (r TerminationReason) IsForcible() bool {
	return r == ReasonAdminClear || r == ReasonTimeLimit
}

// TerminalStatus returns the status a session ends in when stopped for this
// reason. Stopping rules that ran their course complete the session; anything
// that cut it short terminates it.
func (r TerminationReason) TerminalStatus() SessionStatus {
	switch r {
	case ReasonPrecisionReached, ReasonMaxQuestions, ReasonTimeLimit:
		return SessionStatusCompleted
	default:
		return SessionStatusTerminated
	}
}

// DomainEstimate is an ability estimate restricted to one knowledge domain.
type DomainEstimate struct {
	Ability  float64 `json:"ability"`
	SE       float64 `json:"se"`
	Answered int     `json:"answered"`
	Correct  int     `json:"correct"`
}

// DomainAbilityMap holds per-domain estimates keyed by domain code. A session's
// map has one entry for every domain in its scope, including those not yet sampled.
type DomainAbilityMap map[string]DomainEstimate

// Codes returns the domain codes in the map in sorted order.
func (m DomainAbilityMap) Codes() []string {
	codes := make([]string, 0, len(m))
	for code := range m {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// Answered returns the number of responses per domain.
func (m DomainAbilityMap) Answered() map[string]int {
	counts := make(map[string]int, len(m))
	for code, est := range m {
		counts[code] = est.Answered
	}
	return counts
}

// Clone returns an independent copy of the map.
func (m DomainAbilityMap) Clone() DomainAbilityMap {
	out := make(DomainAbilityMap, len(m))
	for code, est := range m {
		out[code] = est
	}
	return out
}

// DiagnosticSession is one adaptive testing session.
// It is mutated only by the diagnostic service and is frozen once terminal.
type DiagnosticSession struct {
	ID                 uuid.UUID         `json:"id"`
	UserID             uuid.UUID         `json:"user_id"`
	SessionType        SessionType       `json:"session_type"`
	MaxQuestions       int               `json:"max_questions"`
	TimeLimit          time.Duration     `json:"time_limit"` // zero means no limit
	PrecisionThreshold float64           `json:"precision_threshold"`
	PriorMean          float64           `json:"prior_mean"`
	PriorSD            float64           `json:"prior_sd"`
	Theta              float64           `json:"theta"`
	StandardError      float64           `json:"standard_error"`
	QuestionsAnswered  int               `json:"questions_answered"`
	QuestionsCorrect   int               `json:"questions_correct"`
	DomainAbilities    DomainAbilityMap  `json:"domain_abilities"`
	PendingItemID      *uuid.UUID        `json:"pending_item_id,omitempty"`
	Status             SessionStatus     `json:"status"`
	TerminationReason  TerminationReason `json:"termination_reason,omitempty"`
	Version            int               `json:"version"`
	StartedAt          time.Time         `json:"started_at"`
	CompletedAt        *time.Time        `json:"completed_at,omitempty"`
	LastActivityAt     time.Time         `json:"last_activity_at"`
}

// Validate checks if the DiagnosticSession has valid data.
func (s *DiagnosticSession) Validate() error {
	if s.UserID == uuid.Nil {
		return ErrEmptySessionUserID
	}
	if !s.SessionType.IsValid() {
		return ErrInvalidSessionType
	}
	if s.MaxQuestions <= 0 {
		return ErrInvalidMaxQuestions
	}
	if s.TimeLimit < 0 {
		return ErrInvalidTimeLimit
	}
	if s.PrecisionThreshold <= 0 || math.IsNaN(s.PrecisionThreshold) {
		return ErrInvalidPrecision
	}
	if !s.Status.IsValid() {
		return ErrInvalidSessionStatus
	}
	if s.TerminationReason != "" && !s.TerminationReason.IsValid() {
		return ErrInvalidTerminationReason
	}
	return nil
}

// IsTerminal reports whether the session accepts no further writes.
func (s *DiagnosticSession) IsTerminal() bool {
	return s.Status.IsTerminal()
}

// Deadline returns when the session's time limit runs out, or false when the
// session has no limit.
func (s *DiagnosticSession) Deadline() (time.Time, bool) {
	if s.TimeLimit <= 0 {
		return time.Time{}, false
	}
	return s.StartedAt.Add(s.TimeLimit), true
}

// TimeExceeded reports whether the time limit has run out at now.
func (s *DiagnosticSession) TimeExceeded(now time.Time) bool {
	deadline, ok := s.Deadline()
	return ok && now.After(deadline)
}

// StopReason evaluates the stopping rule after an answer. Precision is checked
// first, then test length, then the time limit.
func (s *DiagnosticSession) StopReason(now time.Time) (TerminationReason, bool) {
	switch {
	case s.QuestionsAnswered > 0 && s.StandardError < s.PrecisionThreshold:
		return ReasonPrecisionReached, true
	case s.QuestionsAnswered >= s.MaxQuestions:
		return ReasonMaxQuestions, true
	case s.TimeExceeded(now):
		return ReasonTimeLimit, true
	default:
		return "", false
	}
}

// Finish ends the session because a stopping rule fired. The resulting status
// follows from the reason.
func (s *DiagnosticSession) Finish(reason TerminationReason, now time.Time) error {
	return s.close(reason.TerminalStatus(), reason, now)
}

// Terminate force-ends the session with status terminated, whatever the reason.
// Used by administrative clears and the timeout sweep.
func (s *DiagnosticSession) Terminate(reason TerminationReason, now time.Time) error {
	return s.close(SessionStatusTerminated, reason, now)
}

func (s *DiagnosticSession) close(status SessionStatus, reason TerminationReason, now time.Time) error {
	if s.IsTerminal() {
		return ErrSessionAlreadyTerminal
	}
	if !reason.IsValid() {
		return ErrInvalidTerminationReason
	}
	completedAt := now
	s.Status = status
	s.TerminationReason = reason
	s.CompletedAt = &completedAt
	s.PendingItemID = nil
	s.LastActivityAt = now
	return nil
}

// DiagnosticResponse is a single answered item within a session. Append-only.
type DiagnosticResponse struct {
	ID                   uuid.UUID     `json:"id"`
	SessionID            uuid.UUID     `json:"session_id"`
	ItemID               uuid.UUID     `json:"item_id"`
	DomainCode           string        `json:"domain_code"`
	Sequence             int           `json:"sequence"`
	SelectedAnswer       string        `json:"selected_answer"`
	IsCorrect            bool          `json:"is_correct"`
	ResponseTime         time.Duration `json:"response_time"`
	ThetaBefore          float64       `json:"theta_before"`
	SEBefore             float64       `json:"se_before"`
	ThetaAfter           float64       `json:"theta_after"`
	SEAfter              float64       `json:"se_after"`
	Information          float64       `json:"information"`
	ExpectedProbability  float64       `json:"expected_probability"`
	EstimationWarning    bool          `json:"estimation_warning"`
	CalibrationDefaulted bool          `json:"calibration_defaulted"`
	CreatedAt            time.Time     `json:"created_at"`
}
