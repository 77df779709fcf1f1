package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// PlanStatus is the lifecycle state of a learning plan.
type PlanStatus string

// Possible plan statuses
const (
	PlanStatusActive    PlanStatus = "active"
	PlanStatusCompleted PlanStatus = "completed"
	PlanStatusAbandoned PlanStatus = "abandoned"
)

// Classification places a domain relative to the target ability.
type Classification string

// Possible domain classifications
const (
	ClassificationWeak       Classification = "weak"
	ClassificationDeveloping Classification = "developing"
	ClassificationStrong     Classification = "strong"
	ClassificationUnassessed Classification = "unassessed"
)

// ReminderTier is a stage of the re-assessment reminder sequence.
type ReminderTier string

// Reminder tiers in escalating order
const (
	ReminderTierNone    ReminderTier = ""
	ReminderTierFirst   ReminderTier = "first"
	ReminderTierSecond  ReminderTier = "second"
	ReminderTierFinal   ReminderTier = "final"
	ReminderTierOverdue ReminderTier = "overdue"
)

// Common validation errors for PersonalLearningPlan
var (
	ErrEmptyPlanUserID     = errors.New("plan user ID cannot be empty")
	ErrInvalidPlanStatus   = errors.New("invalid plan status")
	ErrInvalidReminderTier = errors.New("invalid reminder tier")
)

// IsValid reports whether the status is known.
func (s PlanStatus) IsValid() bool {
	switch s {
	case PlanStatusActive, PlanStatusCompleted, PlanStatusAbandoned:
		return true
	default:
		return false
	}
}

// IsValid reports whether the classification is known.
func (c Classification) IsValid() bool {
	switch c {
	case ClassificationWeak, ClassificationDeveloping, ClassificationStrong, ClassificationUnassessed:
		return true
	default:
		return false
	}
}

// Rank orders tiers so that later reminders compare greater. The empty tier
// ranks 0.
func (t ReminderTier) Rank() int {
	switch t {
	case ReminderTierFirst:
		return 1
	case ReminderTierSecond:
		return 2
	case ReminderTierFinal:
		return 3
	case ReminderTierOverdue:
		return 4
	default:
		return 0
	}
}

// ParseReminderTier converts a non-empty tier name into a ReminderTier.
func ParseReminderTier(s string) (ReminderTier, error) {
	tier := ReminderTier(s)
	if tier.Rank() == 0 {
		return ReminderTierNone, ErrInvalidReminderTier
	}
	return tier, nil
}

// PlanDomainEstimate is the analysed state of one domain within a plan.
type PlanDomainEstimate struct {
	DomainCode     string         `json:"domain_code"`
	Ability        float64        `json:"ability"`
	SE             float64        `json:"se"`
	Answered       int            `json:"answered"`
	Weight         float64        `json:"weight"`
	Gap            float64        `json:"gap"`
	Priority       float64        `json:"priority"`
	Classification Classification `json:"classification"`
	Inherited      bool           `json:"inherited"`
}

// ScheduledModule is one entry of a plan's study schedule.
type ScheduledModule struct {
	Position       int        `json:"position"`
	ModuleID       *uuid.UUID `json:"module_id,omitempty"` // nil for synthesized modules
	Title          string     `json:"title"`
	DomainCode     string     `json:"domain_code"`
	Difficulty     float64    `json:"difficulty"`
	EstimatedHours float64    `json:"estimated_hours"`
	StartDate      time.Time  `json:"start_date"`
	DueDate        time.Time  `json:"due_date"`
}

// Milestone is a checkpoint in a plan, usually an ability target by a date.
type Milestone struct {
	Position      int       `json:"position"`
	Title         string    `json:"title"`
	TargetAbility float64   `json:"target_ability"`
	DueDate       time.Time `json:"due_date"`
}

// ReminderMarker records the last re-assessment reminder sent for a plan.
type ReminderMarker struct {
	Tier   ReminderTier `json:"tier,omitempty"`
	SentAt *time.Time   `json:"sent_at,omitempty"`
	Failed bool         `json:"failed"`
}

// PersonalLearningPlan is a user's prioritized study plan. At most one plan per
// user is active at a time.
type PersonalLearningPlan struct {
	ID                  uuid.UUID            `json:"id"`
	UserID              uuid.UUID            `json:"user_id"`
	DiagnosticSessionID *uuid.UUID           `json:"diagnostic_session_id,omitempty"`
	LearningPathID      *uuid.UUID           `json:"learning_path_id,omitempty"`
	Fallback            bool                 `json:"fallback"`
	TargetAbility       float64              `json:"target_ability"`
	CurrentAbility      float64              `json:"current_ability"`
	DomainAnalysis      []PlanDomainEstimate `json:"domain_analysis"`
	WeakDomains         []string             `json:"weak_domains"`
	StrongDomains       []string             `json:"strong_domains"`
	Schedule            []ScheduledModule    `json:"schedule"`
	Milestones          []Milestone          `json:"milestones"`
	NextDiagnosticAt    *time.Time           `json:"next_diagnostic_at,omitempty"`
	Status              PlanStatus           `json:"status"`
	Reminder            ReminderMarker       `json:"reminder"`
	CreatedAt           time.Time            `json:"created_at"`
	UpdatedAt           time.Time            `json:"updated_at"`
}

// Validate checks if the PersonalLearningPlan has valid data.
func (p *PersonalLearningPlan) Validate() error {
	if p.UserID == uuid.Nil {
		return ErrEmptyPlanUserID
	}
	if !p.Status.IsValid() {
		return ErrInvalidPlanStatus
	}
	if p.Reminder.Tier != ReminderTierNone && p.Reminder.Tier.Rank() == 0 {
		return ErrInvalidReminderTier
	}
	return nil
}

// DomainAbilities returns the plan's per-domain estimates as a map, skipping
// unassessed domains. Used as the prior for the next analysis.
func (p *PersonalLearningPlan) DomainAbilities() DomainAbilityMap {
	out := make(DomainAbilityMap, len(p.DomainAnalysis))
	for _, d := range p.DomainAnalysis {
		if d.Classification == ClassificationUnassessed {
			continue
		}
		out[d.DomainCode] = DomainEstimate{Ability: d.Ability, SE: d.SE, Answered: d.Answered}
	}
	return out
}
