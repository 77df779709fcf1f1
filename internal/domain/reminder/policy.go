package reminder

import (
	"time"

	"github.com/phrazzld/gauge/internal/domain"
)

// Policy maps a plan's next diagnostic date to a reminder tier.
type Policy struct {
	config Config
}

// NewPolicy creates a policy from a validated configuration.
func NewPolicy(config Config) (*Policy, error) {
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &Policy{config: config}, nil
}

// Config returns the policy's configuration.
func (p *Policy) Config() Config {
	return p.config
}

// DaysUntil returns the number of calendar days from now until due, in UTC.
// Negative values mean the date has passed.
func DaysUntil(now, due time.Time) int {
	ny, nm, nd := now.UTC().Date()
	dy, dm, dd := due.UTC().Date()
	from := time.Date(ny, nm, nd, 0, 0, 0, 0, time.UTC)
	to := time.Date(dy, dm, dd, 0, 0, 0, 0, time.UTC)
	return int(to.Sub(from).Hours() / 24)
}

// TierFor returns the tier that applies daysUntil days before the date.
func (p *Policy) TierFor(daysUntil int) domain.ReminderTier {
	switch {
	case daysUntil < -p.config.overdueDays:
		return domain.ReminderTierOverdue
	case daysUntil <= p.config.finalDays:
		return domain.ReminderTierFinal
	case daysUntil <= p.config.secondDays:
		return domain.ReminderTierSecond
	case daysUntil <= p.config.firstDays:
		return domain.ReminderTierFirst
	default:
		return domain.ReminderTierNone
	}
}

// Evaluate returns the tier a plan is in at now and whether a reminder is
// owed: the plan must be active, have a date, and be in a tier ranked above
// the last one sent.
func (p *Policy) Evaluate(plan *domain.PersonalLearningPlan, now time.Time) (domain.ReminderTier, bool) {
	if plan == nil || plan.Status != domain.PlanStatusActive || plan.NextDiagnosticAt == nil {
		return domain.ReminderTierNone, false
	}
	tier := p.TierFor(DaysUntil(now, *plan.NextDiagnosticAt))
	if tier == domain.ReminderTierNone {
		return tier, false
	}
	return tier, tier.Rank() > plan.Reminder.Tier.Rank()
}
