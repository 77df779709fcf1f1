// Package pathing matches a domain analysis against the learning path catalog
// and drafts a personalized, time-boxed study plan from the best match.
package pathing

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/phrazzld/gauge/internal/domain"
)

// Input is the learner's profile and the catalog to choose from.
type Input struct {
	// Ability is the learner's current overall ability.
	Ability float64
	// TargetAbility is what the plan aims for.
	TargetAbility float64
	// Analysis is the ranked domain analysis, highest priority first.
	Analysis []domain.PlanDomainEstimate
	// Paths is the learning path catalog.
	Paths []domain.LearningPath
	// Start is when the plan begins.
	Start time.Time
}

// Draft is a plan proposal. It is always produced, falling back to a single
// synthesized module when no catalog path fits.
type Draft struct {
	Path             *domain.LearningPath
	Fallback         bool
	Score            float64
	Schedule         []domain.ScheduledModule
	Milestones       []domain.Milestone
	NextDiagnosticAt time.Time
}

// Selector drafts study plans.
type Selector interface {
	// Select picks the highest-scoring path whose difficulty band (widened by
	// the margin) contains the learner's ability, trims its modules to the
	// learner's level and schedules them.
	Select(in Input) Draft
}

type scoringSelector struct {
	params *Params
}

// NewDefaultSelector creates a new selector with default parameters
func NewDefaultSelector() Selector {
	return &scoringSelector{params: NewDefaultParams()}
}

// NewSelectorWithParams creates a new selector with custom parameters
func NewSelectorWithParams(params *Params) Selector {
	if params == nil {
		params = NewDefaultParams()
	}
	return &scoringSelector{params: params}
}

// Select implements Selector.Select
func (s *scoringSelector) Select(in Input) Draft {
	start := in.Start.UTC().Truncate(24 * time.Hour)
	focus := focusDomains(in.Analysis)

	var best *domain.LearningPath
	bestScore := math.Inf(-1)
	for i := range in.Paths {
		p := &in.Paths[i]
		if len(p.Modules) == 0 || !s.brackets(p, in.Ability) {
			continue
		}
		score := s.score(p, in.Ability, focus)
		if score > bestScore || (score == bestScore && p.ID.String() < best.ID.String()) {
			best, bestScore = p, score
		}
	}

	var modules []domain.ScheduledModule
	draft := Draft{}
	if best == nil {
		draft.Fallback = true
		modules = []domain.ScheduledModule{s.fallbackModule(in)}
	} else {
		path := *best
		draft.Path = &path
		draft.Score = bestScore
		for _, m := range s.trim(path.Modules, in.Ability) {
			id := m.ID
			modules = append(modules, domain.ScheduledModule{
				ModuleID:       &id,
				Title:          m.Title,
				DomainCode:     m.DomainCode,
				Difficulty:     m.Difficulty,
				EstimatedHours: m.EstimatedHours,
			})
		}
	}

	draft.Schedule = s.schedule(modules, start)
	draft.NextDiagnosticAt = start.Add(s.params.ReassessAfter)
	draft.Milestones = s.milestones(in.Ability, in.TargetAbility, start, draft.NextDiagnosticAt)
	return draft
}

func (s *scoringSelector) brackets(p *domain.LearningPath, ability float64) bool {
	return p.MinDifficulty-s.params.DifficultyMargin <= ability &&
		ability <= p.MaxDifficulty+s.params.DifficultyMargin
}

func (s *scoringSelector) score(p *domain.LearningPath, ability float64, focus []domain.PlanDomainEstimate) float64 {
	proximity := 1 / (1 + math.Abs(p.Center()-ability))
	return s.params.CoverageWeight*coverage(p, focus) + s.params.ProximityWeight*proximity
}

// focusDomains returns the weak domains, or every domain not classified
// strong when nothing is weak.
func focusDomains(analysis []domain.PlanDomainEstimate) []domain.PlanDomainEstimate {
	var weak, nonStrong []domain.PlanDomainEstimate
	for _, d := range analysis {
		switch d.Classification {
		case domain.ClassificationWeak:
			weak = append(weak, d)
			nonStrong = append(nonStrong, d)
		case domain.ClassificationStrong:
		default:
			nonStrong = append(nonStrong, d)
		}
	}
	if len(weak) > 0 {
		return weak
	}
	return nonStrong
}

// coverage is the weight share of the focus domains the path covers.
func coverage(p *domain.LearningPath, focus []domain.PlanDomainEstimate) float64 {
	if len(focus) == 0 {
		return 0
	}
	var covered, total float64
	var coveredCount int
	for _, d := range focus {
		total += d.Weight
		if p.Covers(d.DomainCode) {
			covered += d.Weight
			coveredCount++
		}
	}
	if total == 0 {
		return float64(coveredCount) / float64(len(focus))
	}
	return covered / total
}

// trim keeps modules within the margin of the ability, easiest first. If none
// qualifies, the single closest module is kept.
func (s *scoringSelector) trim(modules []domain.LearningModule, ability float64) []domain.LearningModule {
	var kept []domain.LearningModule
	for _, m := range modules {
		if math.Abs(m.Difficulty-ability) <= s.params.DifficultyMargin {
			kept = append(kept, m)
		}
	}
	if len(kept) == 0 {
		closest := modules[0]
		for _, m := range modules[1:] {
			dm, dc := math.Abs(m.Difficulty-ability), math.Abs(closest.Difficulty-ability)
			if dm < dc || (dm == dc && m.Difficulty < closest.Difficulty) {
				closest = m
			}
		}
		return []domain.LearningModule{closest}
	}
	sort.SliceStable(kept, func(i, j int) bool {
		if kept[i].Difficulty != kept[j].Difficulty {
			return kept[i].Difficulty < kept[j].Difficulty
		}
		return kept[i].Position < kept[j].Position
	})
	return kept
}

func (s *scoringSelector) fallbackModule(in Input) domain.ScheduledModule {
	code := ""
	if len(in.Analysis) > 0 {
		code = in.Analysis[0].DomainCode
	}
	title := "Foundations review"
	if code != "" {
		title = fmt.Sprintf("Foundations review: %s", code)
	}
	return domain.ScheduledModule{
		Title:          title,
		DomainCode:     code,
		Difficulty:     in.Ability - s.params.FallbackOffset,
		EstimatedHours: s.params.FallbackHours,
	}
}

// schedule lays modules out back to back at the configured weekly pace.
func (s *scoringSelector) schedule(modules []domain.ScheduledModule, start time.Time) []domain.ScheduledModule {
	hoursPerDay := s.params.StudyHoursPerWeek / 7
	cursor := start
	for i := range modules {
		days := int(math.Ceil(modules[i].EstimatedHours / hoursPerDay))
		if days < 1 {
			days = 1
		}
		modules[i].Position = i + 1
		modules[i].StartDate = cursor
		modules[i].DueDate = cursor.AddDate(0, 0, days)
		cursor = modules[i].DueDate
	}
	return modules
}

func (s *scoringSelector) milestones(ability, target float64, start, reassess time.Time) []domain.Milestone {
	midpoint := start.Add(reassess.Sub(start) / 2).Truncate(24 * time.Hour)
	return []domain.Milestone{
		{
			Position:      1,
			Title:         "Midpoint check",
			TargetAbility: ability + (target-ability)/2,
			DueDate:       midpoint,
		},
		{
			Position:      2,
			Title:         "Reassessment",
			TargetAbility: target,
			DueDate:       reassess,
		},
	}
}

// PathID returns the ID of a drafted path, or nil for a fallback draft.
func (d Draft) PathID() *uuid.UUID {
	if d.Path == nil {
		return nil
	}
	id := d.Path.ID
	return &id
}
