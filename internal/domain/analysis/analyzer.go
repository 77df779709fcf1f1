// Package analysis turns the responses of a finished diagnostic session into
// a per-domain ability profile, classifies each domain against the target
// ability, and ranks domains by how much closing their gap is worth.
package analysis

import (
	"math"
	"sort"

	"github.com/phrazzld/gauge/internal/domain"
	"github.com/phrazzld/gauge/internal/domain/irt"
)

// ScoredResponse is one response reduced to what the analysis needs.
type ScoredResponse struct {
	DomainCode string
	Params     irt.ItemParams
	Correct    bool
}

// Input carries a session's responses and the context to interpret them.
type Input struct {
	Responses []ScoredResponse

	// Domains are the active domains with their exam weights.
	Domains []domain.Domain

	// Previous holds the estimates of the user's previous plan, if any. They
	// serve as priors for sampled domains and are inherited by unsampled ones.
	Previous domain.DomainAbilityMap

	// TargetAbility overrides the configured target when set.
	TargetAbility *float64
}

// Result is the ranked domain analysis.
type Result struct {
	TargetAbility float64
	// Domains are ranked by priority, highest first, then by code.
	Domains []domain.PlanDomainEstimate
	Weak    []string
	Strong  []string
	// NonConverged lists domains whose estimate fell back to the prior.
	NonConverged []string
}

// CurrentAbility is the weight-averaged ability over assessed domains, or 0
// when nothing was assessed.
func (r Result) CurrentAbility() float64 {
	var sum, weights float64
	for _, d := range r.Domains {
		if d.Classification == domain.ClassificationUnassessed {
			continue
		}
		sum += d.Ability * d.Weight
		weights += d.Weight
	}
	if weights == 0 {
		var n int
		for _, d := range r.Domains {
			if d.Classification != domain.ClassificationUnassessed {
				sum += d.Ability
				n++
			}
		}
		if n == 0 {
			return 0
		}
		return sum / float64(n)
	}
	return sum / weights
}

// TopPriority returns the code of the highest-ranked domain, or "" if there is none.
func (r Result) TopPriority() string {
	if len(r.Domains) == 0 {
		return ""
	}
	return r.Domains[0].DomainCode
}

// Analyzer produces domain analyses.
type Analyzer interface {
	// Analyze estimates ability per sampled domain, inherits estimates for
	// unsampled ones, classifies and ranks them.
	//
	// A response tagged with a domain that is not among in.Domains fails with
	// domain.ErrDataIntegrity.
	Analyze(in Input) (Result, error)
}

type eapAnalyzer struct {
	estimator irt.Estimator
	params    *Params
}

// NewAnalyzer creates an analyzer on top of the given estimator.
func NewAnalyzer(estimator irt.Estimator, params *Params) Analyzer {
	if estimator == nil {
		estimator = irt.NewDefaultEstimator()
	}
	if params == nil {
		params = NewDefaultParams()
	}
	return &eapAnalyzer{estimator: estimator, params: params}
}

// Analyze implements Analyzer.Analyze
func (a *eapAnalyzer) Analyze(in Input) (Result, error) {
	if len(in.Domains) == 0 {
		return Result{}, domain.ErrNoActiveDomains
	}

	weights := make(map[string]float64, len(in.Domains))
	for _, d := range in.Domains {
		weights[d.Code] = d.WeightPercentage
	}

	byDomain := make(map[string][]irt.Observation)
	for _, r := range in.Responses {
		if _, ok := weights[r.DomainCode]; !ok {
			return Result{}, domain.NewDataIntegrityError("response references unknown domain %q", r.DomainCode)
		}
		byDomain[r.DomainCode] = append(byDomain[r.DomainCode], irt.Observation{Params: r.Params, Correct: r.Correct})
	}

	target := a.params.TargetAbility
	if in.TargetAbility != nil && !math.IsNaN(*in.TargetAbility) {
		target = *in.TargetAbility
	}

	result := Result{TargetAbility: target}
	for code, weight := range weights {
		est := domain.PlanDomainEstimate{DomainCode: code, Weight: weight}
		prev, hasPrev := in.Previous[code]

		switch obs := byDomain[code]; {
		case len(obs) > 0:
			prior := irt.Prior{Mean: 0, SD: a.params.PriorSD}
			if hasPrev {
				prior.Mean = prev.Ability
			}
			fallback := a.estimator.Initial(prior)
			e, err := a.estimator.Estimate(prior, obs, fallback)
			if err != nil {
				result.NonConverged = append(result.NonConverged, code)
			}
			est.Ability, est.SE, est.Answered = e.Theta, e.SE, len(obs)
			est.Classification = a.classify(e.Theta, target)
		case hasPrev:
			est.Ability, est.SE = prev.Ability, prev.SE
			est.Inherited = true
			est.Classification = a.classify(prev.Ability, target)
		default:
			est.SE = a.params.PriorSD
			est.Classification = domain.ClassificationUnassessed
		}

		if est.Classification != domain.ClassificationUnassessed {
			est.Gap = math.Max(0, target-est.Ability)
		}
		est.Priority = est.Gap * weight
		result.Domains = append(result.Domains, est)
	}

	sort.Slice(result.Domains, func(i, j int) bool {
		if result.Domains[i].Priority != result.Domains[j].Priority {
			return result.Domains[i].Priority > result.Domains[j].Priority
		}
		return result.Domains[i].DomainCode < result.Domains[j].DomainCode
	})
	sort.Strings(result.NonConverged)

	for _, d := range result.Domains {
		switch d.Classification {
		case domain.ClassificationWeak:
			result.Weak = append(result.Weak, d.DomainCode)
		case domain.ClassificationStrong:
			result.Strong = append(result.Strong, d.DomainCode)
		}
	}

	return result, nil
}

func (a *eapAnalyzer) classify(ability, target float64) domain.Classification {
	switch {
	case ability < target-a.params.WeakMargin:
		return domain.ClassificationWeak
	case ability > target+a.params.StrongMargin:
		return domain.ClassificationStrong
	default:
		return domain.ClassificationDeveloping
	}
}
