package irt

import (
	"errors"
	"fmt"
	"math"
)

// ErrNonConvergence is returned when the posterior could not be integrated
// within the refinement budget. The previous estimate is returned with it.
var ErrNonConvergence = errors.New("posterior integration did not converge")

// Prior is a normal prior on ability.
type Prior struct {
	Mean float64 `json:"mean"`
	SD   float64 `json:"sd"`
}

// Observation is a single scored response to an item.
type Observation struct {
	Params  ItemParams
	Correct bool
}

// Estimate is an ability estimate with its standard error.
type Estimate struct {
	Theta float64 `json:"theta"`
	SE    float64 `json:"se"`
}

// Estimator computes ability estimates from scored responses.
type Estimator interface {
	// Estimate returns the posterior mean and standard deviation of ability
	// given the prior and all observations so far.
	//
	// If integration fails to converge, it returns previous together with an
	// error wrapping ErrNonConvergence. Invalid item parameters yield an error
	// wrapping ErrInvalidParams, also with previous.
	Estimate(prior Prior, observations []Observation, previous Estimate) (Estimate, error)

	// Initial returns the estimate before any response: the prior itself,
	// clamped to the estimator's ability range.
	Initial(prior Prior) Estimate

	// Params returns the parameters the estimator was built with.
	Params() EstimatorParams
}

// eapEstimator implements Expected-A-Posteriori estimation by quadrature.
type eapEstimator struct {
	params *EstimatorParams
}

// NewDefaultEstimator creates a new EAP estimator with default parameters
func NewDefaultEstimator() Estimator {
	return &eapEstimator{params: NewDefaultEstimatorParams()}
}

// NewEstimatorWithParams creates a new EAP estimator with custom parameters
func NewEstimatorWithParams(params *EstimatorParams) Estimator {
	if params == nil {
		params = NewDefaultEstimatorParams()
	}
	return &eapEstimator{params: params}
}

// Params implements Estimator.Params
func (e *eapEstimator) Params() EstimatorParams {
	return *e.params
}

// Initial implements Estimator.Initial
func (e *eapEstimator) Initial(prior Prior) Estimate {
	prior = e.normalizePrior(prior)
	return Estimate{Theta: prior.Mean, SE: prior.SD}
}

// Estimate implements Estimator.Estimate
func (e *eapEstimator) Estimate(prior Prior, observations []Observation, previous Estimate) (Estimate, error) {
	for i, obs := range observations {
		if err := obs.Params.Validate(); err != nil {
			return previous, fmt.Errorf("observation %d: %w", i, err)
		}
	}
	prior = e.normalizePrior(prior)

	points := e.params.InitialPoints
	last, ok := e.integrate(prior, observations, points)
	if !ok {
		return previous, fmt.Errorf("%w: degenerate posterior at %d points", ErrNonConvergence, points)
	}

	for i := 0; i < e.params.MaxIterations; i++ {
		points = (points-1)*2 + 1
		next, ok := e.integrate(prior, observations, points)
		if !ok {
			return previous, fmt.Errorf("%w: degenerate posterior at %d points", ErrNonConvergence, points)
		}
		if math.Abs(next.Theta-last.Theta) < e.params.Tolerance &&
			math.Abs(next.SE-last.SE) < e.params.Tolerance {
			return next, nil
		}
		last = next
	}

	return previous, fmt.Errorf("%w after %d refinements", ErrNonConvergence, e.params.MaxIterations)
}

// integrate computes the posterior mean and SD on a uniform grid with the
// given number of nodes. Log-weights are shifted by their maximum before
// exponentiation, so long response strings cannot underflow the whole grid.
func (e *eapEstimator) integrate(prior Prior, observations []Observation, points int) (Estimate, bool) {
	lo, hi := e.params.ThetaMin, e.params.ThetaMax
	step := (hi - lo) / float64(points-1)

	logWeights := make([]float64, points)
	maxLog := math.Inf(-1)
	for i := range logWeights {
		theta := lo + float64(i)*step
		z := (theta - prior.Mean) / prior.SD
		lw := -0.5 * z * z
		for _, obs := range observations {
			p := probability(theta, obs.Params)
			if obs.Correct {
				lw += math.Log(math.Max(p, math.SmallestNonzeroFloat64))
			} else {
				lw += math.Log(math.Max(1-p, math.SmallestNonzeroFloat64))
			}
		}
		logWeights[i] = lw
		if lw > maxLog {
			maxLog = lw
		}
	}
	if math.IsInf(maxLog, 0) || math.IsNaN(maxLog) {
		return Estimate{}, false
	}

	var total, mean float64
	weights := make([]float64, points)
	for i, lw := range logWeights {
		w := math.Exp(lw - maxLog)
		weights[i] = w
		total += w
		mean += (lo + float64(i)*step) * w
	}
	if total <= 0 || math.IsNaN(total) {
		return Estimate{}, false
	}
	mean /= total

	var variance float64
	for i, w := range weights {
		d := lo + float64(i)*step - mean
		variance += d * d * w
	}
	variance /= total

	est := Estimate{Theta: mean, SE: math.Sqrt(variance)}
	if math.IsNaN(est.Theta) || math.IsNaN(est.SE) {
		return Estimate{}, false
	}
	return est, true
}

// normalizePrior replaces unusable prior values with the configured defaults
// and clamps the mean into the ability range.
func (e *eapEstimator) normalizePrior(prior Prior) Prior {
	if prior.SD <= 0 || math.IsNaN(prior.SD) || math.IsInf(prior.SD, 0) {
		prior.SD = e.params.PriorSD
	}
	if math.IsNaN(prior.Mean) || math.IsInf(prior.Mean, 0) {
		prior.Mean = 0
	}
	prior.Mean = math.Max(e.params.ThetaMin, math.Min(e.params.ThetaMax, prior.Mean))
	return prior
}
