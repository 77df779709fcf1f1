// Package irt implements the three-parameter logistic (3PL) item response
// model and an Expected-A-Posteriori ability estimator.
//
// Everything in this package is a pure function of its inputs; nothing here
// performs I/O or holds shared state.
package irt

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidParams is returned when item parameters fall outside the domain of
// the 3PL model: discrimination must be positive and guessing must be in [0, 1).
var ErrInvalidParams = errors.New("invalid item parameters")

// probabilityFloor guards the information function against division by zero
// when P(θ) approaches the guessing asymptote.
const probabilityFloor = 1e-12

// ItemParams holds the calibrated 3PL parameters of an item.
type ItemParams struct {
	// Discrimination (a) controls how sharply the item separates abilities.
	Discrimination float64 `json:"discrimination" yaml:"discrimination"`
	// Difficulty (b) is the ability at which the response curve is steepest.
	Difficulty float64 `json:"difficulty" yaml:"difficulty"`
	// Guessing (c) is the lower asymptote of the response curve.
	Guessing float64 `json:"guessing" yaml:"guessing"`
}

// DefaultParams returns the parameters substituted for items without a usable
// calibration: a=1, b=0, c=0.2.
func DefaultParams() ItemParams {
	return ItemParams{
		Discrimination: 1.0,
		Difficulty:     0.0,
		Guessing:       0.2,
	}
}

// Validate checks the parameters against the domain of the model.
func (p ItemParams) Validate() error {
	switch {
	case math.IsNaN(p.Discrimination) || math.IsInf(p.Discrimination, 0):
		return fmt.Errorf("%w: discrimination is not finite", ErrInvalidParams)
	case math.IsNaN(p.Difficulty) || math.IsInf(p.Difficulty, 0):
		return fmt.Errorf("%w: difficulty is not finite", ErrInvalidParams)
	case math.IsNaN(p.Guessing):
		return fmt.Errorf("%w: guessing is not finite", ErrInvalidParams)
	case p.Discrimination <= 0:
		return fmt.Errorf("%w: discrimination must be positive, got %g", ErrInvalidParams, p.Discrimination)
	case p.Guessing < 0 || p.Guessing >= 1:
		return fmt.Errorf("%w: guessing must be in [0, 1), got %g", ErrInvalidParams, p.Guessing)
	}
	return nil
}

// ResolveParams returns the parameters to use for an item. A nil or invalid
// calibration is replaced by DefaultParams and the second return value is true.
func ResolveParams(p *ItemParams) (ItemParams, bool) {
	if p == nil || p.Validate() != nil {
		return DefaultParams(), true
	}
	return *p, false
}

// logistic computes σ(x) = 1/(1+e^(−x)) without overflowing for large |x|.
func logistic(x float64) float64 {
	if x >= 0 {
		return 1 / (1 + math.Exp(-x))
	}
	e := math.Exp(x)
	return e / (1 + e)
}

// Probability returns P(θ) = c + (1 − c)·σ(a(θ − b)), the probability that a
// test-taker of ability theta answers the item correctly.
func Probability(theta float64, p ItemParams) (float64, error) {
	if err := p.Validate(); err != nil {
		return 0, err
	}
	return probability(theta, p), nil
}

// probability is Probability without validation, for callers that have
// already validated the parameters (the estimator's inner loop).
func probability(theta float64, p ItemParams) float64 {
	return p.Guessing + (1-p.Guessing)*logistic(p.Discrimination*(theta-p.Difficulty))
}

// Information returns the Fisher information of the item at theta:
//
//	I(θ) = a²·(P − c)²·(1 − P) / ((1 − c)²·P)
//
// It returns 0 where P(θ) is numerically indistinguishable from c or from 0.
func Information(theta float64, p ItemParams) (float64, error) {
	if err := p.Validate(); err != nil {
		return 0, err
	}
	return information(theta, p), nil
}

func information(theta float64, p ItemParams) float64 {
	prob := probability(theta, p)
	above := prob - p.Guessing
	if above < probabilityFloor || prob < probabilityFloor {
		return 0
	}
	oneMinusC := 1 - p.Guessing
	return p.Discrimination * p.Discrimination * above * above * (1 - prob) /
		(oneMinusC * oneMinusC * prob)
}
