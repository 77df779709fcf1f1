package irt

import (
	"errors"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func standardItem() ItemParams {
	return ItemParams{Discrimination: 1, Difficulty: 0, Guessing: 0.2}
}

func TestInitial(t *testing.T) {
	t.Parallel()

	est := NewDefaultEstimator()

	testCases := []struct {
		name     string
		prior    Prior
		expected Estimate
	}{
		{"standard prior", Prior{Mean: 0, SD: 1}, Estimate{Theta: 0, SE: 1}},
		{"reassessment prior", Prior{Mean: -0.75, SD: 0.6}, Estimate{Theta: -0.75, SE: 0.6}},
		{"missing SD falls back to default", Prior{Mean: 0.5, SD: 0}, Estimate{Theta: 0.5, SE: 1}},
		{"mean outside range is clamped", Prior{Mean: 9, SD: 1}, Estimate{Theta: 4, SE: 1}},
		{"NaN mean becomes zero", Prior{Mean: math.NaN(), SD: 1}, Estimate{Theta: 0, SE: 1}},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tc.expected, est.Initial(tc.prior))
		})
	}
}

func TestEstimateWithoutObservationsReturnsPrior(t *testing.T) {
	t.Parallel()

	est := NewDefaultEstimator()
	got, err := est.Estimate(Prior{Mean: 0, SD: 1}, nil, Estimate{})
	require.NoError(t, err)

	// Truncation at ±4 trims the tails very slightly.
	assert.InDelta(t, 0, got.Theta, 1e-6)
	assert.InDelta(t, 1, got.SE, 0.01)
}

func TestEstimateAllCorrectIsMonotone(t *testing.T) {
	t.Parallel()

	est := NewDefaultEstimator()
	prior := Prior{Mean: 0, SD: 1}
	current := est.Initial(prior)

	var observations []Observation
	for i := 0; i < 10; i++ {
		observations = append(observations, Observation{Params: standardItem(), Correct: true})
		next, err := est.Estimate(prior, observations, current)
		require.NoError(t, err, "step %d", i+1)

		assert.GreaterOrEqual(t, next.Theta, current.Theta-1e-9, "theta decreased at step %d", i+1)
		assert.LessOrEqual(t, next.SE, current.SE+1e-9, "SE increased at step %d", i+1)
		current = next
	}
	assert.Greater(t, current.Theta, 0.0)
}

func TestEstimateAllIncorrectIsMonotone(t *testing.T) {
	t.Parallel()

	est := NewDefaultEstimator()
	prior := Prior{Mean: 0, SD: 1}
	current := est.Initial(prior)

	var observations []Observation
	for i := 0; i < 10; i++ {
		observations = append(observations, Observation{Params: standardItem(), Correct: false})
		next, err := est.Estimate(prior, observations, current)
		require.NoError(t, err)
		assert.LessOrEqual(t, next.Theta, current.Theta+1e-9)
		current = next
	}
	assert.Less(t, current.Theta, 0.0)
}

func TestEstimateFiveCorrectAnswers(t *testing.T) {
	t.Parallel()

	est := NewDefaultEstimator()
	observations := make([]Observation, 5)
	for i := range observations {
		observations[i] = Observation{Params: standardItem(), Correct: true}
	}

	got, err := est.Estimate(Prior{Mean: 0, SD: 1}, observations, Estimate{})
	require.NoError(t, err)
	assert.InDelta(t, 1.02, got.Theta, 0.01)
	assert.InDelta(t, 0.80, got.SE, 0.01)
}

func TestEstimateStaysInRangeUnderLongStreaks(t *testing.T) {
	t.Parallel()

	est := NewDefaultEstimator()
	for _, correct := range []bool{true, false} {
		observations := make([]Observation, 200)
		for i := range observations {
			observations[i] = Observation{
				Params:  ItemParams{Discrimination: 2.5, Difficulty: 0, Guessing: 0.1},
				Correct: correct,
			}
		}

		got, err := est.Estimate(Prior{Mean: 0, SD: 1}, observations, Estimate{})
		require.NoError(t, err)
		assert.GreaterOrEqual(t, got.Theta, -4.0)
		assert.LessOrEqual(t, got.Theta, 4.0)
		assert.False(t, math.IsNaN(got.SE))
		if correct {
			assert.Greater(t, got.Theta, 2.0)
		} else {
			assert.Less(t, got.Theta, -2.0)
		}
	}
}

func TestEstimateReassessmentPriorShiftsEstimate(t *testing.T) {
	t.Parallel()

	est := NewDefaultEstimator()
	observations := []Observation{{Params: standardItem(), Correct: true}}

	low, err := est.Estimate(Prior{Mean: -1, SD: 1}, observations, Estimate{})
	require.NoError(t, err)
	high, err := est.Estimate(Prior{Mean: 1, SD: 1}, observations, Estimate{})
	require.NoError(t, err)

	assert.Less(t, low.Theta, high.Theta)
}

func TestEstimateNonConvergenceReturnsPrevious(t *testing.T) {
	t.Parallel()

	// A tolerance this tight cannot be met in a single refinement.
	est := NewEstimatorWithParams(NewEstimatorParams(EstimatorParamsConfig{
		InitialPoints: 5,
		MaxIterations: 1,
		Tolerance:     1e-300,
	}))
	previous := Estimate{Theta: 0.42, SE: 0.9}
	observations := []Observation{
		{Params: standardItem(), Correct: true},
		{Params: ItemParams{Discrimination: 1.8, Difficulty: 0.7, Guessing: 0.15}, Correct: false},
	}

	got, err := est.Estimate(Prior{Mean: 0, SD: 1}, observations, previous)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrNonConvergence))
	assert.Equal(t, previous, got)
}

func TestEstimateInvalidObservation(t *testing.T) {
	t.Parallel()

	est := NewDefaultEstimator()
	previous := Estimate{Theta: 0.1, SE: 0.8}
	observations := []Observation{{Params: ItemParams{Discrimination: 0, Difficulty: 0, Guessing: 0.2}, Correct: true}}

	got, err := est.Estimate(Prior{Mean: 0, SD: 1}, observations, previous)
	assert.ErrorIs(t, err, ErrInvalidParams)
	assert.Equal(t, previous, got)
}

func TestNewEstimatorParams(t *testing.T) {
	t.Parallel()

	t.Run("zero config keeps defaults", func(t *testing.T) {
		t.Parallel()
		assert.Equal(t, NewDefaultEstimatorParams(), NewEstimatorParams(EstimatorParamsConfig{}))
	})

	t.Run("overrides valid values", func(t *testing.T) {
		t.Parallel()
		params := NewEstimatorParams(EstimatorParamsConfig{
			ThetaMin:      -3,
			ThetaMax:      3,
			InitialPoints: 21,
			MaxIterations: 4,
			Tolerance:     1e-3,
			PriorSD:       1.5,
		})
		assert.Equal(t, &EstimatorParams{
			ThetaMin:      -3,
			ThetaMax:      3,
			InitialPoints: 21,
			MaxIterations: 4,
			Tolerance:     1e-3,
			PriorSD:       1.5,
		}, params)
	})

	t.Run("ignores an inverted range and too few points", func(t *testing.T) {
		t.Parallel()
		params := NewEstimatorParams(EstimatorParamsConfig{ThetaMin: 2, ThetaMax: -2, InitialPoints: 2})
		assert.Equal(t, -4.0, params.ThetaMin)
		assert.Equal(t, 4.0, params.ThetaMax)
		assert.Equal(t, 41, params.InitialPoints)
	})

	t.Run("nil params fall back to defaults", func(t *testing.T) {
		t.Parallel()
		assert.Equal(t, *NewDefaultEstimatorParams(), NewEstimatorWithParams(nil).Params())
	})
}
