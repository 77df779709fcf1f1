package pathing

import "time"

// Params defines all configurable parameters of the learning path selector
type Params struct {
	// DifficultyMargin widens path difficulty bands and bounds how far a
	// module's difficulty may sit from the learner's ability.
	DifficultyMargin float64

	// Score weights of weak-domain coverage and difficulty proximity.
	CoverageWeight  float64
	ProximityWeight float64

	// FallbackOffset places a synthesized module this far below the ability.
	FallbackOffset float64

	// FallbackHours is the estimated study time of a synthesized module.
	FallbackHours float64

	// StudyHoursPerWeek paces the schedule.
	StudyHoursPerWeek float64

	// ReassessAfter is the time from plan creation to the next diagnostic.
	ReassessAfter time.Duration
}

// ParamsConfig allows overriding the default parameters when creating a new
// Params instance. Zero values keep the default.
type ParamsConfig struct {
	DifficultyMargin  float64
	CoverageWeight    float64
	ProximityWeight   float64
	FallbackOffset    float64
	FallbackHours     float64
	StudyHoursPerWeek float64
	ReassessAfter     time.Duration
}

// NewDefaultParams creates a new Params instance with default values
func NewDefaultParams() *Params {
	return &Params{
		DifficultyMargin:  0.5,
		CoverageWeight:    0.7,
		ProximityWeight:   0.3,
		FallbackOffset:    0.5,
		FallbackHours:     4,
		StudyHoursPerWeek: 10,
		ReassessAfter:     28 * 24 * time.Hour,
	}
}

// NewParams creates a new Params instance with custom configuration
func NewParams(config ParamsConfig) *Params {
	params := NewDefaultParams()

	if config.DifficultyMargin > 0 {
		params.DifficultyMargin = config.DifficultyMargin
	}
	if config.CoverageWeight > 0 {
		params.CoverageWeight = config.CoverageWeight
	}
	if config.ProximityWeight > 0 {
		params.ProximityWeight = config.ProximityWeight
	}
	if config.FallbackOffset > 0 {
		params.FallbackOffset = config.FallbackOffset
	}
	if config.FallbackHours > 0 {
		params.FallbackHours = config.FallbackHours
	}
	if config.StudyHoursPerWeek > 0 {
		params.StudyHoursPerWeek = config.StudyHoursPerWeek
	}
	if config.ReassessAfter > 0 {
		params.ReassessAfter = config.ReassessAfter
	}

	return params
}
