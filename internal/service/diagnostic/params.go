package diagnostic

import "time"

// Params defines the session defaults of the diagnostic service
type Params struct {
	// MaxQuestions is the test length when a session does not set one.
	MaxQuestions int

	// PrecisionThreshold stops a session once the standard error drops below it.
	PrecisionThreshold float64

	// TimeLimit bounds a session's duration. Zero means no limit.
	TimeLimit time.Duration

	// InactivityGrace is how long a timed-out session must have been idle
	// before the sweep terminates it.
	InactivityGrace time.Duration
}

// ParamsConfig allows overriding the default parameters when creating a new
// Params instance. Zero values keep the default; the durations are pointers
// because zero is meaningful for them.
type ParamsConfig struct {
	MaxQuestions       int
	PrecisionThreshold float64
	TimeLimit          *time.Duration
	InactivityGrace    *time.Duration
}

// NewDefaultParams creates a new Params instance with default values
func NewDefaultParams() *Params {
	return &Params{
		MaxQuestions:       30,
		PrecisionThreshold: 0.3,
		TimeLimit:          60 * time.Minute,
		InactivityGrace:    5 * time.Minute,
	}
}

// NewParams creates a new Params instance with custom configuration
func NewParams(config ParamsConfig) *Params {
	params := NewDefaultParams()

	if config.MaxQuestions > 0 {
		params.MaxQuestions = config.MaxQuestions
	}
	if config.PrecisionThreshold > 0 {
		params.PrecisionThreshold = config.PrecisionThreshold
	}
	if config.TimeLimit != nil && *config.TimeLimit >= 0 {
		params.TimeLimit = *config.TimeLimit
	}
	if config.InactivityGrace != nil && *config.InactivityGrace >= 0 {
		params.InactivityGrace = *config.InactivityGrace
	}

	return params
}
