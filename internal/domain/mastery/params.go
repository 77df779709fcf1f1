package mastery

// Params defines all configurable parameters of the mastery rule
type Params struct {
	// Threshold is the number of consecutive correct sessions, on distinct
	// calendar dates, after which an item counts as mastered.
	Threshold int

	// Location defines where calendar dates begin and end when comparing
	// session dates.
	Location string
}

// ParamsConfig allows overriding the default parameters when creating a new
// Params instance. Zero values keep the default.
type ParamsConfig struct {
	Threshold int
	Location  string
}

// NewDefaultParams creates a new Params instance with default values
func NewDefaultParams() *Params {
	return &Params{
		Threshold: 2,
		Location:  "UTC",
	}
}

// NewParams creates a new Params instance with custom configuration
func NewParams(config ParamsConfig) *Params {
	params := NewDefaultParams()

	if config.Threshold > 0 {
		params.Threshold = config.Threshold
	}
	if config.Location != "" {
		params.Location = config.Location
	}

	return params
}
