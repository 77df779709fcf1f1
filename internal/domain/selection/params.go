package selection

// Params defines all configurable parameters of the item selector
type Params struct {
	// ExposureCap is the highest exposure rate (fraction of sessions that have
	// served the item) at which an item is still offered without relaxing.
	ExposureCap float64

	// CriticalFloor is the minimum weight a critical domain keeps when the
	// weights of domains with empty pools are redistributed.
	CriticalFloor float64

	// TieTolerance is the largest information difference treated as a tie.
	TieTolerance float64
}

// ParamsConfig allows overriding the default parameters when creating a new
// Params instance. Zero values keep the default.
type ParamsConfig struct {
	ExposureCap   float64
	CriticalFloor float64
	TieTolerance  float64
}

// NewDefaultParams creates a new Params instance with default values
func NewDefaultParams() *Params {
	return &Params{
		ExposureCap:   0.25,
		CriticalFloor: 0,
		TieTolerance:  1e-9,
	}
}

// NewParams creates a new Params instance with custom configuration
func NewParams(config ParamsConfig) *Params {
	params := NewDefaultParams()

	if config.ExposureCap > 0 && config.ExposureCap <= 1 {
		params.ExposureCap = config.ExposureCap
	}
	if config.CriticalFloor > 0 {
		params.CriticalFloor = config.CriticalFloor
	}
	if config.TieTolerance > 0 {
		params.TieTolerance = config.TieTolerance
	}

	return params
}
