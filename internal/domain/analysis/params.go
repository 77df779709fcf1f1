package analysis

// Params defines the classification thresholds of the domain analyzer
type Params struct {
	// TargetAbility is the ability a plan aims for when the caller does not
	// supply one.
	TargetAbility float64

	// WeakMargin is how far below the target a domain must be to count as weak.
	WeakMargin float64

	// StrongMargin is how far above the target a domain must be to count as strong.
	StrongMargin float64

	// PriorSD is the prior standard deviation for domains without a previous
	// estimate.
	PriorSD float64
}

// ParamsConfig allows overriding the default parameters when creating a new
// Params instance. Zero values keep the default.
type ParamsConfig struct {
	TargetAbility *float64
	WeakMargin    float64
	StrongMargin  float64
	PriorSD       float64
}

// NewDefaultParams creates a new Params instance with default values
func NewDefaultParams() *Params {
	return &Params{
		TargetAbility: 0.5,
		WeakMargin:    0.5,
		StrongMargin:  0.5,
		PriorSD:       1.0,
	}
}

// NewParams creates a new Params instance with custom configuration
func NewParams(config ParamsConfig) *Params {
	params := NewDefaultParams()

	// Zero is a meaningful target, so it is only overridden when set
	if config.TargetAbility != nil {
		params.TargetAbility = *config.TargetAbility
	}
	if config.WeakMargin > 0 {
		params.WeakMargin = config.WeakMargin
	}
	if config.StrongMargin > 0 {
		params.StrongMargin = config.StrongMargin
	}
	if config.PriorSD > 0 {
		params.PriorSD = config.PriorSD
	}

	return params
}
