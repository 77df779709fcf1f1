package irt

// EstimatorParams defines all configurable parameters of the EAP estimator.
type EstimatorParams struct {
	// Bounds of the quadrature grid; estimates never leave this range.
	ThetaMin float64
	ThetaMax float64

	// InitialPoints is the number of quadrature nodes on the first pass.
	InitialPoints int

	// MaxIterations caps how many times the grid is refined.
	MaxIterations int

	// Tolerance is the largest change in posterior mean and SD between two
	// refinements that still counts as converged.
	Tolerance float64

	// PriorSD is the standard deviation of the default normal prior.
	PriorSD float64
}

// EstimatorParamsConfig allows overriding the default parameters when
// creating a new EstimatorParams instance. Zero values keep the default.
type EstimatorParamsConfig struct {
	ThetaMin      float64
	ThetaMax      float64
	InitialPoints int
	MaxIterations int
	Tolerance     float64
	PriorSD       float64
}

// NewDefaultEstimatorParams creates a new EstimatorParams with default values
func NewDefaultEstimatorParams() *EstimatorParams {
	return &EstimatorParams{
		ThetaMin:      -4.0,
		ThetaMax:      4.0,
		InitialPoints: 41,
		MaxIterations: 6,
		Tolerance:     1e-4,
		PriorSD:       1.0,
	}
}

// NewEstimatorParams creates a new EstimatorParams with custom configuration
func NewEstimatorParams(config EstimatorParamsConfig) *EstimatorParams {
	params := NewDefaultEstimatorParams()

	// A bound pair is only taken when it describes a non-empty range
	if config.ThetaMin < config.ThetaMax {
		params.ThetaMin = config.ThetaMin
		params.ThetaMax = config.ThetaMax
	}
	if config.InitialPoints >= 3 {
		params.InitialPoints = config.InitialPoints
	}
	if config.MaxIterations > 0 {
		params.MaxIterations = config.MaxIterations
	}
	if config.Tolerance > 0 {
		params.Tolerance = config.Tolerance
	}
	if config.PriorSD > 0 {
		params.PriorSD = config.PriorSD
	}

	return params
}
