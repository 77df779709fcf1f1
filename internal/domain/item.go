package domain

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/phrazzld/gauge/internal/domain/irt"
)

// Common validation errors for Item
var (
	ErrEmptyItemID           = errors.New("item ID cannot be empty")
	ErrEmptyItemDomain       = errors.New("item domain code cannot be empty")
	ErrEmptyCorrectAnswer    = errors.New("item correct answer cannot be empty")
	ErrNegativeSampleSize    = errors.New("calibration sample size cannot be negative")
	ErrNegativeCalibrationSE = errors.New("calibration standard errors cannot be negative")
)

// Calibration holds the metadata produced when an item's IRT parameters were fitted.
type Calibration struct {
	SampleSize       int       `json:"sample_size" yaml:"sample_size"`
	DiscriminationSE float64   `json:"discrimination_se" yaml:"discrimination_se"`
	DifficultySE     float64   `json:"difficulty_se" yaml:"difficulty_se"`
	GuessingSE       float64   `json:"guessing_se" yaml:"guessing_se"`
	FitStatistic     *float64  `json:"fit_statistic,omitempty" yaml:"fit_statistic"`
	CalibratedAt     time.Time `json:"calibrated_at" yaml:"calibrated_at"`
}

// Item is an assessable question in the item bank.
// Items are referenced by sessions and never copied; once calibrated they are immutable.
type Item struct {
	ID            uuid.UUID       `json:"id"`
	DomainCode    string          `json:"domain_code"`
	Stem          string          `json:"stem"`
	CorrectAnswer string          `json:"-"`
	Params        *irt.ItemParams `json:"params,omitempty"` // nil when uncalibrated
	Calibration   *Calibration    `json:"calibration,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
}

// Validate checks if the Item has valid data.
// Calibration parameters are not checked here: invalid parameters are replaced
// by defaults at scoring time.
func (i *Item) Validate() error {
	if i.ID == uuid.Nil {
		return ErrEmptyItemID
	}
	if strings.TrimSpace(i.DomainCode) == "" {
		return ErrEmptyItemDomain
	}
	if strings.TrimSpace(i.CorrectAnswer) == "" {
		return ErrEmptyCorrectAnswer
	}
	if i.Calibration != nil {
		if i.Calibration.SampleSize < 0 {
			return ErrNegativeSampleSize
		}
		if i.Calibration.DiscriminationSE < 0 || i.Calibration.DifficultySE < 0 ||
			i.Calibration.GuessingSE < 0 {
			return ErrNegativeCalibrationSE
		}
	}
	return nil
}

// ResolvedParams returns the parameters used to score the item and whether
// they are defaults substituted for a missing or invalid calibration.
func (i *Item) ResolvedParams() (irt.ItemParams, bool) {
	return irt.ResolveParams(i.Params)
}

// IsCorrect reports whether answer matches the item's key.
// Comparison ignores surrounding whitespace and letter case.
func (i *Item) IsCorrect(answer string) bool {
	return strings.EqualFold(strings.TrimSpace(answer), strings.TrimSpace(i.CorrectAnswer))
}
