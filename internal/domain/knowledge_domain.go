package domain

import (
	"errors"
	"math"
	"sort"
	"strings"
)

// DomainCategory groups knowledge domains for content balancing.
type DomainCategory string

// Possible domain categories
const (
	CategoryTheoretical DomainCategory = "theoretical"
	CategoryMethodology DomainCategory = "methodology"
	CategoryPractical   DomainCategory = "practical"
	CategoryClinical    DomainCategory = "clinical"
)

// TotalDomainWeight is the sum that active domain weights must add up to.
const TotalDomainWeight = 100.0

// WeightTolerance is the allowed deviation of the weight sum from TotalDomainWeight.
const WeightTolerance = 0.1

// Common validation errors for Domain
var (
	ErrEmptyDomainCode      = errors.New("domain code cannot be empty")
	ErrInvalidDomainWeight  = errors.New("domain weight must be between 0 and 100")
	ErrInvalidCategory      = errors.New("invalid domain category")
	ErrNoActiveDomains      = errors.New("no active domains to rebalance")
	ErrCriticalFloorTooHigh = errors.New("critical floor weights exceed the total weight")
)

// Domain is a knowledge area with an exam-importance weight.
type Domain struct {
	Code             string         `json:"code"`
	Name             string         `json:"name"`
	Category         DomainCategory `json:"category"`
	WeightPercentage float64        `json:"weight_percentage"`
	IsCritical       bool           `json:"is_critical"`
	Active           bool           `json:"active"`
}

// Validate checks if the Domain has valid data.
func (d *Domain) Validate() error {
	if strings.TrimSpace(d.Code) == "" {
		return ErrEmptyDomainCode
	}
	if d.WeightPercentage < 0 || d.WeightPercentage > TotalDomainWeight || math.IsNaN(d.WeightPercentage) {
		return ErrInvalidDomainWeight
	}
	if !d.Category.IsValid() {
		return ErrInvalidCategory
	}
	return nil
}

// IsValid reports whether the category is one of the known categories.
func (c DomainCategory) IsValid() bool {
	switch c {
	case CategoryTheoretical, CategoryMethodology, CategoryPractical, CategoryClinical:
		return true
	default:
		return false
	}
}

// RebalanceWeights returns copies of the active domains with weights scaled so
// they sum to TotalDomainWeight. Critical domains are held at criticalFloor at
// least; the remaining weight is shared among the other domains in proportion
// to their original weights. Inactive domains are dropped from the result.
//
// Domains whose weights are all zero share the available weight equally.
// The result is sorted by domain code.
func RebalanceWeights(domains []Domain, criticalFloor float64) ([]Domain, error) {
	active := make([]Domain, 0, len(domains))
	for _, d := range domains {
		if d.Active {
			active = append(active, d)
		}
	}
	if len(active) == 0 {
		return nil, ErrNoActiveDomains
	}
	if criticalFloor < 0 {
		criticalFloor = 0
	}

	sort.Slice(active, func(i, j int) bool { return active[i].Code < active[j].Code })

	// Domains pinned at the floor keep it; everything else scales. Pinning one
	// domain can push another below the floor, so iterate until stable.
	pinned := make([]bool, len(active))
	for {
		pinnedWeight := 0.0
		freeWeight := 0.0
		freeCount := 0
		for i, d := range active {
			if pinned[i] {
				pinnedWeight += criticalFloor
				continue
			}
			freeWeight += d.WeightPercentage
			freeCount++
		}
		if pinnedWeight > TotalDomainWeight+WeightTolerance {
			return nil, ErrCriticalFloorTooHigh
		}

		remaining := TotalDomainWeight - pinnedWeight
		changed := false
		scaled := make([]float64, len(active))
		for i, d := range active {
			switch {
			case pinned[i]:
				scaled[i] = criticalFloor
			case freeWeight > 0:
				scaled[i] = d.WeightPercentage / freeWeight * remaining
			default:
				scaled[i] = remaining / float64(freeCount)
			}
			if !pinned[i] && d.IsCritical && scaled[i] < criticalFloor {
				pinned[i] = true
				changed = true
			}
		}
		if changed {
			continue
		}

		result := make([]Domain, len(active))
		for i, d := range active {
			d.WeightPercentage = scaled[i]
			result[i] = d
		}
		return result, nil
	}
}

// SumWeights returns the sum of weight percentages of the active domains.
func SumWeights(domains []Domain) float64 {
	total := 0.0
	for _, d := range domains {
		if d.Active {
			total += d.WeightPercentage
		}
	}
	return total
}
