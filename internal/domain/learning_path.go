package domain

import (
	"errors"
	"math"
	"strings"

	"github.com/google/uuid"
)

// Common validation errors for LearningPath
var (
	ErrEmptyPathName         = errors.New("learning path name cannot be empty")
	ErrInvalidDifficultyBand = errors.New("learning path minimum difficulty must not exceed its maximum")
	ErrEmptyPathDomains      = errors.New("learning path must cover at least one domain")
	ErrEmptyModuleTitle      = errors.New("learning module title cannot be empty")
	ErrInvalidEstimatedHours = errors.New("estimated hours cannot be negative")
)

// LearningModule is one unit of study content within a learning path.
type LearningModule struct {
	ID             uuid.UUID `json:"id"`
	Title          string    `json:"title"`
	DomainCode     string    `json:"domain_code"`
	Difficulty     float64   `json:"difficulty"`
	EstimatedHours float64   `json:"estimated_hours"`
	Position       int       `json:"position"`
}

// LearningPath is a catalog entry: a sequence of modules aimed at a band of ability.
type LearningPath struct {
	ID             uuid.UUID        `json:"id"`
	Name           string           `json:"name"`
	MinDifficulty  float64          `json:"min_difficulty"`
	MaxDifficulty  float64          `json:"max_difficulty"`
	Domains        []string         `json:"domains"`
	EstimatedHours float64          `json:"estimated_hours"`
	Modules        []LearningModule `json:"modules"`
}

// Validate checks if the LearningPath and its modules have valid data.
func (p *LearningPath) Validate() error {
	if strings.TrimSpace(p.Name) == "" {
		return ErrEmptyPathName
	}
	if math.IsNaN(p.MinDifficulty) || math.IsNaN(p.MaxDifficulty) || p.MinDifficulty > p.MaxDifficulty {
		return ErrInvalidDifficultyBand
	}
	if len(p.Domains) == 0 {
		return ErrEmptyPathDomains
	}
	if p.EstimatedHours < 0 {
		return ErrInvalidEstimatedHours
	}
	for i := range p.Modules {
		if strings.TrimSpace(p.Modules[i].Title) == "" {
			return ErrEmptyModuleTitle
		}
		if p.Modules[i].EstimatedHours < 0 {
			return ErrInvalidEstimatedHours
		}
	}
	return nil
}

// Center returns the midpoint of the path's difficulty band.
func (p *LearningPath) Center() float64 {
	return (p.MinDifficulty + p.MaxDifficulty) / 2
}

// Covers reports whether the path declares coverage of the domain.
func (p *LearningPath) Covers(domainCode string) bool {
	for _, code := range p.Domains {
		if code == domainCode {
			return true
		}
	}
	return false
}
