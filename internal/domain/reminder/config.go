// Package reminder decides when a learning plan is due for a re-assessment
// reminder. The policy is a pure function of the plan's next diagnostic date,
// the current time and an immutable tier configuration.
package reminder

import (
	"errors"
	"fmt"
)

// ErrInvalidConfig is returned when tier boundaries are out of order.
var ErrInvalidConfig = errors.New("invalid reminder configuration")

// Config holds the day-count boundaries of the reminder tiers. It is
// immutable: the With methods return modified copies.
type Config struct {
	firstDays   int
	secondDays  int
	finalDays   int
	overdueDays int
}

// DefaultConfig returns the default boundaries: first reminder a week ahead,
// second three days ahead, final one day ahead, overdue as soon as the date
// has passed.
func DefaultConfig() Config {
	return Config{firstDays: 7, secondDays: 3, finalDays: 1, overdueDays: 0}
}

// NewConfig builds a validated configuration.
func NewConfig(firstDays, secondDays, finalDays, overdueDays int) (Config, error) {
	c := Config{firstDays: firstDays, secondDays: secondDays, finalDays: finalDays, overdueDays: overdueDays}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// FirstDays is how many days ahead the first reminder fires.
func (c Config) FirstDays() int { return c.firstDays }

// SecondDays is how many days ahead the second reminder fires.
func (c Config) SecondDays() int { return c.secondDays }

// FinalDays is how many days ahead the final reminder fires.
func (c Config) FinalDays() int { return c.finalDays }

// OverdueDays is how many days past the date the overdue reminder waits.
func (c Config) OverdueDays() int { return c.overdueDays }

// WithFirstDays returns a copy with a different first-tier boundary.
func (c Config) WithFirstDays(days int) Config {
	c.firstDays = days
	return c
}

// WithSecondDays returns a copy with a different second-tier boundary.
func (c Config) WithSecondDays(days int) Config {
	c.secondDays = days
	return c
}

// WithFinalDays returns a copy with a different final-tier boundary.
func (c Config) WithFinalDays(days int) Config {
	c.finalDays = days
	return c
}

// WithOverdueDays returns a copy with a different overdue grace period.
func (c Config) WithOverdueDays(days int) Config {
	c.overdueDays = days
	return c
}

// Validate checks that 0 <= final <= second <= first and overdue >= 0.
func (c Config) Validate() error {
	switch {
	case c.finalDays < 0:
		return fmt.Errorf("%w: final days must not be negative, got %d", ErrInvalidConfig, c.finalDays)
	case c.secondDays < c.finalDays:
		return fmt.Errorf("%w: second days (%d) must not be less than final days (%d)", ErrInvalidConfig, c.secondDays, c.finalDays)
	case c.firstDays < c.secondDays:
		return fmt.Errorf("%w: first days (%d) must not be less than second days (%d)", ErrInvalidConfig, c.firstDays, c.secondDays)
	case c.overdueDays < 0:
		return fmt.Errorf("%w: overdue days must not be negative, got %d", ErrInvalidConfig, c.overdueDays)
	}
	return nil
}
