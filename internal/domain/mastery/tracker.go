// Package mastery implements cross-session mastery bookkeeping for individual
// learning items. An item is mastered after correct answers in a number of
// sessions held on distinct calendar dates; any incorrect answer starts over.
package mastery

import (
	"errors"
	"fmt"
	"time"

	"github.com/phrazzld/gauge/internal/domain"
)

// Common errors
var (
	ErrNilMastery      = errors.New("mastery entry cannot be nil")
	ErrMissingDate     = errors.New("attempt session date cannot be zero")
	ErrInvalidLocation = errors.New("invalid mastery time zone")
)

// Tracker defines the mastery transition
type Tracker interface {
	// Record computes the ledger entry after one more attempt. It returns a new
	// value and leaves the input untouched.
	Record(m *domain.UserItemMastery, attempt Attempt, now time.Time) (*domain.UserItemMastery, error)

	// Threshold returns the number of distinct-date correct sessions required.
	Threshold() int
}

type defaultTracker struct {
	params   *Params
	location *time.Location
}

// NewDefaultTracker creates a new tracker with default parameters
func NewDefaultTracker() Tracker {
	return &defaultTracker{params: NewDefaultParams(), location: time.UTC}
}

// NewTrackerWithParams creates a new tracker with custom parameters
func NewTrackerWithParams(params *Params) (Tracker, error) {
	if params == nil {
		params = NewDefaultParams()
	}
	loc, err := time.LoadLocation(params.Location)
	if err != nil {
		return nil, fmt.Errorf("%w: %q: %v", ErrInvalidLocation, params.Location, err)
	}
	return &defaultTracker{params: params, location: loc}, nil
}

// Threshold implements Tracker.Threshold
func (t *defaultTracker) Threshold() int {
	return t.params.Threshold
}

// Record implements Tracker.Record
func (t *defaultTracker) Record(m *domain.UserItemMastery, attempt Attempt, now time.Time) (*domain.UserItemMastery, error) {
	if m == nil {
		return nil, ErrNilMastery
	}
	if attempt.SessionDate.IsZero() {
		return nil, ErrMissingDate
	}

	next := Apply(*m, attempt, t.params.Threshold, t.location, now)
	return &next, nil
}
