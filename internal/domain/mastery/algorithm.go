package mastery

import (
	"time"

	"github.com/phrazzld/gauge/internal/domain"
)

// Attempt is one scored answer to a learning item.
type Attempt struct {
	Correct bool
	// SessionDate is when the study session took place; only its calendar
	// date matters.
	SessionDate time.Time
	// SessionRef identifies the study session, for auditing.
	SessionRef string
}

// calendarDate returns the date of t in loc as midnight UTC. Stored session
// dates are plain dates, so they carry no zone of their own.
func calendarDate(t time.Time, loc *time.Location) time.Time {
	y, m, d := t.In(loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Apply returns the ledger entry that results from recording attempt on m.
// The input is not modified.
//
// Rules:
//   - every attempt increments Attempts; correct ones also increment Correct
//   - a correct answer on a session date different from the last recorded one
//     increments ConsecutiveCorrectSessions; on the same date the counter holds
//   - an incorrect answer resets the counter to zero and clears MasteredAt
//   - MasteredAt is set when the counter reaches the threshold and the item is
//     not already mastered, so it only moves after an un-master
func Apply(m domain.UserItemMastery, attempt Attempt, threshold int, loc *time.Location, now time.Time) domain.UserItemMastery {
	if loc == nil {
		loc = time.UTC
	}
	next := m

	date := calendarDate(attempt.SessionDate, loc)
	newDate := m.LastSessionDate == nil || !calendarDate(*m.LastSessionDate, time.UTC).Equal(date)

	next.Attempts++
	if attempt.Correct {
		next.Correct++
		if newDate {
			next.ConsecutiveCorrectSessions++
		}
		if next.ConsecutiveCorrectSessions >= threshold && next.MasteredAt == nil {
			masteredAt := now
			next.MasteredAt = &masteredAt
		}
	} else {
		next.ConsecutiveCorrectSessions = 0
		next.MasteredAt = nil
	}

	result := attempt.Correct
	next.LastResult = &result
	next.LastSessionDate = &date
	next.LastSessionRef = attempt.SessionRef
	next.UpdatedAt = now

	return next
}
