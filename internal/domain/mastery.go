package domain

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

// ItemType names the kind of learning item whose mastery is tracked.
type ItemType string

// Known learning item types
const (
	ItemTypeFlashcard        ItemType = "flashcard"
	ItemTypePracticeQuestion ItemType = "practice_question"
	ItemTypeDiagnosticItem   ItemType = "diagnostic_item"
)

// Common validation errors for UserItemMastery
var (
	ErrEmptyMasteryUserID = errors.New("mastery user ID cannot be empty")
	ErrEmptyMasteryItemID = errors.New("mastery item ID cannot be empty")
	ErrInvalidItemType    = errors.New("invalid item type")
	ErrInvalidAttempts    = errors.New("mastery counters are inconsistent")
)

// IsValid reports whether the item type is known.
func (t ItemType) IsValid() bool {
	switch t {
	case ItemTypeFlashcard, ItemTypePracticeQuestion, ItemTypeDiagnosticItem:
		return true
	default:
		return false
	}
}

// UserItemMastery is the cross-session mastery ledger entry for one user and
// one learning item. Rows are created on the first attempt and never deleted.
type UserItemMastery struct {
	UserID                     uuid.UUID  `json:"user_id"`
	ItemType                   ItemType   `json:"item_type"`
	ItemID                     string     `json:"item_id"`
	Attempts                   int        `json:"attempts"`
	Correct                    int        `json:"correct"`
	ConsecutiveCorrectSessions int        `json:"consecutive_correct_sessions"`
	LastResult                 *bool      `json:"last_result,omitempty"`
	LastSessionDate            *time.Time `json:"last_session_date,omitempty"`
	LastSessionRef             string     `json:"last_session_ref,omitempty"`
	MasteredAt                 *time.Time `json:"mastered_at,omitempty"`
	CreatedAt                  time.Time  `json:"created_at"`
	UpdatedAt                  time.Time  `json:"updated_at"`
}

// NewUserItemMastery creates an empty ledger entry.
func NewUserItemMastery(userID uuid.UUID, itemType ItemType, itemID string, now time.Time) (*UserItemMastery, error) {
	m := &UserItemMastery{
		UserID:    userID,
		ItemType:  itemType,
		ItemID:    itemID,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := m.Validate(); err != nil {
		return nil, err
	}
	return m, nil
}

// Validate checks if the UserItemMastery has valid data.
func (m *UserItemMastery) Validate() error {
	if m.UserID == uuid.Nil {
		return ErrEmptyMasteryUserID
	}
	if strings.TrimSpace(m.ItemID) == "" {
		return ErrEmptyMasteryItemID
	}
	if !m.ItemType.IsValid() {
		return ErrInvalidItemType
	}
	if m.Attempts < 0 || m.Correct < 0 || m.Correct > m.Attempts || m.ConsecutiveCorrectSessions < 0 {
		return ErrInvalidAttempts
	}
	return nil
}

// IsMastered reports whether the item is currently mastered.
func (m *UserItemMastery) IsMastered() bool {
	return m.MasteredAt != nil
}
