package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
)

func newTestSession() *DiagnosticSession {
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	item := uuid.New()
	return &DiagnosticSession{
		ID:                 uuid.New(),
		UserID:             uuid.New(),
		SessionType:        SessionTypeInitial,
		MaxQuestions:       20,
		TimeLimit:          30 * time.Minute,
		PrecisionThreshold: 0.3,
		PriorSD:            1,
		StandardError:      1,
		DomainAbilities:    DomainAbilityMap{"ANAT": {}, "PHYS": {}},
		PendingItemID:      &item,
		Status:             SessionStatusActive,
		StartedAt:          now,
		LastActivityAt:     now,
	}
}

func TestDiagnosticSessionValidate(t *testing.T) {
	if err := newTestSession().Validate(); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	tests := []struct {
		name     string
		mutate   func(s *DiagnosticSession)
		expected error
	}{
		{"missing user", func(s *DiagnosticSession) { s.UserID = uuid.Nil }, ErrEmptySessionUserID},
		{"unknown type", func(s *DiagnosticSession) { s.SessionType = "exam" }, ErrInvalidSessionType},
		{"zero max questions", func(s *DiagnosticSession) { s.MaxQuestions = 0 }, ErrInvalidMaxQuestions},
		{"negative time limit", func(s *DiagnosticSession) { s.TimeLimit = -time.Second }, ErrInvalidTimeLimit},
		{"zero precision", func(s *DiagnosticSession) { s.PrecisionThreshold = 0 }, ErrInvalidPrecision},
		{"unknown status", func(s *DiagnosticSession) { s.Status = "paused" }, ErrInvalidSessionStatus},
		{"unknown reason", func(s *DiagnosticSession) { s.TerminationReason = "bored" }, ErrInvalidTerminationReason},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestSession()
			tt.mutate(s)
			if err := s.Validate(); !errors.Is(err, tt.expected) {
				t.Errorf("Expected error %v, got %v", tt.expected, err)
			}
		})
	}
}

func TestDiagnosticSessionFinish(t *testing.T) {
	tests := []struct {
		reason   TerminationReason
		expected SessionStatus
	}{
		{ReasonPrecisionReached, SessionStatusCompleted},
		{ReasonMaxQuestions, SessionStatusCompleted},
		{ReasonTimeLimit, SessionStatusCompleted},
		{ReasonItemPoolExhausted, SessionStatusTerminated},
		{ReasonAdminClear, SessionStatusTerminated},
	}

	for _, tt := range tests {
		t.Run(string(tt.reason), func(t *testing.T) {
			s := newTestSession()
			now := s.StartedAt.Add(10 * time.Minute)
			if err := s.Finish(tt.reason, now); err != nil {
				t.Fatalf("Expected no error, got %v", err)
			}
			if s.Status != tt.expected {
				t.Errorf("Expected status %s, got %s", tt.expected, s.Status)
			}
			if s.TerminationReason != tt.reason {
				t.Errorf("Expected reason %s, got %s", tt.reason, s.TerminationReason)
			}
			if s.CompletedAt == nil || !s.CompletedAt.Equal(now) {
				t.Errorf("Expected CompletedAt %v, got %v", now, s.CompletedAt)
			}
			if s.PendingItemID != nil {
				t.Error("Expected pending item to be cleared")
			}
		})
	}
}

func TestDiagnosticSessionTerminate(t *testing.T) {
	s := newTestSession()
	now := s.StartedAt.Add(2 * time.Hour)

	if err := s.Terminate(ReasonTimeLimit, now); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	if s.Status != SessionStatusTerminated {
		t.Errorf("Expected forced stop to terminate, got %s", s.Status)
	}

	// Terminal sessions are frozen.
	before := *s
	if err := s.Terminate(ReasonAdminClear, now.Add(time.Hour)); !errors.Is(err, ErrSessionAlreadyTerminal) {
		t.Errorf("Expected ErrSessionAlreadyTerminal, got %v", err)
	}
	if err := s.Finish(ReasonMaxQuestions, now.Add(time.Hour)); !errors.Is(err, ErrSessionAlreadyTerminal) {
		t.Errorf("Expected ErrSessionAlreadyTerminal, got %v", err)
	}
	if s.TerminationReason != before.TerminationReason || !s.CompletedAt.Equal(*before.CompletedAt) {
		t.Error("Expected terminal session to be unchanged")
	}
}

func TestTerminationReasonIsForcible(t *testing.T) {
	forcible := map[TerminationReason]bool{
		ReasonAdminClear:        true,
		ReasonTimeLimit:         true,
		ReasonPrecisionReached:  false,
		ReasonMaxQuestions:      false,
		ReasonItemPoolExhausted: false,
		"bored":                 false,
	}
	for reason, want := range forcible {
		if got := reason.IsForcible(); got != want {
			t.Errorf("%s: expected IsForcible %v, got %v", reason, want, got)
		}
	}
}

func TestDiagnosticSessionTimeExceeded(t *testing.T) {
	s := newTestSession()

	if s.TimeExceeded(s.StartedAt.Add(30 * time.Minute)) {
		t.Error("Expected limit not exceeded exactly at the deadline")
	}
	if !s.TimeExceeded(s.StartedAt.Add(31 * time.Minute)) {
		t.Error("Expected limit exceeded after the deadline")
	}

	s.TimeLimit = 0
	if s.TimeExceeded(s.StartedAt.Add(100 * time.Hour)) {
		t.Error("Expected sessions without a limit never to time out")
	}
}

func TestDiagnosticSessionStopReason(t *testing.T) {
	tests := []struct {
		name     string
		mutate   func(s *DiagnosticSession)
		at       time.Duration
		expected TerminationReason
		stop     bool
	}{
		{"no answers yet", func(s *DiagnosticSession) { s.StandardError = 0.1 }, time.Minute, "", false},
		{"still imprecise", func(s *DiagnosticSession) { s.QuestionsAnswered = 3; s.StandardError = 0.5 }, time.Minute, "", false},
		{"precise enough", func(s *DiagnosticSession) { s.QuestionsAnswered = 3; s.StandardError = 0.29 }, time.Minute, ReasonPrecisionReached, true},
		{"precision wins over length", func(s *DiagnosticSession) { s.QuestionsAnswered = 20; s.StandardError = 0.2 }, time.Hour, ReasonPrecisionReached, true},
		{"length reached", func(s *DiagnosticSession) { s.QuestionsAnswered = 20; s.StandardError = 0.5 }, time.Hour, ReasonMaxQuestions, true},
		{"out of time", func(s *DiagnosticSession) { s.QuestionsAnswered = 4; s.StandardError = 0.5 }, time.Hour, ReasonTimeLimit, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestSession()
			tt.mutate(s)
			reason, stop := s.StopReason(s.StartedAt.Add(tt.at))
			if stop != tt.stop || reason != tt.expected {
				t.Errorf("Expected (%q, %v), got (%q, %v)", tt.expected, tt.stop, reason, stop)
			}
		})
	}
}

func TestDomainAbilityMap(t *testing.T) {
	m := DomainAbilityMap{
		"PHYS": {Ability: 0.5, Answered: 3},
		"ANAT": {Ability: -0.2, Answered: 1},
	}

	codes := m.Codes()
	if len(codes) != 2 || codes[0] != "ANAT" || codes[1] != "PHYS" {
		t.Errorf("Expected sorted codes, got %v", codes)
	}

	answered := m.Answered()
	if answered["PHYS"] != 3 || answered["ANAT"] != 1 {
		t.Errorf("Unexpected answered counts %v", answered)
	}

	clone := m.Clone()
	clone["ANAT"] = DomainEstimate{Ability: 2}
	if m["ANAT"].Ability != -0.2 {
		t.Error("Expected clone to be independent of the original")
	}
}

func TestReminderTierRank(t *testing.T) {
	order := []ReminderTier{ReminderTierNone, ReminderTierFirst, ReminderTierSecond, ReminderTierFinal, ReminderTierOverdue}
	for i := 1; i < len(order); i++ {
		if order[i].Rank() <= order[i-1].Rank() {
			t.Errorf("Expected %q to rank above %q", order[i], order[i-1])
		}
	}

	if _, err := ParseReminderTier("weekly"); !errors.Is(err, ErrInvalidReminderTier) {
		t.Errorf("Expected ErrInvalidReminderTier, got %v", err)
	}
	if tier, err := ParseReminderTier("final"); err != nil || tier != ReminderTierFinal {
		t.Errorf("Expected final tier, got %q (%v)", tier, err)
	}
}

func TestItemIsCorrect(t *testing.T) {
	item := Item{ID: uuid.New(), DomainCode: "ANAT", CorrectAnswer: "B"}
	if !item.IsCorrect(" b ") {
		t.Error("Expected case and whitespace insensitive match")
	}
	if item.IsCorrect("C") {
		t.Error("Expected mismatch for a different answer")
	}

	if _, defaulted := item.ResolvedParams(); !defaulted {
		t.Error("Expected uncalibrated item to use default parameters")
	}
}
