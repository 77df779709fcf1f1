package api

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"

	"github.com/phrazzld/gauge/internal/domain"
	"github.com/phrazzld/gauge/internal/service/diagnostic"
	"github.com/phrazzld/gauge/internal/service/mastery"
	"github.com/phrazzld/gauge/internal/service/planning"
	"github.com/phrazzld/gauge/internal/service/reminder"
)

type mockDiagnostic struct{ mock.Mock }

var _ diagnostic.Service = (*mockDiagnostic)(nil)

func (m *mockDiagnostic) StartSession(ctx context.Context, p diagnostic.StartSessionParams) (*diagnostic.StartSessionResult, error) {
	args := m.Called(ctx, p)
	res, _ := args.Get(0).(*diagnostic.StartSessionResult)
	return res, args.Error(1)
}

func (m *mockDiagnostic) SubmitResponse(ctx context.Context, p diagnostic.SubmitResponseParams) (*diagnostic.SubmitResponseResult, error) {
	args := m.Called(ctx, p)
	res, _ := args.Get(0).(*diagnostic.SubmitResponseResult)
	return res, args.Error(1)
}

func (m *mockDiagnostic) ForceTerminate(ctx context.Context, id uuid.UUID, reason domain.TerminationReason) (*domain.DiagnosticSession, error) {
	args := m.Called(ctx, id, reason)
	res, _ := args.Get(0).(*domain.DiagnosticSession)
	return res, args.Error(1)
}

func (m *mockDiagnostic) SweepTimedOut(ctx context.Context, now time.Time) ([]uuid.UUID, error) {
	args := m.Called(ctx, now)
	res, _ := args.Get(0).([]uuid.UUID)
	return res, args.Error(1)
}

func (m *mockDiagnostic) GetSession(ctx context.Context, id uuid.UUID) (*domain.DiagnosticSession, error) {
	args := m.Called(ctx, id)
	res, _ := args.Get(0).(*domain.DiagnosticSession)
	return res, args.Error(1)
}

type mockPlanning struct{ mock.Mock }

var _ planning.Service = (*mockPlanning)(nil)

func (m *mockPlanning) GetDomainAnalysis(ctx context.Context, sessionID uuid.UUID) (*planning.DomainAnalysis, error) {
	args := m.Called(ctx, sessionID)
	res, _ := args.Get(0).(*planning.DomainAnalysis)
	return res, args.Error(1)
}

func (m *mockPlanning) GeneratePlan(ctx context.Context, p planning.GeneratePlanParams) (*domain.PersonalLearningPlan, error) {
	args := m.Called(ctx, p)
	res, _ := args.Get(0).(*domain.PersonalLearningPlan)
	return res, args.Error(1)
}

func (m *mockPlanning) GetActivePlan(ctx context.Context, userID uuid.UUID) (*domain.PersonalLearningPlan, error) {
	args := m.Called(ctx, userID)
	res, _ := args.Get(0).(*domain.PersonalLearningPlan)
	return res, args.Error(1)
}

type mockMastery struct{ mock.Mock }

var _ mastery.Service = (*mockMastery)(nil)

func (m *mockMastery) RecordAttempt(ctx context.Context, p mastery.RecordAttemptParams) (*domain.UserItemMastery, error) {
	args := m.Called(ctx, p)
	res, _ := args.Get(0).(*domain.UserItemMastery)
	return res, args.Error(1)
}

func (m *mockMastery) ListMastery(ctx context.Context, userID uuid.UUID) ([]domain.UserItemMastery, error) {
	args := m.Called(ctx, userID)
	res, _ := args.Get(0).([]domain.UserItemMastery)
	return res, args.Error(1)
}

type mockReminder struct{ mock.Mock }

var _ reminder.Service = (*mockReminder)(nil)

func (m *mockReminder) CheckReminders(ctx context.Context, now time.Time) (reminder.TierCounts, error) {
	args := m.Called(ctx, now)
	return args.Get(0).(reminder.TierCounts), args.Error(1)
}

func (m *mockReminder) TriggerReminder(ctx context.Context, planID uuid.UUID, tier domain.ReminderTier) (*reminder.TriggerResult, error) {
	args := m.Called(ctx, planID, tier)
	res, _ := args.Get(0).(*reminder.TriggerResult)
	return res, args.Error(1)
}

type stubPinger struct{ err error }

func (p stubPinger) PingContext(context.Context) error { return p.err }
