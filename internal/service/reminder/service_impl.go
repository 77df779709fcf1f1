package reminder

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/phrazzld/gauge/internal/domain"
	domainreminder "github.com/phrazzld/gauge/internal/domain/reminder"
	"github.com/phrazzld/gauge/internal/platform/logger"
	"github.com/phrazzld/gauge/internal/store"
)

// Verify interface compliance at compile time
var _ Service = (*serviceImpl)(nil)

// DefaultConcurrency bounds the number of reminders sent at once.
const DefaultConcurrency = 4

type serviceImpl struct {
	plans       store.PlanStore
	policy      *domainreminder.Policy
	sender      NotificationSender
	concurrency int
	now         func() time.Time
	logger      *slog.Logger
}

// NewService creates a new reminder Service. A nil sender logs reminders
// instead of delivering them; a non-positive concurrency uses
// DefaultConcurrency.
func NewService(
	plans store.PlanStore,
	policy *domainreminder.Policy,
	sender NotificationSender,
	concurrency int,
	logger *slog.Logger,
) Service {
	if plans == nil {
		panic("plan store cannot be nil")
	}
	if policy == nil {
		panic("reminder policy cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	if sender == nil {
		sender = LogSender{Logger: logger}
	}
	if concurrency <= 0 {
		concurrency = DefaultConcurrency
	}
	return &serviceImpl{
		plans:       plans,
		policy:      policy,
		sender:      sender,
		concurrency: concurrency,
		now:         func() time.Time { return time.Now().UTC() },
		logger:      logger.With(slog.String("component", "reminder_service")),
	}
}

// horizon is the latest next-diagnostic date that can owe a reminder at now:
// the end of the calendar day FirstDays days ahead.
func (s *serviceImpl) horizon(now time.Time) time.Time {
	y, m, d := now.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC).AddDate(0, 0, s.policy.Config().FirstDays()+1)
}

// CheckReminders implements Service.CheckReminders
func (s *serviceImpl) CheckReminders(ctx context.Context, now time.Time) (TierCounts, error) {
	log := logger.FromContextOrDefault(ctx, s.logger)
	counts := TierCounts{Sent: make(map[domain.ReminderTier]int)}

	due, err := s.plans.ListDueForReminder(ctx, s.horizon(now))
	if err != nil {
		return counts, NewServiceError("check_reminders", "failed to list plans", err)
	}
	counts.Scanned = len(due)

	var (
		mu   sync.Mutex
		errs []error
	)
	record := func(fn func()) {
		mu.Lock()
		defer mu.Unlock()
		fn()
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)

	for i := range due {
		plan := due[i]
		tier, owed := s.policy.Evaluate(&plan, now)
		if !owed {
			continue
		}

		g.Go(func() error {
			planLog := log.With(
				slog.String("plan_id", plan.ID.String()),
				slog.String("tier", string(tier)))

			claimed, err := s.plans.ClaimReminder(gctx, plan.ID, tier, now)
			if err != nil {
				planLog.Error("failed to claim reminder", slog.String("error", err.Error()))
				record(func() { errs = append(errs, fmt.Errorf("plan %s: %w", plan.ID, err)) })
				return nil
			}
			if !claimed {
				planLog.Debug("reminder already claimed by another run")
				record(func() { counts.Skipped++ })
				return nil
			}

			if err := s.send(gctx, plan.UserID, plan.ID, tier); err != nil {
				planLog.Warn("reminder not delivered", slog.String("error", err.Error()))
				record(func() { counts.Failed++ })
				if markErr := s.plans.MarkReminderFailed(gctx, plan.ID); markErr != nil {
					planLog.Error("failed to flag reminder as failed", slog.String("error", markErr.Error()))
					record(func() { errs = append(errs, fmt.Errorf("plan %s: %w", plan.ID, markErr)) })
				}
				return nil
			}

			planLog.Info("reminder sent", slog.String("user_id", plan.UserID.String()))
			record(func() { counts.Sent[tier]++ })
			return nil
		})
	}
	_ = g.Wait()

	log.Info("reminder batch finished",
		slog.Int("scanned", counts.Scanned),
		slog.Int("sent", counts.TotalSent()),
		slog.Int("failed", counts.Failed),
		slog.Int("skipped", counts.Skipped))

	if len(errs) > 0 {
		return counts, NewServiceError("check_reminders", "some reminders could not be processed", errors.Join(errs...))
	}
	return counts, nil
}

// TriggerReminder implements Service.TriggerReminder
func (s *serviceImpl) TriggerReminder(ctx context.Context, planID uuid.UUID, tier domain.ReminderTier) (*TriggerResult, error) {
	log := logger.FromContextOrDefault(ctx, s.logger).With(
		slog.String("plan_id", planID.String()),
		slog.String("tier", string(tier)))

	if tier.Rank() == 0 {
		return nil, domain.NewValidationError("tier", "is not a known reminder tier", nil)
	}

	plan, err := s.plans.GetByID(ctx, planID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, err
		}
		return nil, NewServiceError("trigger_reminder", "failed to load plan", err)
	}
	if plan.Status != domain.PlanStatusActive {
		return nil, ErrPlanInactive
	}

	result := &TriggerResult{PlanID: planID, Tier: tier}
	if err := s.send(ctx, plan.UserID, plan.ID, tier); err != nil {
		log.Warn("on-demand reminder not delivered", slog.String("error", err.Error()))
		return result, err
	}
	result.Sent = true

	advanced, err := s.plans.ClaimReminder(ctx, planID, tier, s.now())
	if err != nil {
		return result, NewServiceError("trigger_reminder", "failed to update reminder marker", err)
	}
	result.Advanced = advanced

	log.Info("on-demand reminder sent", slog.Bool("advanced", advanced))
	return result, nil
}

// send calls the sender and folds a refused notification into ErrSendFailed.
func (s *serviceImpl) send(ctx context.Context, userID, planID uuid.UUID, tier domain.ReminderTier) error {
	ok, err := s.sender.SendReminder(ctx, userID, planID, tier)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSendFailed, err)
	}
	if !ok {
		return ErrSendFailed
	}
	return nil
}
