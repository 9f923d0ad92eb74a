package jobs

import (
	"context"
	"time"

	"instauto_backend/internal/notification"
	"instauto_backend/internal/profile"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

const runTimeout = 5 * time.Minute

// Downgrader is the part of the profile service the job drives.
type Downgrader interface {
	DowngradeExpiredPlans(ctx context.Context, now time.Time) ([]profile.Profile, error)
}

// Notifier tells an oficina its plan changed. Optional.
type Notifier interface {
	CreateNotification(ctx context.Context, userID string, notifType notification.NotificationType, message string) (*notification.Notification, error)
}

// PlanExpiryJob moves oficinas whose pro plan expired back to free on a
// cron schedule.
type PlanExpiryJob struct {
	profiles      Downgrader
	notifier      Notifier
	schedule      string
	now           func() time.Time
	logger        *zap.Logger
	cronScheduler *cron.Cron
}

// NewPlanExpiryJob creates the job. An empty schedule disables it.
func NewPlanExpiryJob(profiles Downgrader, notifier Notifier, schedule string, logger *zap.Logger) *PlanExpiryJob {
	scheduler := cron.New(
		cron.WithLogger(NewCronLogger(logger.Named("cron"))),
		cron.WithChain(cron.SkipIfStillRunning(NewCronLogger(logger.Named("cron")))),
	)
	return &PlanExpiryJob{
		profiles:      profiles,
		notifier:      notifier,
		schedule:      schedule,
		now:           time.Now,
		logger:        logger.Named("PlanExpiryJob"),
		cronScheduler: scheduler,
	}
}

// SetupAndStart schedules and starts the cron job.
func (j *PlanExpiryJob) SetupAndStart() error {
	if j.schedule == "" {
		j.logger.Warn("Plan expiry job schedule not defined (PLAN_EXPIRY_JOB_SCHEDULE). Job will not run.")
		return nil
	}

	jobID, err := j.cronScheduler.AddFunc(j.schedule, func() {
		ctx, cancel := context.WithTimeout(context.Background(), runTimeout)
		defer cancel()
		j.RunOnce(ctx)
	})
	if err != nil {
		j.logger.Error("Failed to schedule plan expiry job", zap.String("schedule", j.schedule), zap.Error(err))
		return err
	}

	j.logger.Info("Plan expiry job scheduled", zap.String("schedule", j.schedule), zap.Int("jobID", int(jobID)))
	j.cronScheduler.Start()
	return nil
}

// RunOnce downgrades every expired plan and notifies the affected oficinas.
// It returns how many profiles were downgraded.
func (j *PlanExpiryJob) RunOnce(ctx context.Context) int {
	j.logger.Info("Starting plan expiry job run...")

	downgraded, err := j.profiles.DowngradeExpiredPlans(ctx, j.now().UTC())
	if err != nil {
		j.logger.Error("Plan expiry job run finished with errors", zap.Error(err))
	}

	for _, p := range downgraded {
		if j.notifier == nil {
			break
		}
		_, nerr := j.notifier.CreateNotification(ctx, p.ID, notification.PlanDowngraded,
			"Seu plano Pro expirou e sua oficina voltou para o plano gratuito.")
		if nerr != nil {
			j.logger.Warn("Failed to notify downgraded oficina", zap.String("uid", p.ID), zap.Error(nerr))
		}
	}

	j.logger.Info("Plan expiry job run completed", zap.Int("plans_downgraded", len(downgraded)))
	return len(downgraded)
}

// Stop stops the scheduler and waits for a running job up to ten seconds.
func (j *PlanExpiryJob) Stop() {
	if j.cronScheduler == nil {
		return
	}
	j.logger.Info("Stopping plan expiry job scheduler...")
	stopCtx := j.cronScheduler.Stop()
	select {
	case <-stopCtx.Done():
		j.logger.Info("Plan expiry job scheduler stopped gracefully.")
	case <-time.After(10 * time.Second):
		j.logger.Warn("Plan expiry job scheduler stop timed out.")
	}
}
