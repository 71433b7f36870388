package application

import (
	"context"
	"time"

	"github.com/AzielCF/az-remind/reminder/domain"
	"github.com/sirupsen/logrus"
)

const (
	minSleep = 1 * time.Second
	maxSleep = 1 * time.Hour
)

// DispatchWorker is the background loop feeding due reminders to the
// delivery collaborator. It sleeps adaptively until the next pending date
// and re-polls on a safety ticker in case a write slipped past the timer.
type DispatchWorker struct {
	repo         domain.IReminderRepository
	reconciler   *StatusReconciler
	dispatcher   domain.Dispatcher
	PollInterval time.Duration
}

func NewDispatchWorker(repo domain.IReminderRepository, reconciler *StatusReconciler, dispatcher domain.Dispatcher) *DispatchWorker {
	return &DispatchWorker{
		repo:         repo,
		reconciler:   reconciler,
		dispatcher:   dispatcher,
		PollInterval: 5 * time.Minute,
	}
}

// Run blocks until ctx is cancelled.
func (w *DispatchWorker) Run(ctx context.Context) {
	logrus.Info("[DISPATCH] worker started")

	safetyTicker := time.NewTicker(w.PollInterval)
	defer safetyTicker.Stop()

	for {
		nextAt := w.ProcessDue(ctx)

		sleep := maxSleep
		if !nextAt.IsZero() {
			sleep = time.Until(nextAt)
			if sleep < minSleep {
				sleep = minSleep
			}
			if sleep > maxSleep {
				sleep = maxSleep
			}
		}

		adaptiveTimer := time.NewTimer(sleep)
		select {
		case <-ctx.Done():
			adaptiveTimer.Stop()
			logrus.Info("[DISPATCH] worker stopped")
			return
		case <-safetyTicker.C:
			adaptiveTimer.Stop()
		case <-adaptiveTimer.C:
		}
	}
}

// ProcessDue dispatches every due reminder once and returns the date of the
// next pending reminder (zero when none). A delivery failure leaves the
// reminder pending for the next pass; only confirmed deliveries are marked
// fired.
func (w *DispatchWorker) ProcessDue(ctx context.Context) time.Time {
	due, err := w.repo.ListDue(ctx, time.Now().UTC())
	if err != nil {
		logrus.WithError(err).Error("[DISPATCH] failed to list due reminders")
		return time.Time{}
	}

	for _, rec := range due {
		if err := w.dispatcher.Dispatch(ctx, rec); err != nil {
			logrus.WithError(err).Errorf("[DISPATCH] delivery failed for reminder %s", rec.ID)
			continue
		}
		if _, err := w.reconciler.MarkFired(ctx, rec.ID); err != nil {
			logrus.WithError(err).Errorf("[DISPATCH] failed to mark reminder %s fired", rec.ID)
		}
	}

	next, err := w.repo.NextPendingAt(ctx)
	if err != nil {
		logrus.WithError(err).Error("[DISPATCH] failed to peek next pending date")
		return time.Time{}
	}
	return next
}

// LogDispatcher is the default delivery collaborator: it only logs. Real
// deployments plug SMS/WhatsApp/Telegram/mail integrations behind
// domain.Dispatcher.
type LogDispatcher struct{}

func (LogDispatcher) Dispatch(_ context.Context, rec domain.ReminderRecord) error {
	logrus.Infof("[DISPATCH] %s reminder %s due at %s: %s", rec.Type, rec.ID, rec.Date.Format(time.RFC3339), rec.Message)
	return nil
}
