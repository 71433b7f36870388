package application

import (
	"context"
	"errors"
	"time"

	"github.com/AzielCF/az-remind/pkg/recurrence"
	"github.com/AzielCF/az-remind/reminder/domain"
	"github.com/sirupsen/logrus"
)

// StatusReconciler is the state machine governing a reminder's
// per-occurrence lifecycle: pending -> sent for a one-shot, or
// fire -> advance -> pending-at-new-date for a recurring reminder.
type StatusReconciler struct {
	repo    domain.IReminderRepository
	history domain.IHistoryRepository // optional, nil disables history
}

func NewStatusReconciler(repo domain.IReminderRepository, history domain.IHistoryRepository) *StatusReconciler {
	return &StatusReconciler{repo: repo, history: history}
}

// MarkFired transitions the reminder after a successful delivery.
//
// A recurring reminder is rewritten in place to its next occurrence with
// status pending; a one-shot is marked sent. The whole transition runs as
// one transaction under the retry policy, so exactly one writer advances a
// given record at a time. An absent id returns (nil, nil): "reminder
// already deleted" is an expected race, not an error.
//
// Calling MarkFired again on an already-sent one-shot is a no-op that
// returns the sent record; deduplicating the delivery itself is the
// caller's job.
func (s *StatusReconciler) MarkFired(ctx context.Context, id string) (*domain.ReminderRecord, error) {
	var (
		updated *domain.ReminderRecord
		entry   *domain.HistoryEntry
	)

	err := s.repo.ExecuteWithRetry(ctx, func(ctx context.Context) error {
		updated, entry = nil, nil
		return s.repo.ExecuteTransaction(ctx, func(repo domain.IReminderRepository) error {
			rec, err := repo.GetByID(ctx, id)
			if errors.Is(err, domain.ErrNotFound) {
				return nil
			}
			if err != nil {
				return err
			}

			now := time.Now().UTC()

			if rec.Frequency.IsRecurring() {
				occurred := rec.Date
				rec.Date = recurrence.Advance(rec.Date, string(rec.Frequency), rec.Days)
				rec.Status = domain.StatusPending
				rec.UpdatedAt = now
				if err := repo.Update(ctx, rec); err != nil {
					return err
				}
				next := rec.Date
				updated = &rec
				entry = &domain.HistoryEntry{
					ReminderID: rec.ID, Type: rec.Type,
					OccurredAt: occurred, NextAt: &next, FiredAt: now,
				}
				return nil
			}

			if rec.Status == domain.StatusSent {
				// Second fire on a one-shot: state already reconciled.
				updated = &rec
				return nil
			}

			if err := repo.UpdateStatus(ctx, id, domain.StatusSent); err != nil {
				return err
			}
			rec.Status = domain.StatusSent
			rec.UpdatedAt = now
			updated = &rec
			entry = &domain.HistoryEntry{
				ReminderID: rec.ID, Type: rec.Type,
				OccurredAt: rec.Date, FiredAt: now,
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	// History is appended after commit; it must not hold the write
	// transaction open and a failure must not undo the transition.
	if entry != nil && s.history != nil {
		if err := s.history.Record(ctx, *entry); err != nil {
			logrus.WithError(err).Warn("[RECONCILER] failed to record delivery history")
		}
	}
	return updated, nil
}

// MarkExpired sets status=expired directly. It reports success rather than
// returning an error because it is typically invoked from best-effort
// background paths; a missing id or store failure yields false.
func (s *StatusReconciler) MarkExpired(ctx context.Context, id string) bool {
	err := s.repo.UpdateStatus(ctx, id, domain.StatusExpired)
	if errors.Is(err, domain.ErrNotFound) {
		return false
	}
	if err != nil {
		logrus.WithError(err).Warnf("[RECONCILER] failed to expire reminder %s", id)
		return false
	}
	return true
}
