package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/AzielCF/az-remind/reminder/application"
	"github.com/AzielCF/az-remind/reminder/codec"
	"github.com/AzielCF/az-remind/reminder/domain"
	"github.com/AzielCF/az-remind/validations"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// ReminderUsecase is the single entry point external collaborators use: the
// composing UI creates and edits reminders through it, the alarm scheduler
// polls due reminders and reports deliveries back.
type ReminderUsecase struct {
	repo       domain.IReminderRepository
	reconciler *application.StatusReconciler
}

func NewReminderUsecase(repo domain.IReminderRepository, reconciler *application.StatusReconciler) *ReminderUsecase {
	return &ReminderUsecase{repo: repo, reconciler: reconciler}
}

// CreateReminder validates the request per reminder type, normalizes it and
// persists the new record. Nothing is persisted when validation fails.
func (u *ReminderUsecase) CreateReminder(ctx context.Context, req domain.CreateReminderRequest) (string, error) {
	if err := validations.ValidateCreateReminder(ctx, req); err != nil {
		return "", err
	}

	now := time.Now().UTC()
	rec := domain.ReminderRecord{
		ID:               uuid.NewString(),
		Type:             req.Type,
		Message:          req.Message,
		Subject:          req.Subject,
		Date:             req.Date.UTC(),
		Frequency:        req.Frequency,
		Days:             req.Days,
		Contacts:         req.Contacts,
		MailTo:           req.MailTo,
		Attachments:      req.Attachments,
		Memo:             req.Memo,
		TelegramUsername: req.TelegramUsername,
		Latitude:         req.Latitude,
		Longitude:        req.Longitude,
		Radius:           req.Radius,
		LocationName:     req.LocationName,
		Priority:         req.Priority,
		Status:           domain.StatusPending,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	if err := u.repo.Insert(ctx, rec); err != nil {
		return "", err
	}

	logrus.Debugf("[REMINDER] created %s reminder %s for %s", rec.Type, rec.ID, rec.Date.Format(time.RFC3339))
	return rec.ID, nil
}

// GetDueReminders returns all pending reminders due at or before asOf,
// earliest first.
func (u *ReminderUsecase) GetDueReminders(ctx context.Context, asOf time.Time) ([]domain.ReminderRecord, error) {
	return u.repo.ListDue(ctx, asOf)
}

// Fire reconciles a delivered reminder. Returns nil for an id that no
// longer exists.
func (u *ReminderUsecase) Fire(ctx context.Context, id string) (*domain.ReminderRecord, error) {
	return u.reconciler.MarkFired(ctx, id)
}

// Expire marks a reminder expired; best effort.
func (u *ReminderUsecase) Expire(ctx context.Context, id string) bool {
	return u.reconciler.MarkExpired(ctx, id)
}

// Reschedule overrides the fire date directly, bypassing recurrence math.
// This is the user-initiated "snooze" path: the monotonic-forward rule is
// intentionally waived here, so newDate may be any valid instant. Returns
// false when the reminder does not exist.
func (u *ReminderUsecase) Reschedule(ctx context.Context, id string, newDate time.Time) (bool, error) {
	if newDate.IsZero() {
		return false, codec.ErrInvalidDate
	}
	err := u.repo.UpdateDate(ctx, id, newDate)
	if errors.Is(err, domain.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (u *ReminderUsecase) GetReminder(ctx context.Context, id string) (domain.ReminderRecord, error) {
	return u.repo.GetByID(ctx, id)
}

func (u *ReminderUsecase) ListReminders(ctx context.Context) ([]domain.ReminderRecord, error) {
	return u.repo.List(ctx)
}

func (u *ReminderUsecase) DeleteReminder(ctx context.Context, id string) error {
	return u.repo.Delete(ctx, id)
}
