package domain

import (
	"context"
	"time"
)

// IReminderRepository is the persistence contract for reminders and their
// contacts side-table.
//
// Mutating operations are retried on lock contention and run inside an
// immediate transaction by the implementation; inside an ExecuteTransaction
// callback the passed repository is bound to that transaction and its
// methods execute directly.
type IReminderRepository interface {
	Init(ctx context.Context) error

	Insert(ctx context.Context, rec ReminderRecord) error
	GetByID(ctx context.Context, id string) (ReminderRecord, error)
	Update(ctx context.Context, rec ReminderRecord) error
	UpdateStatus(ctx context.Context, id string, status Status) error
	UpdateDate(ctx context.Context, id string, date time.Time) error
	Delete(ctx context.Context, id string) error

	List(ctx context.Context) ([]ReminderRecord, error)
	ListDue(ctx context.Context, asOf time.Time) ([]ReminderRecord, error)
	// NextPendingAt returns the earliest pending date, or the zero time when
	// no pending reminder exists.
	NextPendingAt(ctx context.Context) (time.Time, error)

	// ExecuteWithRetry runs op, retrying with linear backoff when the store
	// reports lock contention. Any other failure propagates immediately.
	ExecuteWithRetry(ctx context.Context, op func(ctx context.Context) error) error
	// ExecuteTransaction runs fn against a transaction-bound repository,
	// committing on nil and rolling back on error. No partial writes are
	// observably committed.
	ExecuteTransaction(ctx context.Context, fn func(repo IReminderRepository) error) error
}

// IHistoryRepository records delivered occurrences.
type IHistoryRepository interface {
	Init(ctx context.Context) error
	Record(ctx context.Context, entry HistoryEntry) error
	ListByReminder(ctx context.Context, reminderID string) ([]HistoryEntry, error)
}

// Dispatcher is the outbound delivery collaborator (OS notification, SMS,
// WhatsApp, Telegram, mail...). The engine only prepares the payload and
// decides WHEN; delivery itself is external.
type Dispatcher interface {
	Dispatch(ctx context.Context, rec ReminderRecord) error
}
