package usecase

import (
	"context"
	"database/sql"
	"testing"
	"time"

	pkgError "github.com/AzielCF/az-remind/pkg/error"
	"github.com/AzielCF/az-remind/reminder/application"
	"github.com/AzielCF/az-remind/reminder/codec"
	"github.com/AzielCF/az-remind/reminder/domain"
	"github.com/AzielCF/az-remind/reminder/repository"
	_ "github.com/mattn/go-sqlite3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setupUsecase(t *testing.T) *ReminderUsecase {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:?_foreign_keys=on&_txlock=immediate")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { db.Close() })

	repo := repository.NewSQLiteRepository(db)
	repo.RetryBaseDelay = time.Millisecond
	require.NoError(t, repo.Init(context.Background()))

	return NewReminderUsecase(repo, application.NewStatusReconciler(repo, nil))
}

func noteRequest(date time.Time) domain.CreateReminderRequest {
	return domain.CreateReminderRequest{
		Type:      domain.TypeNote,
		Message:   "pick up the package",
		Date:      date,
		Frequency: domain.FrequencyNone,
	}
}

func TestCreateReminderPersistsPendingRecord(t *testing.T) {
	uc := setupUsecase(t)
	ctx := context.Background()
	date := time.Date(2025, 5, 20, 17, 0, 0, 0, time.UTC)

	id, err := uc.CreateReminder(ctx, noteRequest(date))
	require.NoError(t, err)
	require.NotEmpty(t, id)

	rec, err := uc.GetReminder(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, domain.TypeNote, rec.Type)
	assert.Equal(t, "pick up the package", rec.Message)
	assert.True(t, rec.Date.Equal(date))
	assert.Equal(t, domain.StatusPending, rec.Status)
}

func TestCreateReminderGeneratesUniqueIDs(t *testing.T) {
	uc := setupUsecase(t)
	ctx := context.Background()
	date := time.Now().UTC().Add(time.Hour)

	first, err := uc.CreateReminder(ctx, noteRequest(date))
	require.NoError(t, err)
	second, err := uc.CreateReminder(ctx, noteRequest(date))
	require.NoError(t, err)
	assert.NotEqual(t, first, second)
}

func TestCreateReminderValidation(t *testing.T) {
	uc := setupUsecase(t)
	ctx := context.Background()
	date := time.Now().UTC().Add(time.Hour)

	tests := []struct {
		name    string
		request domain.CreateReminderRequest
	}{
		{
			name:    "missing date",
			request: domain.CreateReminderRequest{Type: domain.TypeNote, Message: "hi"},
		},
		{
			name:    "unknown type",
			request: domain.CreateReminderRequest{Type: "carrier-pigeon", Message: "hi", Date: date},
		},
		{
			name:    "note without message",
			request: domain.CreateReminderRequest{Type: domain.TypeNote, Date: date},
		},
		{
			name:    "gmail without subject",
			request: domain.CreateReminderRequest{Type: domain.TypeGmail, Date: date, MailTo: []string{"a@b.test"}},
		},
		{
			name:    "gmail without recipients",
			request: domain.CreateReminderRequest{Type: domain.TypeGmail, Date: date, Subject: "hello"},
		},
		{
			name:    "whatsapp without contacts",
			request: domain.CreateReminderRequest{Type: domain.TypeWhatsApp, Message: "hi", Date: date},
		},
		{
			name:    "telegram without username",
			request: domain.CreateReminderRequest{Type: domain.TypeTelegram, Message: "hi", Date: date},
		},
		{
			name: "location without radius",
			request: domain.CreateReminderRequest{
				Type: domain.TypeLocation, Date: date, LocationName: "office",
				Latitude: 40.4, Longitude: -3.7,
			},
		},
		{
			name: "location with sub-meter radius",
			request: domain.CreateReminderRequest{
				Type: domain.TypeLocation, Date: date, LocationName: "office",
				Latitude: 40.4, Longitude: -3.7, Radius: 0.5,
			},
		},
		{
			name: "latitude out of range",
			request: domain.CreateReminderRequest{
				Type: domain.TypeNote, Message: "hi", Date: date, Latitude: 91,
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			id, err := uc.CreateReminder(ctx, tc.request)
			require.Error(t, err)
			assert.Empty(t, id)

			var vErr pkgError.ValidationError
			assert.ErrorAs(t, err, &vErr)
		})
	}

	// Nothing was persisted by the rejected requests.
	all, err := uc.ListReminders(ctx)
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestCreateGmailReminder(t *testing.T) {
	uc := setupUsecase(t)
	ctx := context.Background()

	id, err := uc.CreateReminder(ctx, domain.CreateReminderRequest{
		Type:    domain.TypeGmail,
		Subject: "Quarterly report",
		Date:    time.Now().UTC().Add(time.Hour),
		MailTo:  []string{" ana@example.com ", "bob@example.com"},
	})
	require.NoError(t, err)

	rec, err := uc.GetReminder(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, []string{"ana@example.com", "bob@example.com"}, rec.MailTo)
}

func TestCreateLocationReminder(t *testing.T) {
	uc := setupUsecase(t)
	ctx := context.Background()

	// The radius minimum binds location reminders only; other types carry
	// no coordinates at all.
	id, err := uc.CreateReminder(ctx, domain.CreateReminderRequest{
		Type:         domain.TypeLocation,
		Date:         time.Now().UTC().Add(time.Hour),
		LocationName: "office",
		Latitude:     40.4,
		Longitude:    -3.7,
		Radius:       150,
	})
	require.NoError(t, err)

	rec, err := uc.GetReminder(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, domain.TypeLocation, rec.Type)
	assert.Equal(t, "office", rec.LocationName)
	assert.Equal(t, 150.0, rec.Radius)
}

func TestGetDueReminders(t *testing.T) {
	uc := setupUsecase(t)
	ctx := context.Background()
	now := time.Date(2025, 5, 20, 12, 0, 0, 0, time.UTC)

	pastID, err := uc.CreateReminder(ctx, noteRequest(now.Add(-time.Hour)))
	require.NoError(t, err)
	_, err = uc.CreateReminder(ctx, noteRequest(now.Add(time.Hour)))
	require.NoError(t, err)

	due, err := uc.GetDueReminders(ctx, now)
	require.NoError(t, err)
	require.Len(t, due, 1)
	assert.Equal(t, pastID, due[0].ID)
}

func TestFireAdvancesRecurringReminder(t *testing.T) {
	uc := setupUsecase(t)
	ctx := context.Background()
	date := time.Date(2025, 5, 20, 12, 0, 0, 0, time.UTC)

	req := noteRequest(date)
	req.Frequency = domain.FrequencyDaily
	id, err := uc.CreateReminder(ctx, req)
	require.NoError(t, err)

	fired, err := uc.Fire(ctx, id)
	require.NoError(t, err)
	require.NotNil(t, fired)
	assert.Equal(t, domain.StatusPending, fired.Status)
	assert.True(t, fired.Date.Equal(date.AddDate(0, 0, 1)))
}

func TestFireUnknownIDReturnsNil(t *testing.T) {
	uc := setupUsecase(t)

	fired, err := uc.Fire(context.Background(), "missing")
	assert.NoError(t, err)
	assert.Nil(t, fired)
}

func TestReschedule(t *testing.T) {
	uc := setupUsecase(t)
	ctx := context.Background()
	date := time.Date(2025, 5, 20, 12, 0, 0, 0, time.UTC)

	id, err := uc.CreateReminder(ctx, noteRequest(date))
	require.NoError(t, err)

	// Snooze: any instant is acceptable, including one in the past.
	moved := date.Add(-2 * time.Hour)
	ok, err := uc.Reschedule(ctx, id, moved)
	require.NoError(t, err)
	assert.True(t, ok)

	rec, err := uc.GetReminder(ctx, id)
	require.NoError(t, err)
	assert.True(t, rec.Date.Equal(moved))

	ok, err = uc.Reschedule(ctx, "missing", moved)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestRescheduleRejectsZeroDate(t *testing.T) {
	uc := setupUsecase(t)
	ctx := context.Background()
	date := time.Date(2025, 5, 20, 12, 0, 0, 0, time.UTC)

	id, err := uc.CreateReminder(ctx, noteRequest(date))
	require.NoError(t, err)

	ok, err := uc.Reschedule(ctx, id, time.Time{})
	assert.ErrorIs(t, err, codec.ErrInvalidDate)
	assert.False(t, ok)

	// The stored date is untouched.
	rec, err := uc.GetReminder(ctx, id)
	require.NoError(t, err)
	assert.True(t, rec.Date.Equal(date))
}

func TestExpire(t *testing.T) {
	uc := setupUsecase(t)
	ctx := context.Background()

	id, err := uc.CreateReminder(ctx, noteRequest(time.Now().UTC().Add(time.Hour)))
	require.NoError(t, err)

	assert.True(t, uc.Expire(ctx, id))

	rec, err := uc.GetReminder(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusExpired, rec.Status)
}

func TestDeleteReminder(t *testing.T) {
	uc := setupUsecase(t)
	ctx := context.Background()

	id, err := uc.CreateReminder(ctx, noteRequest(time.Now().UTC().Add(time.Hour)))
	require.NoError(t, err)

	require.NoError(t, uc.DeleteReminder(ctx, id))

	_, err = uc.GetReminder(ctx, id)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}
