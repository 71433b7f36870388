package codec

import (
	"testing"
	"time"

	"github.com/AzielCF/az-remind/reminder/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleRecord() domain.ReminderRecord {
	date := time.Date(2025, 6, 15, 18, 30, 0, 0, time.UTC)
	return domain.ReminderRecord{
		ID:        "rem-1",
		Type:      domain.TypeWhatsApp,
		Message:   "don't forget the meeting",
		Subject:   "Weekly sync",
		Date:      date,
		Frequency: domain.FrequencyWeekly,
		Days:      []time.Weekday{time.Monday, time.Friday},
		Contacts: []domain.Contact{
			{RecordID: "c-9", Name: "Ana", Number: "+34600111222"},
		},
		MailTo:      []string{"ana@example.com"},
		Attachments: []domain.FileRef{{Path: "/files/agenda.pdf", Name: "agenda.pdf", MimeType: "application/pdf"}},
		Memo:        []domain.FileRef{{Path: "/files/voice.m4a"}},
		Priority:    2,
		Status:      domain.StatusPending,
		CreatedAt:   date.Add(-24 * time.Hour),
		UpdatedAt:   date.Add(-24 * time.Hour),
	}
}

func TestPrepareDecodeRoundTrip(t *testing.T) {
	rec := sampleRecord()

	form, err := Prepare(rec)
	require.NoError(t, err)

	got := Decode(form)

	assert.Equal(t, rec.ID, got.ID)
	assert.Equal(t, rec.Type, got.Type)
	assert.Equal(t, rec.Message, got.Message)
	assert.Equal(t, rec.Subject, got.Subject)
	assert.True(t, got.Date.Equal(rec.Date))
	assert.Equal(t, rec.Frequency, got.Frequency)
	assert.Equal(t, rec.Days, got.Days)
	assert.Equal(t, rec.Contacts, got.Contacts)
	assert.Equal(t, rec.MailTo, got.MailTo)
	assert.Equal(t, rec.Attachments, got.Attachments)
	assert.Equal(t, rec.Memo, got.Memo)
	assert.Equal(t, rec.Status, got.Status)
	assert.Empty(t, got.AttachmentsRaw)
	assert.Empty(t, got.MemoRaw)
}

func TestPrepareRejectsZeroDate(t *testing.T) {
	rec := sampleRecord()
	rec.Date = time.Time{}

	_, err := Prepare(rec)
	assert.ErrorIs(t, err, ErrInvalidDate)
}

func TestPrepareDefaultsStatusToPending(t *testing.T) {
	rec := sampleRecord()
	rec.Status = ""

	form, err := Prepare(rec)
	require.NoError(t, err)
	assert.Equal(t, string(domain.StatusPending), form.Status)
}

func TestPrepareNormalizesMailList(t *testing.T) {
	rec := sampleRecord()
	rec.MailTo = []string{"  ana@example.com ", "", "  ", "bob@example.com"}

	form, err := Prepare(rec)
	require.NoError(t, err)

	assert.Equal(t, []string{"ana@example.com", "bob@example.com"}, form.MailList)
	assert.JSONEq(t, `["ana@example.com","bob@example.com"]`, form.ToMail)
}

func TestPrepareEmptyListsSerializeAsEmptyArrays(t *testing.T) {
	rec := sampleRecord()
	rec.Days = nil
	rec.MailTo = nil
	rec.Attachments = nil
	rec.Memo = nil

	form, err := Prepare(rec)
	require.NoError(t, err)

	assert.Equal(t, "[]", form.Days)
	assert.Equal(t, "[]", form.ToMail)
	assert.Equal(t, "[]", form.Attachments)
	assert.Equal(t, "[]", form.Memo)
}

func TestDecodeMalformedAttachmentsPassesRawThrough(t *testing.T) {
	form, err := Prepare(sampleRecord())
	require.NoError(t, err)
	form.Attachments = "{{definitely not json"

	got := Decode(form)

	assert.Nil(t, got.Attachments)
	assert.Equal(t, "{{definitely not json", got.AttachmentsRaw)
	// The rest of the record still decodes.
	assert.Equal(t, "rem-1", got.ID)
	assert.Equal(t, []domain.FileRef{{Path: "/files/voice.m4a"}}, got.Memo)
}

func TestMalformedFieldRoundTripsVerbatim(t *testing.T) {
	form, err := Prepare(sampleRecord())
	require.NoError(t, err)
	form.Memo = "legacy-opaque-value"

	rec := Decode(form)
	require.Equal(t, "legacy-opaque-value", rec.MemoRaw)

	reForm, err := Prepare(rec)
	require.NoError(t, err)
	assert.Equal(t, "legacy-opaque-value", reForm.Memo)
}

func TestDecodeLegacyMailString(t *testing.T) {
	form, err := Prepare(sampleRecord())
	require.NoError(t, err)
	form.ToMail = "ana@example.com, bob@example.com"

	got := Decode(form)
	assert.Equal(t, []string{"ana@example.com", "bob@example.com"}, got.MailTo)
}

func TestDecodeLegacyEscapedText(t *testing.T) {
	form, err := Prepare(sampleRecord())
	require.NoError(t, err)
	form.Message = "it''s today"
	form.LocationName = `Ana\'s place`

	got := Decode(form)
	assert.Equal(t, "it's today", got.Message)
	assert.Equal(t, "Ana's place", got.LocationName)
}

func TestDecodeLegacyDaysString(t *testing.T) {
	form, err := Prepare(sampleRecord())
	require.NoError(t, err)
	form.Days = "[Mon, Wed]"

	got := Decode(form)
	assert.Equal(t, []time.Weekday{time.Monday, time.Wednesday}, got.Days)
}

func TestDecodeDateTolerantOfLegacyLayout(t *testing.T) {
	form, err := Prepare(sampleRecord())
	require.NoError(t, err)
	form.Date = "2025-06-15 18:30:00"

	got := Decode(form)
	assert.True(t, got.Date.Equal(time.Date(2025, 6, 15, 18, 30, 0, 0, time.UTC)))
}

func TestDecodeEmptyStatusDefaultsToPending(t *testing.T) {
	form, err := Prepare(sampleRecord())
	require.NoError(t, err)
	form.Status = ""

	assert.Equal(t, domain.StatusPending, Decode(form).Status)
}
