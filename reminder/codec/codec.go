// Package codec normalizes ReminderRecords between their in-memory shape and
// the storage/text representation. Decoding is defensive: a malformed stored
// field falls back to its raw value instead of failing the record.
package codec

import (
	"encoding/json"
	"errors"
	"strings"
	"time"

	"github.com/AzielCF/az-remind/pkg/recurrence"
	"github.com/AzielCF/az-remind/reminder/domain"
	"github.com/sirupsen/logrus"
)

// ErrInvalidDate is returned by Prepare when the record carries no usable
// fire instant. A reminder date is never null after normalization.
var ErrInvalidDate = errors.New("reminder date is zero or invalid")

// Legacy rows were written with textual SQL embedding and may carry escaped
// quotes; all writes are parameterized now, so escaping only survives on read.
var legacyUnescaper = strings.NewReplacer(`''`, `'`, `\'`, `'`)

// StorageForm is the flat TEXT-oriented shape persisted in the reminders
// table. List fields are JSON text; the date is an RFC3339 UTC instant.
type StorageForm struct {
	ID               string
	Type             string
	Message          string
	Subject          string
	Date             string
	Frequency        string
	Days             string
	ToMail           string
	Attachments      string
	Memo             string
	TelegramUsername string
	Latitude         float64
	Longitude        float64
	Radius           float64
	LocationName     string
	Priority         int
	Status           string
	Contacts         []domain.Contact
	// MailList is the trimmed, blank-filtered array form kept alongside the
	// serialized text for downstream dispatch use.
	MailList  []string
	CreatedAt time.Time
	UpdatedAt time.Time
}

// Prepare serializes a record for storage. List fields become JSON text
// (empty list when absent), the date is normalized to a second-precision
// RFC3339 UTC string so stored dates order lexicographically, and status
// defaults to pending.
func Prepare(rec domain.ReminderRecord) (StorageForm, error) {
	if rec.Date.IsZero() {
		return StorageForm{}, ErrInvalidDate
	}

	status := rec.Status
	if status == "" {
		status = domain.StatusPending
	}

	mailList := NormalizeMailList(rec.MailTo)

	form := StorageForm{
		ID:               rec.ID,
		Type:             string(rec.Type),
		Message:          rec.Message,
		Subject:          rec.Subject,
		Date:             FormatDate(rec.Date),
		Frequency:        string(rec.Frequency),
		Days:             marshalList(recurrence.Tokens(rec.Days)),
		ToMail:           marshalList(mailList),
		Attachments:      marshalFileRefs(rec.Attachments, rec.AttachmentsRaw),
		Memo:             marshalFileRefs(rec.Memo, rec.MemoRaw),
		TelegramUsername: rec.TelegramUsername,
		Latitude:         rec.Latitude,
		Longitude:        rec.Longitude,
		Radius:           rec.Radius,
		LocationName:     rec.LocationName,
		Priority:         rec.Priority,
		Status:           string(status),
		Contacts:         rec.Contacts,
		MailList:         mailList,
		CreatedAt:        rec.CreatedAt,
		UpdatedAt:        rec.UpdatedAt,
	}
	return form, nil
}

// Decode is the inverse of Prepare. Every JSON-bearing field is decoded
// independently; a parse failure preserves the raw value and is logged at
// warn level, so no single malformed field aborts the record.
func Decode(form StorageForm) domain.ReminderRecord {
	rec := domain.ReminderRecord{
		ID:               form.ID,
		Type:             domain.Type(form.Type),
		Message:          legacyUnescaper.Replace(form.Message),
		Subject:          legacyUnescaper.Replace(form.Subject),
		Date:             ParseDate(form.Date),
		Frequency:        domain.Frequency(form.Frequency),
		Days:             recurrence.ParseDays(form.Days),
		Contacts:         form.Contacts,
		MailTo:           decodeMailList(form.ToMail),
		TelegramUsername: legacyUnescaper.Replace(form.TelegramUsername),
		Latitude:         form.Latitude,
		Longitude:        form.Longitude,
		Radius:           form.Radius,
		LocationName:     legacyUnescaper.Replace(form.LocationName),
		Priority:         form.Priority,
		Status:           domain.Status(form.Status),
		CreatedAt:        form.CreatedAt,
		UpdatedAt:        form.UpdatedAt,
	}
	if rec.Status == "" {
		rec.Status = domain.StatusPending
	}

	rec.Attachments, rec.AttachmentsRaw = decodeFileRefs("attachments", form.Attachments)
	rec.Memo, rec.MemoRaw = decodeFileRefs("memo", form.Memo)
	return rec
}

// FormatDate renders an instant in the canonical storage encoding.
func FormatDate(t time.Time) string {
	return t.UTC().Truncate(time.Second).Format(time.RFC3339)
}

// ParseDate decodes a stored instant, tolerating the legacy space-separated
// encoding. An undecodable date decodes to the zero time.
func ParseDate(raw string) time.Time {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02T15:04:05"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC()
		}
	}
	logrus.Warnf("[CODEC] unparseable reminder date %q", raw)
	return time.Time{}
}

// NormalizeMailList trims every address and drops blanks.
func NormalizeMailList(mails []string) []string {
	out := make([]string, 0, len(mails))
	for _, m := range mails {
		if m = strings.TrimSpace(m); m != "" {
			out = append(out, m)
		}
	}
	return out
}

func marshalList(items []string) string {
	if items == nil {
		items = []string{}
	}
	data, _ := json.Marshal(items)
	return string(data)
}

func marshalFileRefs(refs []domain.FileRef, raw string) string {
	// A malformed value that was passed through on decode round-trips
	// verbatim rather than being re-encoded.
	if raw != "" {
		return raw
	}
	if refs == nil {
		refs = []domain.FileRef{}
	}
	data, _ := json.Marshal(refs)
	return string(data)
}

// decodeJSON is the single safe structured-decode helper shared by every
// JSON-bearing field.
func decodeJSON[T any](raw string) (T, bool) {
	var v T
	if strings.TrimSpace(raw) == "" {
		return v, true
	}
	if err := json.Unmarshal([]byte(raw), &v); err != nil {
		return v, false
	}
	return v, true
}

func decodeFileRefs(field, raw string) ([]domain.FileRef, string) {
	refs, ok := decodeJSON[[]domain.FileRef](raw)
	if !ok {
		logrus.Warnf("[CODEC] malformed %s encoding, passing raw value through", field)
		return nil, raw
	}
	return refs, ""
}

func decodeMailList(raw string) []string {
	if mails, ok := decodeJSON[[]string](raw); ok {
		return NormalizeMailList(mails)
	}
	// Legacy rows stored a bare comma-separated string.
	logrus.Warnf("[CODEC] malformed to_mail encoding, falling back to comma split")
	return NormalizeMailList(strings.Split(raw, ","))
}
