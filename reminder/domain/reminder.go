package domain

import "time"

// Type identifies the delivery channel a reminder targets.
type Type string

const (
	TypeLocation         Type = "location"
	TypeNote             Type = "note"
	TypeGmail            Type = "gmail"
	TypeSMS              Type = "sms"
	TypeWhatsApp         Type = "whatsapp"
	TypeWhatsAppBusiness Type = "whatsappBusiness"
	TypeTelegram         Type = "telegram"
	TypePhone            Type = "phone"
)

// ContactTypes are the types that require at least one resolved contact.
var ContactTypes = []Type{TypeSMS, TypeWhatsApp, TypeWhatsAppBusiness, TypePhone}

func (t Type) RequiresContact() bool {
	for _, ct := range ContactTypes {
		if t == ct {
			return true
		}
	}
	return false
}

// Frequency drives the recurrence advancement of a reminder's date.
// Empty or None means a one-shot reminder.
type Frequency string

const (
	FrequencyNone    Frequency = "None"
	FrequencyDaily   Frequency = "Daily"
	FrequencyWeekly  Frequency = "Weekly"
	FrequencyMonthly Frequency = "Monthly"
	FrequencyYearly  Frequency = "Yearly"
)

func (f Frequency) IsRecurring() bool {
	switch f {
	case FrequencyDaily, FrequencyWeekly, FrequencyMonthly, FrequencyYearly:
		return true
	}
	return false
}

// Status tracks the lifecycle of the CURRENT occurrence, not the whole
// reminder history: a recurring reminder goes back to pending at its next
// date every time it fires.
type Status string

const (
	StatusPending Status = "pending"
	StatusSent    Status = "sent"
	StatusExpired Status = "expired"
)

// Contact is a denormalized recipient entry, persisted in the contacts
// side-table keyed by the owning reminder id.
type Contact struct {
	RecordID      string `json:"recordID"`
	Name          string `json:"name"`
	Number        string `json:"number"`
	ThumbnailPath string `json:"thumbnailPath,omitempty"`
}

// FileRef describes an attachment or memo file carried by a reminder.
type FileRef struct {
	Path     string `json:"path"`
	Name     string `json:"name,omitempty"`
	MimeType string `json:"mimeType,omitempty"`
}

// ReminderRecord is the central entity of the scheduling engine.
//
// Attachments/Memo carry the parsed shape when the stored encoding is
// well-formed JSON; a malformed encoding is preserved verbatim in the
// matching *Raw field instead of failing the whole record.
type ReminderRecord struct {
	ID               string         `json:"id"`
	Type             Type           `json:"type"`
	Message          string         `json:"message,omitempty"`
	Subject          string         `json:"subject,omitempty"`
	Date             time.Time      `json:"date"`
	Frequency        Frequency      `json:"schedule_frequency,omitempty"`
	Days             []time.Weekday `json:"days,omitempty"` // meaningful only when Frequency is Weekly
	Contacts         []Contact      `json:"to_contact,omitempty"`
	MailTo           []string       `json:"to_mail,omitempty"`
	Attachments      []FileRef      `json:"attachments,omitempty"`
	AttachmentsRaw   string         `json:"attachments_raw,omitempty"`
	Memo             []FileRef      `json:"memo,omitempty"`
	MemoRaw          string         `json:"memo_raw,omitempty"`
	TelegramUsername string         `json:"telegram_username,omitempty"`
	Latitude         float64        `json:"latitude,omitempty"`
	Longitude        float64        `json:"longitude,omitempty"`
	Radius           float64        `json:"radius,omitempty"` // meters
	LocationName     string         `json:"location_name,omitempty"`
	Priority         int            `json:"priority,omitempty"`
	Status           Status         `json:"status"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
}

// HistoryEntry records one delivered occurrence of a reminder.
type HistoryEntry struct {
	ID         uint       `json:"id"`
	ReminderID string     `json:"reminder_id"`
	Type       Type       `json:"type"`
	OccurredAt time.Time  `json:"occurred_at"`       // the occurrence date that fired
	NextAt     *time.Time `json:"next_at,omitempty"` // next date when recurring, nil for one-shot
	FiredAt    time.Time  `json:"fired_at"`
}

// CreateReminderRequest is the input accepted by the scheduling facade.
type CreateReminderRequest struct {
	Type             Type           `json:"type"`
	Message          string         `json:"message"`
	Subject          string         `json:"subject"`
	Date             time.Time      `json:"date"`
	Frequency        Frequency      `json:"schedule_frequency"`
	Days             []time.Weekday `json:"days"`
	Contacts         []Contact      `json:"to_contact"`
	MailTo           []string       `json:"to_mail"`
	Attachments      []FileRef      `json:"attachments"`
	Memo             []FileRef      `json:"memo"`
	TelegramUsername string         `json:"telegram_username"`
	Latitude         float64        `json:"latitude"`
	Longitude        float64        `json:"longitude"`
	Radius           float64        `json:"radius"`
	LocationName     string         `json:"location_name"`
	Priority         int            `json:"priority"`
}
