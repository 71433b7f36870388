package repository

import (
	"context"
	"time"

	"github.com/AzielCF/az-remind/reminder/domain"
	"gorm.io/gorm"
)

// historyModel is the persistence model for GORM. It keeps the domain
// struct free of GORM tags.
type historyModel struct {
	ID         uint       `gorm:"primaryKey;autoIncrement"`
	ReminderID string     `gorm:"column:reminder_id;index;not null"`
	Type       string     `gorm:"not null"`
	OccurredAt time.Time  `gorm:"column:occurred_at;not null"`
	NextAt     *time.Time `gorm:"column:next_at"`
	FiredAt    time.Time  `gorm:"column:fired_at;not null"`
}

func (historyModel) TableName() string {
	return "reminder_history"
}

// HistoryGormRepository implements IHistoryRepository using GORM. History
// rows outlive their reminder on purpose; they are the delivery audit trail.
type HistoryGormRepository struct {
	db *gorm.DB
}

func NewHistoryGormRepository(db *gorm.DB) *HistoryGormRepository {
	return &HistoryGormRepository{db: db}
}

// Init initializes the schema using AutoMigrate.
func (r *HistoryGormRepository) Init(ctx context.Context) error {
	return r.db.WithContext(ctx).AutoMigrate(&historyModel{})
}

func (r *HistoryGormRepository) Record(ctx context.Context, entry domain.HistoryEntry) error {
	model := historyModel{
		ReminderID: entry.ReminderID,
		Type:       string(entry.Type),
		OccurredAt: entry.OccurredAt,
		NextAt:     entry.NextAt,
		FiredAt:    entry.FiredAt,
	}
	return r.db.WithContext(ctx).Create(&model).Error
}

func (r *HistoryGormRepository) ListByReminder(ctx context.Context, reminderID string) ([]domain.HistoryEntry, error) {
	var models []historyModel
	err := r.db.WithContext(ctx).
		Where("reminder_id = ?", reminderID).
		Order("fired_at DESC").
		Find(&models).Error
	if err != nil {
		return nil, err
	}

	entries := make([]domain.HistoryEntry, len(models))
	for i, m := range models {
		entries[i] = domain.HistoryEntry{
			ID:         m.ID,
			ReminderID: m.ReminderID,
			Type:       domain.Type(m.Type),
			OccurredAt: m.OccurredAt,
			NextAt:     m.NextAt,
			FiredAt:    m.FiredAt,
		}
	}
	return entries, nil
}
