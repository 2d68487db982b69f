package store

import (
	"context"
	"errors"
	"time"

	"myloop/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// QueueStore reads and writes the durable send queue.
type QueueStore struct {
	db *gorm.DB
}

func NewQueueStore(db *gorm.DB) *QueueStore {
	return &QueueStore{db: db}
}

// Enqueue persists a batch of new queue entries in one transaction.
func (s *QueueStore) Enqueue(ctx context.Context, entries []models.QueueEntry) error {
	if len(entries) == 0 {
		return nil
	}
	for i := range entries {
		if entries[i].ID == "" {
			entries[i].ID = uuid.NewString()
		}
		if entries[i].Status == "" {
			entries[i].Status = models.QueuePending
		}
	}
	return s.db.WithContext(ctx).Create(&entries).Error
}

// ListDue returns up to limit pending entries whose scheduled time has
// passed, oldest first.
func (s *QueueStore) ListDue(ctx context.Context, now time.Time, limit int) ([]models.QueueEntry, error) {
	var entries []models.QueueEntry
	err := s.db.WithContext(ctx).
		Where("status = ? AND scheduled_at <= ?", models.QueuePending, now).
		Order("scheduled_at ASC").
		Limit(limit).
		Find(&entries).Error
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// GetStatus re-reads the current status of an entry.
func (s *QueueStore) GetStatus(ctx context.Context, id string) (string, error) {
	var entry models.QueueEntry
	err := s.db.WithContext(ctx).Select("status").First(&entry, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", err
	}
	return entry.Status, nil
}

// Transition moves an entry out of pending with a conditional update.
// It returns false when the entry was already transitioned by another
// writer, which callers treat as losing the race, not as an error.
func (s *QueueStore) Transition(ctx context.Context, id, status, errText string, sentAt *time.Time) (bool, error) {
	updates := map[string]interface{}{"status": status}
	if errText != "" {
		updates["error"] = errText
	}
	if sentAt != nil {
		updates["sent_at"] = *sentAt
	}
	res := s.db.WithContext(ctx).Model(&models.QueueEntry{}).
		Where("id = ? AND status = ?", id, models.QueuePending).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (s *QueueStore) MarkSent(ctx context.Context, id string, at time.Time) (bool, error) {
	return s.Transition(ctx, id, models.QueueSent, "", &at)
}

func (s *QueueStore) MarkSkipped(ctx context.Context, id, reason string) (bool, error) {
	return s.Transition(ctx, id, models.QueueSkipped, reason, nil)
}

func (s *QueueStore) MarkFailed(ctx context.Context, id, reason string) (bool, error) {
	return s.Transition(ctx, id, models.QueueFailed, reason, nil)
}

// List returns recent entries, optionally filtered by status.
func (s *QueueStore) List(ctx context.Context, status string, limit int) ([]models.QueueEntry, error) {
	q := s.db.WithContext(ctx).Order("scheduled_at DESC").Limit(limit)
	if status != "" {
		q = q.Where("status = ?", status)
	}
	var entries []models.QueueEntry
	if err := q.Find(&entries).Error; err != nil {
		return nil, err
	}
	return entries, nil
}

// Stats returns entry counts grouped by status.
func (s *QueueStore) Stats(ctx context.Context) (map[string]int64, error) {
	type row struct {
		Status string
		Count  int64
	}
	var rows []row
	err := s.db.WithContext(ctx).Model(&models.QueueEntry{}).
		Select("status, COUNT(*) as count").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}
	stats := make(map[string]int64, len(rows))
	for _, r := range rows {
		stats[r.Status] = r.Count
	}
	return stats, nil
}
