package store

import (
	"context"

	"myloop/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// previewLimit bounds how much message content an audit record keeps.
const previewLimit = 100

// AuditStore appends delivery-attempt records. Records are never updated
// or deleted by the core.
type AuditStore struct {
	db *gorm.DB
}

func NewAuditStore(db *gorm.DB) *AuditStore {
	return &AuditStore{db: db}
}

// Record appends one audit entry, truncating the content preview.
func (s *AuditStore) Record(ctx context.Context, entry *models.AuditLog) error {
	if entry.ID == "" {
		entry.ID = uuid.NewString()
	}
	entry.Preview = truncateRunes(entry.Preview, previewLimit)
	return s.db.WithContext(ctx).Create(entry).Error
}

func (s *AuditStore) Recent(ctx context.Context, limit int) ([]models.AuditLog, error) {
	var records []models.AuditLog
	err := s.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(limit).
		Find(&records).Error
	if err != nil {
		return nil, err
	}
	return records, nil
}

// truncateRunes cuts s to at most n runes. Message bodies may contain
// multi-byte text, so byte slicing would corrupt the preview.
func truncateRunes(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n])
}
