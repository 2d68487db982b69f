package store

import (
	"context"
	"errors"
	"time"

	"myloop/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// ErrNotFound is returned when a looked-up record does not exist.
var ErrNotFound = errors.New("record not found")

// ContactStore reads and writes the contact directory.
type ContactStore struct {
	db *gorm.DB
}

func NewContactStore(db *gorm.DB) *ContactStore {
	return &ContactStore{db: db}
}

func (s *ContactStore) GetByID(ctx context.Context, id string) (*models.Contact, error) {
	var contact models.Contact
	err := s.db.WithContext(ctx).First(&contact, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &contact, nil
}

func (s *ContactStore) GetByLineUserID(ctx context.Context, lineUserID string) (*models.Contact, error) {
	var contact models.Contact
	err := s.db.WithContext(ctx).First(&contact, "line_user_id = ?", lineUserID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &contact, nil
}

func (s *ContactStore) Create(ctx context.Context, contact *models.Contact) error {
	if contact.ID == "" {
		contact.ID = uuid.NewString()
	}
	if contact.Status == "" {
		contact.Status = models.ContactActive
	}
	return s.db.WithContext(ctx).Create(contact).Error
}

// SetStatus updates only the lifecycle status column. Other fields are
// owned by the dashboard UI and must not be clobbered.
func (s *ContactStore) SetStatus(ctx context.Context, id, status string) error {
	res := s.db.WithContext(ctx).Model(&models.Contact{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{"status": status, "updated_at": time.Now()})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

// UpdateProfile updates only the editable profile columns.
func (s *ContactStore) UpdateProfile(ctx context.Context, id, name, email, tags string) error {
	res := s.db.WithContext(ctx).Model(&models.Contact{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{"name": name, "email": email, "tags": tags, "updated_at": time.Now()})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *ContactStore) List(ctx context.Context, ownerRef string) ([]models.Contact, error) {
	q := s.db.WithContext(ctx).Order("created_at DESC")
	if ownerRef != "" {
		q = q.Where("owner_ref = ?", ownerRef)
	}
	var contacts []models.Contact
	if err := q.Find(&contacts).Error; err != nil {
		return nil, err
	}
	return contacts, nil
}

func (s *ContactStore) Delete(ctx context.Context, id string) error {
	res := s.db.WithContext(ctx).Delete(&models.Contact{}, "id = ?", id)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrNotFound
	}
	return nil
}
