package store

import (
	"context"
	"errors"
	"time"

	"myloop/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Reminder kinds map to the two independent sent flags on a booking.
const (
	ReminderDayBefore = "reminder_sent"
	ReminderSameDay   = "same_day_reminder_sent"
)

// BookingStore reads and writes bookings. Only the reminder flags are
// owned by the core; all other columns belong to the booking UI.
type BookingStore struct {
	db *gorm.DB
}

func NewBookingStore(db *gorm.DB) *BookingStore {
	return &BookingStore{db: db}
}

// ListScheduledBetween returns scheduled bookings starting inside
// [from, to].
func (s *BookingStore) ListScheduledBetween(ctx context.Context, from, to time.Time) ([]models.Booking, error) {
	var bookings []models.Booking
	err := s.db.WithContext(ctx).
		Where("status = ? AND start >= ? AND start <= ?", models.BookingScheduled, from, to).
		Order("start ASC").
		Find(&bookings).Error
	if err != nil {
		return nil, err
	}
	return bookings, nil
}

// MarkReminderSent flips one reminder flag false->true, touching only
// that column plus updated_at. Returns false when the flag was already
// set by another run.
func (s *BookingStore) MarkReminderSent(ctx context.Context, id, flag string) (bool, error) {
	if flag != ReminderDayBefore && flag != ReminderSameDay {
		return false, errors.New("unknown reminder flag: " + flag)
	}
	res := s.db.WithContext(ctx).Model(&models.Booking{}).
		Where("id = ? AND "+flag+" = ?", id, false).
		Updates(map[string]interface{}{flag: true, "updated_at": time.Now()})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

func (s *BookingStore) Get(ctx context.Context, id string) (*models.Booking, error) {
	var booking models.Booking
	err := s.db.WithContext(ctx).First(&booking, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &booking, nil
}

func (s *BookingStore) List(ctx context.Context, ownerRef string) ([]models.Booking, error) {
	q := s.db.WithContext(ctx).Order("start ASC")
	if ownerRef != "" {
		q = q.Where("owner_ref = ?", ownerRef)
	}
	var bookings []models.Booking
	if err := q.Find(&bookings).Error; err != nil {
		return nil, err
	}
	return bookings, nil
}

func (s *BookingStore) Create(ctx context.Context, booking *models.Booking) error {
	if booking.ID == "" {
		booking.ID = uuid.NewString()
	}
	if booking.Status == "" {
		booking.Status = models.BookingScheduled
	}
	return s.db.WithContext(ctx).Create(booking).Error
}

// SetStatus updates only the booking status column.
func (s *BookingStore) SetStatus(ctx context.Context, id, status string) error {
	res := s.db.WithContext(ctx).Model(&models.Booking{}).
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
