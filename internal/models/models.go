package models

import (
	"time"
)

// Contact lifecycle statuses. A contact holds exactly one at a time.
const (
	ContactActive       = "active"
	ContactInactive     = "inactive"
	ContactUnsubscribed = "unsubscribed"
)

// Queue entry statuses. Transitions out of pending are one-way terminal.
const (
	QueuePending = "pending"
	QueueSent    = "sent"
	QueueSkipped = "skipped"
	QueueFailed  = "failed"
)

// Booking statuses.
const (
	BookingScheduled = "scheduled"
	BookingCompleted = "completed"
	BookingCancelled = "cancelled"
	BookingNoShow    = "no_show"
)

// Contact represents a LINE contact captured from a follow event or a
// landing page form.
type Contact struct {
	ID         string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	LineUserID string    `gorm:"uniqueIndex;type:varchar(64);not null" json:"line_user_id"`
	Name       string    `gorm:"type:varchar(255)" json:"name"`
	Email      string    `gorm:"type:varchar(255)" json:"email"`
	Tags       string    `gorm:"type:text" json:"tags"` // comma separated tags
	Status     string    `gorm:"type:varchar(20);default:'active';index" json:"status"`
	OwnerRef   string    `gorm:"type:varchar(64);index" json:"owner_ref"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Contact) TableName() string {
	return "contacts"
}

// Scenario represents a drip campaign: an ordered list of steps started by
// a trigger tag.
type Scenario struct {
	ID         string         `gorm:"primaryKey;type:varchar(36)" json:"id"`
	Name       string         `gorm:"type:varchar(255);not null" json:"name"`
	OwnerRef   string         `gorm:"type:varchar(64);index" json:"owner_ref"`
	Active     bool           `json:"active"`
	TriggerTag string         `gorm:"type:varchar(255);index" json:"trigger_tag"`
	Steps      []ScenarioStep `gorm:"foreignKey:ScenarioID;constraint:OnDelete:CASCADE;" json:"steps"`
	CreatedAt  time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Scenario) TableName() string {
	return "scenarios"
}

// ScenarioStep is one timed message within a scenario. OffsetDays counts
// from the enrollment day; SendTime is wall-clock "HH:mm".
type ScenarioStep struct {
	ID         uint   `gorm:"primaryKey" json:"id"`
	ScenarioID string `gorm:"index;type:varchar(36);not null" json:"scenario_id"`
	Position   int    `gorm:"not null" json:"position"`
	OffsetDays int    `gorm:"not null" json:"offset_days"`
	SendTime   string `gorm:"type:varchar(5);not null" json:"send_time"`
	Body       string `gorm:"type:text" json:"body"`
}

func (ScenarioStep) TableName() string {
	return "scenario_steps"
}

// QueueEntry is one scheduled send materialized from a scenario step at
// enrollment time.
type QueueEntry struct {
	ID          string     `gorm:"primaryKey;type:varchar(36)" json:"id"`
	ContactID   string     `gorm:"index;type:varchar(36);not null" json:"contact_id"`
	ScenarioID  string     `gorm:"index;type:varchar(36)" json:"scenario_id"`
	Body        string     `gorm:"type:text" json:"body"`
	OwnerRef    string     `gorm:"type:varchar(64);index" json:"owner_ref"`
	ScheduledAt time.Time  `gorm:"not null;index" json:"scheduled_at"`
	Status      string     `gorm:"type:varchar(20);default:'pending';index" json:"status"`
	Error       string     `gorm:"type:text" json:"error"`
	SentAt      *time.Time `json:"sent_at"`
	CreatedAt   time.Time  `gorm:"autoCreateTime" json:"created_at"`
}

func (QueueEntry) TableName() string {
	return "message_queue"
}

// Booking represents a scheduled appointment with a contact. The two
// reminder flags flip false->true at most once and independently.
type Booking struct {
	ID                  string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	OwnerRef            string    `gorm:"type:varchar(64);index" json:"owner_ref"`
	ContactID           string    `gorm:"index;type:varchar(36)" json:"contact_id"`
	Title               string    `gorm:"type:varchar(255)" json:"title"`
	Start               time.Time `gorm:"not null;index" json:"start"`
	End                 time.Time `json:"end"`
	MeetingURL          string    `gorm:"type:text" json:"meeting_url"`
	Status              string    `gorm:"type:varchar(20);default:'scheduled';index" json:"status"`
	ReminderSent        bool      `gorm:"default:false" json:"reminder_sent"`
	SameDayReminderSent bool      `gorm:"default:false" json:"same_day_reminder_sent"`
	CreatedAt           time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt           time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Booking) TableName() string {
	return "bookings"
}

// AuditLog is an append-only record of a delivery attempt.
type AuditLog struct {
	ID         string    `gorm:"primaryKey;type:varchar(36)" json:"id"`
	Action     string    `gorm:"type:varchar(50);not null" json:"action"`
	Resource   string    `gorm:"type:varchar(50)" json:"resource"`
	ResourceID string    `gorm:"type:varchar(64);index" json:"resource_id"`
	OwnerRef   string    `gorm:"type:varchar(64);index" json:"owner_ref"`
	Preview    string    `gorm:"type:text" json:"preview"`
	Success    bool      `json:"success"`
	Error      string    `gorm:"type:text" json:"error"`
	CreatedAt  time.Time `gorm:"autoCreateTime" json:"created_at"`
}

func (AuditLog) TableName() string {
	return "audit_logs"
}
