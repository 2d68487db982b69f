package booking

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"myloop/internal/line"
	"myloop/internal/models"
	"myloop/internal/store"

	"github.com/rs/zerolog"
)

// Reminder windows relative to the scan instant. Both are two hours wide
// so a missed hourly run cannot permanently skip a booking, and they are
// disjoint so one run never sends both reminders for the same booking.
const (
	dayBeforeFrom = 23 * time.Hour
	dayBeforeTo   = 25 * time.Hour
	sameDayFrom   = 2 * time.Hour
	sameDayTo     = 4 * time.Hour
)

// Scanner sends one-time booking reminders. It runs hourly, independently
// of the message dispatcher.
type Scanner struct {
	bookings *store.BookingStore
	contacts *store.ContactStore
	sender   line.Sender
	log      zerolog.Logger
	now      func() time.Time
}

func NewScanner(bookings *store.BookingStore, contacts *store.ContactStore, sender line.Sender, logger zerolog.Logger) *Scanner {
	return &Scanner{
		bookings: bookings,
		contacts: contacts,
		sender:   sender,
		log:      logger.With().Str("component", "booking-reminder").Logger(),
		now:      time.Now,
	}
}

// Run executes one scan pass over both reminder windows.
func (s *Scanner) Run(ctx context.Context) error {
	now := s.now()

	if err := s.remind(ctx, now.Add(dayBeforeFrom), now.Add(dayBeforeTo), store.ReminderDayBefore, "Your booking is tomorrow."); err != nil {
		return err
	}
	if err := s.remind(ctx, now.Add(sameDayFrom), now.Add(sameDayTo), store.ReminderSameDay, "Your booking is today."); err != nil {
		return err
	}

	s.log.Debug().Msg("reminder scan completed")
	return nil
}

// remind processes one lookahead window. Per-booking failures are logged
// and leave the flag unset so the next run retries; only the window query
// itself propagates an error.
func (s *Scanner) remind(ctx context.Context, from, to time.Time, flag, prefix string) error {
	bookings, err := s.bookings.ListScheduledBetween(ctx, from, to)
	if err != nil {
		return fmt.Errorf("list bookings in window: %w", err)
	}
	if len(bookings) == 0 {
		s.log.Debug().Str("flag", flag).Msg("no bookings in window")
		return nil
	}

	s.log.Info().Int("count", len(bookings)).Str("flag", flag).Msg("processing reminders")

	var wg sync.WaitGroup
	for i := range bookings {
		b := bookings[i]
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.remindOne(ctx, &b, flag, prefix)
		}()
	}
	wg.Wait()
	return nil
}

func (s *Scanner) remindOne(ctx context.Context, b *models.Booking, flag, prefix string) {
	if alreadySent(b, flag) {
		s.log.Debug().Str("booking", b.ID).Str("flag", flag).Msg("reminder already sent")
		return
	}
	if b.ContactID == "" {
		s.log.Warn().Str("booking", b.ID).Msg("booking has no contact")
		return
	}

	contact, err := s.contacts.GetByID(ctx, b.ContactID)
	if errors.Is(err, store.ErrNotFound) {
		s.log.Error().Str("booking", b.ID).Str("contact", b.ContactID).Msg("contact not found")
		return
	}
	if err != nil {
		s.log.Error().Err(err).Str("booking", b.ID).Msg("resolve contact")
		return
	}

	if err := s.sender.Push(ctx, contact.LineUserID, composeMessage(b, prefix)); err != nil {
		// Flag stays false so a later run retries this reminder.
		s.log.Error().Err(err).Str("booking", b.ID).Msg("send reminder")
		return
	}

	ok, err := s.bookings.MarkReminderSent(ctx, b.ID, flag)
	if err != nil {
		s.log.Error().Err(err).Str("booking", b.ID).Msg("mark reminder sent")
		return
	}
	if !ok {
		s.log.Warn().Str("booking", b.ID).Str("flag", flag).Msg("reminder flag already set by another run")
		return
	}
	s.log.Info().Str("booking", b.ID).Str("flag", flag).Msg("reminder sent")
}

func alreadySent(b *models.Booking, flag string) bool {
	if flag == store.ReminderDayBefore {
		return b.ReminderSent
	}
	return b.SameDayReminderSent
}

// composeMessage builds the reminder text with the booking title, the
// local start time, and the meeting link when one exists.
func composeMessage(b *models.Booking, prefix string) string {
	var sb strings.Builder
	sb.WriteString(prefix)
	sb.WriteString("\n\n[")
	sb.WriteString(b.Title)
	sb.WriteString("]\nTime: ")
	sb.WriteString(b.Start.Local().Format("2006-01-02 15:04"))
	if b.MeetingURL != "" {
		sb.WriteString("\nMeeting URL:\n")
		sb.WriteString(b.MeetingURL)
	}
	return sb.String()
}
