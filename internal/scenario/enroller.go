package scenario

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"myloop/internal/models"
	"myloop/internal/store"

	"github.com/rs/zerolog"
)

// DefaultTriggerTag is applied when a contact is created from a LINE
// follow event.
const DefaultTriggerTag = "signup"

// Enroller materializes queue entries for every active scenario matching
// a trigger tag. Enrollment is deliberately not deduplicated: triggering
// the same tag twice schedules every step twice (re-engagement flows rely
// on this).
type Enroller struct {
	contacts  *store.ContactStore
	scenarios *store.ScenarioStore
	queue     *store.QueueStore
	log       zerolog.Logger
	now       func() time.Time
}

func NewEnroller(contacts *store.ContactStore, scenarios *store.ScenarioStore, queue *store.QueueStore, logger zerolog.Logger) *Enroller {
	return &Enroller{
		contacts:  contacts,
		scenarios: scenarios,
		queue:     queue,
		log:       logger.With().Str("component", "enroller").Logger(),
		now:       time.Now,
	}
}

// Enroll schedules every step of every active scenario whose trigger tag
// matches. A tag with no matching scenario is a no-op, not an error.
// Store failures propagate so the caller never silently enrolls nothing.
func (e *Enroller) Enroll(ctx context.Context, contactID, triggerTag string) error {
	contact, err := e.contacts.GetByID(ctx, contactID)
	if err != nil {
		return fmt.Errorf("resolve contact %s: %w", contactID, err)
	}

	scenarios, err := e.scenarios.ListActiveByTrigger(ctx, triggerTag, contact.OwnerRef)
	if err != nil {
		return fmt.Errorf("list scenarios for tag %q: %w", triggerTag, err)
	}
	if len(scenarios) == 0 {
		e.log.Debug().Str("tag", triggerTag).Msg("no active scenarios for tag")
		return nil
	}

	enrolledAt := e.now()
	var entries []models.QueueEntry
	for _, sc := range scenarios {
		for _, step := range sc.Steps {
			scheduledAt, err := stepSchedule(enrolledAt, step.OffsetDays, step.SendTime)
			if err != nil {
				e.log.Error().Err(err).
					Str("scenario", sc.ID).
					Int("position", step.Position).
					Msg("skipping malformed step")
				continue
			}
			entries = append(entries, models.QueueEntry{
				ContactID:   contact.ID,
				ScenarioID:  sc.ID,
				Body:        step.Body,
				OwnerRef:    contact.OwnerRef,
				ScheduledAt: scheduledAt,
				Status:      models.QueuePending,
			})
		}
		e.log.Info().Str("scenario", sc.ID).Str("contact", contact.ID).Msg("scenario triggered")
	}

	if err := e.queue.Enqueue(ctx, entries); err != nil {
		return fmt.Errorf("enqueue %d entries: %w", len(entries), err)
	}
	return nil
}

// stepSchedule computes the absolute send time for a step: the enrollment
// day plus the day offset, at the step's wall-clock time in the
// enrollment's location.
func stepSchedule(enrolledAt time.Time, offsetDays int, sendTime string) (time.Time, error) {
	if offsetDays < 0 {
		return time.Time{}, fmt.Errorf("negative day offset %d", offsetDays)
	}
	hour, minute, err := parseSendTime(sendTime)
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(
		enrolledAt.Year(), enrolledAt.Month(), enrolledAt.Day()+offsetDays,
		hour, minute, 0, 0, enrolledAt.Location(),
	), nil
}

func parseSendTime(s string) (int, int, error) {
	parts := strings.Split(s, ":")
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("malformed send time %q", s)
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return 0, 0, fmt.Errorf("malformed send time %q", s)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return 0, 0, fmt.Errorf("malformed send time %q", s)
	}
	return hour, minute, nil
}
