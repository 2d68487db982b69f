package scenario

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"myloop/internal/line"
	"myloop/internal/models"
	"myloop/internal/store"

	"github.com/rs/zerolog"
)

// DefaultBatchSize caps how many due entries one dispatcher run handles.
const DefaultBatchSize = 100

// Notifier receives dispatch events for live dashboards. Implementations
// must not block.
type Notifier interface {
	Notify(kind string, payload interface{})
}

// Dispatcher delivers due queue entries. One run reads a bounded batch of
// pending entries whose time has come, processes them concurrently, and
// transitions each to a terminal status. Per-entry problems never abort
// the batch; only a failure to read the queue itself propagates.
type Dispatcher struct {
	queue     *store.QueueStore
	contacts  *store.ContactStore
	audits    *store.AuditStore
	sender    line.Sender
	notifier  Notifier
	batchSize int
	log       zerolog.Logger
	now       func() time.Time
}

func NewDispatcher(queue *store.QueueStore, contacts *store.ContactStore, audits *store.AuditStore, sender line.Sender, logger zerolog.Logger) *Dispatcher {
	return &Dispatcher{
		queue:     queue,
		contacts:  contacts,
		audits:    audits,
		sender:    sender,
		batchSize: DefaultBatchSize,
		log:       logger.With().Str("component", "dispatcher").Logger(),
		now:       time.Now,
	}
}

// SetNotifier attaches an optional live-event sink.
func (d *Dispatcher) SetNotifier(n Notifier) {
	d.notifier = n
}

// Run executes one dispatch pass.
func (d *Dispatcher) Run(ctx context.Context) error {
	now := d.now()
	entries, err := d.queue.ListDue(ctx, now, d.batchSize)
	if err != nil {
		return fmt.Errorf("list due queue entries: %w", err)
	}
	if len(entries) == 0 {
		d.log.Debug().Msg("no pending messages to send")
		return nil
	}

	d.log.Info().Int("count", len(entries)).Msg("processing pending messages")

	var sent, skipped, failed atomic.Int64
	var wg sync.WaitGroup
	for i := range entries {
		entry := entries[i]
		wg.Add(1)
		go func() {
			defer wg.Done()
			switch d.processEntry(ctx, &entry) {
			case models.QueueSent:
				sent.Add(1)
			case models.QueueSkipped:
				skipped.Add(1)
			case models.QueueFailed:
				failed.Add(1)
			}
		}()
	}
	wg.Wait()

	d.log.Info().
		Int64("sent", sent.Load()).
		Int64("skipped", skipped.Load()).
		Int64("failed", failed.Load()).
		Msg("dispatcher run completed")
	return nil
}

// processEntry drives one entry to a terminal status and returns that
// status, or "" when the entry was left pending (transient error or lost
// race).
func (d *Dispatcher) processEntry(ctx context.Context, entry *models.QueueEntry) string {
	contact, err := d.contacts.GetByID(ctx, entry.ContactID)
	if errors.Is(err, store.ErrNotFound) {
		d.log.Error().Str("entry", entry.ID).Str("contact", entry.ContactID).Msg("contact not found")
		ok, err := d.queue.MarkFailed(ctx, entry.ID, "contact not found")
		d.logOutcome(entry.ID, models.QueueFailed, ok, err)
		return models.QueueFailed
	}
	if err != nil {
		// Transient store error: leave the entry pending for the next run.
		d.log.Error().Err(err).Str("entry", entry.ID).Msg("resolve contact")
		return ""
	}

	if contact.Status != models.ContactActive {
		d.log.Info().Str("entry", entry.ID).Str("contact", contact.ID).Msg("skipping inactive contact")
		ok, err := d.queue.MarkSkipped(ctx, entry.ID, "contact is not "+models.ContactActive)
		d.logOutcome(entry.ID, models.QueueSkipped, ok, err)
		return models.QueueSkipped
	}

	text := Render(entry.Body, contact)

	// Re-check right before delivering: an overlapping run may have
	// already transitioned this entry.
	status, err := d.queue.GetStatus(ctx, entry.ID)
	if err != nil {
		d.log.Error().Err(err).Str("entry", entry.ID).Msg("re-read entry status")
		return ""
	}
	if status != models.QueuePending {
		d.log.Warn().Str("entry", entry.ID).Str("status", status).Msg("entry already transitioned, skipping delivery")
		return ""
	}

	sendErr := d.sender.Push(ctx, contact.LineUserID, text)
	d.audit(ctx, entry, contact, text, sendErr)

	if sendErr != nil {
		d.log.Error().Err(sendErr).Str("entry", entry.ID).Msg("failed to send message")
		ok, err := d.queue.MarkFailed(ctx, entry.ID, sendErr.Error())
		d.logOutcome(entry.ID, models.QueueFailed, ok, err)
		d.notify("message_failed", entry.ID)
		return models.QueueFailed
	}

	sentAt := d.now()
	ok, err := d.queue.MarkSent(ctx, entry.ID, sentAt)
	if err != nil {
		d.log.Error().Err(err).Str("entry", entry.ID).Msg("mark sent")
		return ""
	}
	if !ok {
		d.log.Warn().Str("entry", entry.ID).Msg("lost status race after delivery")
		return ""
	}
	d.log.Info().Str("entry", entry.ID).Str("contact", contact.ID).Msg("message sent")
	d.notify("message_sent", entry.ID)
	return models.QueueSent
}

// logOutcome reports a failed terminal write or a lost status race.
func (d *Dispatcher) logOutcome(id, status string, ok bool, err error) {
	if err != nil {
		d.log.Error().Err(err).Str("entry", id).Str("status", status).Msg("transition entry")
		return
	}
	if !ok {
		d.log.Warn().Str("entry", id).Str("status", status).Msg("entry already transitioned by another run")
	}
}

func (d *Dispatcher) audit(ctx context.Context, entry *models.QueueEntry, contact *models.Contact, text string, sendErr error) {
	record := &models.AuditLog{
		Action:     "message_sent",
		Resource:   "line",
		ResourceID: contact.LineUserID,
		OwnerRef:   entry.OwnerRef,
		Preview:    text,
		Success:    sendErr == nil,
	}
	if sendErr != nil {
		record.Action = "message_failed"
		record.Error = sendErr.Error()
	}
	if err := d.audits.Record(ctx, record); err != nil {
		d.log.Error().Err(err).Str("entry", entry.ID).Msg("write audit record")
	}
}

func (d *Dispatcher) notify(kind string, payload interface{}) {
	if d.notifier != nil {
		d.notifier.Notify(kind, payload)
	}
}
