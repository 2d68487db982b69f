package webhook

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"sync"

	"myloop/internal/config"
	"myloop/internal/models"
	"myloop/internal/scenario"
	"myloop/internal/store"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// Payload is the LINE webhook request body.
type Payload struct {
	Destination string  `json:"destination"`
	Events      []Event `json:"events"`
}

// Event is one platform event within a webhook batch.
type Event struct {
	Type       string       `json:"type"`
	Timestamp  int64        `json:"timestamp"`
	ReplyToken string       `json:"replyToken"`
	Source     EventSource  `json:"source"`
	Message    *EventWrapup `json:"message"`
}

type EventSource struct {
	Type   string `json:"type"`
	UserID string `json:"userId"`
}

type EventWrapup struct {
	ID   string `json:"id"`
	Type string `json:"type"`
	Text string `json:"text"`
}

// Handler processes LINE webhook batches. A batch is acknowledged with
// 200 once every event has been handled; individual event failures are
// logged, never surfaced to LINE.
type Handler struct {
	cfg      *config.Config
	contacts *store.ContactStore
	enroller *scenario.Enroller
	notifier scenario.Notifier
	log      zerolog.Logger
}

func NewHandler(cfg *config.Config, contacts *store.ContactStore, enroller *scenario.Enroller, logger zerolog.Logger) *Handler {
	return &Handler{
		cfg:      cfg,
		contacts: contacts,
		enroller: enroller,
		log:      logger.With().Str("component", "webhook").Logger(),
	}
}

// SetNotifier attaches an optional live-event sink.
func (h *Handler) SetNotifier(n scenario.Notifier) {
	h.notifier = n
}

// HandleEvents is the POST /webhook endpoint.
func (h *Handler) HandleEvents(c *gin.Context) {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil {
		c.Status(http.StatusBadRequest)
		return
	}

	// An empty channel secret (simulated deployments) disables
	// verification.
	if h.cfg.ChannelSecret != "" {
		signature := c.GetHeader("X-Line-Signature")
		if !ValidSignature(h.cfg.ChannelSecret, body, signature) {
			h.log.Warn().Msg("webhook signature mismatch")
			c.Status(http.StatusForbidden)
			return
		}
	}

	var payload Payload
	if err := json.Unmarshal(body, &payload); err != nil {
		h.log.Error().Err(err).Msg("malformed webhook payload")
		c.Status(http.StatusBadRequest)
		return
	}

	ctx := c.Request.Context()
	var wg sync.WaitGroup
	for i := range payload.Events {
		event := payload.Events[i]
		wg.Add(1)
		go func() {
			defer wg.Done()
			h.handleEvent(ctx, &event)
		}()
	}
	wg.Wait()

	c.Status(http.StatusOK)
}

func (h *Handler) handleEvent(ctx context.Context, event *Event) {
	switch event.Type {
	case "follow":
		h.handleFollow(ctx, event)
	case "unfollow":
		h.handleUnfollow(ctx, event)
	case "message":
		h.handleMessage(event)
	default:
		h.log.Debug().Str("type", event.Type).Msg("unhandled event type")
	}
}

// handleFollow upserts the contact. Enrollment fires only on creation;
// a re-follow just reactivates the existing contact.
func (h *Handler) handleFollow(ctx context.Context, event *Event) {
	userID := event.Source.UserID
	if userID == "" {
		return
	}

	contact, err := h.contacts.GetByLineUserID(ctx, userID)
	if err != nil && !errors.Is(err, store.ErrNotFound) {
		h.log.Error().Err(err).Str("line_user", userID).Msg("lookup contact")
		return
	}

	if contact != nil {
		if err := h.contacts.SetStatus(ctx, contact.ID, models.ContactActive); err != nil {
			h.log.Error().Err(err).Str("contact", contact.ID).Msg("reactivate contact")
			return
		}
		h.log.Info().Str("contact", contact.ID).Msg("contact reactivated")
		h.notify("contact_reactivated", contact.ID)
		return
	}

	created := &models.Contact{
		LineUserID: userID,
		Tags:       scenario.DefaultTriggerTag,
		Status:     models.ContactActive,
	}
	if err := h.contacts.Create(ctx, created); err != nil {
		h.log.Error().Err(err).Str("line_user", userID).Msg("create contact")
		return
	}
	h.log.Info().Str("contact", created.ID).Msg("new contact created")
	h.notify("contact_created", created.ID)

	if err := h.enroller.Enroll(ctx, created.ID, scenario.DefaultTriggerTag); err != nil {
		h.log.Error().Err(err).Str("contact", created.ID).Msg("trigger scenarios")
	}
}

// handleUnfollow deactivates the contact; an unknown contact is a no-op.
func (h *Handler) handleUnfollow(ctx context.Context, event *Event) {
	userID := event.Source.UserID
	if userID == "" {
		return
	}

	contact, err := h.contacts.GetByLineUserID(ctx, userID)
	if errors.Is(err, store.ErrNotFound) {
		return
	}
	if err != nil {
		h.log.Error().Err(err).Str("line_user", userID).Msg("lookup contact")
		return
	}

	if err := h.contacts.SetStatus(ctx, contact.ID, models.ContactInactive); err != nil {
		h.log.Error().Err(err).Str("contact", contact.ID).Msg("deactivate contact")
		return
	}
	h.log.Info().Str("contact", contact.ID).Msg("contact deactivated")
	h.notify("contact_deactivated", contact.ID)
}

// handleMessage is reception-only for now. Keyword-triggered enrollment
// will hook in here once keyword rules exist in the scenario editor.
func (h *Handler) handleMessage(event *Event) {
	if event.Message == nil {
		return
	}
	h.log.Info().
		Str("line_user", event.Source.UserID).
		Str("type", event.Message.Type).
		Msg("message received")
	h.notify("message_received", event.Source.UserID)
}

func (h *Handler) notify(kind string, payload interface{}) {
	if h.notifier != nil {
		h.notifier.Notify(kind, payload)
	}
}
