package api

import (
	"errors"
	"net/http"
	"time"

	"myloop/internal/models"
	"myloop/internal/store"

	"github.com/gin-gonic/gin"
)

type BookingHandler struct {
	bookings *store.BookingStore
}

func NewBookingHandler(bookings *store.BookingStore) *BookingHandler {
	return &BookingHandler{bookings: bookings}
}

func (h *BookingHandler) GetBookings(c *gin.Context) {
	bookings, err := h.bookings.List(c.Request.Context(), c.Query("owner"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if bookings == nil {
		bookings = []models.Booking{}
	}
	c.JSON(http.StatusOK, bookings)
}

type CreateBookingRequest struct {
	ContactID  string    `json:"contact_id" binding:"required"`
	OwnerRef   string    `json:"owner_ref"`
	Title      string    `json:"title" binding:"required"`
	Start      time.Time `json:"start" binding:"required"`
	End        time.Time `json:"end"`
	MeetingURL string    `json:"meeting_url"`
}

func (h *BookingHandler) CreateBooking(c *gin.Context) {
	var req CreateBookingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	booking := &models.Booking{
		ContactID:  req.ContactID,
		OwnerRef:   req.OwnerRef,
		Title:      req.Title,
		Start:      req.Start,
		End:        req.End,
		MeetingURL: req.MeetingURL,
	}
	if err := h.bookings.Create(c.Request.Context(), booking); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create booking"})
		return
	}

	c.JSON(http.StatusCreated, booking)
}

func (h *BookingHandler) CancelBooking(c *gin.Context) {
	err := h.bookings.SetStatus(c.Request.Context(), c.Param("id"), models.BookingCancelled)
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Booking not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to cancel booking"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "Booking cancelled"})
}
