package api

import (
	"errors"
	"fmt"
	"net/http"

	"myloop/internal/models"
	"myloop/internal/scenario"
	"myloop/internal/store"

	"github.com/gin-gonic/gin"
)

type ContactHandler struct {
	contacts *store.ContactStore
	enroller *scenario.Enroller
}

func NewContactHandler(contacts *store.ContactStore, enroller *scenario.Enroller) *ContactHandler {
	return &ContactHandler{contacts: contacts, enroller: enroller}
}

func (h *ContactHandler) GetContacts(c *gin.Context) {
	contacts, err := h.contacts.List(c.Request.Context(), c.Query("owner"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	if contacts == nil {
		contacts = []models.Contact{}
	}
	c.JSON(http.StatusOK, contacts)
}

type CreateContactRequest struct {
	LineUserID string `json:"line_user_id" binding:"required"`
	Name       string `json:"name"`
	Email      string `json:"email"`
	Tags       string `json:"tags"`
	OwnerRef   string `json:"owner_ref"`
}

func (h *ContactHandler) CreateContact(c *gin.Context) {
	var req CreateContactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	contact := &models.Contact{
		LineUserID: req.LineUserID,
		Name:       req.Name,
		Email:      req.Email,
		Tags:       req.Tags,
		OwnerRef:   req.OwnerRef,
	}
	if err := h.contacts.Create(c.Request.Context(), contact); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create contact"})
		return
	}

	c.JSON(http.StatusCreated, contact)
}

type UpdateContactRequest struct {
	Name  string `json:"name"`
	Email string `json:"email"`
	Tags  string `json:"tags"`
}

func (h *ContactHandler) UpdateContact(c *gin.Context) {
	var req UpdateContactRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	err := h.contacts.UpdateProfile(c.Request.Context(), c.Param("id"), req.Name, req.Email, req.Tags)
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Contact not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update contact"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "Contact updated"})
}

func (h *ContactHandler) DeleteContact(c *gin.Context) {
	err := h.contacts.Delete(c.Request.Context(), c.Param("id"))
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Contact not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete contact"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "Contact deleted"})
}

type EnrollRequest struct {
	TriggerTag string `json:"trigger_tag" binding:"required"`
}

// EnrollContact manually triggers scenario enrollment for a contact.
func (h *ContactHandler) EnrollContact(c *gin.Context) {
	var req EnrollRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	err := h.enroller.Enroll(c.Request.Context(), c.Param("id"), req.TriggerTag)
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Contact not found"})
		return
	}
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to enroll contact: " + err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "Contact enrolled", "trigger_tag": req.TriggerTag})
}

func (h *ContactHandler) ExportContacts(c *gin.Context) {
	contacts, err := h.contacts.List(c.Request.Context(), c.Query("owner"))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	csv := "LINE User ID,Name,Email,Tags,Status,Created At\n"
	for _, contact := range contacts {
		csv += fmt.Sprintf("%s,%s,%s,%s,%s,%s\n",
			contact.LineUserID, contact.Name, contact.Email, contact.Tags,
			contact.Status, contact.CreatedAt.Format("2006-01-02 15:04:05"))
	}

	c.Header("Content-Type", "text/csv")
	c.Header("Content-Disposition", "attachment; filename=contacts.csv")
	c.String(http.StatusOK, csv)
}
