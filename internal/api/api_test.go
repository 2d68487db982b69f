package api

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"myloop/internal/database"
	"myloop/internal/models"
	"myloop/internal/scenario"
	"myloop/internal/store"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, database.Migrate(db))
	return db
}

type fixture struct {
	contacts  *store.ContactStore
	scenarios *store.ScenarioStore
	queue     *store.QueueStore
	bookings  *store.BookingStore
	audits    *store.AuditStore
	router    *gin.Engine
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db := newTestDB(t)
	f := &fixture{
		contacts:  store.NewContactStore(db),
		scenarios: store.NewScenarioStore(db),
		queue:     store.NewQueueStore(db),
		bookings:  store.NewBookingStore(db),
		audits:    store.NewAuditStore(db),
	}
	enroller := scenario.NewEnroller(f.contacts, f.scenarios, f.queue, zerolog.Nop())

	contactHandler := NewContactHandler(f.contacts, enroller)
	scenarioHandler := NewScenarioHandler(f.scenarios)
	bookingHandler := NewBookingHandler(f.bookings)
	dashboardHandler := NewDashboardHandler(f.queue, f.audits)

	r := gin.New()
	r.GET("/api/contacts", contactHandler.GetContacts)
	r.POST("/api/contacts", contactHandler.CreateContact)
	r.PUT("/api/contacts/:id", contactHandler.UpdateContact)
	r.DELETE("/api/contacts/:id", contactHandler.DeleteContact)
	r.POST("/api/contacts/:id/enroll", contactHandler.EnrollContact)
	r.GET("/api/contacts/export", contactHandler.ExportContacts)
	r.GET("/api/scenarios", scenarioHandler.GetScenarios)
	r.POST("/api/scenarios", scenarioHandler.CreateScenario)
	r.GET("/api/scenarios/:id", scenarioHandler.GetScenario)
	r.PUT("/api/scenarios/:id", scenarioHandler.UpdateScenario)
	r.POST("/api/scenarios/:id/toggle", scenarioHandler.ToggleScenario)
	r.DELETE("/api/scenarios/:id", scenarioHandler.DeleteScenario)
	r.GET("/api/bookings", bookingHandler.GetBookings)
	r.POST("/api/bookings", bookingHandler.CreateBooking)
	r.POST("/api/bookings/:id/cancel", bookingHandler.CancelBooking)
	r.GET("/api/queue", dashboardHandler.GetQueue)
	r.GET("/api/queue/stats", dashboardHandler.GetQueueStats)
	r.GET("/api/audit", dashboardHandler.GetAuditLogs)
	f.router = r
	return f
}

func (f *fixture) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func TestContactCRUD(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodPost, "/api/contacts", gin.H{
		"line_user_id": "U1", "name": "Alice", "email": "a@example.com",
	})
	require.Equal(t, http.StatusCreated, w.Code)
	var created models.Contact
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	require.NotEmpty(t, created.ID)

	w = f.do(t, http.MethodPut, "/api/contacts/"+created.ID, gin.H{
		"name": "Alice B", "email": "a@example.com", "tags": "vip",
	})
	assert.Equal(t, http.StatusOK, w.Code)

	w = f.do(t, http.MethodGet, "/api/contacts", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var contacts []models.Contact
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &contacts))
	require.Len(t, contacts, 1)
	assert.Equal(t, "Alice B", contacts[0].Name)

	w = f.do(t, http.MethodDelete, "/api/contacts/"+created.ID, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w = f.do(t, http.MethodDelete, "/api/contacts/"+created.ID, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestContactExportCSV(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.contacts.Create(context.Background(), &models.Contact{
		LineUserID: "U1", Name: "Alice",
	}))

	w := f.do(t, http.MethodGet, "/api/contacts/export", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "text/csv", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Body.String(), "LINE User ID,Name,Email,Tags,Status,Created At")
	assert.Contains(t, w.Body.String(), "U1,Alice")
}

func TestManualEnrollment(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	contact := &models.Contact{LineUserID: "U1"}
	require.NoError(t, f.contacts.Create(ctx, contact))
	require.NoError(t, f.scenarios.Create(ctx, &models.Scenario{
		Name: "Webinar", Active: true, TriggerTag: "webinar",
		Steps: []models.ScenarioStep{{OffsetDays: 0, SendTime: "10:00", Body: "see you"}},
	}))

	w := f.do(t, http.MethodPost, "/api/contacts/"+contact.ID+"/enroll", gin.H{"trigger_tag": "webinar"})
	require.Equal(t, http.StatusOK, w.Code)

	entries, err := f.queue.List(ctx, "", 10)
	require.NoError(t, err)
	assert.Len(t, entries, 1)

	w = f.do(t, http.MethodPost, "/api/contacts/missing/enroll", gin.H{"trigger_tag": "webinar"})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestScenarioCRUDAndToggle(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodPost, "/api/scenarios", gin.H{
		"name": "Welcome", "active": true, "trigger_tag": "signup",
		"steps": []gin.H{
			{"offset_days": 0, "send_time": "10:00", "body": "hi {{name}}"},
			{"offset_days": 1, "send_time": "09:00", "body": "day two"},
		},
	})
	require.Equal(t, http.StatusCreated, w.Code)
	var created models.Scenario
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	require.Len(t, created.Steps, 2)

	w = f.do(t, http.MethodPost, "/api/scenarios/"+created.ID+"/toggle", gin.H{"active": false})
	assert.Equal(t, http.StatusOK, w.Code)

	w = f.do(t, http.MethodGet, "/api/scenarios/"+created.ID, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var got models.Scenario
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.False(t, got.Active)

	w = f.do(t, http.MethodPut, "/api/scenarios/"+created.ID, gin.H{
		"name": "Welcome v2", "active": true, "trigger_tag": "signup",
		"steps": []gin.H{{"offset_days": 3, "send_time": "12:00", "body": "check in"}},
	})
	assert.Equal(t, http.StatusOK, w.Code)

	w = f.do(t, http.MethodGet, "/api/scenarios/"+created.ID, nil)
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	assert.Equal(t, "Welcome v2", got.Name)
	require.Len(t, got.Steps, 1)

	w = f.do(t, http.MethodDelete, "/api/scenarios/"+created.ID, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestBookingLifecycle(t *testing.T) {
	f := newFixture(t)

	start := time.Now().Add(48 * time.Hour).UTC().Truncate(time.Second)
	w := f.do(t, http.MethodPost, "/api/bookings", gin.H{
		"contact_id": "c1", "title": "Demo", "start": start,
		"meeting_url": "https://example.com/meet",
	})
	require.Equal(t, http.StatusCreated, w.Code)
	var created models.Booking
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &created))
	assert.Equal(t, models.BookingScheduled, created.Status)

	w = f.do(t, http.MethodPost, "/api/bookings/"+created.ID+"/cancel", nil)
	assert.Equal(t, http.StatusOK, w.Code)

	got, err := f.bookings.Get(context.Background(), created.ID)
	require.NoError(t, err)
	assert.Equal(t, models.BookingCancelled, got.Status)
}

func TestQueueInspection(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	entries := []models.QueueEntry{
		{ContactID: "c1", ScheduledAt: time.Now()},
		{ContactID: "c2", ScheduledAt: time.Now(), Status: models.QueueSent},
	}
	require.NoError(t, f.queue.Enqueue(ctx, entries))

	w := f.do(t, http.MethodGet, "/api/queue?status=pending", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var got []models.QueueEntry
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &got))
	require.Len(t, got, 1)
	assert.Equal(t, "c1", got[0].ContactID)

	w = f.do(t, http.MethodGet, "/api/queue/stats", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var stats map[string]int64
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &stats))
	assert.Equal(t, int64(1), stats[models.QueuePending])
	assert.Equal(t, int64(1), stats[models.QueueSent])
}

func TestAuditFeed(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.audits.Record(context.Background(), &models.AuditLog{
		Action: "message_sent", Resource: "line", ResourceID: "U1", Preview: "hi", Success: true,
	}))

	w := f.do(t, http.MethodGet, "/api/audit", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var records []models.AuditLog
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &records))
	require.Len(t, records, 1)
	assert.Equal(t, "message_sent", records[0].Action)
}
