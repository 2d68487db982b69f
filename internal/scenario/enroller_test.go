package scenario

import (
	"context"
	"fmt"
	"testing"
	"time"

	"myloop/internal/database"
	"myloop/internal/models"
	"myloop/internal/store"

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
	db        *gorm.DB
	contacts  *store.ContactStore
	scenarios *store.ScenarioStore
	queue     *store.QueueStore
	audits    *store.AuditStore
	enroller  *Enroller
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := newTestDB(t)
	f := &fixture{
		db:        db,
		contacts:  store.NewContactStore(db),
		scenarios: store.NewScenarioStore(db),
		queue:     store.NewQueueStore(db),
		audits:    store.NewAuditStore(db),
	}
	f.enroller = NewEnroller(f.contacts, f.scenarios, f.queue, zerolog.Nop())
	return f
}

func (f *fixture) createContact(t *testing.T, contact *models.Contact) *models.Contact {
	t.Helper()
	require.NoError(t, f.contacts.Create(context.Background(), contact))
	return contact
}

func (f *fixture) createScenario(t *testing.T, sc *models.Scenario) *models.Scenario {
	t.Helper()
	require.NoError(t, f.scenarios.Create(context.Background(), sc))
	return sc
}

func TestEnrollSchedulesEveryStep(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	contact := f.createContact(t, &models.Contact{LineUserID: "U1", Name: "Alice"})
	sc := f.createScenario(t, &models.Scenario{
		Name: "Welcome", Active: true, TriggerTag: "signup",
		Steps: []models.ScenarioStep{
			{OffsetDays: 0, SendTime: "10:00", Body: "welcome"},
			{OffsetDays: 1, SendTime: "09:00", Body: "day two"},
		},
	})

	enrolledAt := time.Date(2024, 1, 1, 8, 0, 0, 0, time.Local)
	f.enroller.now = func() time.Time { return enrolledAt }

	require.NoError(t, f.enroller.Enroll(ctx, contact.ID, "signup"))

	entries, err := f.queue.List(ctx, "", 10)
	require.NoError(t, err)
	require.Len(t, entries, 2)

	byBody := map[string]models.QueueEntry{}
	for _, e := range entries {
		byBody[e.Body] = e
		assert.Equal(t, models.QueuePending, e.Status)
		assert.Equal(t, contact.ID, e.ContactID)
		assert.Equal(t, sc.ID, e.ScenarioID)
	}
	assert.Equal(t, time.Date(2024, 1, 1, 10, 0, 0, 0, time.Local), byBody["welcome"].ScheduledAt.Local())
	assert.Equal(t, time.Date(2024, 1, 2, 9, 0, 0, 0, time.Local), byBody["day two"].ScheduledAt.Local())
}

func TestEnrollTwiceDuplicatesEntries(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	contact := f.createContact(t, &models.Contact{LineUserID: "U1"})
	f.createScenario(t, &models.Scenario{
		Name: "Welcome", Active: true, TriggerTag: "signup",
		Steps: []models.ScenarioStep{
			{OffsetDays: 0, SendTime: "10:00", Body: "a"},
			{OffsetDays: 1, SendTime: "10:00", Body: "b"},
		},
	})

	require.NoError(t, f.enroller.Enroll(ctx, contact.ID, "signup"))
	require.NoError(t, f.enroller.Enroll(ctx, contact.ID, "signup"))

	entries, err := f.queue.List(ctx, "", 10)
	require.NoError(t, err)
	// Re-triggering is intentionally not deduplicated.
	assert.Len(t, entries, 4)
}

func TestEnrollWithoutMatchingScenarioIsNoop(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	contact := f.createContact(t, &models.Contact{LineUserID: "U1"})
	f.createScenario(t, &models.Scenario{
		Name: "Paused", Active: false, TriggerTag: "signup",
		Steps: []models.ScenarioStep{{OffsetDays: 0, SendTime: "10:00", Body: "x"}},
	})

	require.NoError(t, f.enroller.Enroll(ctx, contact.ID, "signup"))

	entries, err := f.queue.List(ctx, "", 10)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestEnrollMissingContactFails(t *testing.T) {
	f := newFixture(t)
	err := f.enroller.Enroll(context.Background(), "missing", "signup")
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestEnrollSkipsMalformedSteps(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	contact := f.createContact(t, &models.Contact{LineUserID: "U1"})
	f.createScenario(t, &models.Scenario{
		Name: "Mixed", Active: true, TriggerTag: "signup",
		Steps: []models.ScenarioStep{
			{OffsetDays: 0, SendTime: "25:00", Body: "bad hour"},
			{OffsetDays: -1, SendTime: "10:00", Body: "bad offset"},
			{OffsetDays: 0, SendTime: "noon", Body: "bad format"},
			{OffsetDays: 0, SendTime: "12:30", Body: "good"},
		},
	})

	require.NoError(t, f.enroller.Enroll(ctx, contact.ID, "signup"))

	entries, err := f.queue.List(ctx, "", 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "good", entries[0].Body)
}

func TestStepScheduleRollsOverMonths(t *testing.T) {
	enrolledAt := time.Date(2024, 1, 31, 23, 30, 0, 0, time.UTC)
	got, err := stepSchedule(enrolledAt, 1, "08:15")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 2, 1, 8, 15, 0, 0, time.UTC), got)
}

func TestStepScheduleSameDayEarlierTime(t *testing.T) {
	// An offset-0 step whose time already passed still schedules for
	// today; the dispatcher simply picks it up on its next run.
	enrolledAt := time.Date(2024, 1, 1, 18, 0, 0, 0, time.UTC)
	got, err := stepSchedule(enrolledAt, 0, "10:00")
	require.NoError(t, err)
	assert.Equal(t, time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC), got)
}
