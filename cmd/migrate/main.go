package main

import (
	"fmt"
	"log"

	"myloop/internal/config"
	"myloop/internal/database"
	"myloop/internal/models"

	"gorm.io/driver/postgres"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
)

// Copies a local SQLite database into PostgreSQL. Used once when moving a
// dev installation to a hosted deployment.
func main() {
	cfg := config.LoadConfig()

	sqliteDB, err := gorm.Open(sqlite.Open(cfg.DBPath), &gorm.Config{})
	if err != nil {
		log.Fatalf("Failed to connect to SQLite: %v", err)
	}
	log.Printf("Connected to SQLite at %s", cfg.DBPath)

	dsn := fmt.Sprintf("host=%s user=%s password=%s dbname=%s port=%s sslmode=%s",
		cfg.DBHost, cfg.DBUser, cfg.DBPassword, cfg.DBName, cfg.DBPort, cfg.DBSSLMode)
	pgDB, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatalf("Failed to connect to PostgreSQL: %v", err)
	}
	if err := database.Migrate(pgDB); err != nil {
		log.Fatalf("Failed to migrate PostgreSQL schema: %v", err)
	}

	log.Println("Starting data migration...")

	migrateTable := func(tableName string, source interface{}) {
		log.Printf("Migrating table: %s", tableName)

		if err := sqliteDB.Find(source).Error; err != nil {
			log.Printf("Error reading %s from SQLite: %v", tableName, err)
			return
		}

		err := pgDB.Transaction(func(tx *gorm.DB) error {
			return tx.Create(source).Error
		})
		if err != nil {
			log.Printf("Error writing %s to Postgres: %v", tableName, err)
		} else {
			log.Printf("Successfully migrated %s", tableName)
		}
	}

	// Order matters: steps reference scenarios, queue entries and
	// bookings reference contacts.
	var contacts []models.Contact
	migrateTable("contacts", &contacts)

	var scenarios []models.Scenario
	migrateTable("scenarios", &scenarios)

	var steps []models.ScenarioStep
	migrateTable("scenario_steps", &steps)

	var queue []models.QueueEntry
	migrateTable("message_queue", &queue)

	var bookings []models.Booking
	migrateTable("bookings", &bookings)

	var audits []models.AuditLog
	migrateTable("audit_logs", &audits)

	log.Println("Migration completed!")
}
