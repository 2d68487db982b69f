package main

import (
	"os"

	"myloop/internal/api"
	"myloop/internal/config"
	"myloop/internal/database"
	"myloop/internal/scenario"
	"myloop/internal/store"
	"myloop/internal/webhook"
	"myloop/internal/ws"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

func main() {
	logger := zerolog.New(os.Stdout).With().Timestamp().Logger()

	cfg := config.LoadConfig()
	db, err := database.Open(cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("open database")
	}

	contacts := store.NewContactStore(db)
	scenarios := store.NewScenarioStore(db)
	queue := store.NewQueueStore(db)
	bookings := store.NewBookingStore(db)
	audits := store.NewAuditStore(db)

	enroller := scenario.NewEnroller(contacts, scenarios, queue, logger)

	hub := ws.NewHub(logger)
	go hub.Run()

	webhookHandler := webhook.NewHandler(cfg, contacts, enroller, logger)
	webhookHandler.SetNotifier(hub)
	contactHandler := api.NewContactHandler(contacts, enroller)
	scenarioHandler := api.NewScenarioHandler(scenarios)
	bookingHandler := api.NewBookingHandler(bookings)
	dashboardHandler := api.NewDashboardHandler(queue, audits)

	r := gin.Default()

	// CORS Middleware
	r.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	// LINE Webhook
	r.POST("/webhook", webhookHandler.HandleEvents)

	// Live event feed
	r.GET("/ws", func(c *gin.Context) {
		hub.ServeWs(c.Writer, c.Request)
	})

	apiGroup := r.Group("/api")
	{
		// CRM Routes
		apiGroup.GET("/contacts", contactHandler.GetContacts)
		apiGroup.POST("/contacts", contactHandler.CreateContact)
		apiGroup.PUT("/contacts/:id", contactHandler.UpdateContact)
		apiGroup.DELETE("/contacts/:id", contactHandler.DeleteContact)
		apiGroup.POST("/contacts/:id/enroll", contactHandler.EnrollContact)
		apiGroup.GET("/contacts/export", contactHandler.ExportContacts)

		// Scenario Routes
		apiGroup.GET("/scenarios", scenarioHandler.GetScenarios)
		apiGroup.POST("/scenarios", scenarioHandler.CreateScenario)
		apiGroup.GET("/scenarios/:id", scenarioHandler.GetScenario)
		apiGroup.PUT("/scenarios/:id", scenarioHandler.UpdateScenario)
		apiGroup.POST("/scenarios/:id/toggle", scenarioHandler.ToggleScenario)
		apiGroup.DELETE("/scenarios/:id", scenarioHandler.DeleteScenario)

		// Booking Routes
		apiGroup.GET("/bookings", bookingHandler.GetBookings)
		apiGroup.POST("/bookings", bookingHandler.CreateBooking)
		apiGroup.POST("/bookings/:id/cancel", bookingHandler.CancelBooking)

		// Queue / Audit Routes
		apiGroup.GET("/queue", dashboardHandler.GetQueue)
		apiGroup.GET("/queue/stats", dashboardHandler.GetQueueStats)
		apiGroup.GET("/audit", dashboardHandler.GetAuditLogs)
	}

	logger.Info().Str("port", cfg.Port).Str("mode", string(cfg.Mode)).Msg("server starting")
	if err := r.Run(":" + cfg.Port); err != nil {
		logger.Fatal().Err(err).Msg("server exited")
	}
}
