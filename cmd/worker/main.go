package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"
	"time"

	"myloop/internal/booking"
	"myloop/internal/config"
	"myloop/internal/database"
	"myloop/internal/line"
	"myloop/internal/scenario"
	"myloop/internal/store"

	"github.com/rs/zerolog"
)

const (
	dispatchInterval = 10 * time.Minute
	reminderInterval = time.Hour
)

func main() {
	once := flag.Bool("once", false, "run one dispatch and reminder pass, then exit")
	flag.Parse()

	logger := zerolog.New(os.Stdout).With().Timestamp().Str("component", "worker").Logger()

	cfg := config.LoadConfig()
	db, err := database.Open(cfg)
	if err != nil {
		logger.Fatal().Err(err).Msg("open database")
	}

	contacts := store.NewContactStore(db)
	queue := store.NewQueueStore(db)
	bookings := store.NewBookingStore(db)
	audits := store.NewAuditStore(db)

	sender := line.NewSender(cfg, logger)
	dispatcher := scenario.NewDispatcher(queue, contacts, audits, sender, logger)
	scanner := booking.NewScanner(bookings, contacts, sender, logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *once {
		if err := dispatcher.Run(ctx); err != nil {
			logger.Error().Err(err).Msg("dispatcher run failed")
			os.Exit(1)
		}
		if err := scanner.Run(ctx); err != nil {
			logger.Error().Err(err).Msg("reminder scan failed")
			os.Exit(1)
		}
		return
	}

	logger.Info().Str("mode", string(cfg.Mode)).Msg("worker starting")

	go loop(ctx, dispatchInterval, func() {
		if err := dispatcher.Run(ctx); err != nil {
			logger.Error().Err(err).Msg("dispatcher run failed")
		}
	})
	go loop(ctx, reminderInterval, func() {
		if err := scanner.Run(ctx); err != nil {
			logger.Error().Err(err).Msg("reminder scan failed")
		}
	})

	<-ctx.Done()
	logger.Info().Msg("worker stopped")
}

// loop runs fn immediately and then on every tick until ctx is done.
func loop(ctx context.Context, interval time.Duration, fn func()) {
	fn()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			fn()
		}
	}
}
