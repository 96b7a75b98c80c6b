package main

import (
	"context"
	"flag"
	"log/slog"
	"time"

	"cinematime/internal/logger"
	"cinematime/internal/smoke"
)

func main() {
	var (
		baseURL    string
		showtimeID int64
		aliceID    int64
		bobID      int64
		timeout    time.Duration
	)
	flag.StringVar(&baseURL, "url", "http://localhost:8081", "Base URL of the booking API")
	flag.Int64Var(&showtimeID, "showtime", 1, "Showtime to book against; must start more than the cancellation lead time from now")
	flag.Int64Var(&aliceID, "user", 900001, "First test user id")
	flag.Int64Var(&bobID, "other-user", 900002, "Second test user id")
	flag.DurationVar(&timeout, "timeout", time.Minute, "Overall timeout")
	flag.Parse()

	logger.Init("info", "text")
	slog.Info("Starting API smoke check", "url", baseURL, "showtime_id", showtimeID)

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	if err := smoke.NewValidator(baseURL, aliceID, bobID).Run(ctx, showtimeID); err != nil {
		logger.Fatal("Smoke check failed", "error", err)
	}

	slog.Info("Smoke check passed")
}
