package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/farmtrust/paymentsapi/internal/config"
	"github.com/farmtrust/paymentsapi/internal/monime"
	"github.com/farmtrust/paymentsapi/internal/notify"
	"github.com/farmtrust/paymentsapi/internal/repository/postgres"
	"github.com/farmtrust/paymentsapi/internal/service"
)

// Re-verifies payments stuck in pending or processing against the provider.
// Meant to run from cron as a safety net for webhooks that never arrived.
func main() {
	olderThan := flag.Duration("older-than", 30*time.Minute, "only sweep payments initiated at least this long ago")
	limit := flag.Int("limit", 100, "maximum number of payments to sweep in one run")
	timeout := flag.Duration("timeout", 5*time.Minute, "overall run timeout")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, _ := zap.NewDevelopment()
	defer logger.Sync()

	db, err := postgres.NewConnection(cfg.Database)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to connect to database: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	repos := postgres.NewRepositories(db, logger)
	client := monime.NewClient(cfg.Monime, logger)
	notifier := notify.NewLogNotifier(logger)
	paymentService := service.NewPaymentService(repos, client, cfg.Monime, notifier, logger)

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	cutoff := time.Now().Add(-*olderThan)
	swept, err := paymentService.SweepUnresolved(ctx, cutoff, *limit)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Sweep failed after %d payments: %v\n", swept, err)
		os.Exit(1)
	}

	fmt.Printf("Swept %d unresolved payments (initiated before %s)\n", swept, cutoff.Format(time.RFC3339))
}
