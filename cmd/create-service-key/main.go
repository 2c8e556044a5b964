package main

import (
	"context"
	"fmt"
	"os"

	"golang.org/x/crypto/bcrypt"

	"github.com/farmtrust/paymentsapi/internal/config"
	"github.com/farmtrust/paymentsapi/internal/domain"
	"github.com/farmtrust/paymentsapi/internal/repository/postgres"
	"go.uber.org/zap"
)

func main() {
	if len(os.Args) < 3 {
		fmt.Println("Usage: go run cmd/create-service-key/main.go <service-name> <key>")
		fmt.Println("Example: go run cmd/create-service-key/main.go \"ops-dashboard\" \"ops-key-12345\"")
		os.Exit(1)
	}

	serviceName := os.Args[1]
	key := os.Args[2]

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	logger, _ := zap.NewDevelopment()
	defer logger.Sync()

	// Connect to database
	db, err := postgres.NewConnection(cfg.Database)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to connect to database: %v\n", err)
		os.Exit(1)
	}
	defer db.Close()

	// Hash the key
	keyHash, err := bcrypt.GenerateFromPassword([]byte(key), 10)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to hash key: %v\n", err)
		os.Exit(1)
	}

	// Create repositories
	repos := postgres.NewRepositories(db, logger)

	// Create service key
	serviceKey := &domain.ServiceKey{
		Name:     serviceName,
		KeyHash:  string(keyHash),
		IsActive: true,
	}

	err = repos.ServiceKey.Create(context.Background(), serviceKey)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to create service key: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("Service key created successfully!\n\n")
	fmt.Printf("Key ID: %s\n", serviceKey.ID.String())
	fmt.Printf("Service: %s\n", serviceKey.Name)
	fmt.Printf("Key: %s\n", key)
	fmt.Printf("\nIMPORTANT: Save this key securely, it cannot be shown again.\n")
}
