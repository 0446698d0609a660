package main

import (
	"log"

	"github.com/ibtikar-org-tr/membership-app/internal/config"
	"github.com/ibtikar-org-tr/membership-app/internal/server"

	"go.uber.org/zap"
)

func main() {
	cfg := config.Load()

	logger, err := zap.NewProduction()
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()

	server.NewServer(cfg, logger) // handles lifecycle & shutdown internally
}
