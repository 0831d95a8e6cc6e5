package main

import (
	"log"
	"os"

	"github.com/joho/godotenv"

	"savedown/internal/adapters/httpapi"
	"savedown/internal/config"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger := log.New(os.Stdout, "", log.LstdFlags)
	logger.Printf("=== SaveDown Server ===")
	logger.Printf("Backend: %s", cfg.APIBaseURL)
	logger.Printf("Listening on :%s", cfg.Port)

	server, err := httpapi.NewServer(cfg, logger)
	if err != nil {
		logger.Fatalf("Failed to initialize server: %v", err)
	}
	if err := server.Run(); err != nil {
		logger.Fatalf("Server stopped: %v", err)
	}
}
