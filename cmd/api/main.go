package main

import (
	"log"

	"github.com/Spower4/ghost-choice-backend/internal/config"
	"github.com/Spower4/ghost-choice-backend/pkg/app"

	fiberlog "github.com/gofiber/fiber/v2/log"
)

func main() {
	// Load environment files explicitly
	envFiles := []string{".env.local", ".env.development", ".env"}
	config.LoadEnvFiles(envFiles)

	// Load configuration from YAML
	cfg, err := config.LoadFromFile("config.yaml")
	if err != nil {
		fiberlog.Fatalf("Failed to load config: %v", err)
	}

	server := app.New(cfg)

	log.Println("Starting Ghost Choice backend...")
	if err := server.Run(); err != nil {
		fiberlog.Fatalf("Server failed: %v", err)
	}
}
