package main

import (
	"log"

	"trialloc/adapters/solver"
	"trialloc/app"
	"trialloc/internal/config"
	"trialloc/internal/testkit"
	"trialloc/ui"

	"github.com/joho/godotenv"
)

// Standalone JSON API server backed by the in-memory repository. The root
// entrypoint wires PostgreSQL; this one exists for local development.
func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	appConfig, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	repository := testkit.NewTestKit().AllocationRepository()
	service := app.NewAllocationService(solver.NewAnnealingSolver(), repository)

	server := ui.NewServer(service, repository, appConfig.Solver)
	log.Printf("Serving allocation API on :%s", appConfig.Server.Port)
	if err := server.Run(appConfig.Server.Port); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}
