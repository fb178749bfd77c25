package main

import (
	"context"
	"log"
	"net/http"
	"time"

	"trialloc/adapters/postgres"
	"trialloc/adapters/solver"
	"trialloc/app"
	"trialloc/internal/config"
	"trialloc/internal/errors"
	"trialloc/internal/testkit"
	"trialloc/ports"
	"trialloc/ui"

	"github.com/jmoiron/sqlx"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
)

// initDatabase initializes the PostgreSQL database connection
func initDatabase(appConfig *config.Config) (*sqlx.DB, error) {
	if appConfig.Database.URL == "" {
		return nil, errors.ConfigInvalid("DATABASE_URL is required")
	}

	db, err := sqlx.Connect("postgres", appConfig.Database.URL)
	if err != nil {
		return nil, errors.Wrap(err, "failed to connect to database")
	}
	return db, nil
}

func main() {
	// Load .env if present; real environments set variables directly.
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	appConfig, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Fall back to the in-memory repository when no database is wired,
	// so the server still runs for local review.
	var repository ports.AllocationRepositoryPort
	if appConfig.Database.URL != "" {
		db, err := initDatabase(appConfig)
		if err != nil {
			log.Fatalf("Failed to initialize database: %v", err)
		}
		defer db.Close()

		pgRepo := postgres.NewAllocationRepository(db).(*postgres.AllocationRepositoryImpl)
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		if err := pgRepo.EnsureSchema(ctx); err != nil {
			cancel()
			log.Fatalf("Failed to ensure schema: %v", err)
		}
		cancel()
		repository = pgRepo
	} else {
		log.Println("DATABASE_URL not set, using in-memory repository")
		repository = testkit.NewTestKit().AllocationRepository()
	}

	service := app.NewAllocationService(solver.NewAnnealingSolver(), repository)

	apiServer := ui.NewServer(service, repository, appConfig.Solver)
	reportApp := ui.NewApp(repository)

	mux := http.NewServeMux()
	mux.Handle("/api/", apiServer.Handler())
	mux.Handle("/", reportApp.Router())

	addr := ":" + appConfig.Server.Port
	log.Printf("Serving allocation API and reports on %s", addr)
	if err := http.ListenAndServe(addr, mux); err != nil {
		log.Fatalf("Server failed: %v", err)
	}
}
