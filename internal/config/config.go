package config

import (
	"os"
	"strconv"
	"time"

	"trialloc/internal/errors"
)

// Config represents the complete application configuration
type Config struct {
	Database DatabaseConfig
	Server   ServerConfig
	Solver   SolverConfig
	Data     DataConfig
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	URL string
}

// ServerConfig holds web server settings
type ServerConfig struct {
	Port string
}

// SolverConfig holds default search budget settings
type SolverConfig struct {
	TimeBudget time.Duration
	Restarts   int
	Seed       int64
	Rho        float64
}

// DataConfig holds data ingestion settings
type DataConfig struct {
	CohortFile string
}

// Load reads configuration from environment variables and validates it
func Load() (*Config, error) {
	config := &Config{
		Database: DatabaseConfig{
			URL: os.Getenv("DATABASE_URL"),
		},
		Server: ServerConfig{
			Port: getEnv("SERVER_PORT", "8080"),
		},
		Solver: SolverConfig{
			TimeBudget: 5 * time.Second,
			Restarts:   4,
			Seed:       1,
			Rho:        0.5,
		},
		Data: DataConfig{
			CohortFile: os.Getenv("COHORT_FILE"),
		},
	}

	if v := os.Getenv("SOLVER_TIME_BUDGET"); v != "" {
		budget, err := time.ParseDuration(v)
		if err != nil {
			return nil, errors.ConfigInvalid("SOLVER_TIME_BUDGET must be a duration, e.g. 5s")
		}
		config.Solver.TimeBudget = budget
	}
	if v := os.Getenv("SOLVER_RESTARTS"); v != "" {
		restarts, err := strconv.Atoi(v)
		if err != nil || restarts < 1 {
			return nil, errors.ConfigInvalid("SOLVER_RESTARTS must be a positive integer")
		}
		config.Solver.Restarts = restarts
	}
	if v := os.Getenv("SOLVER_SEED"); v != "" {
		seed, err := strconv.ParseInt(v, 10, 64)
		if err != nil {
			return nil, errors.ConfigInvalid("SOLVER_SEED must be an integer")
		}
		config.Solver.Seed = seed
	}
	if v := os.Getenv("BALANCE_RHO"); v != "" {
		rho, err := strconv.ParseFloat(v, 64)
		if err != nil || rho < 0 || rho > 1 {
			return nil, errors.ConfigInvalid("BALANCE_RHO must be a float in [0,1]")
		}
		config.Solver.Rho = rho
	}

	return config, nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
