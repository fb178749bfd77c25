package ui

import (
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"trialloc/app"
	"trialloc/domain/cohort"
	"trialloc/domain/core"
	"trialloc/internal/config"
	"trialloc/ports"
)

// Server is the JSON API surface for running and inspecting allocations
type Server struct {
	engine     *gin.Engine
	service    *app.AllocationService
	repository ports.AllocationRepositoryPort
	solverCfg  config.SolverConfig
}

// NewServer creates the API server
func NewServer(service *app.AllocationService, repository ports.AllocationRepositoryPort, solverCfg config.SolverConfig) *Server {
	s := &Server{
		engine:     gin.Default(),
		service:    service,
		repository: repository,
		solverCfg:  solverCfg,
	}
	s.routes()
	return s
}

func (s *Server) routes() {
	api := s.engine.Group("/api")
	api.POST("/allocations", s.handleAllocate())
	api.GET("/allocations", s.handleListAllocations())
	api.GET("/allocations/:id", s.handleGetAllocation())
}

// Run starts the HTTP server on the given port
func (s *Server) Run(port string) error {
	return s.engine.Run(":" + port)
}

// Handler exposes the gin engine as an http.Handler for tests
func (s *Server) Handler() http.Handler {
	return s.engine
}

// allocateRequest is the JSON body for POST /api/allocations
type allocateRequest struct {
	Covariates []string    `json:"covariates" binding:"required"`
	Rows       [][]float64 `json:"rows" binding:"required"`
	Rho        *float64    `json:"rho"`
	Seed       *int64      `json:"seed"`
	TimeBudget string      `json:"time_budget"`
}

func (s *Server) handleAllocate() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req allocateRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		keys := make([]core.CovariateKey, len(req.Covariates))
		for i, name := range req.Covariates {
			key, err := core.ParseCovariateKey(name)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
				return
			}
			keys[i] = key
		}

		raw, err := cohort.NewCovariateMatrix(keys, nil, req.Rows)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		budget := s.solverCfg.TimeBudget
		if req.TimeBudget != "" {
			parsed, err := time.ParseDuration(req.TimeBudget)
			if err != nil {
				c.JSON(http.StatusBadRequest, gin.H{"error": "time_budget must be a duration, e.g. 5s"})
				return
			}
			budget = parsed
		}
		seed := s.solverCfg.Seed
		if req.Seed != nil {
			seed = *req.Seed
		}

		result, err := s.service.Allocate(c.Request.Context(), app.AllocationRequest{
			Raw:        raw,
			Rho:        req.Rho,
			TimeBudget: budget,
			Seed:       seed,
			Restarts:   s.solverCfg.Restarts,
		})
		if err != nil {
			log.Printf("[API] Allocation failed: %v", err)
			c.JSON(statusForError(err), gin.H{"error": err.Error()})
			return
		}

		c.JSON(http.StatusOK, result)
	}
}

func (s *Server) handleGetAllocation() gin.HandlerFunc {
	return func(c *gin.Context) {
		id, err := core.ParseAllocationID(c.Param("id"))
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}

		record, err := s.repository.GetByID(c.Request.Context(), id)
		if err != nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "allocation not found"})
			return
		}
		c.JSON(http.StatusOK, record)
	}
}

func (s *Server) handleListAllocations() gin.HandlerFunc {
	return func(c *gin.Context) {
		limit := 10
		records, err := s.repository.ListRecent(c.Request.Context(), limit)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to list allocations"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"allocations": records, "count": len(records)})
	}
}

// statusForError maps the domain error taxonomy onto HTTP statuses so
// callers can tell bad data from an exhausted or failed solver.
func statusForError(err error) int {
	switch {
	case core.IsInvalidInputError(err), core.IsAssignmentError(err):
		return http.StatusBadRequest
	case errors.Is(err, core.ErrModelConstruction):
		return http.StatusUnprocessableEntity
	case errors.Is(err, core.ErrSolverInfeasible):
		return http.StatusConflict
	case errors.Is(err, core.ErrSolverUnavailable):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}
