package ui

import (
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/gomarkdown/markdown"
	"github.com/gomarkdown/markdown/html"
	"github.com/gomarkdown/markdown/parser"

	"trialloc/domain/core"
	"trialloc/internal/report"
	"trialloc/ports"
)

// App serves the human-facing review surface: rendered balance reports
// for persisted allocation runs.
type App struct {
	router     *chi.Mux
	repository ports.AllocationRepositoryPort
}

// NewApp creates the report application
func NewApp(repository ports.AllocationRepositoryPort) *App {
	a := &App{
		router:     chi.NewRouter(),
		repository: repository,
	}
	a.routes()
	return a
}

func (a *App) routes() {
	a.router.Use(middleware.RequestID)
	a.router.Use(middleware.Logger)
	a.router.Use(middleware.Recoverer)

	a.router.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte("ok"))
	})
	a.router.Get("/allocations/{id}/report", a.handleReport)
}

// Router exposes the chi mux for mounting
func (a *App) Router() http.Handler {
	return a.router
}

func (a *App) handleReport(w http.ResponseWriter, r *http.Request) {
	id, err := core.ParseAllocationID(chi.URLParam(r, "id"))
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	record, err := a.repository.GetByID(r.Context(), id)
	if err != nil {
		http.Error(w, fmt.Sprintf("allocation not found: %v", err), http.StatusNotFound)
		return
	}

	md := report.RenderMarkdown(record, nil)
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.Write(renderHTML(md))
}

// renderHTML converts a markdown report into a standalone HTML page
func renderHTML(md string) []byte {
	p := parser.NewWithExtensions(parser.CommonExtensions | parser.Tables)
	doc := p.Parse([]byte(md))

	renderer := html.NewRenderer(html.RendererOptions{
		Flags: html.CommonFlags | html.CompletePage,
		Title: "Allocation report",
	})
	return markdown.Render(doc, renderer)
}
