// internal/httpapi/handler.go

// Package httpapi exposes the library service over JSON/HTTP.
package httpapi

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"golang.org/x/time/rate"

	"libradesk/internal/library"
	"libradesk/internal/logger"
)

// Config tunes the router middleware.
type Config struct {
	// RateLimit is the sustained number of mutating requests per second.
	// Zero disables limiting.
	RateLimit float64
	RateBurst int
}

type Handler struct {
	service library.Service
	log     *logger.Logger
}

func NewHandler(service library.Service, log *logger.Logger) *Handler {
	if log == nil {
		log = logger.Nop()
	}
	return &Handler{service: service, log: log}
}

// Routes builds the chi router serving the API under /api/v1.
func (h *Handler) Routes(cfg Config) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(h.accessLog)
	r.Use(h.recoverer)
	r.Use(tracing)
	if cfg.RateLimit > 0 {
		burst := cfg.RateBurst
		if burst <= 0 {
			burst = int(cfg.RateLimit) + 1
		}
		r.Use(limitWrites(rate.NewLimiter(rate.Limit(cfg.RateLimit), burst)))
	}

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		writeErrorCode(w, http.StatusNotFound, CodeNotFound, "route not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		writeErrorCode(w, http.StatusMethodNotAllowed, CodeBadRequest, "method not allowed")
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(etag)
			r.Get("/books", h.listBooks)
			r.Get("/books/available", h.listAvailableBooks)
			r.Get("/books/{id}", h.getBook)
			r.Get("/members", h.listMembers)
			r.Get("/members/{id}", h.getMember)
			r.Get("/borrowings", h.listBorrowings)
			r.Get("/borrowings/recent", h.recentBorrowings)
			r.Get("/dashboard", h.dashboard)
			r.Get("/reports", h.reports)
			r.Get("/activity", h.activity)
		})

		r.Post("/books", h.addBook)
		r.Patch("/books/{id}", h.updateBook)
		r.Put("/books/{id}", h.updateBook)
		r.Delete("/books/{id}", h.deleteBook)

		r.Post("/members", h.addMember)
		r.Patch("/members/{id}", h.updateMember)
		r.Put("/members/{id}", h.updateMember)
		r.Delete("/members/{id}", h.deleteMember)

		r.Post("/borrowings", h.borrowBook)
		r.Post("/borrowings/{id}/return", h.returnBook)
	})

	return r
}
