package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/listerineh/flight-emissions/internal/config"
	"github.com/listerineh/flight-emissions/internal/storage/sqlite"
	"github.com/listerineh/flight-emissions/pkg/logger"
)

// Router wires the API handlers onto a chi mux
type Router struct {
	handler *Handler
	logger  *logger.Logger
}

// NewRouter creates a new API router
func NewRouter(storage *sqlite.FlightStorage, config *config.Config, logger *logger.Logger) *Router {
	return &Router{
		handler: NewHandler(storage, config, logger),
		logger:  logger.Named("api-router"),
	}
}

// Routes returns the HTTP handler with all routes registered
func (rt *Router) Routes() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(30 * time.Second))

	r.Route("/api", func(r chi.Router) {
		r.Get("/status", rt.handler.GetStatus)
		r.Route("/flights", func(r chi.Router) {
			r.Get("/", rt.handler.ListFlights)
			r.Get("/{id}", rt.handler.GetFlight)
			r.Get("/{id}/positions", rt.handler.GetFlightPositions)
		})
	})

	return r
}
