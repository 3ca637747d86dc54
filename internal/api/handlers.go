package api

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/listerineh/flight-emissions/internal/config"
	"github.com/listerineh/flight-emissions/internal/storage/sqlite"
	"github.com/listerineh/flight-emissions/pkg/logger"
)

// Handler contains the API handlers
type Handler struct {
	storage *sqlite.FlightStorage
	config  *config.Config
	logger  *logger.Logger
	started time.Time
}

// NewHandler creates a new API handler
func NewHandler(storage *sqlite.FlightStorage, config *config.Config, logger *logger.Logger) *Handler {
	return &Handler{
		storage: storage,
		config:  config,
		logger:  logger.Named("api-handler"),
		started: time.Now().UTC(),
	}
}

// ListFlights returns processed flights, newest first
func (h *Handler) ListFlights(w http.ResponseWriter, r *http.Request) {
	limit := parsePositiveInt(r.URL.Query().Get("limit"), 100)
	offset := parsePositiveInt(r.URL.Query().Get("offset"), 0)

	flights, err := h.storage.ListFlights(r.Context(), limit, offset)
	if err != nil {
		h.logger.Error("Failed to list flights", logger.Error(err))
		http.Error(w, "Failed to list flights", http.StatusInternalServerError)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"count":   len(flights),
		"flights": flights,
	})
}

// GetFlight returns a single processed flight by its FR24 ID
func (h *Handler) GetFlight(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		http.Error(w, "Missing flight ID", http.StatusBadRequest)
		return
	}

	flight, found, err := h.storage.GetFlight(r.Context(), id)
	if err != nil {
		h.logger.Error("Failed to get flight", logger.Error(err), logger.String("fr24_id", id))
		http.Error(w, "Failed to get flight", http.StatusInternalServerError)
		return
	}
	if !found {
		http.Error(w, "Flight not found", http.StatusNotFound)
		return
	}

	WriteJSON(w, http.StatusOK, flight)
}

// GetFlightPositions returns the stored trajectory points for a flight
func (h *Handler) GetFlightPositions(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		http.Error(w, "Missing flight ID", http.StatusBadRequest)
		return
	}

	maxPositions := h.config.Storage.MaxPositionsInAPI
	limit := parsePositiveInt(r.URL.Query().Get("limit"), maxPositions)
	if maxPositions > 0 && limit > maxPositions {
		limit = maxPositions
	}

	_, found, err := h.storage.GetFlight(r.Context(), id)
	if err != nil {
		h.logger.Error("Failed to get flight", logger.Error(err), logger.String("fr24_id", id))
		http.Error(w, "Failed to get flight", http.StatusInternalServerError)
		return
	}
	if !found {
		http.Error(w, "Flight not found", http.StatusNotFound)
		return
	}

	positions, err := h.storage.GetPositions(r.Context(), id, limit)
	if err != nil {
		h.logger.Error("Failed to get positions",
			logger.Error(err),
			logger.String("fr24_id", id),
			logger.Int("limit", limit))
		http.Error(w, "Failed to get positions", http.StatusInternalServerError)
		return
	}

	WriteJSON(w, http.StatusOK, map[string]interface{}{
		"fr24_id":   id,
		"count":     len(positions),
		"positions": positions,
	})
}

// GetStatus returns the health status of the API
func (h *Handler) GetStatus(w http.ResponseWriter, r *http.Request) {
	count, err := h.storage.CountFlights(r.Context())
	if err != nil {
		h.logger.Error("Failed to count flights", logger.Error(err))
		http.Error(w, "Failed to count flights", http.StatusInternalServerError)
		return
	}

	response := map[string]interface{}{
		"status":       "ok",
		"flight_count": count,
		"uptime_s":     int64(time.Since(h.started).Seconds()),
	}

	WriteJSON(w, http.StatusOK, response)
}

func parsePositiveInt(raw string, fallback int) int {
	if raw == "" {
		return fallback
	}
	if parsed, err := strconv.Atoi(raw); err == nil && parsed >= 0 {
		return parsed
	}
	return fallback
}

// WriteJSON writes a JSON response
func WriteJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
