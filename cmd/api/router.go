package main

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/f-lab-edu/Meet-Up-Spot/internal/types"
)

// SetupRouter configures all routes and returns the HTTP handler.
func SetupRouter(deps *Dependencies) http.Handler {
	h := &handlers{deps: deps}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(deps.Logger))
	r.Use(middleware.Recoverer)

	r.Get("/health", h.health)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(deps.Registry, promhttp.HandlerOpts{}))

	r.Route("/recommendations", func(r chi.Router) {
		r.Post("/by-address", h.recommendByAddress)
		r.Post("/by-location", h.recommendByLocation)
	})

	r.Route("/places", func(r chi.Router) {
		r.Get("/", h.listPlaces)
		r.Get("/{placeID}", h.getPlace)
		r.Post("/{placeID}/interest", h.markInterest)
		r.Delete("/{placeID}/interest", h.unmarkInterest)
	})

	return r
}

type handlers struct {
	deps *Dependencies
}

type recommendByAddressRequest struct {
	Addresses       []string             `json:"addresses"`
	PlaceType       types.PlaceCategory  `json:"place_type"`
	ReturnCount     int                  `json:"return_count"`
	FilterCondition types.AggregatedAttr `json:"filter_condition"`
}

type recommendByLocationRequest struct {
	Latitude        float64              `json:"latitude"`
	Longitude       float64              `json:"longitude"`
	PlaceType       types.PlaceCategory  `json:"place_type"`
	ReturnCount     int                  `json:"return_count"`
	FilterCondition types.AggregatedAttr `json:"filter_condition"`
}

func preferences(placeType types.PlaceCategory, returnCount int, filterCondition types.AggregatedAttr) types.UserPreferences {
	if placeType == "" {
		placeType = types.CategoryCafe
	}
	if returnCount <= 0 {
		returnCount = 5
	}
	if filterCondition == "" {
		filterCondition = types.AggregatedDistance
	}
	return types.UserPreferences{
		PlaceType:       placeType,
		ReturnCount:     returnCount,
		FilterCondition: filterCondition,
	}
}

func (h *handlers) recommendByAddress(w http.ResponseWriter, r *http.Request) {
	var req recommendByAddressRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, r, types.ErrBadRequest)
		return
	}

	actor, err := h.actingUser(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	prefs := preferences(req.PlaceType, req.ReturnCount, req.FilterCondition)
	ranked, err := h.deps.Recommender.RecommendByAddress(r.Context(), actor, req.Addresses, prefs)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, ranked)
}

func (h *handlers) recommendByLocation(w http.ResponseWriter, r *http.Request) {
	var req recommendByLocationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, r, types.ErrBadRequest)
		return
	}

	actor, err := h.actingUser(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	prefs := preferences(req.PlaceType, req.ReturnCount, req.FilterCondition)
	ranked, err := h.deps.Recommender.RecommendByLocation(r.Context(), actor, req.Latitude, req.Longitude, prefs)
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, ranked)
}

func (h *handlers) listPlaces(w http.ResponseWriter, r *http.Request) {
	result, err := h.deps.PlaceRepo.List(r.Context())
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, result)
}

func (h *handlers) getPlace(w http.ResponseWriter, r *http.Request) {
	place, err := h.deps.PlaceRepo.GetByPlaceID(r.Context(), chi.URLParam(r, "placeID"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, place)
}

func (h *handlers) markInterest(w http.ResponseWriter, r *http.Request) {
	actor, err := h.requireUser(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	place, err := h.deps.PlaceRepo.GetByPlaceID(r.Context(), chi.URLParam(r, "placeID"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	if err := h.deps.UserRepo.MarkInterest(r.Context(), actor.ID, place.ID); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, map[string]string{"status": "marked"})
}

func (h *handlers) unmarkInterest(w http.ResponseWriter, r *http.Request) {
	actor, err := h.requireUser(r)
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	place, err := h.deps.PlaceRepo.GetByPlaceID(r.Context(), chi.URLParam(r, "placeID"))
	if err != nil {
		h.writeError(w, r, err)
		return
	}

	if err := h.deps.UserRepo.UnmarkInterest(r.Context(), actor.ID, place.ID); err != nil {
		h.writeError(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "unmarked"})
}

func (h *handlers) health(w http.ResponseWriter, r *http.Request) {
	if err := h.deps.DB.Health(r.Context()); err != nil {
		w.WriteHeader(http.StatusServiceUnavailable)
		w.Write([]byte("database unhealthy"))
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("ok"))
}

// actingUser resolves the optional X-User-ID header. Requests without it
// run anonymously: no history is recorded and no signals are loaded.
func (h *handlers) actingUser(r *http.Request) (*types.User, error) {
	header := r.Header.Get("X-User-ID")
	if header == "" {
		return nil, nil
	}
	userID, err := uuid.Parse(header)
	if err != nil {
		return nil, types.ErrBadRequest
	}
	return h.deps.UserRepo.GetByID(r.Context(), userID)
}

func (h *handlers) requireUser(r *http.Request) (*types.User, error) {
	actor, err := h.actingUser(r)
	if err != nil {
		return nil, err
	}
	if actor == nil {
		return nil, types.ErrBadRequest
	}
	return actor, nil
}

func (h *handlers) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.deps.Logger.Error("failed to encode response", slog.Any("error", err))
	}
}

func (h *handlers) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFromError(err)
	if status == http.StatusNoContent {
		w.WriteHeader(status)
		return
	}
	if status >= http.StatusInternalServerError {
		h.deps.Logger.ErrorContext(r.Context(), "request failed",
			slog.String("path", r.URL.Path), slog.Any("error", err))
		h.writeJSON(w, status, map[string]string{"detail": "internal server error"})
		return
	}
	h.writeJSON(w, status, map[string]string{"detail": err.Error()})
}

func statusFromError(err error) int {
	switch {
	case errors.Is(err, types.ErrZeroResults):
		return http.StatusNoContent
	case errors.Is(err, types.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, types.ErrBadRequest),
		errors.Is(err, types.ErrNoAddress),
		errors.Is(err, types.ErrEmptyPoints):
		return http.StatusBadRequest
	case errors.Is(err, types.ErrConflict):
		return http.StatusConflict
	default:
		return http.StatusInternalServerError
	}
}

// requestLogger emits one structured line per request.
func requestLogger(logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
			start := time.Now()
			next.ServeHTTP(ww, r)
			logger.InfoContext(r.Context(), "request completed",
				slog.String("method", r.Method),
				slog.String("path", r.URL.Path),
				slog.Int("status", ww.Status()),
				slog.Duration("duration", time.Since(start)),
				slog.String("request_id", middleware.GetReqID(r.Context())),
			)
		})
	}
}
