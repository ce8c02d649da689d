package gamification

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/bloks-dev/backend/internal/auth"
	"github.com/bloks-dev/backend/internal/models"
)

// WeekSummarizer reports a user's progress in the current week.
type WeekSummarizer interface {
	CurrentWeek(ctx context.Context, userID uuid.UUID) (models.WeekSummary, error)
}

type Handler struct {
	service *Service
	weeks   WeekSummarizer
}

func NewHandler(service *Service, weeks WeekSummarizer) *Handler {
	return &Handler{service: service, weeks: weeks}
}

func (h *Handler) Routes(public, protected *mux.Router) {
	public.HandleFunc("/badges", h.ListBadges).Methods("GET")

	protected.HandleFunc("/me/badges", h.MyBadges).Methods("GET")
	protected.HandleFunc("/me/progress", h.MyProgress).Methods("GET")
}

// ── Badges ──────────────────────────────────────────────

func (h *Handler) ListBadges(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, h.service.CatalogBadges())
}

func (h *Handler) MyBadges(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserID(r)
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "unauthorized", "Authentication required")
		return
	}

	badges, err := h.service.ListUserBadges(r.Context(), userID)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "internal", "Failed to get badges")
		return
	}
	writeJSON(w, http.StatusOK, badges)
}

// ── Progress ────────────────────────────────────────────

func (h *Handler) MyProgress(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserID(r)
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "unauthorized", "Authentication required")
		return
	}

	ctx := r.Context()
	profile, err := h.service.Profile(ctx, userID)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "internal", "Failed to get progress")
		return
	}
	week, err := h.weeks.CurrentWeek(ctx, userID)
	if err != nil {
		h.service.logger.Warn("current week unavailable", "user_id", userID, "err", err)
	}
	badges, err := h.service.ListUserBadges(ctx, userID)
	if err != nil {
		h.service.logger.Warn("badges unavailable", "user_id", userID, "err", err)
		badges = []models.EarnedBadge{}
	}

	writeJSON(w, http.StatusOK, models.ProgressResponse{
		Profile:     *profile,
		CurrentWeek: week,
		Badges:      badges,
	})
}

// ── Helpers ─────────────────────────────────────────────

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, r *http.Request, status int, code, msg string) {
	writeJSON(w, status, models.ErrorResponse{
		Error:     msg,
		Code:      code,
		RequestID: middleware.GetReqID(r.Context()),
	})
}
