package submissions

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/gorilla/mux"

	"github.com/bloks-dev/backend/internal/auth"
	"github.com/bloks-dev/backend/internal/models"
)

var validate = validator.New()

type Handler struct {
	service *Service
}

func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// Routes registers the handler on the public and authenticated routers.
func (h *Handler) Routes(public, protected *mux.Router) {
	public.HandleFunc("/tracks", h.ListTracks).Methods("GET")
	public.HandleFunc("/users/{userID}/solved", h.SolvedProblems).Methods("GET")

	protected.HandleFunc("/problems/{problemID}/complete", h.CompleteProblem).Methods("POST")
	protected.HandleFunc("/tracks/{trackName}", h.GetTrack).Methods("GET")
	protected.HandleFunc("/tracks/{trackName}/days/{daySlug}", h.GetTrackDay).Methods("GET")
	protected.HandleFunc("/me/last-completion", h.LastCompletion).Methods("GET")
}

// ── Completion ──────────────────────────────────────────

func (h *Handler) CompleteProblem(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserID(r)
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "unauthorized", "Authentication required")
		return
	}

	problemID, err := uuid.Parse(mux.Vars(r)["problemID"])
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "bad_request", "Invalid problem ID")
		return
	}

	ctx := r.Context()
	problem, err := h.service.Problem(ctx, problemID)
	if errors.Is(err, ErrProblemNotFound) {
		writeError(w, r, http.StatusNotFound, "not_found", "Problem not found")
		return
	}
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "internal", "Failed to load problem")
		return
	}

	limit, err := h.service.CheckDailyLimit(ctx, userID, problemID)
	if err != nil {
		h.service.logger.Warn("daily limit check failed, allowing completion", "user_id", userID, "err", err)
	} else if limit != nil && !limit.CanComplete {
		writeJSON(w, http.StatusTooManyRequests, map[string]interface{}{
			"error":       limit.Message,
			"code":        "daily_limit_reached",
			"daily_limit": limit,
		})
		return
	}

	completion, err := h.service.RecordCompletion(ctx, userID, problemID, problem.Bloks)
	if errors.Is(err, ErrDuplicateSubmission) {
		writeError(w, r, http.StatusConflict, "conflict", "Problem already completed")
		return
	}
	if err != nil {
		h.service.logger.Error("record completion failed", "user_id", userID, "problem_id", problemID, "err", err)
		writeError(w, r, http.StatusInternalServerError, "internal", "Failed to record completion")
		return
	}

	writeJSON(w, http.StatusCreated, completion)
}

// ── Tracks ──────────────────────────────────────────────

func (h *Handler) ListTracks(w http.ResponseWriter, r *http.Request) {
	tracks, err := h.service.ListTracks(r.Context())
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "internal", "Failed to list tracks")
		return
	}
	writeJSON(w, http.StatusOK, tracks)
}

func (h *Handler) GetTrack(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserID(r)
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "unauthorized", "Authentication required")
		return
	}

	overview, err := h.service.TrackOverview(r.Context(), mux.Vars(r)["trackName"], userID)
	if errors.Is(err, ErrTrackNotFound) {
		writeError(w, r, http.StatusNotFound, "not_found", "Track not found")
		return
	}
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "internal", "Failed to load track")
		return
	}
	writeJSON(w, http.StatusOK, overview)
}

func (h *Handler) GetTrackDay(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserID(r)
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "unauthorized", "Authentication required")
		return
	}

	vars := mux.Vars(r)
	group, err := h.service.DayProblems(r.Context(), vars["trackName"], vars["daySlug"], userID)
	switch {
	case errors.Is(err, ErrTrackNotFound):
		writeError(w, r, http.StatusNotFound, "not_found", "Track not found")
		return
	case errors.Is(err, ErrDayNotFound):
		writeError(w, r, http.StatusNotFound, "not_found", "Day not found")
		return
	case err != nil:
		writeError(w, r, http.StatusInternalServerError, "internal", "Failed to load day")
		return
	}
	writeJSON(w, http.StatusOK, group)
}

// ── History ─────────────────────────────────────────────

func (h *Handler) LastCompletion(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserID(r)
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "unauthorized", "Authentication required")
		return
	}

	at, found, err := h.service.LastCompletionTimestamp(r.Context(), userID)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "internal", "Failed to load last completion")
		return
	}
	resp := models.LastCompletionResponse{HasCompletions: found}
	if found {
		resp.LastCompletedAt = &at
	}
	writeJSON(w, http.StatusOK, resp)
}

type solvedQuery struct {
	UserID string `validate:"required,uuid"`
	Limit  int    `validate:"gte=1,lte=200"`
}

func (h *Handler) SolvedProblems(w http.ResponseWriter, r *http.Request) {
	q := solvedQuery{
		UserID: mux.Vars(r)["userID"],
		Limit:  intQueryParam(r, "limit", 50),
	}
	if err := validate.Struct(q); err != nil {
		writeError(w, r, http.StatusBadRequest, "bad_request", "Invalid user ID or limit")
		return
	}

	solved, err := h.service.SolvedProblems(r.Context(), uuid.MustParse(q.UserID), q.Limit)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "internal", "Failed to load solved problems")
		return
	}
	writeJSON(w, http.StatusOK, solved)
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

// intQueryParam returns -1 for a malformed value so validation rejects it.
func intQueryParam(r *http.Request, key string, defaultVal int) int {
	s := r.URL.Query().Get(key)
	if s == "" {
		return defaultVal
	}
	v, err := strconv.Atoi(s)
	if err != nil {
		return -1
	}
	return v
}
