package http

import (
	"encoding/json"
	"errors"
	"log"
	"net/http"
	"strconv"
	"time"

	"spotfake-daily/internal/app"
	"spotfake-daily/internal/domain"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
)

const userHeader = "X-User-Id"

// Handler exposes the daily-puzzle API.
type Handler struct {
	service *app.AttemptService
	ws      *WSHandler
}

func NewHandler(service *app.AttemptService) *Handler {
	return &Handler{service: service, ws: NewWSHandler(service)}
}

func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("ok"))
	})
	r.Route("/api", func(r chi.Router) {
		r.Get("/puzzle/today", h.puzzleToday)
		r.Post("/attempt", h.submitAttempt)
		r.Get("/leaderboard/today", h.leaderboardToday)
	})
	r.Get("/ws/leaderboard", h.ws.ServeWS)
	return r
}

func (h *Handler) puzzleToday(w http.ResponseWriter, r *http.Request) {
	puzzle, err := h.service.PuzzleToday(r.Context())
	if err != nil {
		if errors.Is(err, domain.ErrPuzzleNotFound) || errors.Is(err, domain.ErrEmptyPuzzle) {
			writeError(w, http.StatusNotFound, "no puzzle published for today")
			return
		}
		log.Printf("puzzle today: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	writeJSON(w, http.StatusOK, puzzle)
}

type attemptRequest struct {
	PuzzleDate string            `json:"puzzleDate"`
	Answers    map[string]string `json:"answers"`
}

type attemptResponse struct {
	OK               bool      `json:"ok"`
	AlreadySubmitted bool      `json:"alreadySubmitted"`
	PuzzleDate       string    `json:"puzzleDate"`
	Score            int       `json:"score"`
	TotalRounds      int       `json:"totalRounds"`
	CreatedAt        time.Time `json:"createdAt"`
}

type errorResponse struct {
	Error       string `json:"error"`
	Details     string `json:"details,omitempty"`
	PuzzleDate  string `json:"puzzleDate,omitempty"`
	TotalRounds int    `json:"totalRounds,omitempty"`
	Answered    int    `json:"answered,omitempty"`
}

func (h *Handler) submitAttempt(w http.ResponseWriter, r *http.Request) {
	userID := r.Header.Get(userHeader)

	var req attemptRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	attempt, already, err := h.service.SubmitAttempt(r.Context(), userID, req.PuzzleDate, req.Answers)
	if err != nil {
		h.writeAttemptError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, attemptResponse{
		OK:               true,
		AlreadySubmitted: already,
		PuzzleDate:       attempt.PuzzleDate,
		Score:            attempt.Score,
		TotalRounds:      attempt.TotalRounds,
		CreatedAt:        attempt.CreatedAt,
	})
}

func (h *Handler) writeAttemptError(w http.ResponseWriter, err error) {
	var validation *app.ValidationError
	switch {
	case errors.Is(err, domain.ErrMissingUser):
		writeError(w, http.StatusBadRequest, err.Error())
	case errors.As(err, &validation):
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{
			Error:       validation.Err.Error(),
			Details:     validation.Details,
			PuzzleDate:  validation.PuzzleDate,
			TotalRounds: validation.TotalRounds,
			Answered:    validation.Answered,
		})
	case errors.Is(err, domain.ErrPuzzleNotFound), errors.Is(err, domain.ErrEmptyPuzzle):
		writeError(w, http.StatusNotFound, "no puzzle published for today")
	default:
		log.Printf("submit attempt: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func (h *Handler) leaderboardToday(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = parsed
	}
	board, err := h.service.LeaderboardToday(r.Context(), limit)
	if err != nil {
		log.Printf("leaderboard today: %v", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}
	if board.Entries == nil {
		board.Entries = []domain.LeaderboardEntry{}
	}
	writeJSON(w, http.StatusOK, board)
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		log.Printf("write response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}
