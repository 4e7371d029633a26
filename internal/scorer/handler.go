package scorer

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	apperrors "github.com/Adithya-Monish-Kumar-K/Phrase-Decoder/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/Phrase-Decoder/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/Phrase-Decoder/pkg/middleware"
)

const maxBodyBytes = 1 << 20

// batchRequest is the body of POST /api/v1/score/batch.
type batchRequest struct {
	Requests []Request `json:"requests"`
}

type Handler struct {
	scorer *Scorer
	logger *slog.Logger
}

func NewHandler(s *Scorer) *Handler {
	return &Handler{
		scorer: s,
		logger: slog.Default().With("component", "score-handler"),
	}
}

// Routes registers the scoring endpoints on mux.
func (h *Handler) Routes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/v1/score", h.Score)
	mux.HandleFunc("POST /api/v1/score/batch", h.ScoreBatch)
}

func (h *Handler) Score(w http.ResponseWriter, r *http.Request) {
	var req Request
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if req.ID == "" {
		req.ID = middleware.GetRequestID(r.Context())
	}
	res, err := h.scorer.Score(r.Context(), req)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, res)
}

func (h *Handler) ScoreBatch(w http.ResponseWriter, r *http.Request) {
	var req batchRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if len(req.Requests) == 0 {
		h.writeError(w, http.StatusBadRequest, "requests must not be empty")
		return
	}
	results, err := h.scorer.ScoreBatch(r.Context(), req.Requests)
	if err != nil {
		h.fail(w, r, err)
		return
	}
	h.writeJSON(w, http.StatusOK, map[string]any{"results": results})
}

func (h *Handler) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := apperrors.HTTPStatusCode(err)
	if status >= http.StatusInternalServerError {
		logger.FromContext(r.Context()).Error("scoring failed", "error", err)
	}
	msg := err.Error()
	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		msg = appErr.Message
	}
	h.writeError(w, status, msg)
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
