package handler

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/tonycheng719/pickcardrebate-sub007/internal/engine"
	"github.com/tonycheng719/pickcardrebate-sub007/internal/models"
	"github.com/tonycheng719/pickcardrebate-sub007/internal/service"
	"github.com/tonycheng719/pickcardrebate-sub007/internal/validation"
)

// Handler provides HTTP handlers for the API.
type Handler struct {
	service     *service.Service
	maxBodySize int64
}

// NewHandlerOptions holds options for creating a handler.
type NewHandlerOptions struct {
	MaxBodySize int64
}

// DefaultHandlerOptions returns default handler options.
func DefaultHandlerOptions() NewHandlerOptions {
	return NewHandlerOptions{
		MaxBodySize: 10 << 20, // 10MB default
	}
}

// NewHandler creates a new handler instance.
func NewHandler(svc *service.Service) *Handler {
	return NewHandlerWithOptions(svc, DefaultHandlerOptions())
}

// NewHandlerWithOptions creates a new handler instance with custom options.
func NewHandlerWithOptions(svc *service.Service, opts NewHandlerOptions) *Handler {
	return &Handler{
		service:     svc,
		maxBodySize: opts.MaxBodySize,
	}
}

// Routes mounts all API routes on the given router.
func (h *Handler) Routes(r chi.Router) {
	r.Route("/calculations", func(r chi.Router) {
		r.Post("/", h.Calculate)
	})

	r.Route("/cards", func(r chi.Router) {
		r.Get("/", h.ListCards)
		r.Post("/", h.SaveCard)
		r.Get("/{card_id}", h.GetCard)
		r.Delete("/{card_id}", h.DeleteCard)
		r.Get("/{card_id}/scene-ratings", h.GetSceneRatings)
	})

	r.Route("/rankings", func(r chi.Router) {
		r.Get("/{group}", h.RankCategory)
	})
}

// Calculate handles POST /calculations
func (h *Handler) Calculate(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBodySize)

	var req models.CalculationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		if err == io.EOF {
			h.respondError(w, http.StatusBadRequest, "request body is required")
			return
		}
		h.respondError(w, http.StatusBadRequest, "invalid JSON in request body")
		return
	}

	req.Merchant.ID = validation.SanitizeString(req.Merchant.ID)
	req.Merchant.Name = validation.SanitizeString(req.Merchant.Name)
	for i := range req.Merchant.CategoryIDs {
		req.Merchant.CategoryIDs[i] = validation.SanitizeString(req.Merchant.CategoryIDs[i])
	}
	req.PaymentMethod = validation.SanitizeString(req.PaymentMethod)

	resp, err := h.service.CalculateRebate(r.Context(), req)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}

	h.respondJSON(w, http.StatusOK, resp)
}

// SaveCard handles POST /cards
func (h *Handler) SaveCard(w http.ResponseWriter, r *http.Request) {
	r.Body = http.MaxBytesReader(w, r.Body, h.maxBodySize)

	var card models.Card
	if err := json.NewDecoder(r.Body).Decode(&card); err != nil {
		if err == io.EOF {
			h.respondError(w, http.StatusBadRequest, "request body is required")
			return
		}
		h.respondError(w, http.StatusBadRequest, "invalid JSON in request body")
		return
	}

	saved, err := h.service.SaveCard(r.Context(), card)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}

	h.respondJSON(w, http.StatusCreated, saved)
}

// ListCards handles GET /cards
func (h *Handler) ListCards(w http.ResponseWriter, r *http.Request) {
	cards, err := h.service.ListCards(r.Context())
	if err != nil {
		h.respondServiceError(w, err)
		return
	}

	if cards == nil {
		cards = []models.Card{}
	}
	h.respondJSON(w, http.StatusOK, models.CardListResponse{Cards: cards})
}

// GetCard handles GET /cards/{card_id}
func (h *Handler) GetCard(w http.ResponseWriter, r *http.Request) {
	cardID := validation.SanitizeString(chi.URLParam(r, "card_id"))
	if cardID == "" {
		h.respondError(w, http.StatusBadRequest, "card_id is required")
		return
	}

	card, err := h.service.GetCard(r.Context(), cardID)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}

	h.respondJSON(w, http.StatusOK, card)
}

// DeleteCard handles DELETE /cards/{card_id}
func (h *Handler) DeleteCard(w http.ResponseWriter, r *http.Request) {
	cardID := validation.SanitizeString(chi.URLParam(r, "card_id"))
	if cardID == "" {
		h.respondError(w, http.StatusBadRequest, "card_id is required")
		return
	}

	if err := h.service.DeleteCard(r.Context(), cardID); err != nil {
		h.respondServiceError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// GetSceneRatings handles GET /cards/{card_id}/scene-ratings
func (h *Handler) GetSceneRatings(w http.ResponseWriter, r *http.Request) {
	cardID := validation.SanitizeString(chi.URLParam(r, "card_id"))
	if cardID == "" {
		h.respondError(w, http.StatusBadRequest, "card_id is required")
		return
	}

	resp, err := h.service.GetSceneRatings(r.Context(), cardID)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}

	h.respondJSON(w, http.StatusOK, resp)
}

// RankCategory handles GET /rankings/{group}
func (h *Handler) RankCategory(w http.ResponseWriter, r *http.Request) {
	group := validation.SanitizeString(chi.URLParam(r, "group"))
	if group == "" {
		h.respondError(w, http.StatusBadRequest, "group is required")
		return
	}

	limit := 0
	if limitParam := r.URL.Query().Get("limit"); limitParam != "" {
		parsed, err := strconv.Atoi(limitParam)
		if err != nil || parsed < 0 {
			h.respondError(w, http.StatusBadRequest, "invalid 'limit' parameter, must be a non-negative integer")
			return
		}
		limit = parsed
	}

	resp, err := h.service.RankCategory(r.Context(), group, limit)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}

	h.respondJSON(w, http.StatusOK, resp)
}

// respondServiceError maps service errors onto HTTP status codes.
func (h *Handler) respondServiceError(w http.ResponseWriter, err error) {
	var verr *validation.ValidationError
	switch {
	case errors.As(err, &verr):
		h.respondError(w, http.StatusBadRequest, err.Error())
	case errors.Is(err, service.ErrCardNotFound):
		h.respondError(w, http.StatusNotFound, err.Error())
	case errors.Is(err, engine.ErrUnknownGroup):
		h.respondError(w, http.StatusBadRequest, err.Error())
	default:
		log.Printf("internal error: %v", err)
		h.respondError(w, http.StatusInternalServerError, "internal server error")
	}
}

// respondJSON sends a JSON response with the given status code.
func (h *Handler) respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

// respondError sends an error response with the given status code and message.
func (h *Handler) respondError(w http.ResponseWriter, status int, message string) {
	h.respondJSON(w, status, models.ErrorResponse{Error: message})
}
