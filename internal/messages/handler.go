package messages

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/parley-forum/parley/internal/access"
	"github.com/parley-forum/parley/internal/identity"
	"github.com/parley-forum/parley/internal/platform/httpx"
)

// Handler wires HTTP endpoints for direct messages.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	guard     access.Middleware
	validator *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, guard access.Middleware) *Handler {
	return &Handler{logger: logger, service: service, guard: guard, validator: validator.New()}
}

// MountRoutes registers message routes. Everything requires a caller.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.guard.RequireUser)
		r.Post("/", h.send)
		r.Get("/conversations", h.conversations)
		r.Get("/conversations/{userID}", h.conversation)
	})
}

type sendMessageRequest struct {
	RecipientID int64  `json:"recipient_id" validate:"required,gt=0"`
	Content     string `json:"content" validate:"required,min=1,max=5000"`
}

type messageResponse struct {
	ID          int64     `json:"message_id"`
	SenderID    int64     `json:"sender_id"`
	RecipientID int64     `json:"recipient_id"`
	Content     string    `json:"content"`
	CreatedAt   time.Time `json:"created_at"`
}

func (h *Handler) send(w http.ResponseWriter, r *http.Request) {
	var req sendMessageRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	user, _ := identity.UserFromContext(r.Context())
	message, err := h.service.Send(r.Context(), user.ID, req.RecipientID, req.Content)
	if err != nil {
		if errors.Is(err, ErrSelfMessage) {
			httpx.Problem(w, http.StatusBadRequest, "Bad Request", err.Error())
			return
		}
		h.logger.Warn("send message", slog.Int64("recipient_id", req.RecipientID), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toMessageResponse(*message))
}

func (h *Handler) conversations(w http.ResponseWriter, r *http.Request) {
	user, _ := identity.UserFromContext(r.Context())
	result, err := h.service.Conversations(r.Context(), user.ID)
	if err != nil {
		h.logger.Error("list conversations", slog.Int64("user_id", user.ID), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	payload := make([]map[string]any, len(result))
	for i, partner := range result {
		payload[i] = map[string]any{
			"user_id":         partner.UserID,
			"username":        partner.Username,
			"last_message_at": partner.LastMessageAt,
		}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"conversations": payload})
}

func (h *Handler) conversation(w http.ResponseWriter, r *http.Request) {
	otherID, err := strconv.ParseInt(chi.URLParam(r, "userID"), 10, 64)
	if err != nil || otherID <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid userID")
		return
	}

	user, _ := identity.UserFromContext(r.Context())
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	perPage, _ := strconv.Atoi(r.URL.Query().Get("per_page"))

	result, pagination, err := h.service.ConversationWith(r.Context(), user.ID, otherID, page, perPage)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	payload := make([]messageResponse, len(result))
	for i, message := range result {
		payload[i] = toMessageResponse(message)
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"messages":    payload,
		"page":        pagination.Page,
		"per_page":    pagination.PerPage,
		"total":       pagination.Total,
		"total_pages": pagination.TotalPages,
	})
}

func toMessageResponse(message Message) messageResponse {
	return messageResponse{
		ID:          message.ID,
		SenderID:    message.SenderID,
		RecipientID: message.RecipientID,
		Content:     message.Content,
		CreatedAt:   message.CreatedAt,
	}
}
