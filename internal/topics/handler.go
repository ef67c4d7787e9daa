package topics

import (
	"context"
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
	"github.com/parley-forum/parley/internal/shared"
)

// CategoryDirectory provides the access snapshot of the category a
// topic lives in.
type CategoryDirectory interface {
	CategorySnapshot(ctx context.Context, id int64) (access.Category, error)
}

// Handler wires HTTP endpoints for topics.
type Handler struct {
	logger     *slog.Logger
	service    *Service
	categories CategoryDirectory
	gate       *access.Gate
	guard      access.Middleware
	validator  *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, categories CategoryDirectory, gate *access.Gate, guard access.Middleware) *Handler {
	return &Handler{
		logger:     logger,
		service:    service,
		categories: categories,
		gate:       gate,
		guard:      guard,
		validator:  validator.New(),
	}
}

// MountRoutes registers topic routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.guard.OptionalUser)
		r.Get("/", h.list)
		r.Get("/{topicID}", h.get)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.guard.RequireUser)
		r.Post("/", h.create)
		r.Patch("/{topicID}/title", h.rename)
		r.Put("/{topicID}/best-reply/{replyID}", h.chooseBestReply)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.guard.RequireAdmin)
		r.Patch("/{topicID}/locking", h.toggleLock)
	})
}

type createTopicRequest struct {
	CategoryID int64  `json:"category_id" validate:"required,gt=0"`
	Title      string `json:"title" validate:"required,min=2,max=200"`
}

type renameTopicRequest struct {
	Title string `json:"title" validate:"required,min=2,max=200"`
}

type topicResponse struct {
	ID          int64     `json:"topic_id"`
	CategoryID  int64     `json:"category_id"`
	AuthorID    int64     `json:"author_id"`
	Title       string    `json:"title"`
	Status      string    `json:"status"`
	BestReplyID *int64    `json:"best_reply_id,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	categoryID, err := strconv.ParseInt(r.URL.Query().Get("category_id"), 10, 64)
	if err != nil || categoryID <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "category_id query parameter is required")
		return
	}
	category, ok := h.snapshot(w, r, categoryID)
	if !ok {
		return
	}
	caller := identity.CallerFromContext(r.Context())
	if denial := h.gate.AuthorizeRead(r.Context(), caller, category); denial != nil {
		access.RespondDenial(w, denial)
		return
	}

	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	perPage, _ := strconv.Atoi(r.URL.Query().Get("per_page"))
	result, pagination, err := h.service.ListByCategory(r.Context(), categoryID, page, perPage)
	if err != nil {
		h.logger.Error("list topics", slog.Int64("category_id", categoryID), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	payload := make([]topicResponse, len(result))
	for i, topic := range result {
		payload[i] = toTopicResponse(topic)
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"topics":      payload,
		"page":        pagination.Page,
		"per_page":    pagination.PerPage,
		"total":       pagination.Total,
		"total_pages": pagination.TotalPages,
	})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	topic, ok := h.loadTopic(w, r)
	if !ok {
		return
	}
	category, ok := h.snapshot(w, r, topic.CategoryID)
	if !ok {
		return
	}
	caller := identity.CallerFromContext(r.Context())
	if denial := h.gate.AuthorizeRead(r.Context(), caller, category); denial != nil {
		access.RespondDenial(w, denial)
		return
	}
	httpx.JSON(w, http.StatusOK, toTopicResponse(*topic))
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req createTopicRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	category, ok := h.snapshot(w, r, req.CategoryID)
	if !ok {
		return
	}
	user, _ := identity.UserFromContext(r.Context())
	if denial := h.gate.AuthorizeWrite(r.Context(), user, category); denial != nil {
		access.RespondDenial(w, denial)
		return
	}

	topic, err := h.service.Create(r.Context(), user.ID, category, req.Title)
	if err != nil {
		h.logger.Warn("create topic", slog.Int64("category_id", req.CategoryID), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toTopicResponse(*topic))
}

func (h *Handler) rename(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "topicID")
	if !ok {
		return
	}
	var req renameTopicRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	user, _ := identity.UserFromContext(r.Context())
	topic, err := h.service.Rename(r.Context(), user, id, req.Title)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toTopicResponse(*topic))
}

func (h *Handler) chooseBestReply(w http.ResponseWriter, r *http.Request) {
	topicID, ok := h.pathID(w, r, "topicID")
	if !ok {
		return
	}
	replyID, ok := h.pathID(w, r, "replyID")
	if !ok {
		return
	}

	user, _ := identity.UserFromContext(r.Context())
	topic, err := h.service.ChooseBestReply(r.Context(), user, topicID, replyID)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toTopicResponse(*topic))
}

func (h *Handler) toggleLock(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "topicID")
	if !ok {
		return
	}
	caller := identity.CallerFromContext(r.Context())
	topic, err := h.service.ToggleLock(r.Context(), caller, id)
	if err != nil {
		h.respondServiceError(w, err)
		return
	}
	httpx.JSON(w, http.StatusAccepted, toTopicResponse(*topic))
}

func (h *Handler) respondServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotAuthor):
		httpx.Problem(w, http.StatusForbidden, "Forbidden", err.Error())
	case errors.Is(err, ErrForeignReply):
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", err.Error())
	case errors.Is(err, identity.ErrAdminRequired):
		httpx.Problem(w, http.StatusForbidden, "Forbidden", err.Error())
	default:
		httpx.RespondError(w, err)
	}
}

func (h *Handler) loadTopic(w http.ResponseWriter, r *http.Request) (*Topic, bool) {
	id, ok := h.pathID(w, r, "topicID")
	if !ok {
		return nil, false
	}
	topic, err := h.service.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			access.RespondDenial(w, access.DenyResourceMissing())
			return nil, false
		}
		h.logger.Error("load topic", slog.Int64("topic_id", id), slog.Any("error", err))
		httpx.RespondError(w, err)
		return nil, false
	}
	return topic, true
}

func (h *Handler) snapshot(w http.ResponseWriter, r *http.Request, categoryID int64) (access.Category, bool) {
	category, err := h.categories.CategorySnapshot(r.Context(), categoryID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			access.RespondDenial(w, access.DenyResourceMissing())
			return access.Category{}, false
		}
		h.logger.Error("load category", slog.Int64("category_id", categoryID), slog.Any("error", err))
		httpx.RespondError(w, err)
		return access.Category{}, false
	}
	return category, true
}

func (h *Handler) pathID(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid "+name)
		return 0, false
	}
	return id, true
}

func toTopicResponse(topic Topic) topicResponse {
	return topicResponse{
		ID:          topic.ID,
		CategoryID:  topic.CategoryID,
		AuthorID:    topic.AuthorID,
		Title:       topic.Title,
		Status:      topic.Status(),
		BestReplyID: topic.BestReplyID,
		CreatedAt:   topic.CreatedAt,
	}
}
