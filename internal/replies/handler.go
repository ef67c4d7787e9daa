package replies

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
// reply's topic lives in.
type CategoryDirectory interface {
	CategorySnapshot(ctx context.Context, id int64) (access.Category, error)
}

// Handler wires HTTP endpoints for replies and votes.
type Handler struct {
	logger     *slog.Logger
	service    *Service
	topics     TopicDirectory
	categories CategoryDirectory
	gate       *access.Gate
	guard      access.Middleware
	validator  *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, topics TopicDirectory, categories CategoryDirectory, gate *access.Gate, guard access.Middleware) *Handler {
	return &Handler{
		logger:     logger,
		service:    service,
		topics:     topics,
		categories: categories,
		gate:       gate,
		guard:      guard,
		validator:  validator.New(),
	}
}

// MountRoutes registers reply routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.guard.OptionalUser)
		r.Get("/", h.list)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.guard.RequireUser)
		r.Post("/", h.create)
		r.Put("/{replyID}/vote", h.vote)
	})
}

type createReplyRequest struct {
	TopicID int64  `json:"topic_id" validate:"required,gt=0"`
	Content string `json:"content" validate:"required,min=1,max=10000"`
}

type voteRequest struct {
	Vote string `json:"vote" validate:"required"`
}

type replyResponse struct {
	ID        int64     `json:"reply_id"`
	TopicID   int64     `json:"topic_id"`
	AuthorID  int64     `json:"author_id"`
	Content   string    `json:"content"`
	Upvotes   int       `json:"upvotes"`
	Downvotes int       `json:"downvotes"`
	CreatedAt time.Time `json:"created_at"`
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	topicID, err := strconv.ParseInt(r.URL.Query().Get("topic_id"), 10, 64)
	if err != nil || topicID <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "topic_id query parameter is required")
		return
	}
	caller := identity.CallerFromContext(r.Context())
	if !h.authorizeTopic(w, r, caller, topicID, false) {
		return
	}

	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	perPage, _ := strconv.Atoi(r.URL.Query().Get("per_page"))
	result, pagination, err := h.service.ListByTopic(r.Context(), topicID, page, perPage)
	if err != nil {
		h.logger.Error("list replies", slog.Int64("topic_id", topicID), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	payload := make([]replyResponse, len(result))
	for i, reply := range result {
		payload[i] = toReplyResponse(reply)
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"replies":     payload,
		"page":        pagination.Page,
		"per_page":    pagination.PerPage,
		"total":       pagination.Total,
		"total_pages": pagination.TotalPages,
	})
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req createReplyRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	user, _ := identity.UserFromContext(r.Context())
	if !h.authorizeTopic(w, r, user, req.TopicID, true) {
		return
	}

	reply, err := h.service.Create(r.Context(), user.ID, req.TopicID, req.Content)
	if err != nil {
		h.logger.Warn("create reply", slog.Int64("topic_id", req.TopicID), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toReplyResponse(*reply))
}

func (h *Handler) vote(w http.ResponseWriter, r *http.Request) {
	replyID, err := strconv.ParseInt(chi.URLParam(r, "replyID"), 10, 64)
	if err != nil || replyID <= 0 {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid replyID")
		return
	}
	var req voteRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid request body")
		return
	}
	value, err := ParseVote(req.Vote)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", err.Error())
		return
	}

	topicID, err := h.service.TopicOf(r.Context(), replyID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			access.RespondDenial(w, access.DenyResourceMissing())
			return
		}
		httpx.RespondError(w, err)
		return
	}
	user, _ := identity.UserFromContext(r.Context())
	if !h.authorizeTopic(w, r, user, topicID, false) {
		return
	}

	reply, err := h.service.Vote(r.Context(), user.ID, replyID, value)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toReplyResponse(*reply))
}

// authorizeTopic resolves the topic's category and runs the read or
// write check against it. Responds and returns false on any failure.
func (h *Handler) authorizeTopic(w http.ResponseWriter, r *http.Request, caller identity.Caller, topicID int64, write bool) bool {
	categoryID, _, err := h.topics.TopicRef(r.Context(), topicID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			access.RespondDenial(w, access.DenyResourceMissing())
			return false
		}
		h.logger.Error("load topic", slog.Int64("topic_id", topicID), slog.Any("error", err))
		httpx.RespondError(w, err)
		return false
	}
	category, err := h.categories.CategorySnapshot(r.Context(), categoryID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			access.RespondDenial(w, access.DenyResourceMissing())
			return false
		}
		h.logger.Error("load category", slog.Int64("category_id", categoryID), slog.Any("error", err))
		httpx.RespondError(w, err)
		return false
	}

	var denial *access.Denial
	if write {
		denial = h.gate.AuthorizeWrite(r.Context(), caller, category)
	} else {
		denial = h.gate.AuthorizeRead(r.Context(), caller, category)
	}
	if denial != nil {
		access.RespondDenial(w, denial)
		return false
	}
	return true
}

func toReplyResponse(reply Reply) replyResponse {
	return replyResponse{
		ID:        reply.ID,
		TopicID:   reply.TopicID,
		AuthorID:  reply.AuthorID,
		Content:   reply.Content,
		Upvotes:   reply.Upvotes,
		Downvotes: reply.Downvotes,
		CreatedAt: reply.CreatedAt,
	}
}
