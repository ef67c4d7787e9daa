package categories

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/parley-forum/parley/internal/access"
	"github.com/parley-forum/parley/internal/identity"
	"github.com/parley-forum/parley/internal/platform/httpx"
	"github.com/parley-forum/parley/internal/shared"
)

// Handler wires HTTP endpoints for categories and grant administration.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	gate      *access.Gate
	guard     access.Middleware
	validator *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, gate *access.Gate, guard access.Middleware) *Handler {
	return &Handler{logger: logger, service: service, gate: gate, guard: guard, validator: validator.New()}
}

// MountRoutes registers category routes.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(h.guard.OptionalUser)
		r.Get("/", h.list)
		r.Get("/{categoryID}", h.get)
	})
	r.Group(func(r chi.Router) {
		r.Use(h.guard.RequireAdmin)
		r.Post("/", h.create)
		r.Patch("/{categoryID}/privacy", h.togglePrivacy)
		r.Patch("/{categoryID}/locking", h.toggleLock)
		r.Get("/{categoryID}/members", h.members)
		r.Post("/{categoryID}/members/{userID}", h.grantRead)
		r.Delete("/{categoryID}/members/{userID}", h.revoke)
		r.Patch("/{categoryID}/members/{userID}/access", h.toggleWrite)
	})
}

type createCategoryRequest struct {
	Name      string `json:"name" validate:"required,min=2,max=80"`
	IsPrivate bool   `json:"is_private"`
}

type categoryResponse struct {
	ID        int64  `json:"category_id"`
	Name      string `json:"name"`
	IsPrivate bool   `json:"is_private"`
	IsLocked  bool   `json:"is_locked"`
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	caller := identity.CallerFromContext(r.Context())
	page, _ := strconv.Atoi(r.URL.Query().Get("page"))
	perPage, _ := strconv.Atoi(r.URL.Query().Get("per_page"))

	result, pagination, err := h.service.ListVisible(r.Context(), caller, page, perPage)
	if err != nil {
		h.logger.Error("list categories", slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	payload := make([]categoryResponse, len(result))
	for i, category := range result {
		payload[i] = toCategoryResponse(category)
	}
	httpx.JSON(w, http.StatusOK, map[string]any{
		"categories":  payload,
		"page":        pagination.Page,
		"per_page":    pagination.PerPage,
		"total":       pagination.Total,
		"total_pages": pagination.TotalPages,
	})
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	category, ok := h.loadCategory(w, r)
	if !ok {
		return
	}
	caller := identity.CallerFromContext(r.Context())
	if denial := h.gate.AuthorizeRead(r.Context(), caller, category.Snapshot()); denial != nil {
		access.RespondDenial(w, denial)
		return
	}
	httpx.JSON(w, http.StatusOK, toCategoryResponse(*category))
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	var req createCategoryRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid request body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}

	category, err := h.service.Create(r.Context(), req.Name, req.IsPrivate)
	if err != nil {
		h.logger.Warn("create category", slog.String("name", req.Name), slog.Any("error", err))
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toCategoryResponse(*category))
}

func (h *Handler) togglePrivacy(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "categoryID")
	if !ok {
		return
	}
	category, err := h.service.TogglePrivacy(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusAccepted, toCategoryResponse(*category))
}

func (h *Handler) toggleLock(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "categoryID")
	if !ok {
		return
	}
	category, err := h.service.ToggleLock(r.Context(), id)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusAccepted, toCategoryResponse(*category))
}

func (h *Handler) members(w http.ResponseWriter, r *http.Request) {
	id, ok := h.pathID(w, r, "categoryID")
	if !ok {
		return
	}
	result, err := h.service.PrivilegedUsers(r.Context(), id)
	if err != nil {
		if errors.Is(err, ErrPublicCategory) {
			httpx.Problem(w, http.StatusBadRequest, "Bad Request", err.Error())
			return
		}
		httpx.RespondError(w, err)
		return
	}
	payload := make([]map[string]any, len(result))
	for i, member := range result {
		payload[i] = map[string]any{
			"user_id":      member.UserID,
			"username":     member.Username,
			"access_level": member.Level.String(),
		}
	}
	httpx.JSON(w, http.StatusOK, map[string]any{"members": payload})
}

func (h *Handler) grantRead(w http.ResponseWriter, r *http.Request) {
	categoryID, userID, ok := h.grantIDs(w, r)
	if !ok {
		return
	}
	if err := h.service.GrantRead(r.Context(), userID, categoryID); err != nil {
		if errors.Is(err, ErrPublicCategory) {
			httpx.Problem(w, http.StatusBadRequest, "Bad Request", err.Error())
			return
		}
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]string{"access_level": access.LevelRead.String()})
}

func (h *Handler) revoke(w http.ResponseWriter, r *http.Request) {
	categoryID, userID, ok := h.grantIDs(w, r)
	if !ok {
		return
	}
	if err := h.service.RevokeGrant(r.Context(), userID, categoryID); err != nil {
		httpx.RespondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) toggleWrite(w http.ResponseWriter, r *http.Request) {
	categoryID, userID, ok := h.grantIDs(w, r)
	if !ok {
		return
	}
	level, err := h.service.ToggleWriteAccess(r.Context(), userID, categoryID)
	if err != nil {
		httpx.RespondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusAccepted, map[string]string{"access_level": level.String()})
}

func (h *Handler) loadCategory(w http.ResponseWriter, r *http.Request) (*Category, bool) {
	id, ok := h.pathID(w, r, "categoryID")
	if !ok {
		return nil, false
	}
	category, err := h.service.Get(r.Context(), id)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			access.RespondDenial(w, access.DenyResourceMissing())
			return nil, false
		}
		h.logger.Error("load category", slog.Int64("category_id", id), slog.Any("error", err))
		httpx.RespondError(w, err)
		return nil, false
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

func (h *Handler) grantIDs(w http.ResponseWriter, r *http.Request) (categoryID, userID int64, ok bool) {
	categoryID, ok = h.pathID(w, r, "categoryID")
	if !ok {
		return 0, 0, false
	}
	userID, ok = h.pathID(w, r, "userID")
	if !ok {
		return 0, 0, false
	}
	return categoryID, userID, true
}

func toCategoryResponse(category Category) categoryResponse {
	return categoryResponse{
		ID:        category.ID,
		Name:      category.Name,
		IsPrivate: category.IsPrivate,
		IsLocked:  category.IsLocked,
	}
}
