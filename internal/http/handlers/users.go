package handlers

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/hongminglow/citizen-portal/internal/auth"
	"github.com/hongminglow/citizen-portal/internal/http/respond"
	"github.com/hongminglow/citizen-portal/internal/middleware"
	"github.com/hongminglow/citizen-portal/internal/models"
	"github.com/hongminglow/citizen-portal/internal/models/dto"
	"github.com/hongminglow/citizen-portal/internal/rbac"
	"github.com/hongminglow/citizen-portal/internal/storage"
)

// userViews expands a user into its public response shape.
type userViews struct {
	items storage.ItemStore
	graph *rbac.Graph
}

func (v *userViews) build(ctx context.Context, user models.User) (dto.UserResponse, error) {
	items, err := v.items.ListItemsByOwner(ctx, user.ID)
	if err != nil {
		return dto.UserResponse{}, err
	}
	out, err := dto.NewUserResponse(user, items)
	if err != nil {
		return dto.UserResponse{}, err
	}
	if out.Role != nil {
		role := *out.Role
		role.Permissions, err = v.graph.PermissionsOf(ctx, user)
		if err != nil {
			return dto.UserResponse{}, err
		}
		out.Role = &role
	}
	return out, nil
}

// UserHandler serves the authenticated user directory.
type UserHandler struct {
	store     storage.Store
	graph     *rbac.Graph
	registrar *auth.Registrar
	views     *userViews
	logger    *slog.Logger
}

// NewUserHandler constructs the handler.
func NewUserHandler(store storage.Store, graph *rbac.Graph, registrar *auth.Registrar, logger *slog.Logger) *UserHandler {
	return &UserHandler{
		store:     store,
		graph:     graph,
		registrar: registrar,
		views:     &userViews{items: store, graph: graph},
		logger:    logger,
	}
}

// Register attaches user routes. r must already require authentication.
func (h *UserHandler) Register(r chi.Router) {
	manage := middleware.RequirePermission(h.graph, models.PermManageUsers, h.logger)

	r.Route("/users", func(r chi.Router) {
		r.Get("/me", h.handleMe)
		r.With(manage).Get("/", h.handleList)
		r.With(manage).Post("/", h.handleCreate)
		r.Get("/{id}", h.handleGet)
		r.Get("/{id}/items", h.handleListItems)
		r.Post("/{id}/items", h.handleCreateItem)
	})
}

func (h *UserHandler) handleMe(w http.ResponseWriter, r *http.Request) {
	user, _ := middleware.UserFromContext(r.Context())
	view, err := h.views.build(r.Context(), user)
	if err != nil {
		respond.FromError(w, h.logger, err)
		return
	}
	respond.JSON(w, http.StatusOK, view)
}

func (h *UserHandler) handleList(w http.ResponseWriter, r *http.Request) {
	page, ok := pageFromQuery(w, r)
	if !ok {
		return
	}
	users, err := h.store.ListUsers(r.Context(), page)
	if err != nil {
		respond.FromError(w, h.logger, err)
		return
	}
	out := make([]dto.UserResponse, 0, len(users))
	for _, u := range users {
		view, err := h.views.build(r.Context(), u)
		if err != nil {
			respond.FromError(w, h.logger, err)
			return
		}
		out = append(out, view)
	}
	respond.JSON(w, http.StatusOK, out)
}

func (h *UserHandler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateUserRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid_payload", "invalid JSON payload")
		return
	}

	created, err := h.registrar.CreateWithProfile(r.Context(), auth.RegisterInput{
		Email:      req.Email,
		Password:   req.Password,
		FirstName:  req.FirstName,
		LastName:   req.LastName,
		NationalID: req.NationalID,
	}, auth.ProfileInput{
		Address: models.Address{
			City:         req.City,
			Neighborhood: req.Neighborhood,
			Street:       req.Street,
			Building:     req.Building,
			Entrance:     req.Entrance,
			PostalCode:   req.PostalCode,
		},
		DateOfBirth: req.DateOfBirth,
		Gender:      req.Gender,
		PhoneNumber: req.PhoneNumber,
		RoleID:      req.RoleID,
	})
	if err != nil {
		respond.FromError(w, h.logger, err)
		return
	}
	view, err := h.views.build(r.Context(), created)
	if err != nil {
		respond.FromError(w, h.logger, err)
		return
	}
	respond.JSON(w, http.StatusCreated, view)
}

func (h *UserHandler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, ok := h.authorizeUser(w, r)
	if !ok {
		return
	}
	user, err := h.store.GetUser(r.Context(), id)
	if err != nil {
		respond.FromError(w, h.logger, err)
		return
	}
	view, err := h.views.build(r.Context(), user)
	if err != nil {
		respond.FromError(w, h.logger, err)
		return
	}
	respond.JSON(w, http.StatusOK, view)
}

func (h *UserHandler) handleListItems(w http.ResponseWriter, r *http.Request) {
	id, ok := h.authorizeUser(w, r)
	if !ok {
		return
	}
	if _, err := h.store.GetUser(r.Context(), id); err != nil {
		respond.FromError(w, h.logger, err)
		return
	}
	items, err := h.store.ListItemsByOwner(r.Context(), id)
	if err != nil {
		respond.FromError(w, h.logger, err)
		return
	}
	respond.JSON(w, http.StatusOK, items)
}

func (h *UserHandler) handleCreateItem(w http.ResponseWriter, r *http.Request) {
	id, ok := h.authorizeUser(w, r)
	if !ok {
		return
	}
	var req dto.CreateItemRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid_payload", "invalid JSON payload")
		return
	}
	if req.Name == "" {
		respond.Error(w, http.StatusBadRequest, "missing_fields", "name is required")
		return
	}

	item, err := h.store.CreateItem(r.Context(), models.Item{
		Name:        req.Name,
		Description: req.Description,
		IsActive:    true,
		OwnerID:     id,
	})
	if err != nil {
		respond.FromError(w, h.logger, err)
		return
	}
	respond.JSON(w, http.StatusCreated, item)
}

// authorizeUser parses {id} and allows the caller when it is their own record
// or they hold manage_users.
func (h *UserHandler) authorizeUser(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return 0, false
	}
	caller, _ := middleware.UserFromContext(r.Context())
	if caller.ID == id {
		return id, true
	}
	allowed, err := h.graph.HasPermission(r.Context(), caller, models.PermManageUsers)
	if err != nil {
		respond.FromError(w, h.logger, err)
		return 0, false
	}
	if !allowed {
		respond.FromError(w, h.logger, respond.ErrForbidden)
		return 0, false
	}
	return id, true
}

func idParam(w http.ResponseWriter, r *http.Request, name string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, name), 10, 64)
	if err != nil || id <= 0 {
		respond.Error(w, http.StatusBadRequest, "invalid_id", name+" must be a positive integer")
		return 0, false
	}
	return id, true
}

// pageFromQuery reads skip and limit; limit is clamped to storage.MaxLimit.
func pageFromQuery(w http.ResponseWriter, r *http.Request) (storage.Page, bool) {
	page := storage.Page{Limit: storage.DefaultLimit}
	q := r.URL.Query()
	if raw := q.Get("skip"); raw != "" {
		skip, err := strconv.Atoi(raw)
		if err != nil || skip < 0 {
			respond.Error(w, http.StatusBadRequest, "invalid_query", "skip must be a non-negative integer")
			return storage.Page{}, false
		}
		page.Skip = skip
	}
	if raw := q.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit <= 0 {
			respond.Error(w, http.StatusBadRequest, "invalid_query", "limit must be a positive integer")
			return storage.Page{}, false
		}
		page.Limit = min(limit, storage.MaxLimit)
	}
	return page, true
}

func isNotFound(err error) bool {
	return errors.Is(err, storage.ErrNotFound)
}
