package handlers

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/hongminglow/citizen-portal/internal/http/respond"
	"github.com/hongminglow/citizen-portal/internal/middleware"
	"github.com/hongminglow/citizen-portal/internal/models"
	"github.com/hongminglow/citizen-portal/internal/models/dto"
	"github.com/hongminglow/citizen-portal/internal/rbac"
	"github.com/hongminglow/citizen-portal/internal/storage"
)

// RoleHandler administers roles, permissions and grants.
type RoleHandler struct {
	store  storage.RoleStore
	graph  *rbac.Graph
	logger *slog.Logger
}

// NewRoleHandler constructs the handler.
func NewRoleHandler(store storage.RoleStore, graph *rbac.Graph, logger *slog.Logger) *RoleHandler {
	return &RoleHandler{store: store, graph: graph, logger: logger}
}

// Register attaches role and permission routes. Every route requires admin_access.
func (h *RoleHandler) Register(r chi.Router) {
	r.Group(func(r chi.Router) {
		r.Use(middleware.RequirePermission(h.graph, models.PermAdminAccess, h.logger))

		r.Get("/roles", h.handleListRoles)
		r.Post("/roles", h.handleCreateRole)
		r.Get("/roles/{id}", h.handleGetRole)
		r.Put("/roles/{id}/permissions/{permissionID}", h.handleAssign)

		r.Get("/permissions", h.handleListPermissions)
		r.Post("/permissions", h.handleCreatePermission)
	})
}

func (h *RoleHandler) handleListRoles(w http.ResponseWriter, r *http.Request) {
	page, ok := pageFromQuery(w, r)
	if !ok {
		return
	}
	roles, err := h.store.ListRoles(r.Context(), page)
	if err != nil {
		respond.FromError(w, h.logger, err)
		return
	}
	for i := range roles {
		roles[i].Permissions, err = h.store.RolePermissions(r.Context(), roles[i].ID)
		if err != nil {
			respond.FromError(w, h.logger, err)
			return
		}
	}
	respond.JSON(w, http.StatusOK, roles)
}

func (h *RoleHandler) handleGetRole(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	role, err := h.graph.RoleWithPermissions(r.Context(), id)
	if err != nil {
		respond.FromError(w, h.logger, err)
		return
	}
	respond.JSON(w, http.StatusOK, role)
}

func (h *RoleHandler) handleCreateRole(w http.ResponseWriter, r *http.Request) {
	var req dto.CreateRoleRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid_payload", "invalid JSON payload")
		return
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		respond.Error(w, http.StatusBadRequest, "missing_fields", "name is required")
		return
	}
	role, err := h.store.CreateRole(r.Context(), models.Role{Name: name, Description: req.Description})
	if err != nil {
		respond.FromError(w, h.logger, err)
		return
	}
	role.Permissions = []models.Permission{}
	h.logger.Info("role created", "role", role.Name)
	respond.JSON(w, http.StatusCreated, role)
}

func (h *RoleHandler) handleAssign(w http.ResponseWriter, r *http.Request) {
	roleID, ok := idParam(w, r, "id")
	if !ok {
		return
	}
	permissionID, ok := idParam(w, r, "permissionID")
	if !ok {
		return
	}
	if err := h.graph.AssignPermission(r.Context(), roleID, permissionID); err != nil {
		respond.FromError(w, h.logger, err)
		return
	}
	role, err := h.graph.RoleWithPermissions(r.Context(), roleID)
	if err != nil {
		respond.FromError(w, h.logger, err)
		return
	}
	h.logger.Info("permission granted", "role_id", roleID, "permission_id", permissionID)
	respond.JSON(w, http.StatusOK, role)
}

func (h *RoleHandler) handleListPermissions(w http.ResponseWriter, r *http.Request) {
	page, ok := pageFromQuery(w, r)
	if !ok {
		return
	}
	perms, err := h.store.ListPermissions(r.Context(), page)
	if err != nil {
		respond.FromError(w, h.logger, err)
		return
	}
	respond.JSON(w, http.StatusOK, perms)
}

func (h *RoleHandler) handleCreatePermission(w http.ResponseWriter, r *http.Request) {
	var req dto.CreatePermissionRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid_payload", "invalid JSON payload")
		return
	}
	name := strings.TrimSpace(req.Name)
	if name == "" {
		respond.Error(w, http.StatusBadRequest, "missing_fields", "name is required")
		return
	}
	perm, err := h.store.CreatePermission(r.Context(), models.Permission{Name: name, Description: req.Description})
	if err != nil {
		respond.FromError(w, h.logger, err)
		return
	}
	respond.JSON(w, http.StatusCreated, perm)
}
