package handlers

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/hongminglow/citizen-portal/internal/http/respond"
	"github.com/hongminglow/citizen-portal/internal/middleware"
	"github.com/hongminglow/citizen-portal/internal/models"
	"github.com/hongminglow/citizen-portal/internal/rbac"
	"github.com/hongminglow/citizen-portal/internal/storage"
)

// ItemHandler lists items across all owners.
type ItemHandler struct {
	store  storage.ItemStore
	graph  *rbac.Graph
	logger *slog.Logger
}

// NewItemHandler constructs the handler.
func NewItemHandler(store storage.ItemStore, graph *rbac.Graph, logger *slog.Logger) *ItemHandler {
	return &ItemHandler{store: store, graph: graph, logger: logger}
}

// Register attaches item routes. r must already require authentication.
func (h *ItemHandler) Register(r chi.Router) {
	r.With(middleware.RequirePermission(h.graph, models.PermReadPublic, h.logger)).Get("/items", h.handleList)
}

func (h *ItemHandler) handleList(w http.ResponseWriter, r *http.Request) {
	page, ok := pageFromQuery(w, r)
	if !ok {
		return
	}
	items, err := h.store.ListItems(r.Context(), page)
	if err != nil {
		respond.FromError(w, h.logger, err)
		return
	}
	respond.JSON(w, http.StatusOK, items)
}
