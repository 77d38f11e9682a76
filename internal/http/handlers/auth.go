package handlers

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"

	"github.com/hongminglow/citizen-portal/internal/auth"
	"github.com/hongminglow/citizen-portal/internal/http/respond"
	"github.com/hongminglow/citizen-portal/internal/models/dto"
	"github.com/hongminglow/citizen-portal/internal/rbac"
	"github.com/hongminglow/citizen-portal/internal/storage"
)

const (
	resetRequestedMessage = "If the email exists in our system, password reset instructions have been sent to it"
	passwordResetMessage  = "Password has been reset successfully"
)

// AuthHandler owns the login, registration and password reset endpoints.
type AuthHandler struct {
	authn     *auth.Authenticator
	registrar *auth.Registrar
	users     *userViews
	store     storage.UserStore
	logger    *slog.Logger
}

// NewAuthHandler constructs the handler.
func NewAuthHandler(authn *auth.Authenticator, registrar *auth.Registrar, store storage.Store, graph *rbac.Graph, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{
		authn:     authn,
		registrar: registrar,
		users:     &userViews{items: store, graph: graph},
		store:     store,
		logger:    logger,
	}
}

// Register attaches auth routes under /auth.
func (h *AuthHandler) Register(r chi.Router) {
	r.Route("/auth", func(r chi.Router) {
		r.Post("/login", h.handleLogin)
		r.Post("/register", h.handleRegister)
		r.Post("/password-reset-request", h.handlePasswordResetRequest)
		r.Post("/reset-password", h.handleResetPassword)
	})
}

// handleLogin accepts the OAuth2 password-grant form: username carries the email.
func (h *AuthHandler) handleLogin(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid_payload", "invalid form payload")
		return
	}
	username := strings.TrimSpace(r.PostForm.Get("username"))
	password := r.PostForm.Get("password")
	if username == "" || password == "" {
		respond.Error(w, http.StatusBadRequest, "missing_fields", "username and password are required")
		return
	}

	user, err := h.authn.Authenticate(r.Context(), username, password)
	if err != nil {
		respond.FromError(w, h.logger, err)
		return
	}
	token, err := h.authn.IssueToken(user)
	if err != nil {
		respond.FromError(w, h.logger, err)
		return
	}
	view, err := h.users.build(r.Context(), user)
	if err != nil {
		respond.FromError(w, h.logger, err)
		return
	}

	h.logger.Info("user logged in", "user_id", user.ID)
	respond.JSON(w, http.StatusOK, dto.LoginResponse{
		AccessToken: token.AccessToken,
		TokenType:   token.TokenType,
		User:        view,
	})
}

func (h *AuthHandler) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req dto.RegisterRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid_payload", "invalid JSON payload")
		return
	}

	created, err := h.registrar.Register(r.Context(), auth.RegisterInput{
		Email:      req.Email,
		Password:   req.Password,
		FirstName:  req.FirstName,
		LastName:   req.LastName,
		NationalID: req.NationalID,
	})
	if err != nil {
		respond.FromError(w, h.logger, err)
		return
	}
	view, err := h.users.build(r.Context(), created)
	if err != nil {
		respond.FromError(w, h.logger, err)
		return
	}

	h.logger.Info("user registered", "user_id", created.ID)
	respond.JSON(w, http.StatusCreated, view)
}

// handlePasswordResetRequest answers identically whether or not the account exists.
func (h *AuthHandler) handlePasswordResetRequest(w http.ResponseWriter, r *http.Request) {
	var req dto.PasswordResetRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid_payload", "invalid JSON payload")
		return
	}

	email := auth.NormalizeEmail(req.Email)
	if email != "" {
		user, err := h.store.FindByEmail(r.Context(), email)
		switch {
		case err == nil:
			// Reset is not implemented: no token is stored and nothing is sent.
			h.logger.Info("password reset requested", "user_id", user.ID)
		case !isNotFound(err):
			h.logger.Error("password reset lookup failed", "err", err)
		}
	}

	respond.JSON(w, http.StatusOK, dto.MessageResponse{Message: resetRequestedMessage})
}

func (h *AuthHandler) handleResetPassword(w http.ResponseWriter, r *http.Request) {
	var req dto.ResetPasswordRequest
	if err := render.DecodeJSON(r.Body, &req); err != nil {
		respond.Error(w, http.StatusBadRequest, "invalid_payload", "invalid JSON payload")
		return
	}
	if strings.TrimSpace(req.Token) == "" || req.NewPassword == "" {
		respond.Error(w, http.StatusBadRequest, "missing_fields", "token and new_password are required")
		return
	}
	respond.JSON(w, http.StatusOK, dto.MessageResponse{Message: passwordResetMessage})
}
