package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/joho/godotenv"

	"github.com/hongminglow/citizen-portal/internal/auth"
	"github.com/hongminglow/citizen-portal/internal/config"
	"github.com/hongminglow/citizen-portal/internal/models/dto"
	"github.com/hongminglow/citizen-portal/internal/rbac"
	"github.com/hongminglow/citizen-portal/internal/storage/postgres"
)

// TestAuthIntegration exercises the register/login endpoints against the configured Postgres database.
func TestAuthIntegration(t *testing.T) {
	if os.Getenv("RUN_AUTH_INTEGRATION") != "true" {
		t.Skip("set RUN_AUTH_INTEGRATION=true to run this integration test")
	}

	loadDotEnv()
	cfg, err := config.Load()
	if err != nil {
		t.Fatalf("load config: %v", err)
	}

	ctx := context.Background()
	store, err := postgres.New(ctx, cfg.DatabaseURL)
	if err != nil {
		t.Fatalf("init store: %v", err)
	}
	defer store.Close()

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	graph := rbac.NewGraph(store)
	hasher := auth.NewBcryptHasher(cfg.BcryptCost)
	tokens := auth.NewTokenManager(cfg.JWTSecret, cfg.JWTIssuer, cfg.JWTTTL())
	authn := auth.NewAuthenticator(store, hasher, tokens)

	r := chi.NewRouter()
	NewAuthHandler(authn, auth.NewRegistrar(store, graph, hasher), store, graph, logger).Register(r)

	ts := httptest.NewServer(r)
	defer ts.Close()

	stamp := time.Now().UnixNano()
	email := fmt.Sprintf("apitest_%d@example.com", stamp)
	nationalID := fmt.Sprintf("%09d", stamp%1_000_000_000)
	password := fmt.Sprintf("Pass!%d", stamp)

	user := requestRegister(t, ts.URL, map[string]string{
		"email":       email,
		"password":    password,
		"first_name":  "Api",
		"last_name":   "Test",
		"national_id": nationalID,
	})
	if user.Email != email || user.NationalID != nationalID {
		t.Fatalf("register mismatch: got %+v", user)
	}

	loggedIn := requestLogin(t, ts.URL, email, password)
	if loggedIn.User.ID != user.ID {
		t.Fatalf("login returned wrong user id: want %d got %d", user.ID, loggedIn.User.ID)
	}
	if strings.TrimSpace(loggedIn.AccessToken) == "" {
		t.Fatal("login response missing token")
	}

	verified, err := authn.VerifyToken(ctx, loggedIn.AccessToken)
	if err != nil {
		t.Fatalf("verify issued token: %v", err)
	}
	if verified.ID != user.ID {
		t.Fatalf("token resolved to user %d, want %d", verified.ID, user.ID)
	}

	t.Logf("created user %s (id=%d) and successfully logged in via /auth/login", email, user.ID)
}

func requestRegister(t *testing.T, baseURL string, payload map[string]string) dto.UserResponse {
	t.Helper()
	body, err := json.Marshal(payload)
	if err != nil {
		t.Fatalf("marshal register payload: %v", err)
	}

	req, err := http.NewRequest(http.MethodPost, fmt.Sprintf("%s/auth/register", baseURL), bytes.NewReader(body))
	if err != nil {
		t.Fatalf("build register request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("register request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("register status = %d", resp.StatusCode)
	}

	var out dto.UserResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode register response: %v", err)
	}
	return out
}

func requestLogin(t *testing.T, baseURL, email, password string) dto.LoginResponse {
	t.Helper()
	form := url.Values{"username": {email}, "password": {password}}

	resp, err := http.PostForm(fmt.Sprintf("%s/auth/login", baseURL), form)
	if err != nil {
		t.Fatalf("login request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		t.Fatalf("login status = %d", resp.StatusCode)
	}

	var out dto.LoginResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		t.Fatalf("decode login response: %v", err)
	}
	return out
}

func loadDotEnv() {
	paths := []string{
		".env",
		"../.env",
		"../../.env",
		"../../../.env",
		"../../../../.env",
	}
	for _, path := range paths {
		_ = godotenv.Overload(path)
	}
}
