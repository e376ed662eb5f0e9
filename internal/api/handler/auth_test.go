package handler_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/rensmac/go-api-starter/internal/api/handler"
	customMiddleware "github.com/rensmac/go-api-starter/internal/api/middleware"
	"github.com/rensmac/go-api-starter/internal/domain"
	"github.com/rensmac/go-api-starter/internal/ratelimit"
	"github.com/rensmac/go-api-starter/internal/security"
	"github.com/rensmac/go-api-starter/internal/service"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// memoryUserRepo is an in-memory service.UserRepository for handler tests
type memoryUserRepo struct {
	mu    sync.Mutex
	users map[uuid.UUID]*domain.User
}

func newMemoryUserRepo() *memoryUserRepo {
	return &memoryUserRepo{users: make(map[uuid.UUID]*domain.User)}
}

func (r *memoryUserRepo) Create(_ context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if strings.EqualFold(u.Email, user.Email) {
			return domain.ErrDuplicateEmail
		}
	}
	copied := *user
	r.users[user.ID] = &copied
	return nil
}

func (r *memoryUserRepo) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if strings.EqualFold(u.Email, email) {
			copied := *u
			return &copied, nil
		}
	}
	return nil, nil
}

func (r *memoryUserRepo) GetByID(_ context.Context, id uuid.UUID) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, nil
	}
	copied := *u
	return &copied, nil
}

// newTestRouter wires real security components and an in-memory repo
// behind the production handler and middleware stack
func newTestRouter(t *testing.T, limiterRate float64, limiterBurst int) http.Handler {
	t.Helper()

	tokenManager := security.NewTokenManager("test-secret-key-with-32-chars!!!", time.Hour)
	authService := service.NewAuthService(newMemoryUserRepo(), security.NewPasswordHasher(), tokenManager)
	authHandler := handler.NewAuthHandler(authService)

	authMiddleware := customMiddleware.NewAuthMiddleware(tokenManager)
	limiter := ratelimit.NewMemoryLimiter(limiterRate, limiterBurst, time.Minute)
	rateLimitMiddleware := customMiddleware.NewRateLimitMiddleware(limiter)

	r := chi.NewRouter()
	r.Route("/api/v1/auth", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(rateLimitMiddleware.Limit)
			r.Post("/register", authHandler.Register)
			r.Post("/login", authHandler.Login)
		})
		r.Group(func(r chi.Router) {
			r.Use(authMiddleware.Authenticate)
			r.Use(rateLimitMiddleware.Limit)
			r.Get("/me", authHandler.Me)
		})
	})
	return r
}

func doJSON(t *testing.T, router http.Handler, method, path string, body any, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	req.RemoteAddr = "10.0.0.1:52814"
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func decodeBody(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()

	var resp map[string]any
	require.NoError(t, json.NewDecoder(rec.Body).Decode(&resp))
	return resp
}

func TestAuthFlow(t *testing.T) {
	router := newTestRouter(t, 100, 100)
	credentials := map[string]string{"email": "a@b.com", "password": "secret123"}

	// Register
	rec := doJSON(t, router, http.MethodPost, "/api/v1/auth/register", credentials, nil)
	require.Equal(t, http.StatusCreated, rec.Code)

	data := decodeBody(t, rec)["data"].(map[string]any)
	token, _ := data["token"].(string)
	require.NotEmpty(t, token)

	user := data["user"].(map[string]any)
	assert.Equal(t, "a@b.com", user["email"])
	assert.NotEmpty(t, user["id"])
	assert.NotContains(t, user, "password_hash")

	// Duplicate registration
	rec = doJSON(t, router, http.MethodPost, "/api/v1/auth/register", credentials, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	// Case-insensitive duplicate
	rec = doJSON(t, router, http.MethodPost, "/api/v1/auth/register",
		map[string]string{"email": "A@B.com", "password": "secret123"}, nil)
	assert.Equal(t, http.StatusConflict, rec.Code)

	// Login with wrong password
	rec = doJSON(t, router, http.MethodPost, "/api/v1/auth/login",
		map[string]string{"email": "a@b.com", "password": "wrong-pass"}, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// Login with correct password
	rec = doJSON(t, router, http.MethodPost, "/api/v1/auth/login", credentials, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	data = decodeBody(t, rec)["data"].(map[string]any)
	loginToken, _ := data["token"].(string)
	require.NotEmpty(t, loginToken)

	// Protected endpoint with the issued token
	rec = doJSON(t, router, http.MethodGet, "/api/v1/auth/me", nil,
		map[string]string{"Authorization": "Bearer " + loginToken})
	require.Equal(t, http.StatusOK, rec.Code)

	me := decodeBody(t, rec)["data"].(map[string]any)
	assert.Equal(t, "a@b.com", me["email"])

	// Tampered signature is rejected
	sigStart := strings.LastIndex(loginToken, ".") + 1
	flipped := "A"
	if loginToken[sigStart] == 'A' {
		flipped = "B"
	}
	tampered := loginToken[:sigStart] + flipped + loginToken[sigStart+1:]

	rec = doJSON(t, router, http.MethodGet, "/api/v1/auth/me", nil,
		map[string]string{"Authorization": "Bearer " + tampered})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestAuthFlow_MissingOrBadHeader(t *testing.T) {
	router := newTestRouter(t, 100, 100)

	rec := doJSON(t, router, http.MethodGet, "/api/v1/auth/me", nil, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = doJSON(t, router, http.MethodGet, "/api/v1/auth/me", nil,
		map[string]string{"Authorization": "Basic abc123"})
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRegister_Validation(t *testing.T) {
	router := newTestRouter(t, 100, 100)

	cases := []struct {
		name string
		body any
	}{
		{"bad json", nil},
		{"missing email", map[string]string{"password": "secret123"}},
		{"bad email", map[string]string{"email": "not-an-email", "password": "secret123"}},
		{"short password", map[string]string{"email": "a@b.com", "password": "short"}},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			var rec *httptest.ResponseRecorder
			if tc.body == nil {
				req := httptest.NewRequest(http.MethodPost, "/api/v1/auth/register", strings.NewReader("{"))
				req.RemoteAddr = "10.0.0.1:52814"
				rec = httptest.NewRecorder()
				router.ServeHTTP(rec, req)
			} else {
				rec = doJSON(t, router, http.MethodPost, "/api/v1/auth/register", tc.body, nil)
			}
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestRateLimit(t *testing.T) {
	router := newTestRouter(t, 1, 2)
	body := map[string]string{"email": "a@b.com", "password": "wrong-pass"}

	codes := make([]int, 0, 3)
	for i := 0; i < 3; i++ {
		rec := doJSON(t, router, http.MethodPost, "/api/v1/auth/login", body, nil)
		codes = append(codes, rec.Code)
	}

	assert.NotEqual(t, http.StatusTooManyRequests, codes[0])
	assert.NotEqual(t, http.StatusTooManyRequests, codes[1])
	assert.Equal(t, http.StatusTooManyRequests, codes[2])
}
