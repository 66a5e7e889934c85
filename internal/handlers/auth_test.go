package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/usermgmt/apiserver/internal/auth"
	"github.com/usermgmt/apiserver/internal/services"
	"github.com/usermgmt/apiserver/internal/store"
	"github.com/usermgmt/apiserver/types"
)

// memoryRepo is a minimal in-memory UserRepository for handler tests.
type memoryRepo struct {
	mu     sync.Mutex
	nextID int
	users  map[int]types.User
}

func newMemoryRepo() *memoryRepo {
	return &memoryRepo{users: make(map[int]types.User)}
}

func (m *memoryRepo) GetByID(ctx context.Context, id int) (types.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	user, ok := m.users[id]
	if !ok {
		return types.User{}, store.ErrNotFound
	}
	return user, nil
}

func (m *memoryRepo) GetByEmail(ctx context.Context, email string) (types.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, user := range m.users {
		if user.Email == email {
			return user, nil
		}
	}
	return types.User{}, store.ErrNotFound
}

func (m *memoryRepo) List(ctx context.Context) ([]types.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var users []types.User
	for id := 1; id <= m.nextID; id++ {
		if user, ok := m.users[id]; ok {
			users = append(users, user)
		}
	}
	return users, nil
}

func (m *memoryRepo) Create(ctx context.Context, user types.User) (types.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, existing := range m.users {
		if existing.Email == user.Email {
			return types.User{}, store.ErrDuplicate
		}
	}
	m.nextID++
	user.ID = m.nextID
	m.users[user.ID] = user
	return user, nil
}

func (m *memoryRepo) Update(ctx context.Context, user types.User) (types.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[user.ID]; !ok {
		return types.User{}, store.ErrNotFound
	}
	m.users[user.ID] = user
	return user, nil
}

func (m *memoryRepo) Delete(ctx context.Context, id int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[id]; !ok {
		return store.ErrNotFound
	}
	delete(m.users, id)
	return nil
}

type noEvents struct{}

func (noEvents) UserRegistered(ctx context.Context, user types.User) {}
func (noEvents) UserUpdated(ctx context.Context, user types.User)    {}
func (noEvents) UserDeleted(ctx context.Context, user types.User)    {}

func newTestRouter() http.Handler {
	repo := newMemoryRepo()
	hasher := auth.NewPasswordHasher()
	codec := auth.NewTokenCodec([]byte("test-secret"), 24*time.Hour, 7*24*time.Hour)
	authService := services.NewAuthService(repo, hasher, codec, noEvents{})
	userService := services.NewUserService(repo, hasher, noEvents{})

	router := chi.NewRouter()
	router.Route("/auth", func(r chi.Router) {
		AuthRouter(r, authService, userService)
	})
	router.Route("/users", func(r chi.Router) {
		UserRouter(r, userService, RequireAuth(authService))
	})
	return router
}

func doJSON(t *testing.T, router http.Handler, method, path string, body any, token string) (*httptest.ResponseRecorder, apiResponse) {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	var resp apiResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return rec, resp
}

func TestRegisterLoginRefreshFlow(t *testing.T) {
	t.Parallel()

	router := newTestRouter()

	rec, resp := doJSON(t, router, http.MethodPost, "/auth/register", RegisterRequest{
		Email:    "a@x.com",
		Password: "pw",
		Name:     "Alice",
		City:     "Lisbon",
	}, "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, resp.User)
	assert.Greater(t, resp.User.ID, 0)
	assert.Equal(t, "User registered successfully", resp.Message)
	assert.NotContains(t, rec.Body.String(), "password")

	rec, resp = doJSON(t, router, http.MethodPost, "/auth/login", LoginRequest{
		Email:    "a@x.com",
		Password: "pw",
	}, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, resp.Token)
	assert.NotEmpty(t, resp.RefreshToken)
	assert.Equal(t, "24 Hrs", resp.ExpirationTime)

	accessToken := resp.Token
	refreshToken := resp.RefreshToken

	rec, resp = doJSON(t, router, http.MethodPost, "/auth/refresh", RefreshRequest{
		Token: refreshToken,
	}, "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotEmpty(t, resp.Token)
	assert.Equal(t, refreshToken, resp.RefreshToken)

	rec, resp = doJSON(t, router, http.MethodGet, "/auth/me", nil, accessToken)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, resp.User)
	assert.Equal(t, "a@x.com", resp.User.Email)
}

func TestRegister_MissingFields(t *testing.T) {
	t.Parallel()

	router := newTestRouter()

	rec, _ := doJSON(t, router, http.MethodPost, "/auth/register", RegisterRequest{
		Email: "a@x.com",
	}, "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRegister_DuplicateEmailConflicts(t *testing.T) {
	t.Parallel()

	router := newTestRouter()

	rec, _ := doJSON(t, router, http.MethodPost, "/auth/register", RegisterRequest{
		Email:    "a@x.com",
		Password: "pw",
	}, "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec, resp := doJSON(t, router, http.MethodPost, "/auth/register", RegisterRequest{
		Email:    "a@x.com",
		Password: "other",
	}, "")
	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestLogin_WrongPassword(t *testing.T) {
	t.Parallel()

	router := newTestRouter()

	rec, _ := doJSON(t, router, http.MethodPost, "/auth/register", RegisterRequest{
		Email:    "a@x.com",
		Password: "pw",
	}, "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec, resp := doJSON(t, router, http.MethodPost, "/auth/login", LoginRequest{
		Email:    "a@x.com",
		Password: "wrong",
	}, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.NotEqual(t, http.StatusOK, resp.StatusCode)
	assert.Empty(t, resp.Token)
}

func TestRefresh_RejectsAccessToken(t *testing.T) {
	t.Parallel()

	router := newTestRouter()

	rec, _ := doJSON(t, router, http.MethodPost, "/auth/register", RegisterRequest{
		Email:    "a@x.com",
		Password: "pw",
	}, "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec, resp := doJSON(t, router, http.MethodPost, "/auth/login", LoginRequest{
		Email:    "a@x.com",
		Password: "pw",
	}, "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec, _ = doJSON(t, router, http.MethodPost, "/auth/refresh", RefreshRequest{
		Token: resp.Token,
	}, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestUsersRoutes_RequireAdmin(t *testing.T) {
	t.Parallel()

	router := newTestRouter()

	// No token at all.
	rec, _ := doJSON(t, router, http.MethodGet, "/users/", nil, "")
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	// Authenticated but not admin.
	rec, _ = doJSON(t, router, http.MethodPost, "/auth/register", RegisterRequest{
		Email:    "plain@x.com",
		Password: "pw",
	}, "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec, resp := doJSON(t, router, http.MethodPost, "/auth/login", LoginRequest{
		Email:    "plain@x.com",
		Password: "pw",
	}, "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec, _ = doJSON(t, router, http.MethodGet, "/users/", nil, resp.Token)
	assert.Equal(t, http.StatusForbidden, rec.Code)
}

func TestUserCRUDAsAdmin(t *testing.T) {
	t.Parallel()

	router := newTestRouter()

	rec, created := doJSON(t, router, http.MethodPost, "/auth/register", RegisterRequest{
		Email:    "admin@x.com",
		Password: "pw",
		Role:     "admin",
	}, "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, created.User)

	rec, login := doJSON(t, router, http.MethodPost, "/auth/login", LoginRequest{
		Email:    "admin@x.com",
		Password: "pw",
	}, "")
	require.Equal(t, http.StatusOK, rec.Code)
	token := login.Token

	rec, list := doJSON(t, router, http.MethodGet, "/users/", nil, token)
	require.Equal(t, http.StatusOK, rec.Code)
	require.Len(t, list.Users, 1)

	id := created.User.ID
	path := "/users/" + strconv.Itoa(id)

	rec, updated := doJSON(t, router, http.MethodPut, path, UpdateUserRequest{
		Email: "admin@x.com",
		Name:  "Root",
		Role:  "admin",
	}, token)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, updated.User)
	assert.Equal(t, "Root", updated.User.Name)

	rec, _ = doJSON(t, router, http.MethodDelete, path, nil, token)
	assert.Equal(t, http.StatusOK, rec.Code)

	// Deleting again is a clean 404; the admin token's subject is gone
	// too, so the middleware rejects it first.
	rec, _ = doJSON(t, router, http.MethodDelete, path, nil, token)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}
