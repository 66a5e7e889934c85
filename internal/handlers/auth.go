package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/usermgmt/apiserver/internal/services"
)

// AuthHandler provides the registration, login, and token endpoints.
type AuthHandler struct {
	authService *services.AuthService
	userService *services.UserService
}

// NewAuthHandler constructs an AuthHandler with the provided dependencies.
func NewAuthHandler(authService *services.AuthService, userService *services.UserService) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		userService: userService,
	}
}

// AuthRouter registers auth routes on the given router.
func AuthRouter(r chi.Router, authService *services.AuthService, userService *services.UserService) {
	handler := NewAuthHandler(authService, userService)

	r.Post("/register", handler.Register)
	r.Post("/login", handler.Login)
	r.Post("/refresh", handler.Refresh)
	r.With(handler.RequireAuth).Get("/me", handler.Me)
}

// RequireAuth enforces a valid access token and injects the subject
// email into the request context.
func (h *AuthHandler) RequireAuth(next http.Handler) http.Handler {
	return requireAuth(h.authService)(next)
}

// RequireAuth constructs auth middleware for other routers.
func RequireAuth(authService *services.AuthService) func(http.Handler) http.Handler {
	return requireAuth(authService)
}

func requireAuth(authService *services.AuthService) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tokenString, err := bearerToken(r)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}

			subject, err := authService.ValidateAccess(r.Context(), tokenString)
			if err != nil {
				writeError(w, http.StatusUnauthorized, "unauthorized")
				return
			}

			ctx := context.WithValue(r.Context(), contextSubjectKey, subject)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// Register creates a new user account.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	user, err := h.authService.Register(r.Context(), req.Email, req.Password, req.Name, req.City, req.Role)
	if err != nil {
		status, message := statusForError(err)
		writeError(w, status, message)
		return
	}

	writeResponse(w, apiResponse{
		StatusCode: http.StatusOK,
		Message:    "User registered successfully",
		User:       &user,
	})
}

// Login verifies credentials and returns an access/refresh token pair.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	pair, err := h.authService.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		status, message := statusForError(err)
		writeError(w, status, message)
		return
	}

	writeResponse(w, apiResponse{
		StatusCode:     http.StatusOK,
		Message:        "User logged in successfully",
		Token:          pair.Token,
		RefreshToken:   pair.RefreshToken,
		ExpirationTime: pair.ExpirationTime,
	})
}

// Refresh exchanges a valid refresh token for a new access token.
func (h *AuthHandler) Refresh(w http.ResponseWriter, r *http.Request) {
	var req RefreshRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}
	if strings.TrimSpace(req.Token) == "" {
		writeError(w, http.StatusBadRequest, "missing token")
		return
	}

	pair, err := h.authService.Refresh(r.Context(), req.Token)
	if err != nil {
		status, message := statusForError(err)
		writeError(w, status, message)
		return
	}

	writeResponse(w, apiResponse{
		StatusCode:     http.StatusOK,
		Message:        "Successfully refreshed token",
		Token:          pair.Token,
		RefreshToken:   pair.RefreshToken,
		ExpirationTime: pair.ExpirationTime,
	})
}

// Me returns the current authenticated user.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	email, err := subjectFromContext(r.Context())
	if err != nil {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	user, err := h.userService.GetByEmail(r.Context(), email)
	if err != nil {
		status, message := statusForError(err)
		writeError(w, status, message)
		return
	}

	writeResponse(w, apiResponse{
		StatusCode: http.StatusOK,
		Message:    "successful",
		User:       &user,
	})
}

type RegisterRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Name     string `json:"name"`
	City     string `json:"city"`
	Role     string `json:"role"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type RefreshRequest struct {
	Token string `json:"token"`
}
