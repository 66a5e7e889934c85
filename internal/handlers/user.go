package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/usermgmt/apiserver/internal/services"
)

const adminRole = "admin"

// UserHandler provides the user CRUD endpoints.
type UserHandler struct {
	userService *services.UserService
}

// NewUserHandler constructs a handler with the provided service.
func NewUserHandler(userService *services.UserService) *UserHandler {
	return &UserHandler{userService: userService}
}

// UserRouter registers user CRUD routes on the given router. All routes
// require authentication and the admin role.
func UserRouter(r chi.Router, userService *services.UserService, authMiddleware func(http.Handler) http.Handler) {
	handler := NewUserHandler(userService)

	r.Use(authMiddleware, handler.requireAdmin)
	r.Get("/", handler.ListUsers)
	r.Get("/email/{email}", handler.GetUserByEmail)
	r.Route("/{userID}", func(r chi.Router) {
		r.Get("/", handler.GetUser)
		r.Put("/", handler.UpdateUser)
		r.Delete("/", handler.DeleteUser)
	})
}

func (h *UserHandler) requireAdmin(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		email, err := subjectFromContext(r.Context())
		if err != nil {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}

		user, err := h.userService.GetByEmail(r.Context(), email)
		if err != nil {
			writeError(w, http.StatusUnauthorized, "unauthorized")
			return
		}
		if user.Role != adminRole {
			writeError(w, http.StatusForbidden, "admin role required")
			return
		}

		next.ServeHTTP(w, r)
	})
}

func (h *UserHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.userService.GetAll(r.Context())
	if err != nil {
		status, message := statusForError(err)
		writeError(w, status, message)
		return
	}
	if len(users) == 0 {
		writeError(w, http.StatusNotFound, "No users found")
		return
	}

	writeResponse(w, apiResponse{
		StatusCode: http.StatusOK,
		Message:    "Successful",
		Users:      users,
	})
}

func (h *UserHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	id, err := parseUserID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	user, err := h.userService.GetByID(r.Context(), id)
	if err != nil {
		status, message := statusForError(err)
		writeError(w, status, message)
		return
	}

	writeResponse(w, apiResponse{
		StatusCode: http.StatusOK,
		Message:    fmt.Sprintf("User with id '%d' found successfully", id),
		User:       &user,
	})
}

func (h *UserHandler) GetUserByEmail(w http.ResponseWriter, r *http.Request) {
	email := strings.TrimSpace(chi.URLParam(r, "email"))
	if email == "" {
		writeError(w, http.StatusBadRequest, "email is required")
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

func (h *UserHandler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	id, err := parseUserID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	var req UpdateUserRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request")
		return
	}

	user, err := h.userService.Update(r.Context(), id, services.UserUpdate{
		Email:    req.Email,
		Name:     req.Name,
		City:     req.City,
		Role:     req.Role,
		Password: req.Password,
	})
	if err != nil {
		status, message := statusForError(err)
		writeError(w, status, message)
		return
	}

	writeResponse(w, apiResponse{
		StatusCode: http.StatusOK,
		Message:    "User updated successfully",
		User:       &user,
	})
}

func (h *UserHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	id, err := parseUserID(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if err := h.userService.Delete(r.Context(), id); err != nil {
		status, message := statusForError(err)
		writeError(w, status, message)
		return
	}

	writeResponse(w, apiResponse{
		StatusCode: http.StatusOK,
		Message:    "User deleted successfully",
	})
}

// UpdateUserRequest carries the mutable user fields. Password is
// optional; when present and non-empty it replaces the stored hash.
type UpdateUserRequest struct {
	Email    string `json:"email"`
	Name     string `json:"name"`
	City     string `json:"city"`
	Role     string `json:"role"`
	Password string `json:"password"`
}

func parseUserID(r *http.Request) (int, error) {
	raw := chi.URLParam(r, "userID")
	id, err := strconv.Atoi(raw)
	if err != nil || id < 1 {
		return 0, fmt.Errorf("invalid user id %q", raw)
	}
	return id, nil
}
