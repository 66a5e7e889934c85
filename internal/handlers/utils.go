package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/usermgmt/apiserver/internal/services"
	"github.com/usermgmt/apiserver/internal/store"
	"github.com/usermgmt/apiserver/types"
)

type contextKey string

const contextSubjectKey contextKey = "sub"

// apiResponse is the wire shape shared by every endpoint. Fields are
// omitted when empty, so each operation only serializes what it set.
type apiResponse struct {
	StatusCode     int          `json:"statusCode"`
	Error          string       `json:"error,omitempty"`
	Message        string       `json:"message,omitempty"`
	Token          string       `json:"token,omitempty"`
	RefreshToken   string       `json:"refreshToken,omitempty"`
	ExpirationTime string       `json:"expirationTime,omitempty"`
	User           *types.User  `json:"user,omitempty"`
	Users          []types.User `json:"users,omitempty"`
}

func subjectFromContext(ctx context.Context) (string, error) {
	subject, ok := ctx.Value(contextSubjectKey).(string)
	if !ok || strings.TrimSpace(subject) == "" {
		return "", errors.New("missing subject")
	}
	return subject, nil
}

func writeJSON(w http.ResponseWriter, status int, value any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(value)
}

// writeResponse sends the response with an HTTP status mirroring the
// statusCode field in the body.
func writeResponse(w http.ResponseWriter, resp apiResponse) {
	writeJSON(w, resp.StatusCode, resp)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeResponse(w, apiResponse{StatusCode: status, Message: message})
}

// statusForError maps service error kinds to HTTP statuses. Unknown
// errors collapse to a generic 500; their text is never sent to the
// client.
func statusForError(err error) (int, string) {
	switch {
	case errors.Is(err, services.ErrValidation):
		return http.StatusBadRequest, err.Error()
	case errors.Is(err, services.ErrAuthentication):
		return http.StatusUnauthorized, "invalid credentials"
	case errors.Is(err, services.ErrInvalidToken):
		return http.StatusUnauthorized, "invalid token"
	case errors.Is(err, services.ErrDuplicateEmail):
		return http.StatusConflict, "email already registered"
	case errors.Is(err, store.ErrNotFound):
		return http.StatusNotFound, "user not found"
	default:
		return http.StatusInternalServerError, "internal server error"
	}
}

func bearerToken(r *http.Request) (string, error) {
	auth := strings.TrimSpace(r.Header.Get("Authorization"))
	if auth == "" {
		return "", errors.New("missing authorization")
	}
	parts := strings.SplitN(auth, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return "", errors.New("invalid authorization")
	}
	token := strings.TrimSpace(parts[1])
	if token == "" {
		return "", errors.New("invalid authorization")
	}
	return token, nil
}
