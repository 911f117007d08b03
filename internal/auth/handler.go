package auth

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/mythic3d/particle-drawer/internal/storage"
)

const minPasswordLength = 8

// Drawings lists the projects a user owns. The storage repository satisfies it.
type Drawings interface {
	ListProjectsForOwner(ctx context.Context, ownerID string) ([]storage.Project, error)
}

type Handler struct {
	service  *Service
	drawings Drawings
}

func NewHandler(service *Service, drawings Drawings) *Handler {
	return &Handler{service: service, drawings: drawings}
}

type credentials struct {
	Email       string `json:"email"`
	Password    string `json:"password"`
	DisplayName string `json:"displayName"`
}

// Account is what the client needs after signing in: who the artist is and which
// drawings they can open.
type Account struct {
	Token    string        `json:"token,omitempty"`
	User     User          `json:"user"`
	Projects []DrawingInfo `json:"projects"`
}

type DrawingInfo struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	UpdatedAt string `json:"updatedAt"`
}

func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	creds, ok := decodeCredentials(w, r)
	if !ok {
		return
	}
	switch {
	case creds.Email == "" || creds.Password == "" || strings.TrimSpace(creds.DisplayName) == "":
		writeError(w, http.StatusBadRequest, "email, password and displayName are required")
		return
	case len(creds.Password) < minPasswordLength:
		writeError(w, http.StatusBadRequest, "password must be at least 8 characters")
		return
	}

	result, err := h.service.Register(r.Context(), creds.Email, creds.Password, creds.DisplayName)
	if errors.Is(err, ErrEmailTaken) {
		writeError(w, http.StatusConflict, "an artist with this email already exists")
		return
	}
	if err != nil {
		slog.Error("register failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	writeJSON(w, http.StatusCreated, Account{Token: result.Token, User: result.User, Projects: []DrawingInfo{}})
}

func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	creds, ok := decodeCredentials(w, r)
	if !ok {
		return
	}
	if creds.Email == "" || creds.Password == "" {
		writeError(w, http.StatusBadRequest, "email and password are required")
		return
	}

	result, err := h.service.Login(r.Context(), creds.Email, creds.Password)
	if errors.Is(err, ErrInvalidCredentials) {
		writeError(w, http.StatusUnauthorized, "wrong email or password")
		return
	}
	if err != nil {
		slog.Error("login failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	h.writeAccount(w, r, http.StatusOK, result.Token, result.User)
}

// Me returns the signed-in artist and their drawings.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	user, err := h.service.GetUser(r.Context(), UserIDFromContext(r.Context()))
	if errors.Is(err, ErrUserNotFound) {
		writeError(w, http.StatusNotFound, "account no longer exists")
		return
	}
	if err != nil {
		slog.Error("get user failed", "error", err)
		writeError(w, http.StatusInternalServerError, "internal error")
		return
	}

	h.writeAccount(w, r, http.StatusOK, "", *user)
}

func (h *Handler) writeAccount(w http.ResponseWriter, r *http.Request, status int, token string, user User) {
	acct := Account{Token: token, User: user, Projects: []DrawingInfo{}}
	if h.drawings != nil {
		owned, err := h.drawings.ListProjectsForOwner(r.Context(), user.ID)
		if err != nil {
			slog.Error("list drawings failed", "user", user.ID, "error", err)
			writeError(w, http.StatusInternalServerError, "internal error")
			return
		}
		for _, p := range owned {
			acct.Projects = append(acct.Projects, DrawingInfo{
				ID:        p.ID,
				Name:      p.Name,
				UpdatedAt: p.UpdatedAt.UTC().Format(time.RFC3339),
			})
		}
	}
	writeJSON(w, status, acct)
}

func decodeCredentials(w http.ResponseWriter, r *http.Request) (credentials, bool) {
	var creds credentials
	if err := json.NewDecoder(r.Body).Decode(&creds); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return creds, false
	}
	creds.Email = strings.TrimSpace(creds.Email)
	return creds, true
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}
