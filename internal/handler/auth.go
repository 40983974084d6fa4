package handler

import (
	"log/slog"
	"net/http"
	"strings"

	"github.com/zzzxajak-prog/FitnessApp/internal/apperror"
	"github.com/zzzxajak-prog/FitnessApp/internal/middleware"
	"github.com/zzzxajak-prog/FitnessApp/internal/service"
)

// AuthHandler manages registration, login and logout.
//
// HANDLER RESPONSIBILITIES:
//   - HandleRegister → add (or replace) a credential
//   - HandleLogin    → open the single active session
//   - HandleLogout   → close it
//
// There are no cookies or tokens: the server holds one active session and
// every request on the loopback API acts as that user. Login returns the
// session ID for log correlation only.
type AuthHandler struct {
	ctl    *service.Controller
	logger *slog.Logger
}

// NewAuthHandler creates an AuthHandler.
func NewAuthHandler(ctl *service.Controller, logger *slog.Logger) *AuthHandler {
	return &AuthHandler{ctl: ctl, logger: logger}
}

// RegisterRequest is the body of POST /api/register.
type RegisterRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Confirm  string `json:"confirm"`
}

// LoginRequest is the body of POST /api/login.
type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// HandleRegister stores a credential.
//
// HTTP: POST /api/register
// REQUEST BODY: {"username": "alice", "password": "pw", "confirm": "pw"}
// RESPONSE: 201 {"username": "alice"}
func (h *AuthHandler) HandleRegister(w http.ResponseWriter, r *http.Request) {
	var req RegisterRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	if err := h.ctl.Register(r.Context(), req.Username, req.Password, req.Confirm); err != nil {
		writeError(w, err)
		return
	}

	// The controller trims the name before storing it; echo what was stored.
	writeJSON(w, http.StatusCreated, map[string]string{"username": strings.TrimSpace(req.Username)})
}

// HandleLogin checks credentials and opens the session.
//
// HTTP: POST /api/login
// REQUEST BODY: {"username": "alice", "password": "pw"}
// RESPONSE: 200 with the session State (same shape as GET /api/state)
func (h *AuthHandler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, err)
		return
	}

	s, err := h.ctl.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, s.State())
}

// HandleLogout closes the active session.
//
// HTTP: POST /api/logout
// RESPONSE: 204 No Content (also when nobody was logged in)
func (h *AuthHandler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	h.ctl.Logout()
	w.WriteHeader(http.StatusNoContent)
}

// sessionFrom returns the session RequireSession put in the context, or
// writes a 401 and returns false.
func sessionFrom(w http.ResponseWriter, r *http.Request) (*service.Session, bool) {
	s, ok := middleware.SessionFromContext(r.Context())
	if !ok {
		writeError(w, apperror.AuthFailed("session", "not logged in"))
		return nil, false
	}
	return s, true
}
