package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/brk3/habitflow/internal/auth"
	"github.com/brk3/habitflow/internal/logger"
	"github.com/brk3/habitflow/internal/storage"
	"github.com/brk3/habitflow/pkg/habit"
)

func decodeCredentials(w http.ResponseWriter, r *http.Request) (CredentialsRequest, bool) {
	var req CredentialsRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		logger.Warn("Invalid JSON in credentials request", "error", err)
		writeError(w, http.StatusBadRequest, "invalid JSON")
		return req, false
	}
	if err := auth.CheckCredentials(req.Email, req.Password); err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return req, false
	}
	return req, true
}

func (s *Server) register(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeCredentials(w, r)
	if !ok {
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if errors.Is(err, auth.ErrWeakPassword) {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err != nil {
		logger.Error("Failed to hash password", "error", err)
		writeError(w, http.StatusInternalServerError, "server error")
		return
	}

	u, err := s.store.CreateUser(habit.User{Email: req.Email, PasswordHash: hash})
	if errors.Is(err, storage.ErrEmailTaken) {
		RecordAuthEvent("register", "email_taken", "password")
		writeError(w, http.StatusBadRequest, "email already in use")
		return
	}
	if err != nil {
		logger.Error("Failed to create user", "error", err)
		writeError(w, http.StatusInternalServerError, "server error")
		return
	}
	logger.Info("User registered", "user_id", u.ID)
	RecordAuthEvent("register", "success", "password")

	s.issueSession(w, http.StatusCreated, u)
}

func (s *Server) login(w http.ResponseWriter, r *http.Request) {
	req, ok := decodeCredentials(w, r)
	if !ok {
		return
	}

	u, err := s.store.GetUserByEmail(req.Email)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		logger.Error("Failed to look up user", "error", err)
		writeError(w, http.StatusInternalServerError, "server error")
		return
	}
	if err != nil || auth.CheckPassword(u.PasswordHash, req.Password) != nil {
		RecordAuthEvent("login", "failed", "password")
		writeError(w, http.StatusBadRequest, auth.ErrInvalidCredentials.Error())
		return
	}
	logger.Info("User logged in", "user_id", u.ID)
	RecordAuthEvent("login", "success", "password")

	s.issueSession(w, http.StatusOK, u)
}

// issueSession answers a successful login or registration with a bearer
// token, also set as the session cookie for browser clients.
func (s *Server) issueSession(w http.ResponseWriter, code int, u habit.User) {
	token, err := s.tokens.Issue(u.ID)
	if err != nil {
		logger.Error("Failed to issue token", "user_id", u.ID, "error", err)
		writeError(w, http.StatusInternalServerError, "could not issue token")
		return
	}
	if err := s.setSessionCookie(w, token); err != nil {
		logger.Error("Failed to encode session cookie", "error", err)
		writeError(w, http.StatusInternalServerError, "session encoding failed")
		return
	}
	if err := writeJSON(w, code, AuthResponse{Token: token, User: u.Public()}); err != nil {
		logger.Error("Failed to serialize auth response", "user_id", u.ID, "error", err)
	}
}

func (s *Server) me(w http.ResponseWriter, r *http.Request) {
	userID := userIDFromContext(s.cfg.AuthEnabled, r)
	if userID == anonymousUserID {
		_ = writeJSON(w, http.StatusOK, MeResponse{User: habit.PublicUser{ID: anonymousUserID}})
		return
	}

	u, err := s.store.GetUser(userID)
	if errors.Is(err, storage.ErrNotFound) {
		// token outlived its account
		s.handleAuthFailure(w, true)
		return
	}
	if err != nil {
		logger.Error("Failed to load user", "user_id", userID, "error", err)
		writeError(w, http.StatusInternalServerError, "server error")
		return
	}
	_ = writeJSON(w, http.StatusOK, MeResponse{User: u.Public()})
}

func (s *Server) logout(w http.ResponseWriter, _ *http.Request) {
	s.clearSessionCookie(w)
	logger.Info("User logout completed")
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) generateAPIKey(w http.ResponseWriter, r *http.Request) {
	userID := userIDFromContext(s.cfg.AuthEnabled, r)
	if userID == "" {
		writeError(w, http.StatusUnauthorized, "unauthorized")
		return
	}

	key, hash, err := auth.NewAPIKey()
	if err != nil {
		logger.Error("Failed to generate API key", "error", err)
		writeError(w, http.StatusInternalServerError, "failed to generate api key")
		return
	}
	if err := s.store.PutAPIKey(hash, userID); err != nil {
		logger.Error("Failed to store API key", "user_id", userID, "error", err)
		writeError(w, http.StatusInternalServerError, "storage error")
		return
	}
	logger.Info("API key generated", "user_id", userID, "keyHash", auth.TruncateHash(hash))

	_ = writeJSON(w, http.StatusOK, APIKeyResponse{APIKey: key})
}
