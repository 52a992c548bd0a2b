package server

import (
	"context"
	"net/http"
	"strings"

	"github.com/brk3/habitflow/internal/auth"
	"github.com/brk3/habitflow/internal/logger"
)

const (
	sessionCookieName = "session"
	anonymousUserID   = "anonymous"
)

type userCtxKey struct{}

type User struct {
	UserID string
	// Method is how the request authenticated: "session", "token" or "apikey".
	Method string
}

func (s *Server) authMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		logger.Debug("Auth middleware processing request", "method", r.Method, "path", r.URL.Path)
		clearCookie := false

		// 1) Try session cookie first
		if c, err := r.Cookie(sessionCookieName); err == nil {
			var token string
			if err := s.sessionCookie.Decode(sessionCookieName, c.Value, &token); err == nil {
				if userID, err := s.tokens.Verify(token); err == nil {
					RecordAuthEvent("verification", "success", "session")
					next.ServeHTTP(w, withUser(r, &User{UserID: userID, Method: "session"}))
					return
				}
				logger.Debug("Session token rejected")
			} else {
				logger.Debug("Failed to decode session cookie", "error", err)
			}
			clearCookie = true
		}

		// 2) Try API key or Bearer token
		ah := r.Header.Get("Authorization")
		if !strings.HasPrefix(ah, "Bearer ") {
			RecordAuthEvent("verification", "missing_token", "unknown")
			s.handleAuthFailure(w, clearCookie)
			return
		}
		token := strings.TrimSpace(strings.TrimPrefix(ah, "Bearer "))

		if strings.HasPrefix(token, auth.APIKeyPrefix) {
			user, ok := s.authenticateAPIKey(token)
			if !ok {
				RecordAuthEvent("verification", "failed", "apikey")
				s.handleAuthFailure(w, clearCookie)
				return
			}
			RecordAuthEvent("verification", "success", "apikey")
			next.ServeHTTP(w, withUser(r, user))
			return
		}

		userID, err := s.tokens.Verify(token)
		if err != nil {
			logger.Debug("Bearer token verification failed", "error", err)
			RecordAuthEvent("verification", "failed", "token")
			s.handleAuthFailure(w, clearCookie)
			return
		}
		RecordAuthEvent("verification", "success", "token")
		next.ServeHTTP(w, withUser(r, &User{UserID: userID, Method: "token"}))
	})
}

func withUser(r *http.Request, u *User) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), userCtxKey{}, u))
}

// userIDFromContext extracts user ID from authenticated request context
func userIDFromContext(authEnabled bool, r *http.Request) string {
	if !authEnabled {
		logger.Debug("Auth disabled, using anonymous userid")
		return anonymousUserID
	}

	user, ok := r.Context().Value(userCtxKey{}).(*User)
	if !ok {
		logger.Error("No user in context")
		return ""
	}

	return user.UserID
}

func (s *Server) handleAuthFailure(w http.ResponseWriter, clearCookie bool) {
	if clearCookie {
		logger.Debug("Clearing session cookie due to auth failure")
		s.clearSessionCookie(w)
		w.Header().Set("WWW-Authenticate", `Bearer error="invalid_token"`)
	} else {
		w.Header().Set("WWW-Authenticate", `Bearer realm="habits"`)
	}
	writeError(w, http.StatusUnauthorized, "unauthorized")
}

// authenticateAPIKey validates an API key and returns the associated User
func (s *Server) authenticateAPIKey(apiKey string) (*User, bool) {
	keyHash := auth.HashAPIKey(apiKey)

	logger.Debug("Looking up API key", "keyHash", auth.TruncateHash(keyHash))
	userID, found, err := s.store.GetAPIKey(keyHash)
	if err != nil {
		logger.Error("Failed to lookup API key", "error", err)
		return nil, false
	}
	if !found {
		logger.Debug("API key not found in storage")
		return nil, false
	}

	return &User{UserID: userID, Method: "apikey"}, true
}

func (s *Server) setSessionCookie(w http.ResponseWriter, token string) error {
	val, err := s.sessionCookie.Encode(sessionCookieName, token)
	if err != nil {
		return err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    val,
		Path:     "/",
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(s.tokenTTL.Seconds()),
	})
	return nil
}

func (s *Server) clearSessionCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		Secure:   true,
		SameSite: http.SameSiteLaxMode,
	})
}
