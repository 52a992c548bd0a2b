package server

import (
	"encoding/hex"
	"fmt"
	"net/http"
	"time"

	"github.com/brk3/habitflow/internal/auth"
	"github.com/brk3/habitflow/internal/config"
	"github.com/brk3/habitflow/internal/logger"
	"github.com/brk3/habitflow/internal/storage"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/gorilla/securecookie"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const sessionMaxAge = 7 * 24 * time.Hour

type Server struct {
	cfg           *config.Config
	store         storage.Store
	tokens        *auth.TokenIssuer
	sessionCookie *securecookie.SecureCookie
	weekStart     time.Weekday
	tokenTTL      time.Duration
	now           func() time.Time
}

func New(cfg *config.Config, store storage.Store) (*Server, error) {
	weekStart, err := cfg.FirstWeekday()
	if err != nil {
		return nil, err
	}

	ttl := cfg.TokenTTL
	if ttl <= 0 {
		ttl = sessionMaxAge
	}

	sessionCookie, err := newSessionCookie(cfg.CookieHashKey, cfg.CookieBlockKey)
	if err != nil {
		return nil, err
	}
	sessionCookie.MaxAge(int(ttl.Seconds()))

	logger.Debug("Server configured", "auth_enabled", cfg.AuthEnabled, "week_start", weekStart.String(), "token_ttl", ttl.String())
	return &Server{
		cfg:           cfg,
		store:         store,
		tokens:        auth.NewTokenIssuer(cfg.JWTSecret, ttl),
		sessionCookie: sessionCookie,
		weekStart:     weekStart,
		tokenTTL:      ttl,
		now:           time.Now,
	}, nil
}

// newSessionCookie uses the configured hex keys, or random ones when unset,
// in which case sessions do not survive a restart.
func newSessionCookie(hashHex, blockHex string) (*securecookie.SecureCookie, error) {
	if hashHex == "" && blockHex == "" {
		hashKey := securecookie.GenerateRandomKey(64)
		blockKey := securecookie.GenerateRandomKey(32)
		if hashKey == nil || blockKey == nil {
			return nil, fmt.Errorf("failed to generate secure cookie keys")
		}
		return securecookie.New(hashKey, blockKey), nil
	}

	hashKey, err := hex.DecodeString(hashHex)
	if err != nil || len(hashKey) < 32 {
		return nil, fmt.Errorf("cookie_hash_key must be at least 32 hex-encoded bytes")
	}
	blockKey, err := hex.DecodeString(blockHex)
	if err != nil {
		return nil, fmt.Errorf("cookie_block_key must be hex-encoded: %w", err)
	}
	switch len(blockKey) {
	case 16, 24, 32:
	default:
		return nil, fmt.Errorf("cookie_block_key must decode to 16, 24 or 32 bytes")
	}
	return securecookie.New(hashKey, blockKey), nil
}

func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger)
	r.Use(metricsMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   s.cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/version", s.getVersionInfo)
	r.Get("/healthz", s.healthz)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/auth", func(r chi.Router) {
		r.Post("/register", s.register)
		r.Post("/login", s.login)
		r.Post("/logout", s.logout)
		r.Group(func(r chi.Router) {
			if s.cfg.AuthEnabled {
				r.Use(s.authMiddleware)
			}
			r.Get("/me", s.me)
			r.Post("/api_keys", s.generateAPIKey)
		})
	})

	r.Route("/habits", func(r chi.Router) {
		if s.cfg.AuthEnabled {
			r.Use(s.authMiddleware)
			r.Use(s.userAwareMetricsMiddleware)
		}
		r.Get("/", s.listHabits)
		r.Post("/", s.createHabit)
		r.Get("/{habit_id}", s.getHabit)
		r.Put("/{habit_id}", s.updateHabit)
		r.Delete("/{habit_id}", s.deleteHabit)
		r.Post("/{habit_id}/complete", s.completeHabit)
		r.Get("/{habit_id}/progress", s.getHabitProgress)
		r.Get("/{habit_id}/summary", s.getHabitSummary)
	})
	return r
}
