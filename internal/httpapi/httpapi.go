package httpapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"kasirlokal/internal/appstate"
	"kasirlokal/internal/auth"
	"kasirlokal/internal/backup"
	"kasirlokal/internal/domain"
	"kasirlokal/internal/migration"
	"kasirlokal/internal/pricing"
	"kasirlokal/internal/service"
	"kasirlokal/internal/store"
)

const (
	maxJSONBody   = 1 << 20
	maxBackupBody = 64 << 20
)

type Deps struct {
	Service       *service.Service
	Auth          *auth.Manager
	State         *appstate.State
	Backup        *backup.Service
	Migrator      *migration.Migrator
	AllowedOrigin string
	Logger        *slog.Logger
}

type API struct {
	service       *service.Service
	auth          *auth.Manager
	state         *appstate.State
	backup        *backup.Service
	migrator      *migration.Migrator
	allowedOrigin string
	loginLimiter  *attemptLimiter
	log           *slog.Logger
}

func New(deps Deps) *API {
	log := deps.Logger
	if log == nil {
		log = slog.Default()
	}
	return &API{
		service:       deps.Service,
		auth:          deps.Auth,
		state:         deps.State,
		backup:        deps.Backup,
		migrator:      deps.Migrator,
		allowedOrigin: deps.AllowedOrigin,
		loginLimiter:  newAttemptLimiter(5, time.Minute),
		log:           log.With("component", "httpapi"),
	}
}

func (a *API) Handler() http.Handler {
	r := gin.New()
	r.Use(gin.Recovery(), a.requestLog(), securityHeaders(), cors.New(a.corsConfig()))

	r.GET("/healthz", a.handleHealth)

	v1 := r.Group("/api/v1", limitBody(maxJSONBody))
	v1.POST("/auth/login", a.handleLogin)

	authed := v1.Group("", a.requireAuth())
	authed.POST("/auth/logout", a.handleLogout)
	authed.GET("/auth/session", a.handleSession)
	authed.GET("/ui/flags", a.handleGetFlags)
	authed.PUT("/ui/flags", a.handleSetFlags)

	a.registerCatalog(authed)
	a.registerSales(authed)
	a.registerAdmin(authed)

	ops := r.Group("/api/v1", limitBody(maxBackupBody), a.requireAuth(), requireRole(domain.RoleAdmin))
	a.registerOperations(ops)

	return r
}

func (a *API) corsConfig() cors.Config {
	cfg := cors.Config{
		AllowMethods:  []string{http.MethodGet, http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowHeaders:  []string{"Content-Type", "Authorization"},
		ExposeHeaders: []string{"Content-Disposition"},
		MaxAge:        12 * time.Hour,
	}
	if a.allowedOrigin == "" || a.allowedOrigin == "*" {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = []string{a.allowedOrigin}
	}
	return cfg
}

func securityHeaders() gin.HandlerFunc {
	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("X-Frame-Options", "DENY")
		h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
		h.Set("Cross-Origin-Opener-Policy", "same-origin")
		c.Next()
	}
}

func limitBody(n int64) gin.HandlerFunc {
	return func(c *gin.Context) {
		if c.Request.Body != nil {
			c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, n)
		}
		c.Next()
	}
}

func (a *API) requestLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		startedAt := time.Now()
		c.Next()
		a.log.Info("http request",
			"method", c.Request.Method,
			"path", c.Request.URL.Path,
			"status", c.Writer.Status(),
			"duration", time.Since(startedAt))
	}
}

func (a *API) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"ok": true,
		"at": time.Now().UTC().Format(time.RFC3339),
	})
}

// statusFor maps domain and store errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, store.ErrNotFound), errors.Is(err, pricing.ErrLineNotFound):
		return http.StatusNotFound
	case errors.Is(err, store.ErrDuplicateKey), errors.Is(err, store.ErrInUse):
		return http.StatusConflict
	case errors.Is(err, store.ErrInvalidInput),
		errors.Is(err, store.ErrInvalidRecord),
		errors.Is(err, store.ErrInvalidFormat),
		errors.Is(err, pricing.ErrInvalidQuantity):
		return http.StatusBadRequest
	case errors.Is(err, auth.ErrInvalidCredentials),
		errors.Is(err, auth.ErrInactiveAccount),
		errors.Is(err, auth.ErrInvalidToken):
		return http.StatusUnauthorized
	case errors.Is(err, store.ErrStorageUnavailable):
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

func (a *API) fail(c *gin.Context, err error) {
	a.writeError(c, statusFor(err), err)
}

func (a *API) writeError(c *gin.Context, status int, err error) {
	// 5xx bodies stay generic; the detail only goes to the log.
	msg := err.Error()
	if status >= 500 {
		a.log.Error("request failed", "status", status, "path", c.Request.URL.Path, "error", err)
		msg = "internal server error"
	}
	c.AbortWithStatusJSON(status, gin.H{"error": msg})
}

func (a *API) badRequest(c *gin.Context, err error) {
	a.writeError(c, http.StatusBadRequest, err)
}

func decodeJSON(c *gin.Context, dest any) error {
	decoder := json.NewDecoder(c.Request.Body)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(dest); err != nil {
		if errors.Is(err, io.EOF) {
			return errors.New("request body is empty")
		}
		return fmt.Errorf("invalid request body: %w", err)
	}
	return nil
}

func parsePositiveLimit(raw string, fallback int, max int) int {
	limit := fallback
	trimmed := strings.TrimSpace(raw)
	if trimmed != "" {
		if parsed, err := strconv.Atoi(trimmed); err == nil && parsed > 0 {
			limit = parsed
		}
	}
	if max > 0 && limit > max {
		return max
	}
	return limit
}

// parseTime accepts RFC3339 or a bare date. A bare date used as an upper
// bound covers the whole day.
func parseTime(raw string, endOfDay bool) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	day, err := time.ParseInLocation(time.DateOnly, raw, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid time %q", raw)
	}
	if endOfDay {
		return day.Add(24*time.Hour - time.Nanosecond), nil
	}
	return day, nil
}

func actorFrom(c *gin.Context) domain.Actor {
	actor, _ := service.ActorFromContext(c.Request.Context())
	return actor
}
