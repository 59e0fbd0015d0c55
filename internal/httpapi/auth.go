package httpapi

import (
	"errors"
	"net/http"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"

	"kasirlokal/internal/appstate"
	"kasirlokal/internal/domain"
	"kasirlokal/internal/service"
)

type attemptLimiter struct {
	mu      sync.Mutex
	max     int
	window  time.Duration
	entries map[string][]time.Time
}

func newAttemptLimiter(max int, window time.Duration) *attemptLimiter {
	if max < 1 {
		max = 1
	}
	if window <= 0 {
		window = time.Minute
	}
	return &attemptLimiter{max: max, window: window, entries: make(map[string][]time.Time)}
}

func (l *attemptLimiter) Allow(key string) bool {
	if l == nil {
		return true
	}
	now := time.Now()
	cutoff := now.Add(-l.window)

	l.mu.Lock()
	defer l.mu.Unlock()

	history := l.entries[key]
	kept := make([]time.Time, 0, len(history)+1)
	for _, ts := range history {
		if ts.After(cutoff) {
			kept = append(kept, ts)
		}
	}
	if len(kept) >= l.max {
		l.entries[key] = kept
		return false
	}
	l.entries[key] = append(kept, now)
	return true
}

func (a *API) requireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		authorization := strings.TrimSpace(c.GetHeader("Authorization"))
		if !strings.HasPrefix(strings.ToLower(authorization), "bearer ") {
			a.writeError(c, http.StatusUnauthorized, errors.New("missing bearer token"))
			return
		}

		actor, err := a.auth.ParseToken(strings.TrimSpace(authorization[len("Bearer "):]))
		if err != nil {
			a.writeError(c, http.StatusUnauthorized, err)
			return
		}
		c.Request = c.Request.WithContext(service.WithActor(c.Request.Context(), actor))
		c.Next()
	}
}

func requireRole(roles ...domain.Role) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !slices.Contains(roles, actorFrom(c).Role) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "forbidden role"})
			return
		}
		c.Next()
	}
}

type loginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

func (a *API) handleLogin(c *gin.Context) {
	if !a.loginLimiter.Allow(c.ClientIP()) {
		a.writeError(c, http.StatusTooManyRequests, errors.New("too many login attempts"))
		return
	}

	var req loginRequest
	if err := decodeJSON(c, &req); err != nil {
		a.badRequest(c, err)
		return
	}

	ctx := c.Request.Context()
	session, err := a.auth.Login(ctx, req.Username, req.Password)
	if err != nil {
		a.fail(c, err)
		return
	}
	if err := a.state.Login(ctx, session); err != nil {
		a.fail(c, err)
		return
	}
	a.service.ActivityLogs.Record(service.WithActor(ctx, session.Actor()), "login", "user", session.UserID, "")

	c.JSON(http.StatusOK, session)
}

func (a *API) handleLogout(c *gin.Context) {
	ctx := c.Request.Context()
	if err := a.state.Logout(ctx); err != nil {
		a.fail(c, err)
		return
	}
	actor := actorFrom(c)
	a.service.ActivityLogs.Record(ctx, "logout", "user", actor.UserID, "")
	c.Status(http.StatusNoContent)
}

// sessionView is a terminal session without its bearer token.
type sessionView struct {
	UserID     string      `json:"userId"`
	Username   string      `json:"username"`
	Role       domain.Role `json:"role"`
	ExpiresAt  time.Time   `json:"expiresAt"`
	LoggedInAt time.Time   `json:"loggedInAt"`
}

// handleSession reports the terminal's signed-in session, which may belong
// to a different user than the caller's token.
func (a *API) handleSession(c *gin.Context) {
	session, ok := a.state.Session()
	if !ok {
		c.JSON(http.StatusOK, gin.H{"authenticated": false})
		return
	}
	c.JSON(http.StatusOK, gin.H{"authenticated": true, "session": sessionView{
		UserID:     session.UserID,
		Username:   session.Username,
		Role:       session.Role,
		ExpiresAt:  session.ExpiresAt,
		LoggedInAt: session.LoggedInAt,
	}})
}

func (a *API) handleGetFlags(c *gin.Context) {
	c.JSON(http.StatusOK, a.state.Flags())
}

func (a *API) handleSetFlags(c *gin.Context) {
	var flags appstate.Flags
	if err := decodeJSON(c, &flags); err != nil {
		a.badRequest(c, err)
		return
	}
	a.state.SetFlags(flags)
	c.JSON(http.StatusOK, flags)
}
