package httpapi

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"kasirlokal/internal/domain"
)

func (a *API) registerAdmin(r *gin.RouterGroup) {
	admins := requireRole(domain.RoleAdmin)
	editors := requireRole(domain.RoleAdmin, domain.RoleManager)

	users := r.Group("/users", admins)
	users.GET("", a.handleListUsers)
	users.GET("/:id", a.handleGetUser)
	users.POST("", a.handleCreateUser)
	users.PATCH("/:id", a.handleUpdateUser)
	users.DELETE("/:id", a.handleDeleteUser)

	r.GET("/settings", a.handleGetSettings)
	r.PATCH("/settings", editors, a.handleUpdateSettings)
	r.GET("/settings/printer", a.handleGetPrinter)
	r.PUT("/settings/printer", editors, a.handleUpdatePrinter)

	r.GET("/activity-logs", editors, a.handleListActivity)
	r.POST("/activity-logs", a.handleCreateActivity)
	r.DELETE("/activity-logs", admins, a.handleCleanupActivity)
}

func (a *API) registerOperations(r *gin.RouterGroup) {
	r.GET("/backup/export", a.handleExport)
	r.POST("/backup/restore", a.handleRestore)
	r.POST("/backup/clear", a.handleClearAll)
	r.GET("/backup/status", a.handleBackupStatus)

	r.GET("/migration/status", a.handleMigrationStatus)
	r.POST("/migration/rerun", a.handleMigrationRerun)
}

// userView is a user without its password hash.
type userView struct {
	ID        string      `json:"id"`
	Username  string      `json:"username"`
	Email     string      `json:"email"`
	Role      domain.Role `json:"role"`
	Active    bool        `json:"active"`
	CreatedAt time.Time   `json:"createdAt"`
	UpdatedAt time.Time   `json:"updatedAt"`
}

func toUserView(u domain.User) userView {
	return userView{
		ID:        u.ID,
		Username:  u.Username,
		Email:     u.Email,
		Role:      u.Role,
		Active:    u.Active,
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

func (a *API) handleListUsers(c *gin.Context) {
	users, err := a.service.Users.GetAll(c.Request.Context())
	if err != nil {
		a.fail(c, err)
		return
	}
	items := make([]userView, 0, len(users))
	for _, u := range users {
		items = append(items, toUserView(u))
	}
	c.JSON(http.StatusOK, gin.H{"items": items})
}

func (a *API) handleGetUser(c *gin.Context) {
	user, err := a.service.Users.GetByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, toUserView(user))
}

func (a *API) handleCreateUser(c *gin.Context) {
	var req domain.UserCreateRequest
	if err := decodeJSON(c, &req); err != nil {
		a.badRequest(c, err)
		return
	}
	user, err := a.service.Users.Create(c.Request.Context(), req)
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, toUserView(user))
}

func (a *API) handleUpdateUser(c *gin.Context) {
	var req domain.UserUpdateRequest
	if err := decodeJSON(c, &req); err != nil {
		a.badRequest(c, err)
		return
	}
	user, err := a.service.Users.Update(c.Request.Context(), c.Param("id"), req)
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, toUserView(user))
}

func (a *API) handleDeleteUser(c *gin.Context) {
	if c.Param("id") == actorFrom(c).UserID {
		a.writeError(c, http.StatusConflict, errors.New("cannot delete the signed-in user"))
		return
	}
	if err := a.service.Users.Delete(c.Request.Context(), c.Param("id")); err != nil {
		a.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (a *API) handleGetSettings(c *gin.Context) {
	settings, err := a.service.Settings.GetOrCreate(c.Request.Context())
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, settings)
}

func (a *API) handleUpdateSettings(c *gin.Context) {
	var req domain.SettingsUpdateRequest
	if err := decodeJSON(c, &req); err != nil {
		a.badRequest(c, err)
		return
	}
	settings, err := a.service.Settings.Update(c.Request.Context(), req)
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, settings)
}

func (a *API) handleGetPrinter(c *gin.Context) {
	printer, err := a.service.Settings.GetPrinterSettings(c.Request.Context())
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, printer)
}

func (a *API) handleUpdatePrinter(c *gin.Context) {
	var req domain.PrinterSettings
	if err := decodeJSON(c, &req); err != nil {
		a.badRequest(c, err)
		return
	}
	printer, err := a.service.Settings.UpdatePrinterSettings(c.Request.Context(), req)
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, printer)
}

func (a *API) handleListActivity(c *gin.Context) {
	ctx := c.Request.Context()
	var (
		entries []domain.ActivityLog
		err     error
	)
	switch {
	case c.Query("user") != "":
		entries, err = a.service.ActivityLogs.GetByUser(ctx, c.Query("user"))
	case c.Query("entityType") != "":
		entries, err = a.service.ActivityLogs.GetByEntity(ctx, c.Query("entityType"), c.Query("entityId"))
	default:
		entries, err = a.service.ActivityLogs.GetRecent(ctx, parsePositiveLimit(c.Query("limit"), 100, 1000))
	}
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"items": entries})
}

func (a *API) handleCreateActivity(c *gin.Context) {
	var req domain.ActivityLogCreateRequest
	if err := decodeJSON(c, &req); err != nil {
		a.badRequest(c, err)
		return
	}
	entry, err := a.service.ActivityLogs.Create(c.Request.Context(), req)
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, entry)
}

func (a *API) handleCleanupActivity(c *gin.Context) {
	keepDays := 0
	if raw := strings.TrimSpace(c.Query("keepDays")); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			a.badRequest(c, errors.New("keepDays must be a positive integer"))
			return
		}
		keepDays = n
	}
	deleted, err := a.service.ActivityLogs.Cleanup(c.Request.Context(), keepDays)
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"deleted": deleted})
}

func (a *API) handleExport(c *gin.Context) {
	var buf bytes.Buffer
	snap, err := a.backup.Export(c.Request.Context(), &buf)
	if err != nil {
		a.fail(c, err)
		return
	}
	filename := fmt.Sprintf("kasirlokal-backup-%s.json", snap.ExportDate.Format("20060102-150405"))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, "application/json", buf.Bytes())
}

func (a *API) handleRestore(c *gin.Context) {
	data, err := io.ReadAll(c.Request.Body)
	if err != nil {
		a.badRequest(c, fmt.Errorf("read backup: %w", err))
		return
	}
	snap, err := a.backup.Restore(c.Request.Context(), data)
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"restored":     true,
		"exportDate":   snap.ExportDate,
		"users":        len(snap.Users),
		"products":     len(snap.Products),
		"categories":   len(snap.Categories),
		"transactions": len(snap.Transactions),
		"activityLogs": len(snap.ActivityLogs),
	})
}

func (a *API) handleClearAll(c *gin.Context) {
	if err := a.backup.ClearAll(c.Request.Context()); err != nil {
		a.fail(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (a *API) handleBackupStatus(c *gin.Context) {
	cleared, err := a.backup.WasCleared(c.Request.Context())
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"dataCleared": cleared})
}

func (a *API) handleMigrationStatus(c *gin.Context) {
	if a.migrator == nil {
		c.JSON(http.StatusOK, gin.H{"configured": false, "completed": false})
		return
	}
	done, err := a.migrator.Completed(c.Request.Context())
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"configured": true, "completed": done})
}

func (a *API) handleMigrationRerun(c *gin.Context) {
	if a.migrator == nil {
		a.writeError(c, http.StatusConflict, errors.New("no legacy data source configured"))
		return
	}
	report, err := a.migrator.ForceRemigrate(c.Request.Context())
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}
