package service

import (
	"context"
	"strings"
	"time"

	"kasirlokal/internal/domain"
	"kasirlokal/internal/store"
	"kasirlokal/internal/xid"
)

const (
	defaultRecentLimit = 100
	defaultKeepDays    = 30
)

// ActivityLogService is the append-only audit trail.
type ActivityLogService struct {
	*base
}

func (s *ActivityLogService) Create(ctx context.Context, req domain.ActivityLogCreateRequest) (domain.ActivityLog, error) {
	entry := domain.ActivityLog{
		ID:         xid.New("log"),
		UserID:     strings.TrimSpace(req.UserID),
		Action:     strings.TrimSpace(req.Action),
		EntityType: strings.TrimSpace(req.EntityType),
		EntityID:   strings.TrimSpace(req.EntityID),
		Details:    req.Details,
		CreatedAt:  s.now(),
	}
	if entry.Action == "" {
		return domain.ActivityLog{}, invalidInput("action is required")
	}
	if entry.UserID == "" {
		if actor, ok := ActorFromContext(ctx); ok {
			entry.UserID = actor.UserID
		}
	}

	err := s.update(ctx, []store.Kind{store.KindActivityLogs}, func(tx store.Tx) error {
		return tx.PutActivityLog(entry)
	})
	if err != nil {
		return domain.ActivityLog{}, err
	}
	return entry, nil
}

// Record appends an audit entry for the actor on ctx. A failure is logged
// and swallowed.
func (s *ActivityLogService) Record(ctx context.Context, action string, entityType string, entityID string, details string) {
	_, err := s.Create(ctx, domain.ActivityLogCreateRequest{
		Action:     action,
		EntityType: entityType,
		EntityID:   entityID,
		Details:    details,
	})
	if err != nil {
		s.log.Warn("failed to record activity", "action", action, "entity_type", entityType, "entity_id", entityID, "error", err)
	}
}

func (s *ActivityLogService) GetAll(ctx context.Context) ([]domain.ActivityLog, error) {
	return s.list(ctx, func(tx store.Tx) ([]domain.ActivityLog, error) { return tx.ListActivityLogs() })
}

func (s *ActivityLogService) GetByUser(ctx context.Context, userID string) ([]domain.ActivityLog, error) {
	return s.list(ctx, func(tx store.Tx) ([]domain.ActivityLog, error) { return tx.ListActivityLogsByUser(userID) })
}

// GetByEntity filters by entity type, and by entity id when one is given.
func (s *ActivityLogService) GetByEntity(ctx context.Context, entityType string, entityID string) ([]domain.ActivityLog, error) {
	return s.list(ctx, func(tx store.Tx) ([]domain.ActivityLog, error) {
		return tx.ListActivityLogsByEntity(entityType, entityID)
	})
}

func (s *ActivityLogService) GetRecent(ctx context.Context, limit int) ([]domain.ActivityLog, error) {
	if limit <= 0 {
		limit = defaultRecentLimit
	}
	entries, err := s.GetAll(ctx)
	if err != nil {
		return nil, err
	}
	if len(entries) > limit {
		entries = entries[:limit]
	}
	return entries, nil
}

// Cleanup deletes entries older than keepDays and returns how many went.
func (s *ActivityLogService) Cleanup(ctx context.Context, keepDays int) (int, error) {
	if keepDays <= 0 {
		keepDays = defaultKeepDays
	}
	cutoff := s.now().Add(-time.Duration(keepDays) * 24 * time.Hour)

	var deleted int
	err := s.update(ctx, []store.Kind{store.KindActivityLogs}, func(tx store.Tx) error {
		var err error
		deleted, err = tx.DeleteActivityLogsBefore(cutoff)
		return err
	})
	if err != nil {
		return 0, err
	}
	if deleted > 0 {
		s.log.Info("activity log cleanup", "deleted", deleted, "keep_days", keepDays)
	}
	return deleted, nil
}

func (s *ActivityLogService) list(ctx context.Context, query func(tx store.Tx) ([]domain.ActivityLog, error)) ([]domain.ActivityLog, error) {
	var entries []domain.ActivityLog
	err := s.view(ctx, func(tx store.Tx) error {
		var err error
		entries, err = query(tx)
		return err
	})
	if err != nil {
		return nil, err
	}
	return sortActivityLogs(entries), nil
}
