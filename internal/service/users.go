package service

import (
	"context"
	"fmt"
	"strings"

	"kasirlokal/internal/auth"
	"kasirlokal/internal/domain"
	"kasirlokal/internal/store"
	"kasirlokal/internal/xid"
)

type UserService struct {
	*base
	activity *ActivityLogService
}

func (s *UserService) GetAll(ctx context.Context) ([]domain.User, error) {
	var users []domain.User
	err := s.view(ctx, func(tx store.Tx) error {
		var err error
		users, err = tx.ListUsers()
		return err
	})
	if err != nil {
		return nil, err
	}
	return sortUsers(users), nil
}

func (s *UserService) GetByID(ctx context.Context, id string) (domain.User, error) {
	var user domain.User
	err := s.view(ctx, func(tx store.Tx) error {
		found, ok, err := tx.GetUser(id)
		if err != nil {
			return err
		}
		if !ok {
			return notFound("user", id)
		}
		user = found
		return nil
	})
	return user, err
}

func (s *UserService) GetByUsername(ctx context.Context, username string) (domain.User, error) {
	username = normalizeUsername(username)
	var user domain.User
	err := s.view(ctx, func(tx store.Tx) error {
		found, ok, err := tx.FindUserByUsername(username)
		if err != nil {
			return err
		}
		if !ok {
			return notFound("user", username)
		}
		user = found
		return nil
	})
	return user, err
}

func (s *UserService) Create(ctx context.Context, req domain.UserCreateRequest) (domain.User, error) {
	username := normalizeUsername(req.Username)
	if err := validateUsername(username); err != nil {
		return domain.User{}, err
	}
	if err := validatePassword(req.Password); err != nil {
		return domain.User{}, err
	}
	role := req.Role
	if role == "" {
		role = domain.RoleCashier
	}
	if !isKnownRole(role) {
		return domain.User{}, invalidInput("unknown role %q", role)
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		return domain.User{}, err
	}

	now := s.now()
	user := domain.User{
		ID:           strings.TrimSpace(req.ID),
		Username:     username,
		Email:        strings.TrimSpace(req.Email),
		PasswordHash: hash,
		Role:         role,
		Active:       true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if user.ID == "" {
		user.ID = xid.New("usr")
	}
	if req.Active != nil {
		user.Active = *req.Active
	}

	err = s.update(ctx, []store.Kind{store.KindUsers}, func(tx store.Tx) error {
		if _, exists, err := tx.GetUser(user.ID); err != nil {
			return err
		} else if exists {
			return duplicate("user", "id", user.ID)
		}
		if _, exists, err := tx.FindUserByUsername(username); err != nil {
			return err
		} else if exists {
			return duplicate("user", "username", username)
		}
		return tx.PutUser(user)
	})
	if err != nil {
		return domain.User{}, err
	}

	s.activity.Record(ctx, "user_create", "user", user.ID, "username="+user.Username+",role="+string(user.Role))
	return user, nil
}

func (s *UserService) Update(ctx context.Context, id string, req domain.UserUpdateRequest) (domain.User, error) {
	var newHash string
	if req.Password != nil {
		if err := validatePassword(*req.Password); err != nil {
			return domain.User{}, err
		}
		hash, err := auth.HashPassword(*req.Password)
		if err != nil {
			return domain.User{}, err
		}
		newHash = hash
	}
	if req.Role != nil && !isKnownRole(*req.Role) {
		return domain.User{}, invalidInput("unknown role %q", *req.Role)
	}

	var user domain.User
	err := s.update(ctx, []store.Kind{store.KindUsers}, func(tx store.Tx) error {
		existing, ok, err := tx.GetUser(id)
		if err != nil {
			return err
		}
		if !ok {
			return notFound("user", id)
		}
		if req.Email != nil {
			existing.Email = strings.TrimSpace(*req.Email)
		}
		if req.Role != nil {
			existing.Role = *req.Role
		}
		if req.Active != nil {
			existing.Active = *req.Active
		}
		if newHash != "" {
			existing.PasswordHash = newHash
		}
		existing.UpdatedAt = s.now()
		user = existing
		return tx.PutUser(existing)
	})
	if err != nil {
		return domain.User{}, err
	}

	s.activity.Record(ctx, "user_update", "user", user.ID, "")
	return user, nil
}

// Delete removes a user that no transaction references; referenced users
// should be disabled through Update instead.
func (s *UserService) Delete(ctx context.Context, id string) error {
	err := s.update(ctx, []store.Kind{store.KindUsers}, func(tx store.Tx) error {
		if _, ok, err := tx.GetUser(id); err != nil {
			return err
		} else if !ok {
			return notFound("user", id)
		}
		refs, err := tx.CountTransactionsByCashier(id)
		if err != nil {
			return err
		}
		if refs > 0 {
			return fmt.Errorf("%w: user %q is referenced by %d transactions", store.ErrInUse, id, refs)
		}
		return tx.DeleteUser(id)
	})
	if err != nil {
		return err
	}

	s.activity.Record(ctx, "user_delete", "user", id, "")
	return nil
}

func normalizeUsername(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}

func validateUsername(username string) error {
	if len(username) < 3 {
		return invalidInput("username must be at least 3 characters")
	}
	if strings.ContainsAny(username, " \t\r\n") {
		return invalidInput("username must not contain spaces")
	}
	return nil
}

func validatePassword(password string) error {
	if len(strings.TrimSpace(password)) < 6 {
		return invalidInput("password must be at least 6 characters")
	}
	return nil
}

func isKnownRole(role domain.Role) bool {
	switch role {
	case domain.RoleAdmin, domain.RoleManager, domain.RoleCashier:
		return true
	}
	return false
}
