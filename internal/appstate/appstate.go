// Package appstate holds the state of the single local terminal: who is
// signed in, the open cart and a few UI flags. Only the session survives a
// restart.
package appstate

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"kasirlokal/internal/auth"
	"kasirlokal/internal/domain"
	"kasirlokal/internal/pricing"
	"kasirlokal/internal/store"
)

type TokenParser interface {
	ParseToken(token string) (domain.Actor, error)
}

type Flags struct {
	SidebarCollapsed bool `json:"sidebarCollapsed"`
	ShowLowStock     bool `json:"showLowStock"`
	ScannerMode      bool `json:"scannerMode"`
}

// persistedSession is the subset written to the store.
type persistedSession struct {
	UserID     string      `json:"userId"`
	Username   string      `json:"username"`
	Role       domain.Role `json:"role"`
	Token      string      `json:"token"`
	LoggedInAt time.Time   `json:"loggedInAt"`
	ExpiresAt  time.Time   `json:"expiresAt"`
}

type State struct {
	mu      sync.Mutex
	store   store.Store
	tokens  TokenParser
	log     *slog.Logger
	session *auth.Session
	cart    *pricing.Cart
	flags   Flags
}

func New(s store.Store, tokens TokenParser, log *slog.Logger) *State {
	if log == nil {
		log = slog.Default()
	}
	return &State{
		store:  s,
		tokens: tokens,
		log:    log.With("component", "appstate"),
		cart:   pricing.NewCart(),
	}
}

func (st *State) Session() (auth.Session, bool) {
	st.mu.Lock()
	defer st.mu.Unlock()
	if st.session == nil {
		return auth.Session{}, false
	}
	return *st.session, true
}

// Login records the session and persists it.
func (st *State) Login(ctx context.Context, session auth.Session) error {
	st.mu.Lock()
	st.session = &session
	st.mu.Unlock()
	return st.Persist(ctx)
}

// Logout forgets the session and empties the cart.
func (st *State) Logout(ctx context.Context) error {
	st.mu.Lock()
	st.session = nil
	st.cart.Clear()
	st.mu.Unlock()
	return st.Persist(ctx)
}

// WithCart runs fn with exclusive access to the open cart.
func (st *State) WithCart(fn func(cart *pricing.Cart) error) error {
	st.mu.Lock()
	defer st.mu.Unlock()
	return fn(st.cart)
}

func (st *State) Flags() Flags {
	st.mu.Lock()
	defer st.mu.Unlock()
	return st.flags
}

func (st *State) SetFlags(flags Flags) {
	st.mu.Lock()
	defer st.mu.Unlock()
	st.flags = flags
}

// Persist writes the session subset, or removes it when signed out.
func (st *State) Persist(ctx context.Context) error {
	st.mu.Lock()
	var payload []byte
	if st.session != nil {
		raw, err := json.Marshal(persistedSession{
			UserID:     st.session.UserID,
			Username:   st.session.Username,
			Role:       st.session.Role,
			Token:      st.session.Token,
			LoggedInAt: st.session.LoggedInAt,
			ExpiresAt:  st.session.ExpiresAt,
		})
		if err != nil {
			st.mu.Unlock()
			return fmt.Errorf("encode session: %w", err)
		}
		payload = raw
	}
	st.mu.Unlock()

	return st.store.Update(ctx, []store.Kind{store.KindMeta}, func(tx store.Tx) error {
		if payload == nil {
			return tx.DeleteMeta(store.MetaSession)
		}
		return tx.PutMeta(store.MetaSession, string(payload))
	})
}

// Restore loads the persisted session and keeps it only while its token
// still verifies. It reports whether a session was restored.
func (st *State) Restore(ctx context.Context) (bool, error) {
	var raw string
	var found bool
	err := st.store.View(ctx, func(tx store.Tx) error {
		var err error
		raw, found, err = tx.GetMeta(store.MetaSession)
		return err
	})
	if err != nil || !found {
		return false, err
	}

	var saved persistedSession
	if err := json.Unmarshal([]byte(raw), &saved); err != nil {
		st.log.Warn("discarding unreadable persisted session", "error", err)
		return false, st.forget(ctx)
	}
	actor, err := st.tokens.ParseToken(saved.Token)
	if err != nil || actor.UserID != saved.UserID {
		st.log.Info("persisted session expired", "username", saved.Username)
		return false, st.forget(ctx)
	}

	st.mu.Lock()
	st.session = &auth.Session{
		UserID:     saved.UserID,
		Username:   saved.Username,
		Role:       saved.Role,
		Token:      saved.Token,
		ExpiresAt:  saved.ExpiresAt,
		LoggedInAt: saved.LoggedInAt,
	}
	st.mu.Unlock()
	return true, nil
}

func (st *State) forget(ctx context.Context) error {
	st.mu.Lock()
	st.session = nil
	st.mu.Unlock()
	return st.store.Update(ctx, []store.Kind{store.KindMeta}, func(tx store.Tx) error {
		return tx.DeleteMeta(store.MetaSession)
	})
}
