package appstate

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"kasirlokal/internal/auth"
	"kasirlokal/internal/domain"
	"kasirlokal/internal/pricing"
	"kasirlokal/internal/store"
	"kasirlokal/internal/store/memory"
)

type fakeTokens map[string]string

func (f fakeTokens) ParseToken(token string) (domain.Actor, error) {
	userID, ok := f[token]
	if !ok {
		return domain.Actor{}, errors.New("bad token")
	}
	return domain.Actor{UserID: userID}, nil
}

func testSession() auth.Session {
	at := time.Date(2026, 3, 14, 8, 0, 0, 0, time.UTC)
	return auth.Session{
		UserID:     "usr-1",
		Username:   "kasir",
		Role:       domain.RoleCashier,
		Token:      "tok-1",
		LoggedInAt: at,
		ExpiresAt:  at.Add(8 * time.Hour),
	}
}

func TestSessionSurvivesRestart(t *testing.T) {
	s := memory.New()
	ctx := context.Background()
	tokens := fakeTokens{"tok-1": "usr-1"}

	first := New(s, tokens, nil)
	require.NoError(t, first.Login(ctx, testSession()))
	require.NoError(t, first.WithCart(func(cart *pricing.Cart) error {
		return cart.Add(domain.Product{ID: "p1", Price: decimal.NewFromInt(3500)}, 2)
	}))

	second := New(s, tokens, nil)
	restored, err := second.Restore(ctx)
	require.NoError(t, err)
	require.True(t, restored)

	session, ok := second.Session()
	require.True(t, ok)
	assert.Equal(t, "kasir", session.Username)
	assert.Equal(t, domain.RoleCashier, session.Role)
	assert.True(t, session.LoggedInAt.Equal(testSession().LoggedInAt))

	// The cart is not part of the persisted subset.
	require.NoError(t, second.WithCart(func(cart *pricing.Cart) error {
		assert.Zero(t, cart.Len())
		return nil
	}))
}

func TestRestoreDropsInvalidToken(t *testing.T) {
	s := memory.New()
	ctx := context.Background()

	require.NoError(t, New(s, fakeTokens{}, nil).Login(ctx, testSession()))

	st := New(s, fakeTokens{}, nil)
	restored, err := st.Restore(ctx)
	require.NoError(t, err)
	assert.False(t, restored)

	require.NoError(t, s.View(ctx, func(tx store.Tx) error {
		_, ok, err := tx.GetMeta(store.MetaSession)
		assert.False(t, ok)
		return err
	}))
}

func TestLogoutClearsSessionAndCart(t *testing.T) {
	s := memory.New()
	ctx := context.Background()
	st := New(s, fakeTokens{"tok-1": "usr-1"}, nil)
	require.NoError(t, st.Login(ctx, testSession()))
	require.NoError(t, st.WithCart(func(cart *pricing.Cart) error {
		return cart.Add(domain.Product{ID: "p1", Price: decimal.NewFromInt(1)}, 1)
	}))
	st.SetFlags(Flags{ScannerMode: true})

	require.NoError(t, st.Logout(ctx))
	_, ok := st.Session()
	assert.False(t, ok)
	assert.True(t, st.Flags().ScannerMode)

	restored, err := New(s, fakeTokens{"tok-1": "usr-1"}, nil).Restore(ctx)
	require.NoError(t, err)
	assert.False(t, restored)
}
