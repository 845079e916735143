package prefs

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/and161185/itemsync/internal/errs"
)

func TestLoadDefaults(t *testing.T) {
	p, err := New(NewMemory()).Load(context.Background())
	require.NoError(t, err)
	require.Equal(t, Defaults(), p)
}

func TestSettersRoundTrip(t *testing.T) {
	ctx := context.Background()
	s := New(NewMemory())
	synced := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

	require.NoError(t, s.SetPageSize(ctx, 50))
	require.NoError(t, s.SetNotificationsEnabled(ctx, false))
	require.NoError(t, s.SetAppearance(ctx, AppearanceDark))
	require.NoError(t, s.SetLastSyncedAt(ctx, synced))

	p, err := s.Load(ctx)
	require.NoError(t, err)
	require.Equal(t, 50, p.PageSize)
	require.False(t, p.NotificationsEnabled)
	require.Equal(t, AppearanceDark, p.Appearance)
	require.True(t, p.LastSyncedAt.Equal(synced))

	require.NoError(t, s.Reset(ctx))
	p, err = s.Load(ctx)
	require.NoError(t, err)
	require.Equal(t, Defaults(), p)
}

func TestValidation(t *testing.T) {
	ctx := context.Background()
	s := New(NewMemory())

	require.ErrorIs(t, s.SetPageSize(ctx, 0), errs.ErrValidation)
	require.ErrorIs(t, s.SetPageSize(ctx, MaxPageSize+1), errs.ErrValidation)
	require.ErrorIs(t, s.SetAppearance(ctx, "neon"), errs.ErrValidation)
	require.ErrorIs(t, s.SetString(ctx, "color", "x"), errs.ErrValidation)
	require.ErrorIs(t, s.SetString(ctx, KeyPageSize, "many"), errs.ErrValidation)
}

func TestSetString(t *testing.T) {
	ctx := context.Background()
	s := New(NewMemory())

	require.NoError(t, s.SetString(ctx, KeyPageSize, " 10 "))
	require.NoError(t, s.SetString(ctx, KeyNotifications, "false"))
	require.NoError(t, s.SetString(ctx, KeyAppearance, "Light"))

	p, err := s.Load(ctx)
	require.NoError(t, err)
	require.Equal(t, 10, p.PageSize)
	require.False(t, p.NotificationsEnabled)
	require.Equal(t, AppearanceLight, p.Appearance)
}
