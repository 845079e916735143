package memory

import (
	"context"
	"testing"
	"time"

	"github.com/gofrs/uuid/v5"
	"github.com/stretchr/testify/require"

	"github.com/and161185/itemsync/internal/errs"
	"github.com/and161185/itemsync/internal/model"
)

func TestUsersUniqueEmail(t *testing.T) {
	ctx := context.Background()
	s := New()
	a := &model.UserRecord{ID: uuid.Must(uuid.NewV4()), Email: "A@b.c", Name: "A"}
	require.NoError(t, s.Users().Create(ctx, a))
	require.Equal(t, "a@b.c", a.Email)

	b := &model.UserRecord{ID: uuid.Must(uuid.NewV4()), Email: "a@B.c", Name: "B"}
	require.ErrorIs(t, s.Users().Create(ctx, b), errs.ErrAlreadyExists)

	b.Email = "b@b.c"
	require.NoError(t, s.Users().Create(ctx, b))
	taken := "A@B.C"
	_, err := s.Users().Update(ctx, b.ID, nil, &taken)
	require.ErrorIs(t, err, errs.ErrAlreadyExists)

	got, err := s.Users().GetByEmail(ctx, "B@B.C")
	require.NoError(t, err)
	require.Equal(t, b.ID, got.ID)
}

func TestItemsPagingAndCascade(t *testing.T) {
	ctx := context.Background()
	s := New()
	now := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	s.SetClock(func() time.Time { now = now.Add(time.Second); return now })

	uid := uuid.Must(uuid.NewV4())
	require.NoError(t, s.Users().Create(ctx, &model.UserRecord{ID: uid, Email: "a@b.c"}))
	var ids []uuid.UUID
	for i := 0; i < 5; i++ {
		it := &model.ItemRecord{ID: uuid.Must(uuid.NewV4()), UserID: uid, Title: "t"}
		require.NoError(t, s.Items().Create(ctx, it))
		ids = append(ids, it.ID)
	}

	page, err := s.Items().List(ctx, uid, 2, 0)
	require.NoError(t, err)
	require.Equal(t, []uuid.UUID{ids[4], ids[3]}, []uuid.UUID{page[0].ID, page[1].ID})
	page, err = s.Items().List(ctx, uid, 2, 4)
	require.NoError(t, err)
	require.Len(t, page, 1)
	page, err = s.Items().List(ctx, uid, 2, 10)
	require.NoError(t, err)
	require.Empty(t, page)

	_, err = s.Items().Get(ctx, uuid.Must(uuid.NewV4()), ids[0])
	require.ErrorIs(t, err, errs.ErrNotFound)

	require.NoError(t, s.Users().Delete(ctx, uid))
	n, err := s.Items().Count(ctx, uid)
	require.NoError(t, err)
	require.Zero(t, n)
}

func TestTokensRotate(t *testing.T) {
	ctx := context.Background()
	s := New()
	uid := uuid.Must(uuid.NewV4())
	first := model.RefreshToken{JTI: uuid.Must(uuid.NewV4()), UserID: uid, ExpiresAt: time.Now().Add(time.Hour)}
	second := model.RefreshToken{JTI: uuid.Must(uuid.NewV4()), UserID: uid, ExpiresAt: time.Now().Add(time.Hour)}
	require.NoError(t, s.Tokens().Save(ctx, first))

	require.NoError(t, s.Tokens().Rotate(ctx, first.JTI, second))
	require.ErrorIs(t, s.Tokens().Rotate(ctx, first.JTI, second), errs.ErrUnauthorized)

	require.NoError(t, s.Tokens().Revoke(ctx, second.JTI))
	third := model.RefreshToken{JTI: uuid.Must(uuid.NewV4()), UserID: uid, ExpiresAt: time.Now().Add(time.Hour)}
	require.ErrorIs(t, s.Tokens().Rotate(ctx, second.JTI, third), errs.ErrUnauthorized)
}
