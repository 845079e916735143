package service

import (
	"context"
	"strings"

	"github.com/gofrs/uuid/v5"

	"github.com/and161185/itemsync/internal/errs"
	"github.com/and161185/itemsync/internal/model"
	"github.com/and161185/itemsync/internal/repository"
)

// Paging defaults of the item listing.
const (
	DefaultLimit = 20
	MaxLimit     = 100
)

// ItemService defines per-user item operations.
type ItemService interface {
	// List returns one page; page is 1-based.
	List(ctx context.Context, userID uuid.UUID, page, limit int) (model.ItemPage, error)
	Get(ctx context.Context, userID, id uuid.UUID) (model.Item, error)
	Create(ctx context.Context, userID uuid.UUID, d model.ItemDraft) (model.Item, error)
	// Update overwrites title and description; a nil IsFavorite keeps the stored flag.
	Update(ctx context.Context, userID, id uuid.UUID, d model.ItemDraft) (model.Item, error)
	Delete(ctx context.Context, userID, id uuid.UUID) error
}

type ItemServiceImpl struct {
	repo repository.ItemRepository
}

var _ ItemService = (*ItemServiceImpl)(nil)

// NewItemService constructs ItemService.
func NewItemService(repo repository.ItemRepository) *ItemServiceImpl {
	return &ItemServiceImpl{repo: repo}
}

// List clamps page and limit to sane bounds and reports the totals.
func (s *ItemServiceImpl) List(ctx context.Context, userID uuid.UUID, page, limit int) (model.ItemPage, error) {
	if page < 1 {
		page = 1
	}
	switch {
	case limit <= 0:
		limit = DefaultLimit
	case limit > MaxLimit:
		limit = MaxLimit
	}

	total, err := s.repo.Count(ctx, userID)
	if err != nil {
		return model.ItemPage{}, err
	}
	recs, err := s.repo.List(ctx, userID, limit, (page-1)*limit)
	if err != nil {
		return model.ItemPage{}, err
	}

	items := make([]model.Item, 0, len(recs))
	for i := range recs {
		items = append(items, toItem(&recs[i]))
	}
	return model.ItemPage{
		Items:      items,
		Page:       page,
		Limit:      limit,
		TotalItems: total,
		TotalPages: (total + limit - 1) / limit,
	}, nil
}

func (s *ItemServiceImpl) Get(ctx context.Context, userID, id uuid.UUID) (model.Item, error) {
	rec, err := s.repo.Get(ctx, userID, id)
	if err != nil {
		return model.Item{}, err
	}
	return toItem(rec), nil
}

func (s *ItemServiceImpl) Create(ctx context.Context, userID uuid.UUID, d model.ItemDraft) (model.Item, error) {
	title, err := validTitle(d.Title)
	if err != nil {
		return model.Item{}, err
	}
	id, err := uuid.NewV4()
	if err != nil {
		return model.Item{}, err
	}
	rec := &model.ItemRecord{ID: id, UserID: userID, Title: title, Description: d.Description}
	if d.IsFavorite != nil {
		rec.IsFavorite = *d.IsFavorite
	}
	if err := s.repo.Create(ctx, rec); err != nil {
		return model.Item{}, err
	}
	return toItem(rec), nil
}

func (s *ItemServiceImpl) Update(ctx context.Context, userID, id uuid.UUID, d model.ItemDraft) (model.Item, error) {
	title, err := validTitle(d.Title)
	if err != nil {
		return model.Item{}, err
	}
	rec, err := s.repo.Get(ctx, userID, id)
	if err != nil {
		return model.Item{}, err
	}
	rec.Title = title
	rec.Description = d.Description
	if d.IsFavorite != nil {
		rec.IsFavorite = *d.IsFavorite
	}
	if err := s.repo.Update(ctx, rec); err != nil {
		return model.Item{}, err
	}
	return toItem(rec), nil
}

func (s *ItemServiceImpl) Delete(ctx context.Context, userID, id uuid.UUID) error {
	return s.repo.Delete(ctx, userID, id)
}

func validTitle(t string) (string, error) {
	t = strings.TrimSpace(t)
	if t == "" {
		return "", errs.Validation("title is required")
	}
	return t, nil
}

func toItem(r *model.ItemRecord) model.Item {
	return model.Item{
		ID:          r.ID.String(),
		Title:       r.Title,
		Description: r.Description,
		IsFavorite:  r.IsFavorite,
		CreatedAt:   r.CreatedAt,
		UpdatedAt:   r.UpdatedAt,
	}
}
