package pages

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"notion-lite/common"
	"notion-lite/models"
	"notion-lite/store"
)

// PageInput carries the optional fields of a create or update. Nil and empty strings
// both mean "not supplied".
type PageInput struct {
	Title *string `json:"title"`
	Icon  *string `json:"icon"`
}

// PageService enforces owner scoping over pages and owns the favorite/trash state
// transitions. Deleting a page removes its blocks in the same store transaction.
type PageService struct {
	store store.Store
	now   func() time.Time
}

func NewPageService(s store.Store) *PageService {
	return &PageService{
		store: s,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

func (s *PageService) List(ctx context.Context, requester string, filter store.PageFilter) ([]models.Page, error) {
	pages, err := s.store.ListPages(ctx, requester, filter)
	if err != nil {
		return nil, fmt.Errorf("list pages: %w", err)
	}
	return pages, nil
}

// Get returns common.ErrNotFound when the page does not exist and
// common.ErrUnauthorized when it belongs to another user.
func (s *PageService) Get(ctx context.Context, requester, pageID string) (*models.Page, error) {
	page, err := s.store.GetPage(ctx, pageID)
	if err != nil {
		return nil, err
	}
	if page.OwnerID != requester {
		log.Warn().Str("user_id", requester).Str("page_id", pageID).Msg("page owned by another user")
		return nil, fmt.Errorf("page %s: %w", pageID, common.ErrUnauthorized)
	}
	return page, nil
}

func (s *PageService) Create(ctx context.Context, requester string, in PageInput) (*models.Page, error) {
	now := s.now()
	page := &models.Page{
		ID:        uuid.NewString(),
		OwnerID:   requester,
		Title:     valueOr(in.Title, models.DefaultPageTitle),
		Icon:      valueOr(in.Icon, models.DefaultPageIcon),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := s.store.CreatePage(ctx, page); err != nil {
		return nil, fmt.Errorf("create page: %w", err)
	}
	return page, nil
}

func (s *PageService) Update(ctx context.Context, requester, pageID string, in PageInput) (*models.Page, error) {
	return s.mutate(ctx, requester, pageID, func(p *models.Page) {
		p.Title = valueOr(in.Title, p.Title)
		p.Icon = valueOr(in.Icon, p.Icon)
	})
}

func (s *PageService) ToggleFavorite(ctx context.Context, requester, pageID string) (*models.Page, error) {
	return s.mutate(ctx, requester, pageID, func(p *models.Page) {
		p.IsFavorite = !p.IsFavorite
	})
}

// Trash moves the page to the trash. Its blocks are left untouched.
func (s *PageService) Trash(ctx context.Context, requester, pageID string) (*models.Page, error) {
	return s.mutate(ctx, requester, pageID, func(p *models.Page) {
		p.IsDeleted = true
	})
}

func (s *PageService) Restore(ctx context.Context, requester, pageID string) (*models.Page, error) {
	return s.mutate(ctx, requester, pageID, func(p *models.Page) {
		p.IsDeleted = false
	})
}

// Delete permanently removes the page and every block on it.
func (s *PageService) Delete(ctx context.Context, requester, pageID string) error {
	if _, err := s.Get(ctx, requester, pageID); err != nil {
		return err
	}

	return s.store.Transaction(ctx, func(ctx context.Context, tx store.Store) error {
		n, err := tx.DeleteBlocksByPage(ctx, pageID)
		if err != nil {
			return fmt.Errorf("delete blocks of page %s: %w", pageID, err)
		}
		if err := tx.DeletePage(ctx, pageID); err != nil {
			return fmt.Errorf("delete page %s: %w", pageID, err)
		}
		log.Info().Str("user_id", requester).Str("page_id", pageID).Int64("blocks", n).Msg("page deleted")
		return nil
	})
}

func (s *PageService) mutate(ctx context.Context, requester, pageID string, apply func(*models.Page)) (*models.Page, error) {
	page, err := s.Get(ctx, requester, pageID)
	if err != nil {
		return nil, err
	}

	apply(page)
	page.UpdatedAt = s.now()

	if err := s.store.SavePage(ctx, page); err != nil {
		return nil, fmt.Errorf("save page %s: %w", pageID, err)
	}
	return page, nil
}

func valueOr(v *string, fallback string) string {
	if v == nil || *v == "" {
		return fallback
	}
	return *v
}
