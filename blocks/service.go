package blocks

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"notion-lite/common"
	"notion-lite/models"
	"notion-lite/store"
)

// BlockInput carries the optional fields of a block create or update. Unlike page
// fields, an empty content string is a real value.
type BlockInput struct {
	PageID  string  `json:"pageId"`
	Content *string `json:"content"`
	Order   *int    `json:"order"`
	Type    *string `json:"type"`
}

// BlockService scopes blocks through their page: every operation resolves the page
// and checks its owner before touching a block. Mutations bump the page's updatedAt
// in the same store transaction.
type BlockService struct {
	store store.Store
	now   func() time.Time
}

func NewBlockService(s store.Store) *BlockService {
	return &BlockService{
		store: s,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// ListByPage returns the page's blocks in display order. A page that no longer exists
// has no blocks, so the result is empty rather than NotFound.
func (s *BlockService) ListByPage(ctx context.Context, requester, pageID string) ([]models.Block, error) {
	if _, err := s.ownedPage(ctx, requester, pageID); err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return []models.Block{}, nil
		}
		return nil, err
	}

	blocks, err := s.store.ListBlocks(ctx, pageID)
	if err != nil {
		return nil, fmt.Errorf("list blocks of page %s: %w", pageID, err)
	}
	return blocks, nil
}

func (s *BlockService) Create(ctx context.Context, requester string, in BlockInput) (*models.Block, error) {
	if in.PageID == "" {
		return nil, fmt.Errorf("pageId is required: %w", common.ErrValidation)
	}
	blockType, err := parseType(in.Type, models.BlockText)
	if err != nil {
		return nil, err
	}
	if _, err := s.ownedPage(ctx, requester, in.PageID); err != nil {
		return nil, err
	}

	now := s.now()
	block := &models.Block{
		ID:        uuid.NewString(),
		PageID:    in.PageID,
		Type:      blockType,
		CreatedAt: now,
	}
	if in.Content != nil {
		block.Content = *in.Content
	}
	if in.Order != nil {
		block.Order = *in.Order
	}

	err = s.store.Transaction(ctx, func(ctx context.Context, tx store.Store) error {
		if err := tx.CreateBlock(ctx, block); err != nil {
			return fmt.Errorf("create block: %w", err)
		}
		return tx.TouchPage(ctx, block.PageID, now)
	})
	if err != nil {
		return nil, err
	}
	return block, nil
}

// Update applies the supplied fields. The block's page never changes.
func (s *BlockService) Update(ctx context.Context, requester, blockID string, in BlockInput) (*models.Block, error) {
	block, err := s.ownedBlock(ctx, requester, blockID)
	if err != nil {
		return nil, err
	}
	blockType, err := parseType(in.Type, block.Type)
	if err != nil {
		return nil, err
	}

	if in.Content != nil {
		block.Content = *in.Content
	}
	if in.Order != nil {
		block.Order = *in.Order
	}
	block.Type = blockType

	err = s.store.Transaction(ctx, func(ctx context.Context, tx store.Store) error {
		if err := tx.SaveBlock(ctx, block); err != nil {
			return fmt.Errorf("save block %s: %w", blockID, err)
		}
		return tx.TouchPage(ctx, block.PageID, s.now())
	})
	if err != nil {
		return nil, err
	}
	return block, nil
}

func (s *BlockService) Delete(ctx context.Context, requester, blockID string) error {
	block, err := s.ownedBlock(ctx, requester, blockID)
	if err != nil {
		return err
	}

	return s.store.Transaction(ctx, func(ctx context.Context, tx store.Store) error {
		if err := tx.DeleteBlock(ctx, blockID); err != nil {
			return fmt.Errorf("delete block %s: %w", blockID, err)
		}
		return tx.TouchPage(ctx, block.PageID, s.now())
	})
}

func (s *BlockService) ownedPage(ctx context.Context, requester, pageID string) (*models.Page, error) {
	page, err := s.store.GetPage(ctx, pageID)
	if err != nil {
		return nil, err
	}
	if page.OwnerID != requester {
		log.Warn().Str("user_id", requester).Str("page_id", pageID).Msg("block access on another user's page")
		return nil, fmt.Errorf("page %s: %w", pageID, common.ErrUnauthorized)
	}
	return page, nil
}

// ownedBlock loads the block and checks the owner of its page. A block whose page is
// gone is reported as not found.
func (s *BlockService) ownedBlock(ctx context.Context, requester, blockID string) (*models.Block, error) {
	block, err := s.store.GetBlock(ctx, blockID)
	if err != nil {
		return nil, err
	}
	if _, err := s.ownedPage(ctx, requester, block.PageID); err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, fmt.Errorf("block %s: %w", blockID, common.ErrNotFound)
		}
		return nil, err
	}
	return block, nil
}

func parseType(v *string, fallback models.BlockType) (models.BlockType, error) {
	if v == nil || *v == "" {
		return fallback, nil
	}
	t := models.BlockType(*v)
	if !t.Valid() {
		return "", fmt.Errorf("invalid block type %q: %w", *v, common.ErrValidation)
	}
	return t, nil
}
