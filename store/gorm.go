package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"notion-lite/common"
	"notion-lite/models"
)

// GormStore implements Store on top of gorm (sqlite or postgres).
type GormStore struct {
	db *gorm.DB
}

func NewGormStore(db *gorm.DB) *GormStore {
	return &GormStore{db: db}
}

func (s *GormStore) Transaction(ctx context.Context, fn func(ctx context.Context, tx Store) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(ctx, &GormStore{db: tx})
	})
}

func (s *GormStore) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func notFound(err error, what, id string) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return fmt.Errorf("%s %s: %w", what, id, common.ErrNotFound)
	}
	return fmt.Errorf("get %s %s: %w", what, id, err)
}

// saveExisting updates all columns of the row with value's primary key. The explicit
// Select keeps Save from falling back to an INSERT when no row matches.
func saveExisting(db *gorm.DB, value any, what, id string) error {
	result := db.Select("*").Save(value)
	if result.Error != nil {
		return fmt.Errorf("save %s %s: %w", what, id, result.Error)
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("%s %s: %w", what, id, common.ErrNotFound)
	}
	return nil
}

// Pages

func (s *GormStore) CreatePage(ctx context.Context, page *models.Page) error {
	return s.db.WithContext(ctx).Create(page).Error
}

func (s *GormStore) GetPage(ctx context.Context, id string) (*models.Page, error) {
	var page models.Page
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&page).Error; err != nil {
		return nil, notFound(err, "page", id)
	}
	return &page, nil
}

func (s *GormStore) ListPages(ctx context.Context, ownerID string, filter PageFilter) ([]models.Page, error) {
	query := s.db.WithContext(ctx).Where("owner_id = ?", ownerID)

	switch filter {
	case FilterFavorites:
		query = query.Where("is_favorite = ? AND is_deleted = ?", true, false)
	case FilterTrash:
		query = query.Where("is_deleted = ?", true)
	default:
		query = query.Where("is_deleted = ?", false)
	}

	pages := []models.Page{}
	if err := query.Order("created_at DESC").Find(&pages).Error; err != nil {
		return nil, err
	}
	return pages, nil
}

// SavePage writes every column of an existing page. It never inserts: saving a page
// that has been deleted returns common.ErrNotFound.
func (s *GormStore) SavePage(ctx context.Context, page *models.Page) error {
	return saveExisting(s.db.WithContext(ctx), page, "page", page.ID)
}

func (s *GormStore) TouchPage(ctx context.Context, id string, at time.Time) error {
	return s.db.WithContext(ctx).Model(&models.Page{}).
		Where("id = ?", id).
		Update("updated_at", at).Error
}

func (s *GormStore) DeletePage(ctx context.Context, id string) error {
	return s.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Page{}).Error
}

// Blocks

func (s *GormStore) CreateBlock(ctx context.Context, block *models.Block) error {
	return s.db.WithContext(ctx).Create(block).Error
}

func (s *GormStore) GetBlock(ctx context.Context, id string) (*models.Block, error) {
	var block models.Block
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&block).Error; err != nil {
		return nil, notFound(err, "block", id)
	}
	return &block, nil
}

func (s *GormStore) ListBlocks(ctx context.Context, pageID string) ([]models.Block, error) {
	blocks := []models.Block{}
	err := s.db.WithContext(ctx).
		Where("page_id = ?", pageID).
		Order("position ASC").
		Order("created_at ASC").
		Find(&blocks).Error
	if err != nil {
		return nil, err
	}
	return blocks, nil
}

func (s *GormStore) SaveBlock(ctx context.Context, block *models.Block) error {
	return saveExisting(s.db.WithContext(ctx), block, "block", block.ID)
}

func (s *GormStore) DeleteBlock(ctx context.Context, id string) error {
	return s.db.WithContext(ctx).Where("id = ?", id).Delete(&models.Block{}).Error
}

func (s *GormStore) DeleteBlocksByPage(ctx context.Context, pageID string) (int64, error) {
	result := s.db.WithContext(ctx).Where("page_id = ?", pageID).Delete(&models.Block{})
	return result.RowsAffected, result.Error
}

func (s *GormStore) DeleteOrphanBlocks(ctx context.Context) (int64, error) {
	pages := s.db.Model(&models.Page{}).Select("id")
	result := s.db.WithContext(ctx).Where("page_id NOT IN (?)", pages).Delete(&models.Block{})
	return result.RowsAffected, result.Error
}

// Users

func (s *GormStore) CreateUser(ctx context.Context, user *models.User) error {
	err := s.db.WithContext(ctx).Create(user).Error
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return fmt.Errorf("user %s: %w", user.Email, common.ErrConflict)
	}
	return err
}

func (s *GormStore) GetUser(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).Where("id = ?", id).First(&user).Error; err != nil {
		return nil, notFound(err, "user", id)
	}
	return &user, nil
}

func (s *GormStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	if err := s.db.WithContext(ctx).Where("email = ?", email).First(&user).Error; err != nil {
		return nil, notFound(err, "user", email)
	}
	return &user, nil
}

func (s *GormStore) GetUserByToken(ctx context.Context, token string) (*models.User, error) {
	var user models.User
	if token == "" {
		return nil, fmt.Errorf("empty token: %w", common.ErrNotFound)
	}
	if err := s.db.WithContext(ctx).Where("session_token = ?", token).First(&user).Error; err != nil {
		return nil, notFound(err, "user", "by token")
	}
	return &user, nil
}

func (s *GormStore) SaveUser(ctx context.Context, user *models.User) error {
	return saveExisting(s.db.WithContext(ctx), user, "user", user.ID)
}
