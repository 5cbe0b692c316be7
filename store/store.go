// Package store persists users, pages and blocks. GormStore serves sqlite and
// postgres, MongoStore serves MongoDB; both implement Store.
package store

import (
	"context"
	"time"

	"notion-lite/models"
)

// PageFilter selects which of an owner's pages List returns.
type PageFilter string

const (
	FilterActive    PageFilter = ""          // not trashed
	FilterFavorites PageFilter = "favorites" // favorite and not trashed
	FilterTrash     PageFilter = "trash"     // trashed, favorite or not
)

type PageStore interface {
	CreatePage(ctx context.Context, page *models.Page) error
	// GetPage returns common.ErrNotFound when no page has the id.
	GetPage(ctx context.Context, id string) (*models.Page, error)
	ListPages(ctx context.Context, ownerID string, filter PageFilter) ([]models.Page, error)
	SavePage(ctx context.Context, page *models.Page) error
	TouchPage(ctx context.Context, id string, at time.Time) error
	DeletePage(ctx context.Context, id string) error
}

type BlockStore interface {
	CreateBlock(ctx context.Context, block *models.Block) error
	// GetBlock returns common.ErrNotFound when no block has the id.
	GetBlock(ctx context.Context, id string) (*models.Block, error)
	// ListBlocks returns the page's blocks by ascending order, ties by creation time.
	ListBlocks(ctx context.Context, pageID string) ([]models.Block, error)
	SaveBlock(ctx context.Context, block *models.Block) error
	DeleteBlock(ctx context.Context, id string) error
	DeleteBlocksByPage(ctx context.Context, pageID string) (int64, error)
	// DeleteOrphanBlocks removes blocks whose page no longer exists.
	DeleteOrphanBlocks(ctx context.Context) (int64, error)
}

type UserStore interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUser(ctx context.Context, id string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
	GetUserByToken(ctx context.Context, token string) (*models.User, error)
	SaveUser(ctx context.Context, user *models.User) error
}

type Store interface {
	PageStore
	BlockStore
	UserStore

	// Transaction runs fn against a Store whose writes commit or roll back together
	// when the backend supports it. fn must use the ctx and Store it is given.
	Transaction(ctx context.Context, fn func(ctx context.Context, tx Store) error) error
	Close() error
}
