package models

import "time"

const (
	DefaultPageTitle = "Untitled"
	DefaultPageIcon  = "📄"
)

type BlockType string

const (
	BlockText     BlockType = "text"
	BlockHeading1 BlockType = "heading1"
	BlockHeading2 BlockType = "heading2"
	BlockHeading3 BlockType = "heading3"
	BlockBullet   BlockType = "bullet"
	BlockNumbered BlockType = "numbered"
	BlockQuote    BlockType = "quote"
)

var blockTypes = map[BlockType]bool{
	BlockText:     true,
	BlockHeading1: true,
	BlockHeading2: true,
	BlockHeading3: true,
	BlockBullet:   true,
	BlockNumbered: true,
	BlockQuote:    true,
}

func (t BlockType) Valid() bool {
	return blockTypes[t]
}

// Timestamps are set by the services, not by gorm, so that the SQL and Mongo stores
// behave the same.

type User struct {
	ID           string    `gorm:"primaryKey;type:varchar(36)" json:"_id" bson:"_id"`
	Name         string    `json:"name" bson:"name"`
	Email        string    `gorm:"uniqueIndex;not null" json:"email" bson:"email"`
	PasswordHash string    `gorm:"not null" json:"-" bson:"passwordHash"` // json:"-" keeps the hash out of API responses
	SessionToken string    `gorm:"index" json:"-" bson:"sessionToken,omitempty"`
	CreatedAt    time.Time `gorm:"autoCreateTime:false" json:"createdAt" bson:"createdAt"`
}

type Page struct {
	ID         string    `gorm:"primaryKey;type:varchar(36)" json:"_id" bson:"_id"`
	OwnerID    string    `gorm:"not null;index" json:"userId" bson:"userId"`
	Title      string    `gorm:"not null" json:"title" bson:"title"`
	Icon       string    `json:"icon" bson:"icon"`
	IsFavorite bool      `gorm:"not null;default:false" json:"isFavorite" bson:"isFavorite"`
	IsDeleted  bool      `gorm:"not null;default:false;index" json:"isDeleted" bson:"isDeleted"`
	CreatedAt  time.Time `gorm:"autoCreateTime:false;index" json:"createdAt" bson:"createdAt"`
	UpdatedAt  time.Time `gorm:"autoUpdateTime:false" json:"updatedAt" bson:"updatedAt"`
}

type Block struct {
	ID        string    `gorm:"primaryKey;type:varchar(36)" json:"_id" bson:"_id"`
	PageID    string    `gorm:"not null;index" json:"pageId" bson:"pageId"`
	Content   string    `gorm:"type:text" json:"content" bson:"content"`
	Order     int       `gorm:"column:position;not null;default:0" json:"order" bson:"order"` // "order" is reserved in SQL
	Type      BlockType `gorm:"not null;default:'text'" json:"type" bson:"type"`
	CreatedAt time.Time `gorm:"autoCreateTime:false" json:"createdAt" bson:"createdAt"`
}
