package database

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
	"gorm.io/gorm"

	"notion-lite/models"
)

func RunMigrations(db *gorm.DB) error {
	log.Info().Msg("running database migrations")

	err := db.AutoMigrate(
		&models.User{},
		&models.Page{},
		&models.Block{},
	)
	if err != nil {
		log.Error().Err(err).Msg("migrations failed")
		return err
	}

	log.Info().Msg("migrations completed")
	return nil
}

// EnsureMongoIndexes creates the indexes backing the owner-scoped page listing, the
// ordered block listing and the user lookups. Creating an existing index is a no-op.
func EnsureMongoIndexes(ctx context.Context, db *mongo.Database) error {
	indexes := map[string][]mongo.IndexModel{
		"pages": {
			{Keys: bson.D{{Key: "userId", Value: 1}, {Key: "isDeleted", Value: 1}, {Key: "createdAt", Value: -1}}},
		},
		"blocks": {
			{Keys: bson.D{{Key: "pageId", Value: 1}, {Key: "order", Value: 1}}},
		},
		"users": {
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "sessionToken", Value: 1}}},
		},
	}

	for coll, idx := range indexes {
		if _, err := db.Collection(coll).Indexes().CreateMany(ctx, idx); err != nil {
			return fmt.Errorf("create %s indexes: %w", coll, err)
		}
	}

	log.Info().Str("database", db.Name()).Msg("mongo indexes ensured")
	return nil
}
