package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"notion-lite/common"
	"notion-lite/models"
)

// MongoStore implements Store on a MongoDB database, one collection per entity.
//
// Multi-document transactions need a replica set. Without one (useTx false) a
// cascade runs as sequential writes and a crash between them can leave blocks
// pointing at a deleted page; DeleteOrphanBlocks reconciles those.
type MongoStore struct {
	client *mongo.Client
	db     *mongo.Database
	useTx  bool
}

func NewMongoStore(client *mongo.Client, database string, useTx bool) *MongoStore {
	return &MongoStore{
		client: client,
		db:     client.Database(database),
		useTx:  useTx,
	}
}

func (s *MongoStore) pages() *mongo.Collection  { return s.db.Collection("pages") }
func (s *MongoStore) blocks() *mongo.Collection { return s.db.Collection("blocks") }
func (s *MongoStore) users() *mongo.Collection  { return s.db.Collection("users") }

// Database exposes the underlying database for index management.
func (s *MongoStore) Database() *mongo.Database {
	return s.db
}

func (s *MongoStore) Transaction(ctx context.Context, fn func(ctx context.Context, tx Store) error) error {
	if !s.useTx {
		return fn(ctx, s)
	}

	session, err := s.client.StartSession()
	if err != nil {
		return fmt.Errorf("start session: %w", err)
	}
	defer session.EndSession(ctx)

	_, err = session.WithTransaction(ctx, func(txCtx context.Context) (any, error) {
		return nil, fn(txCtx, s)
	})
	return err
}

func (s *MongoStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

func findOne[T any](ctx context.Context, coll *mongo.Collection, filter bson.M, what string) (*T, error) {
	var doc T
	if err := coll.FindOne(ctx, filter).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%s: %w", what, common.ErrNotFound)
		}
		return nil, fmt.Errorf("find %s: %w", what, err)
	}
	return &doc, nil
}

func replaced(result *mongo.UpdateResult, err error, what, id string) error {
	if err != nil {
		return fmt.Errorf("save %s %s: %w", what, id, err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("%s %s: %w", what, id, common.ErrNotFound)
	}
	return nil
}

// Pages

func (s *MongoStore) CreatePage(ctx context.Context, page *models.Page) error {
	_, err := s.pages().InsertOne(ctx, page)
	return err
}

func (s *MongoStore) GetPage(ctx context.Context, id string) (*models.Page, error) {
	return findOne[models.Page](ctx, s.pages(), bson.M{"_id": id}, "page "+id)
}

func (s *MongoStore) ListPages(ctx context.Context, ownerID string, filter PageFilter) ([]models.Page, error) {
	query := bson.M{"userId": ownerID}
	switch filter {
	case FilterFavorites:
		query["isFavorite"] = true
		query["isDeleted"] = false
	case FilterTrash:
		query["isDeleted"] = true
	default:
		query["isDeleted"] = false
	}

	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}})
	cursor, err := s.pages().Find(ctx, query, opts)
	if err != nil {
		return nil, err
	}

	pages := []models.Page{}
	if err := cursor.All(ctx, &pages); err != nil {
		return nil, err
	}
	return pages, nil
}

func (s *MongoStore) SavePage(ctx context.Context, page *models.Page) error {
	result, err := s.pages().ReplaceOne(ctx, bson.M{"_id": page.ID}, page)
	return replaced(result, err, "page", page.ID)
}

func (s *MongoStore) TouchPage(ctx context.Context, id string, at time.Time) error {
	_, err := s.pages().UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"updatedAt": at}})
	return err
}

func (s *MongoStore) DeletePage(ctx context.Context, id string) error {
	_, err := s.pages().DeleteOne(ctx, bson.M{"_id": id})
	return err
}

// Blocks

func (s *MongoStore) CreateBlock(ctx context.Context, block *models.Block) error {
	_, err := s.blocks().InsertOne(ctx, block)
	return err
}

func (s *MongoStore) GetBlock(ctx context.Context, id string) (*models.Block, error) {
	return findOne[models.Block](ctx, s.blocks(), bson.M{"_id": id}, "block "+id)
}

func (s *MongoStore) ListBlocks(ctx context.Context, pageID string) ([]models.Block, error) {
	opts := options.Find().SetSort(bson.D{{Key: "order", Value: 1}, {Key: "createdAt", Value: 1}})
	cursor, err := s.blocks().Find(ctx, bson.M{"pageId": pageID}, opts)
	if err != nil {
		return nil, err
	}

	blocks := []models.Block{}
	if err := cursor.All(ctx, &blocks); err != nil {
		return nil, err
	}
	return blocks, nil
}

func (s *MongoStore) SaveBlock(ctx context.Context, block *models.Block) error {
	result, err := s.blocks().ReplaceOne(ctx, bson.M{"_id": block.ID}, block)
	return replaced(result, err, "block", block.ID)
}

func (s *MongoStore) DeleteBlock(ctx context.Context, id string) error {
	_, err := s.blocks().DeleteOne(ctx, bson.M{"_id": id})
	return err
}

func (s *MongoStore) DeleteBlocksByPage(ctx context.Context, pageID string) (int64, error) {
	result, err := s.blocks().DeleteMany(ctx, bson.M{"pageId": pageID})
	if err != nil {
		return 0, err
	}
	return result.DeletedCount, nil
}

func (s *MongoStore) DeleteOrphanBlocks(ctx context.Context) (int64, error) {
	var pageIDs []string
	if err := s.blocks().Distinct(ctx, "pageId", bson.M{}).Decode(&pageIDs); err != nil {
		return 0, fmt.Errorf("distinct block pages: %w", err)
	}
	if len(pageIDs) == 0 {
		return 0, nil
	}

	var existing []string
	if err := s.pages().Distinct(ctx, "_id", bson.M{"_id": bson.M{"$in": pageIDs}}).Decode(&existing); err != nil {
		return 0, fmt.Errorf("distinct pages: %w", err)
	}

	alive := make(map[string]bool, len(existing))
	for _, id := range existing {
		alive[id] = true
	}
	var orphaned []string
	for _, id := range pageIDs {
		if !alive[id] {
			orphaned = append(orphaned, id)
		}
	}
	if len(orphaned) == 0 {
		return 0, nil
	}

	result, err := s.blocks().DeleteMany(ctx, bson.M{"pageId": bson.M{"$in": orphaned}})
	if err != nil {
		return 0, err
	}
	return result.DeletedCount, nil
}

// Users

func (s *MongoStore) CreateUser(ctx context.Context, user *models.User) error {
	_, err := s.users().InsertOne(ctx, user)
	if mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("user %s: %w", user.Email, common.ErrConflict)
	}
	return err
}

func (s *MongoStore) GetUser(ctx context.Context, id string) (*models.User, error) {
	return findOne[models.User](ctx, s.users(), bson.M{"_id": id}, "user "+id)
}

func (s *MongoStore) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return findOne[models.User](ctx, s.users(), bson.M{"email": email}, "user "+email)
}

func (s *MongoStore) GetUserByToken(ctx context.Context, token string) (*models.User, error) {
	if token == "" {
		return nil, fmt.Errorf("empty token: %w", common.ErrNotFound)
	}
	return findOne[models.User](ctx, s.users(), bson.M{"sessionToken": token}, "user by token")
}

func (s *MongoStore) SaveUser(ctx context.Context, user *models.User) error {
	result, err := s.users().ReplaceOne(ctx, bson.M{"_id": user.ID}, user)
	return replaced(result, err, "user", user.ID)
}
