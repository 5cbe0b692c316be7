package store

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/ory/dockertest/v3"
	"github.com/ory/dockertest/v3/docker"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"notion-lite/common"
	"notion-lite/database"
	"notion-lite/models"
)

var testMongo *mongo.Client

// TestMain boots a throwaway mongo container for the MongoStore tests. Without a
// reachable Docker daemon those tests skip and the gorm tests still run.
func TestMain(m *testing.M) {
	pool, err := dockertest.NewPool("")
	if err == nil {
		err = pool.Client.Ping()
	}
	if err != nil {
		fmt.Printf("docker unavailable, skipping mongo tests: %s\n", err)
		os.Exit(m.Run())
	}

	resource, err := pool.RunWithOptions(&dockertest.RunOptions{
		Repository: "mongo",
		Tag:        "7",
	}, func(config *docker.HostConfig) {
		config.AutoRemove = true
	})
	if err != nil {
		fmt.Printf("could not start mongo, skipping mongo tests: %s\n", err)
		os.Exit(m.Run())
	}

	pool.MaxWait = 120 * time.Second
	uri := "mongodb://localhost:" + resource.GetPort("27017/tcp")
	if err := pool.Retry(func() error {
		client, err := mongo.Connect(options.Client().ApplyURI(uri))
		if err != nil {
			return err
		}
		if err := client.Ping(context.Background(), nil); err != nil {
			_ = client.Disconnect(context.Background())
			return err
		}
		testMongo = client
		return nil
	}); err != nil {
		fmt.Printf("could not connect to mongo: %s\n", err)
		testMongo = nil
	}

	code := m.Run()

	if testMongo != nil {
		_ = testMongo.Disconnect(context.Background())
	}
	if err := pool.Purge(resource); err != nil {
		fmt.Printf("could not purge mongo: %s\n", err)
	}
	os.Exit(code)
}

func setupMongoStore(t *testing.T) *MongoStore {
	t.Helper()
	if testMongo == nil {
		t.Skip("mongo container not available")
	}

	s := NewMongoStore(testMongo, "test_"+uuid.NewString()[:8], false)
	require.NoError(t, database.EnsureMongoIndexes(context.Background(), s.Database()))
	t.Cleanup(func() {
		_ = s.Database().Drop(context.Background())
	})
	return s
}

func TestMongoStore_PagesAndFilters(t *testing.T) {
	s := setupMongoStore(t)
	ctx := context.Background()
	base := time.Now().UTC().Truncate(time.Millisecond)

	first := newPage("alice", base)
	second := newPage("alice", base.Add(time.Second))
	second.IsFavorite = true
	trashed := newPage("alice", base.Add(2*time.Second))
	trashed.IsDeleted = true
	foreign := newPage("bob", base)

	for _, p := range []*models.Page{first, second, trashed, foreign} {
		require.NoError(t, s.CreatePage(ctx, p))
	}

	active, err := s.ListPages(ctx, "alice", FilterActive)
	require.NoError(t, err)
	require.Len(t, active, 2)
	assert.Equal(t, second.ID, active[0].ID)
	assert.Equal(t, first.ID, active[1].ID)

	favs, err := s.ListPages(ctx, "alice", FilterFavorites)
	require.NoError(t, err)
	require.Len(t, favs, 1)
	assert.Equal(t, second.ID, favs[0].ID)

	trash, err := s.ListPages(ctx, "alice", FilterTrash)
	require.NoError(t, err)
	require.Len(t, trash, 1)
	assert.Equal(t, trashed.ID, trash[0].ID)

	_, err = s.GetPage(ctx, "missing")
	assert.ErrorIs(t, err, common.ErrNotFound)

	later := base.Add(time.Hour)
	require.NoError(t, s.TouchPage(ctx, first.ID, later))
	got, err := s.GetPage(ctx, first.ID)
	require.NoError(t, err)
	assert.True(t, got.UpdatedAt.Equal(later))
}

func TestMongoStore_BlocksCascadeAndSweep(t *testing.T) {
	s := setupMongoStore(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Millisecond)

	page := newPage("alice", now)
	orphanPage := newPage("alice", now)
	require.NoError(t, s.CreatePage(ctx, page))
	require.NoError(t, s.CreatePage(ctx, orphanPage))

	for i, order := range []int{2, 0, 1} {
		require.NoError(t, s.CreateBlock(ctx, newBlock(page.ID, order, "c", now.Add(time.Duration(i)*time.Millisecond))))
	}
	require.NoError(t, s.CreateBlock(ctx, newBlock(orphanPage.ID, 0, "o", now)))

	blocks, err := s.ListBlocks(ctx, page.ID)
	require.NoError(t, err)
	require.Len(t, blocks, 3)
	assert.Equal(t, []int{0, 1, 2}, []int{blocks[0].Order, blocks[1].Order, blocks[2].Order})

	require.NoError(t, s.DeletePage(ctx, orphanPage.ID))
	removed, err := s.DeleteOrphanBlocks(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), removed)

	err = s.Transaction(ctx, func(ctx context.Context, tx Store) error {
		if _, err := tx.DeleteBlocksByPage(ctx, page.ID); err != nil {
			return err
		}
		return tx.DeletePage(ctx, page.ID)
	})
	require.NoError(t, err)

	blocks, err = s.ListBlocks(ctx, page.ID)
	require.NoError(t, err)
	assert.Empty(t, blocks)
}

func TestMongoStore_SaveAfterDeleteDoesNotRecreate(t *testing.T) {
	s := setupMongoStore(t)
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Millisecond)

	page := newPage("alice", now)
	require.NoError(t, s.CreatePage(ctx, page))
	block := newBlock(page.ID, 0, "A", now)
	require.NoError(t, s.CreateBlock(ctx, block))

	_, err := s.DeleteBlocksByPage(ctx, page.ID)
	require.NoError(t, err)
	require.NoError(t, s.DeletePage(ctx, page.ID))

	assert.ErrorIs(t, s.SavePage(ctx, page), common.ErrNotFound)
	assert.ErrorIs(t, s.SaveBlock(ctx, block), common.ErrNotFound)

	blocks, err := s.ListBlocks(ctx, page.ID)
	require.NoError(t, err)
	assert.Empty(t, blocks)
}
