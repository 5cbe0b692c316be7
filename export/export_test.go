package export

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"notion-lite/blocks"
	"notion-lite/cache"
	"notion-lite/common"
	"notion-lite/database"
	"notion-lite/models"
	"notion-lite/pages"
	"notion-lite/store"
)

func block(t models.BlockType, content string) models.Block {
	return models.Block{Type: t, Content: content}
}

func TestMarkdown_Blocks(t *testing.T) {
	page := &models.Page{Title: "Notes", Icon: "📄"}
	list := []models.Block{
		block(models.BlockHeading1, "Intro"),
		block(models.BlockText, "Hello world"),
		block(models.BlockBullet, "one"),
		block(models.BlockBullet, "two"),
		block(models.BlockText, ""),
		block(models.BlockNumbered, "first"),
		block(models.BlockNumbered, "second"),
		block(models.BlockQuote, "line a\nline b"),
		block(models.BlockNumbered, "again"),
	}

	expected := "# 📄 Notes\n" +
		"\n## Intro\n" +
		"\nHello world\n" +
		"\n- one\n- two\n" +
		"\n1. first\n2. second\n" +
		"\n> line a\n> line b\n" +
		"\n1. again\n"
	assert.Equal(t, expected, Markdown(page, list))
}

func TestMarkdown_NoIcon(t *testing.T) {
	assert.Equal(t, "# Plain\n", Markdown(&models.Page{Title: "Plain"}, nil))
}

func TestRender_HTML(t *testing.T) {
	page := &models.Page{ID: "p1", Title: "A <b> Page", Icon: "📄"}
	list := []models.Block{
		block(models.BlockHeading2, "Section"),
		block(models.BlockBullet, "Item 1"),
		block(models.BlockBullet, "Item 2"),
		block(models.BlockText, "<script>alert(1)</script>"),
	}

	out, err := Render(page, list, FormatHTML)
	require.NoError(t, err)
	result := string(out)

	assert.Contains(t, result, "<title>A &lt;b&gt; Page</title>")
	assert.Contains(t, result, "<h3>Section</h3>")
	assert.Contains(t, result, "<li>Item 1</li>")
	assert.Contains(t, result, "<li>Item 2</li>")
	assert.NotContains(t, result, "<script>")
}

func TestRender_UnknownFormat(t *testing.T) {
	_, err := Render(&models.Page{}, nil, "pdf")
	assert.ErrorIs(t, err, common.ErrValidation)
}

func setupTestRouter(t *testing.T) (*gin.Engine, *pages.PageService, *blocks.BlockService) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		TranslateError: true,
		Logger:         logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	require.NoError(t, database.RunMigrations(db))

	var s store.Store = store.NewGormStore(db)
	pageSvc := pages.NewPageService(s)
	blockSvc := blocks.NewBlockService(s)

	router := gin.New()
	api := router.Group("/api")
	api.Use(func(c *gin.Context) {
		common.SetUserID(c, c.GetHeader("X-Test-User"))
		c.Next()
	})
	NewExportModule(pageSvc, blockSvc, cache.New(t.TempDir(), time.Hour)).RegisterRoutes(api)
	return router, pageSvc, blockSvc
}

func get(router *gin.Engine, path, user string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	req.Header.Set("X-Test-User", user)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestExport_HTTP(t *testing.T) {
	router, pageSvc, blockSvc := setupTestRouter(t)
	ctx := context.Background()

	title := "Roadmap"
	page, err := pageSvc.Create(ctx, "alice", pages.PageInput{Title: &title})
	require.NoError(t, err)
	content := "Ship it"
	_, err = blockSvc.Create(ctx, "alice", blocks.BlockInput{PageID: page.ID, Content: &content})
	require.NoError(t, err)

	w := get(router, "/api/pages/"+page.ID+"/export", "alice")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "MISS", w.Header().Get("X-Cache"))
	assert.Equal(t, "text/markdown; charset=utf-8", w.Header().Get("Content-Type"))
	assert.Contains(t, w.Body.String(), "# 📄 Roadmap")
	assert.Contains(t, w.Body.String(), "Ship it")

	w = get(router, "/api/pages/"+page.ID+"/export", "alice")
	assert.Equal(t, "HIT", w.Header().Get("X-Cache"))

	w = get(router, "/api/pages/"+page.ID+"/export?format=html", "alice")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "MISS", w.Header().Get("X-Cache"))
	assert.Contains(t, w.Body.String(), "<p>Ship it</p>")

	w = get(router, "/api/pages/"+page.ID+"/export", "bob")
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = get(router, "/api/pages/missing/export", "alice")
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = get(router, "/api/pages/"+page.ID+"/export?format=pdf", "alice")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestExport_EditInvalidatesCache(t *testing.T) {
	router, pageSvc, blockSvc := setupTestRouter(t)
	ctx := context.Background()

	page, err := pageSvc.Create(ctx, "alice", pages.PageInput{})
	require.NoError(t, err)

	w := get(router, "/api/pages/"+page.ID+"/export", "alice")
	require.Equal(t, "MISS", w.Header().Get("X-Cache"))

	// a block write bumps the page's updatedAt, which changes the cache key
	time.Sleep(time.Millisecond)
	content := "fresh"
	_, err = blockSvc.Create(ctx, "alice", blocks.BlockInput{PageID: page.ID, Content: &content})
	require.NoError(t, err)

	w = get(router, "/api/pages/"+page.ID+"/export", "alice")
	assert.Equal(t, "MISS", w.Header().Get("X-Cache"))
	assert.Contains(t, w.Body.String(), "fresh")
}
