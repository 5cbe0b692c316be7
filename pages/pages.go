package pages

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"

	"notion-lite/cache"
	"notion-lite/common"
	"notion-lite/store"
)

const notFoundMessage = "Page not found"

type PagesModule struct {
	pages *PageService
	cache *cache.FileCache
}

// NewPagesModule wires the page routes. renders may be nil; when set, a deleted
// page's rendered exports are dropped with it.
func NewPagesModule(pages *PageService, renders *cache.FileCache) *PagesModule {
	return &PagesModule{pages: pages, cache: renders}
}

// RegisterRoutes mounts the page routes on router, which must already run the auth
// middleware.
func (m *PagesModule) RegisterRoutes(router gin.IRouter) {
	group := router.Group("/pages")
	{
		group.GET("", m.list)
		group.POST("", m.create)
		group.GET("/:id", m.get)
		group.PUT("/:id", m.update)
		group.DELETE("/:id", m.deletePage("Page deleted"))
		group.PATCH("/:id/favorite", m.toggleFavorite)
		group.PATCH("/:id/trash", m.trash)
		group.PATCH("/:id/restore", m.restore)
		group.DELETE("/:id/permanent", m.deletePage("Page permanently deleted"))
	}
}

// filterFromQuery follows the client's precedence: favorites, then trash, then the
// default non-trashed view.
func filterFromQuery(c *gin.Context) store.PageFilter {
	if c.Query("favorites") == "true" {
		return store.FilterFavorites
	}
	if c.Query("trash") == "true" {
		return store.FilterTrash
	}
	return store.FilterActive
}

func (m *PagesModule) list(c *gin.Context) {
	pages, err := m.pages.List(c.Request.Context(), common.UserID(c), filterFromQuery(c))
	if err != nil {
		common.RespondError(c, err, notFoundMessage)
		return
	}
	c.JSON(http.StatusOK, pages)
}

func (m *PagesModule) get(c *gin.Context) {
	page, err := m.pages.Get(c.Request.Context(), common.UserID(c), c.Param("id"))
	if err != nil {
		common.RespondError(c, err, notFoundMessage)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (m *PagesModule) create(c *gin.Context) {
	var in PageInput
	if !common.BindOptionalJSON(c, &in) {
		return
	}

	page, err := m.pages.Create(c.Request.Context(), common.UserID(c), in)
	if err != nil {
		common.RespondError(c, err, notFoundMessage)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (m *PagesModule) update(c *gin.Context) {
	var in PageInput
	if !common.BindOptionalJSON(c, &in) {
		return
	}

	page, err := m.pages.Update(c.Request.Context(), common.UserID(c), c.Param("id"), in)
	if err != nil {
		common.RespondError(c, err, notFoundMessage)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (m *PagesModule) toggleFavorite(c *gin.Context) {
	page, err := m.pages.ToggleFavorite(c.Request.Context(), common.UserID(c), c.Param("id"))
	if err != nil {
		common.RespondError(c, err, notFoundMessage)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (m *PagesModule) trash(c *gin.Context) {
	page, err := m.pages.Trash(c.Request.Context(), common.UserID(c), c.Param("id"))
	if err != nil {
		common.RespondError(c, err, notFoundMessage)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Page moved to trash", "page": page})
}

func (m *PagesModule) restore(c *gin.Context) {
	page, err := m.pages.Restore(c.Request.Context(), common.UserID(c), c.Param("id"))
	if err != nil {
		common.RespondError(c, err, notFoundMessage)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Page restored", "page": page})
}

// deletePage serves both destructive routes; they share one operation and differ
// only in the message.
func (m *PagesModule) deletePage(message string) gin.HandlerFunc {
	return func(c *gin.Context) {
		pageID := c.Param("id")
		if err := m.pages.Delete(c.Request.Context(), common.UserID(c), pageID); err != nil {
			common.RespondError(c, err, notFoundMessage)
			return
		}

		if m.cache != nil {
			if err := m.cache.ClearPage(pageID); err != nil {
				log.Warn().Err(err).Str("page_id", pageID).Msg("could not clear export cache")
			}
		}

		c.JSON(http.StatusOK, gin.H{"message": message})
	}
}
