package blocks

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"notion-lite/common"
)

const notFoundMessage = "Block not found"

type BlocksModule struct {
	blocks *BlockService
}

func NewBlocksModule(blocks *BlockService) *BlocksModule {
	return &BlocksModule{blocks: blocks}
}

func (m *BlocksModule) RegisterRoutes(router gin.IRouter) {
	group := router.Group("/blocks")
	{
		group.GET("/:id", m.listByPage)
		group.POST("", m.create)
		group.PUT("/:id", m.update)
		group.DELETE("/:id", m.delete)
	}
}

// listByPage serves GET /blocks/:pageId. gin needs the wildcard name to match the
// sibling PUT and DELETE routes, hence :id.
func (m *BlocksModule) listByPage(c *gin.Context) {
	blocks, err := m.blocks.ListByPage(c.Request.Context(), common.UserID(c), c.Param("id"))
	if err != nil {
		common.RespondError(c, err, "Page not found")
		return
	}
	c.JSON(http.StatusOK, blocks)
}

func (m *BlocksModule) create(c *gin.Context) {
	var in BlockInput
	if err := c.ShouldBindJSON(&in); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid request body"})
		return
	}

	block, err := m.blocks.Create(c.Request.Context(), common.UserID(c), in)
	if err != nil {
		common.RespondError(c, err, "Page not found")
		return
	}
	c.JSON(http.StatusOK, block)
}

func (m *BlocksModule) update(c *gin.Context) {
	var in BlockInput
	if !common.BindOptionalJSON(c, &in) {
		return
	}
	// the page of a block is fixed at creation
	in.PageID = ""

	block, err := m.blocks.Update(c.Request.Context(), common.UserID(c), c.Param("id"), in)
	if err != nil {
		common.RespondError(c, err, notFoundMessage)
		return
	}
	c.JSON(http.StatusOK, block)
}

func (m *BlocksModule) delete(c *gin.Context) {
	if err := m.blocks.Delete(c.Request.Context(), common.UserID(c), c.Param("id")); err != nil {
		common.RespondError(c, err, notFoundMessage)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Block deleted"})
}
