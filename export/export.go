// Package export renders a page and its blocks as markdown or HTML.
package export

import (
	"bytes"
	"fmt"
	"html"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"

	"notion-lite/blocks"
	"notion-lite/cache"
	"notion-lite/common"
	"notion-lite/models"
	"notion-lite/pages"
)

const (
	FormatMarkdown = "markdown"
	FormatHTML     = "html"
)

var contentTypes = map[string]string{
	FormatMarkdown: "text/markdown; charset=utf-8",
	FormatHTML:     "text/html; charset=utf-8",
}

// raw HTML in block content is escaped, not passed through
var md = goldmark.New(
	goldmark.WithExtensions(
		extension.GFM,
		extension.Linkify,
	),
)

type ExportModule struct {
	pages  *pages.PageService
	blocks *blocks.BlockService
	cache  *cache.FileCache
}

// NewExportModule builds the export route. renders may be nil to disable caching.
func NewExportModule(pages *pages.PageService, blocks *blocks.BlockService, renders *cache.FileCache) *ExportModule {
	return &ExportModule{pages: pages, blocks: blocks, cache: renders}
}

func (m *ExportModule) RegisterRoutes(router gin.IRouter) {
	router.GET("/pages/:id/export", m.export)
}

func (m *ExportModule) export(c *gin.Context) {
	format := c.DefaultQuery("format", FormatMarkdown)
	contentType, ok := contentTypes[format]
	if !ok {
		c.JSON(http.StatusBadRequest, gin.H{"message": "Unsupported export format"})
		return
	}

	ctx := c.Request.Context()
	requester := common.UserID(c)

	// ownership is checked before the cache is consulted
	page, err := m.pages.Get(ctx, requester, c.Param("id"))
	if err != nil {
		common.RespondError(c, err, "Page not found")
		return
	}

	version := page.UpdatedAt.UTC().Format(time.RFC3339Nano)
	if m.cache != nil {
		if cached, found := m.cache.Read(page.ID, format, version); found {
			c.Header("X-Cache", "HIT")
			c.Data(http.StatusOK, contentType, cached)
			return
		}
	}

	list, err := m.blocks.ListByPage(ctx, requester, page.ID)
	if err != nil {
		common.RespondError(c, err, "Page not found")
		return
	}

	body, err := Render(page, list, format)
	if err != nil {
		common.RespondError(c, err, "Page not found")
		return
	}

	if m.cache != nil {
		if err := m.cache.Write(page.ID, format, version, body); err != nil {
			log.Warn().Err(err).Str("page_id", page.ID).Msg("could not write export cache")
		}
	}

	c.Header("X-Cache", "MISS")
	c.Data(http.StatusOK, contentType, body)
}

// Render produces the page in the requested format from blocks already in display
// order.
func Render(page *models.Page, list []models.Block, format string) ([]byte, error) {
	source := Markdown(page, list)
	switch format {
	case FormatMarkdown:
		return []byte(source), nil
	case FormatHTML:
		var buf bytes.Buffer
		buf.WriteString("<!DOCTYPE html>\n<html>\n<head>\n<meta charset=\"utf-8\">\n")
		fmt.Fprintf(&buf, "<title>%s</title>\n</head>\n<body>\n", html.EscapeString(page.Title))
		if err := md.Convert([]byte(source), &buf); err != nil {
			return nil, fmt.Errorf("render page %s: %w", page.ID, err)
		}
		buf.WriteString("</body>\n</html>\n")
		return buf.Bytes(), nil
	default:
		return nil, fmt.Errorf("format %q: %w", format, common.ErrValidation)
	}
}

// Markdown writes the page title as a heading followed by one markdown element per
// block. Consecutive list items of the same kind form a single list.
func Markdown(page *models.Page, list []models.Block) string {
	var b strings.Builder
	b.WriteString("# ")
	if page.Icon != "" {
		b.WriteString(page.Icon + " ")
	}
	b.WriteString(page.Title)
	b.WriteString("\n")

	var prev models.BlockType
	number := 0
	for _, block := range list {
		content := strings.TrimSpace(block.Content)
		if content == "" {
			continue
		}

		listItem := block.Type == models.BlockBullet || block.Type == models.BlockNumbered
		if !(listItem && block.Type == prev) {
			b.WriteString("\n")
		}
		if block.Type != models.BlockNumbered {
			number = 0
		}

		switch block.Type {
		case models.BlockHeading1:
			b.WriteString("## " + oneLine(content))
		case models.BlockHeading2:
			b.WriteString("### " + oneLine(content))
		case models.BlockHeading3:
			b.WriteString("#### " + oneLine(content))
		case models.BlockBullet:
			b.WriteString("- " + indent(content, "  "))
		case models.BlockNumbered:
			number++
			prefix := strconv.Itoa(number) + ". "
			b.WriteString(prefix + indent(content, strings.Repeat(" ", len(prefix))))
		case models.BlockQuote:
			b.WriteString("> " + indent(content, "> "))
		default:
			b.WriteString(content)
		}
		b.WriteString("\n")
		prev = block.Type
	}
	return b.String()
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func indent(s, prefix string) string {
	return strings.ReplaceAll(s, "\n", "\n"+prefix)
}
