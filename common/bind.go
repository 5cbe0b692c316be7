package common

import (
	"errors"
	"io"
	"net/http"

	"github.com/gin-gonic/gin"
)

// BindOptionalJSON decodes the request body into dst and reports whether the handler
// should continue. A missing or empty body leaves dst untouched, whatever the
// Content-Length says; malformed JSON is answered with a 400.
func BindOptionalJSON(c *gin.Context, dst any) bool {
	err := c.ShouldBindJSON(dst)
	if err == nil || errors.Is(err, io.EOF) {
		return true
	}
	c.JSON(http.StatusBadRequest, gin.H{"message": "Invalid request body"})
	return false
}
