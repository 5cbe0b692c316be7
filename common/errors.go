package common

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog/log"
)

var (
	ErrNotFound     = errors.New("not found")
	ErrUnauthorized = errors.New("not authorized")
	ErrValidation   = errors.New("validation failed")
	ErrConflict     = errors.New("already exists")
)

const userIDKey = "user_id"

// SetUserID stores the verified requester id on the request context.
func SetUserID(c *gin.Context, id string) {
	c.Set(userIDKey, id)
}

// UserID returns the verified requester id, or "" when the request is anonymous.
func UserID(c *gin.Context) string {
	return c.GetString(userIDKey)
}

// RespondError maps err onto the client-visible status and message. Anything outside
// the taxonomy is logged and reported as a generic server error.
func RespondError(c *gin.Context, err error, notFound string) {
	switch {
	case errors.Is(err, ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"message": notFound})
	case errors.Is(err, ErrUnauthorized):
		c.JSON(http.StatusUnauthorized, gin.H{"message": "Not authorized"})
	case errors.Is(err, ErrValidation):
		c.JSON(http.StatusBadRequest, gin.H{"message": err.Error()})
	case errors.Is(err, ErrConflict):
		c.JSON(http.StatusConflict, gin.H{"message": err.Error()})
	default:
		log.Error().Err(err).
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Str("user_id", UserID(c)).
			Msg("request failed")
		c.JSON(http.StatusInternalServerError, gin.H{"message": "Server error"})
	}
}
