package common

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

type bindTarget struct {
	Title *string `json:"title"`
}

func bindRequest(body string, contentLength int64) (*httptest.ResponseRecorder, bindTarget, bool) {
	gin.SetMode(gin.TestMode)
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest(http.MethodPut, "/api/pages/x", strings.NewReader(body))
	c.Request.Header.Set("Content-Type", "application/json")
	c.Request.ContentLength = contentLength

	var dst bindTarget
	ok := BindOptionalJSON(c, &dst)
	return w, dst, ok
}

func TestBindOptionalJSON(t *testing.T) {
	_, dst, ok := bindRequest(`{"title":"Hi"}`, 14)
	assert.True(t, ok)
	if assert.NotNil(t, dst.Title) {
		assert.Equal(t, "Hi", *dst.Title)
	}

	_, dst, ok = bindRequest("", 0)
	assert.True(t, ok)
	assert.Nil(t, dst.Title)

	// chunked transfer: length unknown, body empty
	_, dst, ok = bindRequest("", -1)
	assert.True(t, ok)
	assert.Nil(t, dst.Title)

	w, _, ok := bindRequest("{broken", -1)
	assert.False(t, ok)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
