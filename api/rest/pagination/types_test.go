package pagination

import (
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func TestDefaultParams(t *testing.T) {
	tests := []struct {
		name          string
		limit, offset int
		want          Params
	}{
		{"defaults", 0, 0, Params{Limit: 50, Offset: 0}},
		{"capped", 500, 10, Params{Limit: 100, Offset: 10}},
		{"negative offset", 20, -5, Params{Limit: 20, Offset: 0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DefaultParams(tt.limit, tt.offset, 50, 100))
		})
	}
}

func TestFromQuery(t *testing.T) {
	gin.SetMode(gin.TestMode)

	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	c.Request = httptest.NewRequest("GET", "/sessions?limit=2&offset=abc", nil)

	assert.Equal(t, Params{Limit: 2, Offset: 0}, FromQuery(c, 50, 100))
}

func TestPage(t *testing.T) {
	items := []int{1, 2, 3, 4, 5}

	assert.Equal(t, []int{3, 4}, Page(items, Params{Limit: 2, Offset: 2}))
	assert.Equal(t, []int{5}, Page(items, Params{Limit: 2, Offset: 4}))
	assert.Empty(t, Page(items, Params{Limit: 2, Offset: 5}))

	meta := NewMeta(Params{Limit: 2, Offset: 2}, len(items))
	assert.True(t, meta.HasMore)
	assert.False(t, NewMeta(Params{Limit: 2, Offset: 4}, len(items)).HasMore)
}
