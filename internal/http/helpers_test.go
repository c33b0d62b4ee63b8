package http

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func TestParseLimitQuery(t *testing.T) {
	tests := []struct {
		name   string
		query  string
		want   int
		wantOK bool
	}{
		{"missing uses default", "/", 20, true},
		{"valid", "/?limit=5", 5, true},
		{"capped", "/?limit=5000", 100, true},
		{"zero", "/?limit=0", 0, false},
		{"negative", "/?limit=-3", 0, false},
		{"not a number", "/?limit=abc", 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest("GET", tt.query, nil)

			got, ok := parseLimitQuery(c, "limit", 20, 100)

			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
			if !tt.wantOK {
				assert.Equal(t, http.StatusBadRequest, w.Code)
				assert.Contains(t, w.Body.String(), "invalid limit")
			}
		})
	}
}

func TestParseBoolQuery(t *testing.T) {
	t.Run("missing", func(t *testing.T) {
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		c.Request = httptest.NewRequest("POST", "/", nil)

		v, ok := parseBoolQuery(c, "dry_run")
		assert.True(t, ok)
		assert.Nil(t, v)
	})

	t.Run("bare flag", func(t *testing.T) {
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		c.Request = httptest.NewRequest("POST", "/?dry_run", nil)

		v, ok := parseBoolQuery(c, "dry_run")
		assert.True(t, ok)
		require.NotNil(t, v)
		assert.True(t, *v)
	})

	t.Run("false", func(t *testing.T) {
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		c.Request = httptest.NewRequest("POST", "/?dry_run=false", nil)

		v, ok := parseBoolQuery(c, "dry_run")
		assert.True(t, ok)
		require.NotNil(t, v)
		assert.False(t, *v)
	})

	t.Run("invalid", func(t *testing.T) {
		w := httptest.NewRecorder()
		c, _ := gin.CreateTestContext(w)
		c.Request = httptest.NewRequest("POST", "/?dry_run=maybe", nil)

		_, ok := parseBoolQuery(c, "dry_run")
		assert.False(t, ok)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}
