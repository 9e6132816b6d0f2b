package utils

import (
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSlugify(t *testing.T) {
	assert.Equal(t, "cozy-loft-in-addis-ababa", Slugify("  Cozy Loft in Addis Ababa! "))
	assert.Equal(t, "beach-house-2", Slugify("Beach -- House #2"))
	assert.Equal(t, "", Slugify("!!!"))
}

func TestParsePagination(t *testing.T) {
	page, size := ParsePagination("", "")
	assert.Equal(t, 1, page)
	assert.Equal(t, DefaultPageSize, size)

	page, size = ParsePagination("3", "500")
	assert.Equal(t, 3, page)
	assert.Equal(t, MaxPageSize, size)

	page, size = ParsePagination("-1", "abc")
	assert.Equal(t, 1, page)
	assert.Equal(t, DefaultPageSize, size)

	assert.Equal(t, 40, Offset(3, 20))
	assert.Equal(t, 0, Offset(0, 20))
}

func TestGetUserIDFromContext(t *testing.T) {
	gin.SetMode(gin.TestMode)

	t.Run("Missing", func(t *testing.T) {
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		_, err := GetUserIDFromContext(c)
		assert.ErrorIs(t, err, ErrUserIDNotFound)
	})

	t.Run("Valid", func(t *testing.T) {
		id := uuid.New()
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		c.Set("user_id", id.String())
		got, err := GetUserIDFromContext(c)
		require.NoError(t, err)
		assert.Equal(t, id, got)
	})

	t.Run("Malformed", func(t *testing.T) {
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		c.Set("user_id", "not-a-uuid")
		_, err := GetUserIDFromContext(c)
		assert.ErrorIs(t, err, ErrUnauthorized)
	})
}
