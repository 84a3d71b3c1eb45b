package objstore

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"erasmus-atlas/internal/config"
)

func TestPostImageKey(t *testing.T) {
	key := PostImageKey("p1", "Photo.JPG", "image/jpeg")
	assert.True(t, strings.HasPrefix(key, "posts/p1/"))
	assert.True(t, strings.HasSuffix(key, ".jpg"))

	// 无文件扩展名时按 Content-Type 推断
	key = PostImageKey("p1", "blob", "image/png")
	assert.True(t, strings.HasSuffix(key, ".png"))

	assert.NotEqual(t, PostImageKey("p1", "a.png", ""), PostImageKey("p1", "a.png", ""))
}

func TestNewClientValidation(t *testing.T) {
	_, err := NewClient(config.MinIOConfig{})
	assert.Error(t, err)

	_, err = NewClient(config.MinIOConfig{Endpoint: "localhost:9000"})
	assert.Error(t, err)

	c, err := NewClient(config.MinIOConfig{Endpoint: "localhost:9000", AccessKey: "k", SecretKey: "s"})
	require.NoError(t, err)
	assert.Equal(t, "erasmus-atlas", c.bucket)
	assert.Equal(t, 15*time.Minute, c.urlExpiry)
}
