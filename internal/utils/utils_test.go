package utils

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestShardIndex(t *testing.T) {
	assert.Equal(t, uint64(0), ShardIndex(1, "news_general"))
	assert.Equal(t, uint64(0), ShardIndex(0, "news_general"))

	first := ShardIndex(16, "news_author_jane")
	assert.Less(t, first, uint64(16))
	assert.Equal(t, first, ShardIndex(16, "news_author_jane"), "index must be stable for a key")
}

func TestGetExpirationTime(t *testing.T) {
	def := 5 * time.Minute

	assert.Equal(t, def, GetExpirationTime(def))
	assert.Equal(t, def, GetExpirationTime(def, 0))
	assert.Equal(t, def, GetExpirationTime(def, -time.Second))
	assert.Equal(t, 10*time.Minute, GetExpirationTime(def, 10*time.Minute))
}
