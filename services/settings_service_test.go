package services

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestValidBotPoolMode(t *testing.T) {
	assert.True(t, ValidBotPoolMode(BotPoolModeGhost))
	assert.True(t, ValidBotPoolMode(BotPoolModeStandard))
	assert.True(t, ValidBotPoolMode(BotPoolModeFeeder))

	assert.False(t, ValidBotPoolMode(""))
	assert.False(t, ValidBotPoolMode("Ghost"))
	assert.False(t, ValidBotPoolMode("aggressive"))
}

func TestQueryCache_SetGetExpire(t *testing.T) {
	cache := NewQueryCache(20 * time.Millisecond)

	_, ok := cache.Get("bot_pool_mode")
	assert.False(t, ok)

	cache.Set("bot_pool_mode", BotPoolModeGhost)
	got, ok := cache.Get("bot_pool_mode")
	assert.True(t, ok)
	assert.Equal(t, BotPoolModeGhost, got)

	time.Sleep(40 * time.Millisecond)
	_, ok = cache.Get("bot_pool_mode")
	assert.False(t, ok, "entries expire after the TTL")
}

func TestQueryCache_Delete(t *testing.T) {
	cache := NewQueryCache(time.Minute)

	cache.Set("stream_url", "rtmp://example")
	cache.Delete("stream_url")

	_, ok := cache.Get("stream_url")
	assert.False(t, ok)
}
