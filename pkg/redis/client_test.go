package redis

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/span-search/pkg/config"
)

func TestIsNilError(t *testing.T) {
	assert.True(t, IsNilError(Nil))
	assert.True(t, IsNilError(fmt.Errorf("cache get: %w", Nil)))
	assert.False(t, IsNilError(nil))
	assert.False(t, IsNilError(fmt.Errorf("connection refused")))
}

func TestNewClientFailsFastOnCancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	c, err := NewClient(ctx, config.RedisConfig{Addr: "127.0.0.1:1", PoolSize: 1})
	require.Error(t, err)
	assert.Nil(t, c)
}
