package redisstore

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Runs against a live server: REDIS_TEST_ADDR=localhost:6379 go test ./...
func TestStore_RoundTrip(t *testing.T) {
	addr := os.Getenv("REDIS_TEST_ADDR")
	if addr == "" {
		t.Skip("REDIS_TEST_ADDR not set")
	}
	ctx := context.Background()
	s := New(addr, os.Getenv("REDIS_TEST_PASSWORD"), time.Minute)
	defer s.Close()
	require.NoError(t, s.Ping(ctx))

	key := "test:" + uuid.NewString()
	_, ok, err := s.Get(ctx, key)
	require.NoError(t, err)
	assert.False(t, ok)

	require.NoError(t, s.Set(ctx, key, "[]"))
	v, ok, err := s.Get(ctx, key)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "[]", v)

	require.NoError(t, s.Delete(ctx, key))
	_, ok, _ = s.Get(ctx, key)
	assert.False(t, ok)
}
