package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMemoryCache_SetGet(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache()

	require.NoError(t, c.Set(ctx, "questions:1:1,2", []int{1, 2, 3}, time.Minute))

	var got []int
	require.NoError(t, c.Get(ctx, "questions:1:1,2", &got))
	assert.Equal(t, []int{1, 2, 3}, got)

	err := c.Get(ctx, "questions:2:1", &got)
	assert.ErrorIs(t, err, ErrCacheMiss)
}

func TestMemoryCache_Expiry(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache()
	now := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	require.NoError(t, c.Set(ctx, "k", "v", 10*time.Second))

	now = now.Add(11 * time.Second)
	var got string
	assert.ErrorIs(t, c.Get(ctx, "k", &got), ErrCacheMiss)
}

func TestMemoryCache_DeletePattern(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache()

	require.NoError(t, c.Set(ctx, "questions:1:1", 1, 0))
	require.NoError(t, c.Set(ctx, "questions:1:2", 2, 0))
	require.NoError(t, c.Set(ctx, "questions:2:1", 3, 0))

	require.NoError(t, c.DeletePattern(ctx, "questions:1:*"))

	var v int
	assert.ErrorIs(t, c.Get(ctx, "questions:1:1", &v), ErrCacheMiss)
	assert.ErrorIs(t, c.Get(ctx, "questions:1:2", &v), ErrCacheMiss)
	assert.NoError(t, c.Get(ctx, "questions:2:1", &v))
	assert.Equal(t, 3, v)
}
