package idempotency

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCacheKeeper(t *testing.T) {
	ctx := context.Background()
	k := NewCacheKeeper(time.Minute)

	ok, _, err := k.Reserve(ctx, "mentee-1:abc", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, val, err := k.Reserve(ctx, "mentee-1:abc", time.Minute)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, Pending, val)

	require.NoError(t, k.Complete(ctx, "mentee-1:abc", "session-42", time.Minute))
	_, val, err = k.Reserve(ctx, "mentee-1:abc", time.Minute)
	require.NoError(t, err)
	assert.Equal(t, "session-42", val)

	require.NoError(t, k.Release(ctx, "mentee-1:abc"))
	ok, _, err = k.Reserve(ctx, "mentee-1:abc", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestCacheKeeper_SingleWinner(t *testing.T) {
	k := NewCacheKeeper(time.Minute)

	var wg sync.WaitGroup
	var mu sync.Mutex
	winners := 0
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			ok, _, err := k.Reserve(context.Background(), "key", time.Minute)
			assert.NoError(t, err)
			if ok {
				mu.Lock()
				winners++
				mu.Unlock()
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 1, winners)
}
