package schema

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"sheet-reconciler/core/mapping"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func countingCache(t *testing.T, ttl time.Duration) (*Cache, *int32) {
	var calls int32
	c := NewCache(NewResolver(newProvider(), nil), ttl)
	c.load = func(path string) (*mapping.Document, error) {
		atomic.AddInt32(&calls, 1)
		return parse(t, fullDocument), nil
	}
	return c, &calls
}

func TestCache_ReusesModel(t *testing.T) {
	c, calls := countingCache(t, time.Minute)
	ctx := context.Background()

	first, err := c.Get(ctx, "mapper.yml")
	require.NoError(t, err)
	second, err := c.Get(ctx, "mapper.yml")
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, int32(1), atomic.LoadInt32(calls))

	c.Invalidate("mapper.yml")
	_, err = c.Get(ctx, "mapper.yml")
	require.NoError(t, err)
	assert.Equal(t, int32(2), atomic.LoadInt32(calls))
}

func TestCache_ZeroTTLAlwaysRebuilds(t *testing.T) {
	c, calls := countingCache(t, 0)
	for i := 0; i < 3; i++ {
		_, err := c.Get(context.Background(), "mapper.yml")
		require.NoError(t, err)
	}
	assert.Equal(t, int32(3), atomic.LoadInt32(calls))
}

func TestCache_ConcurrentGet(t *testing.T) {
	c, _ := countingCache(t, time.Minute)

	var wg sync.WaitGroup
	models := make([]*Model, 8)
	for i := range models {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			m, err := c.Get(context.Background(), "mapper.yml")
			assert.NoError(t, err)
			models[i] = m
		}(i)
	}
	wg.Wait()

	for _, m := range models {
		require.NotNil(t, m)
		assert.Equal(t, models[0].Order, m.Order)
	}
}

func TestCache_LoadsFromDisk(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mapper.yml")
	require.NoError(t, os.WriteFile(path, []byte(fullDocument), 0o644))

	c := NewCache(NewResolver(newProvider(), nil), time.Minute)
	model, err := c.Get(context.Background(), path)
	require.NoError(t, err)
	assert.Len(t, model.Sheets, 4)

	_, err = c.Get(context.Background(), filepath.Join(t.TempDir(), "missing.yml"))
	assert.True(t, errors.Is(err, mapping.ErrConfigNotFound))
}
