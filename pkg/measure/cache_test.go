package measure

import (
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"headcirc/internal/models"
)

func TestCacheGetOrComputeCachesResult(t *testing.T) {
	c := NewCache(8)

	var calls atomic.Int64
	compute := func() (*models.Measurement, error) {
		calls.Add(1)
		return &models.Measurement{LengthMM: 42}, nil
	}

	first, err := c.GetOrCompute("k", compute)
	require.NoError(t, err)
	require.NotNil(t, first)

	second, err := c.GetOrCompute("k", compute)
	require.NoError(t, err)
	assert.Same(t, first, second)

	assert.Equal(t, int64(1), calls.Load())

	stats := c.Stats()
	assert.Equal(t, uint64(1), stats.Hits)
	assert.Equal(t, uint64(1), stats.Misses)
	assert.Equal(t, uint64(1), stats.Computes)
	assert.Equal(t, uint64(0), stats.Evictions)
	assert.Equal(t, 1, stats.Len)
}

func TestCacheConcurrentComputesOnce(t *testing.T) {
	c := NewCache(8)

	var calls atomic.Int64
	compute := func() (*models.Measurement, error) {
		calls.Add(1)
		time.Sleep(10 * time.Millisecond)
		return &models.Measurement{LengthMM: 7}, nil
	}

	const workers = 16
	results := make([]*models.Measurement, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			m, err := c.GetOrCompute("shared", compute)
			if err == nil {
				results[i] = m
			}
		}(i)
	}
	wg.Wait()

	assert.Equal(t, int64(1), calls.Load())
	assert.Equal(t, uint64(1), c.Stats().Computes)
	for i, m := range results {
		require.NotNil(t, m, "worker %d got no result", i)
		assert.Equal(t, 7.0, m.LengthMM)
	}
}

func TestCacheCachesFailures(t *testing.T) {
	c := NewCache(8)
	sentinel := errors.New("no contour found")

	var calls atomic.Int64
	compute := func() (*models.Measurement, error) {
		calls.Add(1)
		return nil, sentinel
	}

	m, err := c.GetOrCompute("bad", compute)
	assert.Nil(t, m)
	assert.ErrorIs(t, err, sentinel)

	m, err = c.GetOrCompute("bad", compute)
	assert.Nil(t, m)
	assert.ErrorIs(t, err, sentinel)

	assert.Equal(t, int64(1), calls.Load())
	stats := c.Stats()
	assert.Equal(t, uint64(1), stats.Computes)
	assert.Equal(t, uint64(1), stats.Hits)
}

func TestCacheInvalidateAll(t *testing.T) {
	c := NewCache(8)

	var calls atomic.Int64
	compute := func() (*models.Measurement, error) {
		calls.Add(1)
		return &models.Measurement{LengthMM: 1}, nil
	}

	_, err := c.GetOrCompute("k", compute)
	require.NoError(t, err)
	require.Equal(t, 1, c.Stats().Len)

	c.InvalidateAll()
	assert.Equal(t, 0, c.Stats().Len)

	_, err = c.GetOrCompute("k", compute)
	require.NoError(t, err)
	assert.Equal(t, int64(2), calls.Load())
}

func TestCacheInvalidationDuringCompute(t *testing.T) {
	c := NewCache(8)

	started := make(chan struct{})
	release := make(chan struct{})

	type result struct {
		m   *models.Measurement
		err error
	}
	done := make(chan result, 1)
	go func() {
		m, err := c.GetOrCompute("k", func() (*models.Measurement, error) {
			close(started)
			<-release
			return &models.Measurement{LengthMM: 3}, nil
		})
		done <- result{m, err}
	}()

	<-started
	c.InvalidateAll()
	close(release)

	res := <-done
	require.NoError(t, res.err)
	require.NotNil(t, res.m)
	assert.Equal(t, 3.0, res.m.LengthMM)

	// The stale completion must not repopulate the cache.
	assert.Equal(t, 0, c.Stats().Len)

	var calls atomic.Int64
	_, err := c.GetOrCompute("k", func() (*models.Measurement, error) {
		calls.Add(1)
		return &models.Measurement{LengthMM: 4}, nil
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1), calls.Load())
}

func TestCacheEvictsLeastRecentlyUsed(t *testing.T) {
	c := NewCache(2)

	counted := func(calls *int, length float64) func() (*models.Measurement, error) {
		return func() (*models.Measurement, error) {
			*calls++
			return &models.Measurement{LengthMM: length}, nil
		}
	}

	var callsA, callsB, callsC int

	_, err := c.GetOrCompute("a", counted(&callsA, 1))
	require.NoError(t, err)
	_, err = c.GetOrCompute("b", counted(&callsB, 2))
	require.NoError(t, err)

	// Touch a so b becomes the eviction candidate.
	_, err = c.GetOrCompute("a", counted(&callsA, 1))
	require.NoError(t, err)

	_, err = c.GetOrCompute("c", counted(&callsC, 3))
	require.NoError(t, err)

	// a survived, b was evicted.
	_, err = c.GetOrCompute("a", counted(&callsA, 1))
	require.NoError(t, err)
	assert.Equal(t, 1, callsA)

	_, err = c.GetOrCompute("b", counted(&callsB, 2))
	require.NoError(t, err)
	assert.Equal(t, 2, callsB)

	stats := c.Stats()
	assert.Equal(t, 2, stats.Len)
	assert.Equal(t, uint64(2), stats.Evictions)
}
