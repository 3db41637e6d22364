package cache_test

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/pgcheck/pkg/cache"
	"github.com/leapstack-labs/pgcheck/pkg/splitter"
)

type artifact struct {
	text string
}

func TestStatementID_Stable(t *testing.T) {
	a := cache.NewStatementID("SELECT 1;")
	b := cache.NewStatementID("SELECT 1;")
	c := cache.NewStatementID("SELECT 2;")

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c)
	assert.True(t, a.IsRoot())
	assert.Len(t, a.String(), 32)
}

func TestStatementID_Children(t *testing.T) {
	root := cache.NewStatementID("CREATE FUNCTION f() ...")
	c0 := root.Child("body:0")
	c1 := root.Child("body:1")

	assert.False(t, c0.IsRoot())
	assert.Equal(t, c0, root.Child("body:0"))
	assert.NotEqual(t, c0, c1)
	assert.Equal(t, root, c0.Root())
	assert.Equal(t, root, c0.Parent())
	assert.Equal(t, root, c0.Child("x").Root())
	assert.Contains(t, c0.String(), root.String()+"/")

	other := cache.NewStatementID("CREATE FUNCTION g() ...")
	assert.NotEqual(t, c0, other.Child("body:0"))
}

func TestStatementID_UnaffectedByUnrelatedEdits(t *testing.T) {
	before := splitter.Split("SELECT 1;\nALTER TABLE t ADD COLUMN c int;")
	after := splitter.Split("SELECT 1 + 1;\n\n-- note\nALTER TABLE t ADD COLUMN c int;")
	require.Len(t, before.Ranges, 2)
	require.Len(t, after.Ranges, 2)

	assert.NotEqual(t, before.Ranges[1].Start, after.Ranges[1].Start)
	assert.Equal(t,
		cache.NewStatementID(before.Ranges[1].Text),
		cache.NewStatementID(after.Ranges[1].Text))
	assert.NotEqual(t,
		cache.NewStatementID(before.Ranges[0].Text),
		cache.NewStatementID(after.Ranges[0].Text))
}

func TestStore_GetOrComputeReturnsSameInstance(t *testing.T) {
	store := cache.NewStore[*artifact]()
	id := cache.NewStatementID("SELECT 1")
	calls := 0
	compute := func() (*artifact, error) {
		calls++
		return &artifact{text: "SELECT 1"}, nil
	}

	first, err := store.GetOrCompute(id, compute)
	require.NoError(t, err)
	second, err := store.GetOrCompute(id, compute)
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.Equal(t, 1, calls)

	stats := store.Stats()
	assert.Equal(t, uint64(1), stats.Hits)
	assert.Equal(t, uint64(1), stats.Misses)
}

func TestStore_LRUEviction(t *testing.T) {
	store := cache.NewStore[string](cache.WithCapacity(2), cache.WithShards(1))
	a := cache.NewStatementID("a")
	b := cache.NewStatementID("b")
	c := cache.NewStatementID("c")

	store.Add(a, "a")
	store.Add(b, "b")
	_, ok := store.Get(a) // a is now most recently used
	require.True(t, ok)
	store.Add(c, "c")

	_, ok = store.Get(b)
	assert.False(t, ok, "least recently used entry should be evicted")
	_, ok = store.Get(a)
	assert.True(t, ok)
	_, ok = store.Get(c)
	assert.True(t, ok)
	assert.Equal(t, 2, store.Len())
	assert.Equal(t, uint64(1), store.Stats().Evictions)
}

func TestStore_ShardedCapacity(t *testing.T) {
	store := cache.NewStore[int](cache.WithCapacity(64), cache.WithShards(4))
	for i := 0; i < 200; i++ {
		store.Add(cache.NewStatementID(fmt.Sprintf("SELECT %d", i)), i)
	}

	assert.LessOrEqual(t, store.Len(), 64)
	assert.Equal(t, uint64(200-store.Len()), store.Stats().Evictions)

	// The most recent id always survives in its shard.
	v, ok := store.Get(cache.NewStatementID("SELECT 199"))
	require.True(t, ok)
	assert.Equal(t, 199, v)
}

func TestStore_MoreShardsThanCapacity(t *testing.T) {
	store := cache.NewStore[int](cache.WithCapacity(2), cache.WithShards(16))
	for i := 0; i < 10; i++ {
		store.Add(cache.NewStatementID(fmt.Sprintf("SELECT %d", i)), i)
	}
	assert.LessOrEqual(t, store.Len(), 2)
}

func TestStore_EvictingRootEvictsChildren(t *testing.T) {
	store := cache.NewStore[string](cache.WithCapacity(3), cache.WithShards(1))
	root := cache.NewStatementID("root")
	store.Add(root, "root")
	store.Add(root.Child("body:0"), "child 0")
	store.Add(root.Child("body:1"), "child 1")
	require.Equal(t, 3, store.Len())

	// root is now the oldest entry
	store.Add(cache.NewStatementID("other"), "other")

	assert.Equal(t, 1, store.Len())
	_, ok := store.Get(root.Child("body:0"))
	assert.False(t, ok)
	_, ok = store.Get(root.Child("body:1"))
	assert.False(t, ok)
}

func TestStore_RemoveCascades(t *testing.T) {
	store := cache.NewStore[string]()
	root := cache.NewStatementID("root")
	child := root.Child("body:0")
	unrelated := cache.NewStatementID("unrelated")

	store.Add(root, "root")
	store.Add(child, "child")
	store.Add(unrelated, "unrelated")

	store.Remove(root)

	_, ok := store.Get(child)
	assert.False(t, ok)
	_, ok = store.Get(unrelated)
	assert.True(t, ok)
	assert.Equal(t, 1, store.Len())
}

func TestStore_RemoveCascadesWithoutCachedRoot(t *testing.T) {
	store := cache.NewStore[string]()
	root := cache.NewStatementID("root")
	store.Add(root.Child("body:0"), "child")

	store.Remove(root)
	assert.Equal(t, 0, store.Len())
}

func TestStore_RemovingChildKeepsRoot(t *testing.T) {
	store := cache.NewStore[string]()
	root := cache.NewStatementID("root")
	child := root.Child("body:0")
	store.Add(root, "root")
	store.Add(child, "child")

	store.Remove(child)

	_, ok := store.Get(root)
	assert.True(t, ok)
	assert.Equal(t, 1, store.Len())
}

func TestStore_ErrorsAreNotCached(t *testing.T) {
	store := cache.NewStore[string]()
	id := cache.NewStatementID("SELECT (")
	errParse := errors.New("parse failed")
	calls := 0

	_, err := store.GetOrCompute(id, func() (string, error) {
		calls++
		return "", errParse
	})
	require.ErrorIs(t, err, errParse)
	assert.Equal(t, 0, store.Len())

	v, err := store.GetOrCompute(id, func() (string, error) {
		calls++
		return "ok", nil
	})
	require.NoError(t, err)
	assert.Equal(t, "ok", v)
	assert.Equal(t, 2, calls)
}

func TestStore_NilCompute(t *testing.T) {
	store := cache.NewStore[string]()
	_, err := store.GetOrCompute(cache.NewStatementID("x"), nil)
	assert.ErrorIs(t, err, cache.ErrNilCompute)
}

func TestStore_ConcurrentComputeOnce(t *testing.T) {
	store := cache.NewStore[*artifact]()
	id := cache.NewStatementID("SELECT pg_sleep(1)")
	var calls atomic.Int32
	release := make(chan struct{})

	compute := func() (*artifact, error) {
		calls.Add(1)
		<-release
		return &artifact{text: "slow"}, nil
	}

	const workers = 32
	results := make([]*artifact, workers)
	var wg sync.WaitGroup
	for i := range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			v, err := store.GetOrCompute(id, compute)
			assert.NoError(t, err)
			results[i] = v
		}()
	}
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
	for _, r := range results {
		assert.Same(t, results[0], r)
	}
}

func TestStore_ConcurrentDistinctKeys(t *testing.T) {
	store := cache.NewStore[int](cache.WithCapacity(64), cache.WithShards(4))

	var wg sync.WaitGroup
	for i := range 200 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			id := cache.NewStatementID(fmt.Sprintf("SELECT %d", i%100))
			v, err := store.GetOrCompute(id, func() (int, error) { return i % 100, nil })
			assert.NoError(t, err)
			assert.Equal(t, i%100, v)
		}()
	}
	wg.Wait()

	assert.LessOrEqual(t, store.Len(), 64)
}

func TestStore_Clear(t *testing.T) {
	store := cache.NewStore[string]()
	store.Add(cache.NewStatementID("a"), "a")
	store.Add(cache.NewStatementID("b"), "b")

	store.Clear()

	assert.Equal(t, 0, store.Len())
	assert.Equal(t, uint64(0), store.Stats().Evictions)
}
