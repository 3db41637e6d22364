package starlark

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.starlark.net/starlark"

	"github.com/leapstack-labs/pgcheck/internal/testutil"
)

func TestThreadPool_Reuse(t *testing.T) {
	tests := []struct {
		name     string
		maxSize  int
		returned int
		want     int
	}{
		{name: "keeps returned threads", maxSize: 5, returned: 3, want: 3},
		{name: "discards beyond max size", maxSize: 2, returned: 3, want: 2},
		{name: "zero uses default size", maxSize: 0, returned: 5, want: 5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pool := NewThreadPool(tt.maxSize, nil)
			threads := make([]*starlark.Thread, tt.returned)
			for i := range threads {
				threads[i] = pool.Get("banDropSchema")
			}
			for _, th := range threads {
				pool.Put(th)
			}
			assert.Equal(t, tt.want, pool.Size())
		})
	}
}

func TestThreadPool_RenamesReusedThreads(t *testing.T) {
	pool := NewThreadPool(1, nil)

	first := pool.Get("banDropSchema")
	require.NotNil(t, first)
	pool.Put(first)
	assert.Empty(t, first.Name)

	second := pool.Get("requireComment")
	assert.Same(t, first, second)
	assert.Equal(t, "requireComment", second.Name)
	assert.Equal(t, 0, pool.Size())
}

func TestThreadPool_Concurrent(t *testing.T) {
	pool := NewThreadPool(4, nil)
	var wg sync.WaitGroup

	// One goroutine per statement of a large migration.
	for range 100 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			thread := pool.Get("concurrent")
			_, err := starlark.Eval(thread, "expr", "len('ALTER TABLE')", nil)
			assert.NoError(t, err)
			pool.Put(thread)
		}()
	}

	wg.Wait()
	assert.LessOrEqual(t, pool.Size(), 4)
}

func TestThreadPool_StepLimit(t *testing.T) {
	pool := NewThreadPool(1, nil)
	pool.SetMaxSteps(1000)

	loop, err := starlark.ExecFileOptions(fileOptions, &starlark.Thread{}, "loop.star", `
def spin():
    n = 0
    while True:
        n += 1
`, nil)
	require.NoError(t, err)

	thread := pool.Get("spin")
	_, err = starlark.Call(thread, loop["spin"], nil, nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "too many steps")
	pool.Put(thread)

	// A reused thread gets a fresh budget.
	thread = pool.Get("again")
	v, err := starlark.Eval(thread, "expr", "1 + 1", nil)
	require.NoError(t, err)
	assert.Equal(t, starlark.MakeInt(2), v)
}

func TestThreadPool_PrintGoesToLogger(t *testing.T) {
	logger, rec := testutil.NewRecorder()
	pool := NewThreadPool(1, logger)
	thread := pool.Get("printer")
	_, err := starlark.ExecFileOptions(fileOptions, thread, "p.star", `print("statement kind", "drop")`, nil)
	require.NoError(t, err)

	e, ok := rec.Find("custom rule print")
	require.True(t, ok)
	assert.Equal(t, "printer", e.Attrs["thread"])
	assert.Equal(t, "statement kind drop", e.Attrs["msg"])
}
