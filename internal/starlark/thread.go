package starlark

import (
	"log/slog"
	"sync"

	"go.starlark.net/starlark"
)

// DefaultMaxSteps bounds the work a single check call may do.
const DefaultMaxSteps = 1_000_000

// ThreadPool manages a pool of Starlark threads shared by all custom
// rules. Checks run concurrently when several documents are analysed at
// once.
type ThreadPool struct {
	mu       sync.Mutex
	threads  []*starlark.Thread
	maxSize  int
	maxSteps uint64
	logger   *slog.Logger
}

// NewThreadPool creates a new thread pool with the specified maximum size.
// print() output of rules goes to logger at debug level.
func NewThreadPool(maxSize int, logger *slog.Logger) *ThreadPool {
	if maxSize <= 0 {
		maxSize = 10 // default pool size
	}
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &ThreadPool{
		threads:  make([]*starlark.Thread, 0, maxSize),
		maxSize:  maxSize,
		maxSteps: DefaultMaxSteps,
		logger:   logger,
	}
}

// Get retrieves a thread from the pool or creates a new one.
// The thread name is used for error reporting.
func (p *ThreadPool) Get(name string) *starlark.Thread {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.threads) > 0 {
		thread := p.threads[len(p.threads)-1]
		p.threads = p.threads[:len(p.threads)-1]
		thread.Name = name
		// Step counts accumulate over the life of a thread.
		thread.SetMaxExecutionSteps(thread.ExecutionSteps() + p.maxSteps)
		return thread
	}

	logger := p.logger
	thread := &starlark.Thread{
		Name: name,
		Print: func(th *starlark.Thread, msg string) {
			logger.Debug("custom rule print", slog.String("thread", th.Name), slog.String("msg", msg))
		},
	}
	thread.SetMaxExecutionSteps(p.maxSteps)
	return thread
}

// Put returns a thread to the pool for reuse.
// If the pool is full, the thread is discarded.
func (p *ThreadPool) Put(thread *starlark.Thread) {
	p.mu.Lock()
	defer p.mu.Unlock()

	if len(p.threads) < p.maxSize {
		thread.Name = ""
		thread.Uncancel()
		p.threads = append(p.threads, thread)
	}
}

// SetMaxSteps changes the step limit of threads handed out from now on.
// Zero restores DefaultMaxSteps.
func (p *ThreadPool) SetMaxSteps(n uint64) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if n == 0 {
		n = DefaultMaxSteps
	}
	p.maxSteps = n
}

// Size returns the current number of threads in the pool.
func (p *ThreadPool) Size() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.threads)
}
