package engine

import "sync"

// Pool hands out per-request engine instances. Concurrency safety comes from
// isolation, not synchronization: every in-flight request holds its own
// Engine, and an engine comes out of the pool freshly Reset.
type Pool struct {
	pool sync.Pool

	// OnReset, when set, is invoked once per Get. The service layer hooks
	// metrics counters here.
	OnReset func(e *Engine)
}

// NewPool creates a Pool producing engines with the given page size.
func NewPool(pageSize int) *Pool {
	p := &Pool{}
	p.pool.New = func() any {
		return New(pageSize)
	}
	return p
}

// Get returns a Reset engine ready for one request.
func (p *Pool) Get() *Engine {
	e := p.pool.Get().(*Engine)
	e.Reset()
	if p.OnReset != nil {
		p.OnReset(e)
	}
	return e
}

// Put returns an engine to the pool once its request has fully completed,
// including response assembly over any payload views into the arena.
func (p *Pool) Put(e *Engine) {
	p.pool.Put(e)
}
