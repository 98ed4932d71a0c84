package resilience

import "sync"

// SingleFlight deduplicates concurrent calls for the same key and shares the result.
type SingleFlight[T any] struct {
	mu    sync.Mutex
	calls map[string]*call[T]
}

type call[T any] struct {
	wg  sync.WaitGroup
	val T
	err error
	dup int
}

// Do runs fn once per key while a call is in flight. shared reports whether the
// result was handed to more than one caller.
func (g *SingleFlight[T]) Do(key string, fn func() (T, error)) (T, error, bool) {
	g.mu.Lock()
	if g.calls == nil {
		g.calls = make(map[string]*call[T])
	}

	if c, ok := g.calls[key]; ok {
		c.dup++
		g.mu.Unlock()
		c.wg.Wait()
		return c.val, c.err, true
	}

	c := &call[T]{}
	c.wg.Add(1)
	g.calls[key] = c
	g.mu.Unlock()

	c.val, c.err = fn()
	c.wg.Done()

	g.mu.Lock()
	delete(g.calls, key)
	shared := c.dup > 0
	g.mu.Unlock()

	return c.val, c.err, shared
}
