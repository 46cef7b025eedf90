package astraai

import "sync"

// CandidatePool queues parsed-but-unvalidated question candidates, in
// parse order, while the generator accumulates output across batch
// chunks. Draining happens through the validator and dedup index.
type CandidatePool struct {
	mu    sync.Mutex
	queue []*Question
}

// NewCandidatePool creates an empty candidate pool.
func NewCandidatePool() *CandidatePool {
	return &CandidatePool{}
}

// Add appends candidates to the pool.
func (cp *CandidatePool) Add(candidates ...*Question) {
	cp.mu.Lock()
	defer cp.mu.Unlock()
	cp.queue = append(cp.queue, candidates...)
}

// Next removes and returns the oldest candidate, or nil when empty.
func (cp *CandidatePool) Next() *Question {
	cp.mu.Lock()
	defer cp.mu.Unlock()

	if len(cp.queue) == 0 {
		return nil
	}
	candidate := cp.queue[0]
	cp.queue = cp.queue[1:]
	return candidate
}

// Size returns the number of queued candidates.
func (cp *CandidatePool) Size() int {
	cp.mu.Lock()
	defer cp.mu.Unlock()
	return len(cp.queue)
}
