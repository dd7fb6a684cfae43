package native

import "sync"

// releaseQueue holds driver objects that may still be referenced by GPU
// work. Each entry is tagged with the last submission index that may use it
// and runs once the queue reports that index completed.
type releaseQueue struct {
	mu      sync.Mutex
	pending []pendingRelease
}

type pendingRelease struct {
	submission uint64
	release    func()
}

// retire schedules release after submission completes.
func (q *releaseQueue) retire(submission uint64, release func()) {
	if release == nil {
		return
	}
	q.mu.Lock()
	q.pending = append(q.pending, pendingRelease{submission: submission, release: release})
	q.mu.Unlock()
}

// collect runs every release whose submission is <= completed and returns
// how many ran. Releases run outside the lock in retirement order.
func (q *releaseQueue) collect(completed uint64) int {
	q.mu.Lock()
	var ready []func()
	kept := q.pending[:0]
	for _, p := range q.pending {
		if p.submission <= completed {
			ready = append(ready, p.release)
		} else {
			kept = append(kept, p)
		}
	}
	clear(q.pending[len(kept):])
	q.pending = kept
	q.mu.Unlock()

	for _, r := range ready {
		r()
	}
	return len(ready)
}

// drain runs every pending release regardless of submission.
func (q *releaseQueue) drain() int {
	q.mu.Lock()
	pending := q.pending
	q.pending = nil
	q.mu.Unlock()

	for _, p := range pending {
		p.release()
	}
	return len(pending)
}

// size returns the number of pending releases.
func (q *releaseQueue) size() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.pending)
}
