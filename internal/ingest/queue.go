package ingest

import "sync"

// workQueue hands out article numbers in increasing order to the pool
// workers. Pop is the only operation after construction.
type workQueue struct {
	mu   sync.Mutex
	next int64
	last int64
}

func newWorkQueue(first, last int64) *workQueue {
	return &workQueue{next: first, last: last}
}

// Pop returns the next article number, ok=false when the range is drained.
func (q *workQueue) Pop() (int64, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.next > q.last {
		return 0, false
	}
	n := q.next
	q.next++
	return n, true
}
