package coordinator

import "sync"

// PendingQueue is a FIFO of deferred response requests. Requests land
// here when they collide with an in-flight generation and are consumed
// exactly once, oldest first, after the active utterance ends.
type PendingQueue struct {
	mu   sync.Mutex
	reqs []Request
}

// NewPendingQueue creates an empty queue.
func NewPendingQueue() *PendingQueue {
	return &PendingQueue{}
}

// Push appends a request.
func (q *PendingQueue) Push(req Request) {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.reqs = append(q.reqs, req)
}

// Pop removes and returns the oldest request, or nil when empty.
func (q *PendingQueue) Pop() *Request {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.reqs) == 0 {
		return nil
	}
	req := q.reqs[0]
	q.reqs = append(q.reqs[:0:0], q.reqs[1:]...)
	return &req
}

// Len returns the number of queued requests.
func (q *PendingQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.reqs)
}

// Clear drops all queued requests.
func (q *PendingQueue) Clear() {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.reqs = nil
}
