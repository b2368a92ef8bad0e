package mainthread

import (
	"sync"
)

// chunkSize is the number of actions per node in the actionQueue linked list.
const chunkSize = 128

// queuedAction is a pending action, plus the submission time (unix nanos),
// recorded only if latency metrics are enabled.
type queuedAction struct {
	fn func()
	at int64
}

// actionQueue is a chunked linked-list FIFO of pending actions.
//
// Thread Safety: This struct is NOT thread-safe.
// The caller must provide external synchronization (the Dispatcher's mutex).
// The zero value is an empty queue, and a drained queue may be discarded.
//
// Fixed-size arrays amortize allocations, and exhausted chunks are recycled
// through chunkPool, so a steady state of submissions allocates nothing.
type actionQueue struct {
	head   *chunk
	tail   *chunk
	length int
}

// chunkPool prevents GC thrashing under high load.
var chunkPool = sync.Pool{
	New: func() any {
		return &chunk{}
	},
}

// chunk is a fixed-size node in the chunked linked-list.
type chunk struct {
	actions [chunkSize]queuedAction
	next    *chunk
	pos     int // First unused slot
}

// newChunk creates and returns a new chunk from the pool.
func newChunk() *chunk {
	c := chunkPool.Get().(*chunk)
	c.pos = 0
	c.next = nil
	return c
}

// returnChunk clears then returns an exhausted chunk to the pool, so it
// retains no references to executed closures.
func returnChunk(c *chunk) {
	clear(c.actions[:c.pos])
	c.pos = 0
	c.next = nil
	chunkPool.Put(c)
}

// Push appends an action to the queue.
//
// CALLER MUST HOLD EXTERNAL MUTEX.
func (q *actionQueue) Push(a queuedAction) {
	if q.tail == nil {
		q.tail = newChunk()
		q.head = q.tail
	}

	if q.tail.pos == len(q.tail.actions) {
		newTail := newChunk()
		q.tail.next = newTail
		q.tail = newTail
	}

	q.tail.actions[q.tail.pos] = a
	q.tail.pos++
	q.length++
}

// DrainInto moves every queued action, in order, onto the end of buf,
// leaving the queue empty, and returns the extended buf.
//
// CALLER MUST HAVE EXCLUSIVE ACCESS. The Dispatcher swaps the queue out
// under its mutex, then drains its copy without holding the lock.
func (q *actionQueue) DrainInto(buf []queuedAction) []queuedAction {
	for c := q.head; c != nil; {
		buf = append(buf, c.actions[:c.pos]...)
		next := c.next
		returnChunk(c)
		c = next
	}
	q.head = nil
	q.tail = nil
	q.length = 0
	return buf
}

// Length returns the queue length.
//
// CALLER MUST HOLD EXTERNAL MUTEX.
func (q *actionQueue) Length() int {
	return q.length
}
