package kbd

import "retros/kernel/sync"

const queueCapacity = 100

// eventQueue is a fixed-capacity ring holding decoded events until the
// foreground loop drains them. push runs in interrupt context where the
// interrupt gate has already masked interrupts; NextEvent masks interrupts
// around pop so both ends observe consistent head and count values.
type eventQueue struct {
	events [queueCapacity]KeyEvent
	head   int
	count  int
}

// push appends ev to the queue. When the queue is full the oldest
// undelivered event is dropped to make room for the new one.
func (q *eventQueue) push(ev KeyEvent) {
	if q.count == queueCapacity {
		q.head = (q.head + 1) % queueCapacity
		q.count--
	}

	q.events[(q.head+q.count)%queueCapacity] = ev
	q.count++
}

// pop removes and returns the oldest queued event.
func (q *eventQueue) pop() (KeyEvent, bool) {
	if q.count == 0 {
		return KeyEvent{}, false
	}

	ev := q.events[q.head]
	q.head = (q.head + 1) % queueCapacity
	q.count--
	return ev, true
}

var (
	pendingEvents eventQueue

	uninterruptibleFn = sync.Uninterruptible
)

// NextEvent dequeues the oldest pending key event. The bool return is false
// when no event is pending. It must only be called from the foreground flow.
func NextEvent() (KeyEvent, bool) {
	var (
		ev KeyEvent
		ok bool
	)

	uninterruptibleFn(func() {
		ev, ok = pendingEvents.pop()
	})

	return ev, ok
}
