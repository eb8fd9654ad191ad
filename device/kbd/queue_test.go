package kbd

import "testing"

func TestEventQueueFIFO(t *testing.T) {
	var q eventQueue

	for _, r := range []rune{'a', 'b', 'c'} {
		q.push(KeyEvent{Pressed: true, Rune: r})
	}

	for i, exp := range []rune{'a', 'b', 'c'} {
		ev, ok := q.pop()
		if !ok {
			t.Fatalf("pop %d: expected an event to be pending", i)
		}

		if ev.Rune != exp {
			t.Errorf("pop %d: expected rune %q; got %q", i, exp, ev.Rune)
		}
	}

	if _, ok := q.pop(); ok {
		t.Error("expected pop on a drained queue to report no event")
	}
}

func TestEventQueueOverflowDropsOldest(t *testing.T) {
	var q eventQueue

	// Overfill the queue by 3 events; the 3 oldest ones must give way.
	for i := 0; i < queueCapacity+3; i++ {
		q.push(KeyEvent{Pressed: true, Rune: rune(i)})
	}

	for i := 0; i < queueCapacity; i++ {
		ev, ok := q.pop()
		if !ok {
			t.Fatalf("pop %d: expected an event to be pending", i)
		}

		if exp := rune(i + 3); ev.Rune != exp {
			t.Errorf("pop %d: expected rune %d; got %d", i, exp, ev.Rune)
		}
	}

	if _, ok := q.pop(); ok {
		t.Error("expected pop on a drained queue to report no event")
	}
}

func TestEventQueueWraparound(t *testing.T) {
	var q eventQueue

	for i := 0; i < 5; i++ {
		q.push(KeyEvent{Pressed: true, Rune: rune(i)})
	}

	for i := 0; i < 3; i++ {
		if ev, _ := q.pop(); ev.Rune != rune(i) {
			t.Errorf("pop %d: expected rune %d; got %d", i, i, ev.Rune)
		}
	}

	// Fill the queue back up to capacity so the write index wraps past the
	// end of the backing array.
	for i := 5; i < queueCapacity+3; i++ {
		q.push(KeyEvent{Pressed: true, Rune: rune(i)})
	}

	for i := 0; i < queueCapacity; i++ {
		ev, ok := q.pop()
		if !ok {
			t.Fatalf("pop %d: expected an event to be pending", i)
		}

		if exp := rune(i + 3); ev.Rune != exp {
			t.Errorf("pop %d: expected rune %d; got %d", i, exp, ev.Rune)
		}
	}
}

func TestNextEvent(t *testing.T) {
	defer func(origUninterruptible func(func())) {
		uninterruptibleFn = origUninterruptible
		pendingEvents = eventQueue{}
	}(uninterruptibleFn)

	maskedCalls := 0
	uninterruptibleFn = func(fn func()) {
		maskedCalls++
		fn()
	}

	pendingEvents = eventQueue{}
	pendingEvents.push(KeyEvent{Key: KeyA, Pressed: true, Rune: 'a'})
	pendingEvents.push(KeyEvent{Key: KeyA})

	if ev, ok := NextEvent(); !ok || ev.Rune != 'a' {
		t.Errorf("expected the press event first; got %+v, %t", ev, ok)
	}

	if ev, ok := NextEvent(); !ok || ev.Pressed {
		t.Errorf("expected the release event second; got %+v, %t", ev, ok)
	}

	if _, ok := NextEvent(); ok {
		t.Error("expected no event on a drained queue")
	}

	if maskedCalls != 3 {
		t.Errorf("expected each NextEvent call to run inside a masked section; got %d calls for 3 dequeues", maskedCalls)
	}
}
