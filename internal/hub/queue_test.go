package hub

import (
	"sync"
	"testing"
	"time"
)

func TestQueue_FIFO(t *testing.T) {
	q := newQueue[int](4)

	for i := 0; i < 100; i++ {
		if !q.Push(i) {
			t.Fatalf("Push(%d) returned false", i)
		}
	}

	if q.Len() != 100 {
		t.Errorf("Len() = %d, want 100", q.Len())
	}
	if q.resizes < 3 {
		t.Errorf("resizes = %d, expected at least 3", q.resizes)
	}

	for i := 0; i < 100; i++ {
		v, ok := q.Pop()
		if !ok {
			t.Fatalf("Pop() returned false for item %d", i)
		}
		if v != i {
			t.Errorf("Pop() = %d, want %d", v, i)
		}
	}
}

func TestQueue_WrapAround(t *testing.T) {
	q := newQueue[int](10)

	// Interleave pushes and pops so head moves past the end of the ring.
	next := 0
	for round := 0; round < 20; round++ {
		q.Push(round * 2)
		q.Push(round*2 + 1)
		for i := 0; i < 2; i++ {
			v, _ := q.Pop()
			if v != next {
				t.Fatalf("Pop() = %d, want %d", v, next)
			}
			next++
		}
	}
}

func TestQueue_BlockingPop(t *testing.T) {
	q := newQueue[int](10)
	received := make(chan int, 1)

	go func() {
		if v, ok := q.Pop(); ok {
			received <- v
		}
	}()

	time.Sleep(10 * time.Millisecond)
	q.Push(42)

	select {
	case v := <-received:
		if v != 42 {
			t.Errorf("received %d, want 42", v)
		}
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for blocked Pop")
	}
}

func TestQueue_CloseWakesWaiters(t *testing.T) {
	q := newQueue[int](10)

	var wg sync.WaitGroup
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if _, ok := q.Pop(); ok {
				t.Error("Pop() returned true after Close")
			}
		}()
	}

	time.Sleep(10 * time.Millisecond)
	q.Close()

	done := make(chan struct{})
	go func() {
		wg.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("waiters not woken by Close")
	}

	if q.Push(1) {
		t.Error("Push() returned true after Close")
	}
}

func TestQueue_CloseDropsPending(t *testing.T) {
	q := newQueue[int](10)
	q.Push(1)
	q.Push(2)
	q.Close()

	if _, ok := q.Pop(); ok {
		t.Error("Pop() returned pending item after Close")
	}
	if q.Len() != 0 {
		t.Errorf("Len() = %d, want 0", q.Len())
	}
}
