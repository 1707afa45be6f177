package corosched

import (
	"sync"
	"sync/atomic"
	"testing"
)

func TestExternalInboxPushDrainOrder(t *testing.T) {
	q := newExternalInbox()
	for i := 0; i < 5; i++ {
		i := i
		q.Push(externalJob{payload: i})
	}
	if got := q.Len(); got != 5 {
		t.Fatalf("Len() = %d, want 5", got)
	}

	drained := q.Drain(nil)
	if len(drained) != 5 {
		t.Fatalf("Drain() returned %d jobs, want 5", len(drained))
	}
	for i, ej := range drained {
		if ej.payload != i {
			t.Fatalf("drained[%d].payload = %v, want %d", i, ej.payload, i)
		}
	}
	if got := q.Len(); got != 0 {
		t.Fatalf("Len() after drain = %d, want 0", got)
	}
}

func TestExternalInboxDrainOnEmptyIsNoop(t *testing.T) {
	q := newExternalInbox()
	drained := q.Drain(nil)
	if len(drained) != 0 {
		t.Fatalf("Drain() on empty inbox returned %d jobs, want 0", len(drained))
	}
}

func TestExternalInboxConcurrentProducersSingleConsumer(t *testing.T) {
	q := newExternalInbox()
	const producers = 8
	const perProducer = 500

	var wg sync.WaitGroup
	var pushed atomic.Int64
	for p := 0; p < producers; p++ {
		wg.Add(1)
		go func(p int) {
			defer wg.Done()
			for i := 0; i < perProducer; i++ {
				q.Push(externalJob{payload: p})
				pushed.Add(1)
			}
		}(p)
	}
	wg.Wait()

	var drained []externalJob
	for len(drained) < producers*perProducer {
		drained = q.Drain(drained)
	}

	if got := len(drained); got != producers*perProducer {
		t.Fatalf("drained %d jobs, want %d", got, producers*perProducer)
	}
	if got := int(pushed.Load()); got != producers*perProducer {
		t.Fatalf("pushed %d jobs, want %d", got, producers*perProducer)
	}
}
