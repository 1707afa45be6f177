package corosched

import "testing"

func TestJobQueueFIFO(t *testing.T) {
	q := newJobQueue()
	order := []string{"A", "B", "C"}
	var got []string
	for _, name := range order {
		name := name
		q.Enqueue(Job{Thunk: func() error { got = append(got, name); return nil }})
	}

	if got := q.Len(); got != 3 {
		t.Fatalf("Len() = %d, want 3", got)
	}

	for i := 0; i < 3; i++ {
		j, ok := q.Dequeue()
		if !ok {
			t.Fatalf("Dequeue() ok = false at index %d", i)
		}
		if err := j.Thunk(); err != nil {
			t.Fatalf("unexpected thunk error: %v", err)
		}
	}

	if _, ok := q.Dequeue(); ok {
		t.Fatal("Dequeue() on empty queue returned ok = true")
	}

	if len(got) != len(order) {
		t.Fatalf("dequeue order = %v, want %v", got, order)
	}
	for i := range order {
		if got[i] != order[i] {
			t.Fatalf("dequeue order = %v, want %v", got, order)
		}
	}
}

func TestJobQueueGrowsPastInitialCapacity(t *testing.T) {
	q := newJobQueue()
	n := initialJobQueueCapacity*2 + 7
	for i := 0; i < n; i++ {
		q.Enqueue(Job{})
	}
	if got := q.Len(); got != n {
		t.Fatalf("Len() = %d, want %d", got, n)
	}
	for i := 0; i < n; i++ {
		if _, ok := q.Dequeue(); !ok {
			t.Fatalf("Dequeue() ok = false at index %d", i)
		}
	}
}

func TestJobQueueBudget(t *testing.T) {
	q := newJobQueue()
	q.SetJobsLeftThisCycle(2)
	if got := q.JobsLeftThisCycle(); got != 2 {
		t.Fatalf("JobsLeftThisCycle() = %d, want 2", got)
	}
	q.SetJobsLeftThisCycle(-5)
	if got := q.JobsLeftThisCycle(); got != 0 {
		t.Fatalf("negative budget clamped to %d, want 0", got)
	}
}
