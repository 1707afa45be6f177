package corosched

import "testing"

func newTestBvar() (*Bvar, *[]Job) {
	var enqueued []Job
	b := newBvar(func(j Job) { enqueued = append(enqueued, j) })
	return b, &enqueued
}

func TestBvarBroadcastWithNoWaitersIsNoop(t *testing.T) {
	b, enqueued := newTestBvar()
	b.Broadcast()
	if len(*enqueued) != 0 {
		t.Fatalf("broadcast with no waiters enqueued %d jobs, want 0", len(*enqueued))
	}
}

func TestBvarDoubleBroadcastEqualsOne(t *testing.T) {
	b, enqueued := newTestBvar()
	ctx := NewRootContext(nil)

	var ran int
	b.WaitFunc(ctx, func() { ran++ })

	b.Broadcast()
	b.Broadcast()

	if len(*enqueued) != 1 {
		t.Fatalf("enqueued %d jobs across two broadcasts with one waiter, want 1", len(*enqueued))
	}
	(*enqueued)[0].Thunk()
	if ran != 1 {
		t.Fatalf("waiter callback ran %d times, want 1", ran)
	}
}

func TestBvarReleasesInRegistrationOrder(t *testing.T) {
	b, enqueued := newTestBvar()
	ctx := NewRootContext(nil)

	var order []int
	for i := 0; i < 3; i++ {
		i := i
		b.WaitFunc(ctx, func() { order = append(order, i) })
	}
	b.Broadcast()

	for _, j := range *enqueued {
		j.Thunk()
	}
	want := []int{0, 1, 2}
	if len(order) != len(want) {
		t.Fatalf("order = %v, want %v", order, want)
	}
	for i := range want {
		if order[i] != want[i] {
			t.Fatalf("order = %v, want %v", order, want)
		}
	}
}

func TestBvarWaitersRunAtNormalPriority(t *testing.T) {
	b, enqueued := newTestBvar()
	ctx := NewRootContext(nil).WithPriority(Low)
	b.Wait(ctx)
	b.Broadcast()

	if len(*enqueued) != 1 {
		t.Fatalf("enqueued %d jobs, want 1", len(*enqueued))
	}
	if got := (*enqueued)[0].Ctx.Priority(); got != Normal {
		t.Fatalf("waiter job priority = %v, want Normal", got)
	}
}

func TestBvarWaitReturnsDeferredClosedOnBroadcast(t *testing.T) {
	b, enqueued := newTestBvar()
	d := b.Wait(NewRootContext(nil))

	select {
	case <-d:
		t.Fatal("Deferred was already closed before Broadcast")
	default:
	}

	b.Broadcast()
	(*enqueued)[0].Thunk()

	select {
	case <-d:
	default:
		t.Fatal("Deferred was not closed after its job ran")
	}
}

func TestBvarHasAnyWaiters(t *testing.T) {
	b, _ := newTestBvar()
	if b.HasAnyWaiters() {
		t.Fatal("fresh bvar reports waiters")
	}
	b.WaitFunc(NewRootContext(nil), func() {})
	if !b.HasAnyWaiters() {
		t.Fatal("bvar with a registered waiter reports none")
	}
	b.Broadcast()
	if b.HasAnyWaiters() {
		t.Fatal("bvar still reports waiters after broadcasting")
	}
}
