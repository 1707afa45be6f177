package corosched

import "testing"

func TestWithLocalFindLocalRoundTrip(t *testing.T) {
	type keyA struct{}
	type keyB struct{}

	root := NewRootContext(NewMonitor("root", nil))
	withA := WithLocal(root, keyA{}, "a-value")
	withBoth := WithLocal(withA, keyB{}, "b-value")

	if v, ok := FindLocal(withBoth, keyA{}); !ok || v != "a-value" {
		t.Fatalf("FindLocal(keyA) = (%v, %v), want (a-value, true)", v, ok)
	}
	if v, ok := FindLocal(withBoth, keyB{}); !ok || v != "b-value" {
		t.Fatalf("FindLocal(keyB) = (%v, %v), want (b-value, true)", v, ok)
	}
	if _, ok := FindLocal(root, keyA{}); ok {
		t.Fatal("root context should not see a binding added to a derived context")
	}
}

func TestWithLocalShadowsPriorBinding(t *testing.T) {
	type key struct{}

	c := WithLocal(NewRootContext(nil), key{}, "first")
	c = WithLocal(c, key{}, "second")

	v, ok := FindLocal(c, key{})
	if !ok || v != "second" {
		t.Fatalf("FindLocal after shadowing = (%v, %v), want (second, true)", v, ok)
	}
}

func TestWithPriorityAndWithMonitorDeriveIndependently(t *testing.T) {
	m1 := NewMonitor("m1", nil)
	m2 := NewMonitor("m2", nil)
	c := NewRootContext(m1)

	derived := c.WithPriority(High).WithMonitor(m2)
	if derived.Priority() != High {
		t.Fatalf("Priority() = %v, want High", derived.Priority())
	}
	if derived.Monitor() != m2 {
		t.Fatal("Monitor() did not take the derived monitor")
	}
	if c.Priority() != Normal || c.Monitor() != m1 {
		t.Fatal("deriving a context mutated its parent")
	}
}

func TestWithBacktraces(t *testing.T) {
	c := NewRootContext(nil)
	if c.RecordBacktraces() {
		t.Fatal("root context should not record backtraces by default")
	}
	on := c.WithBacktraces(true)
	if !on.RecordBacktraces() {
		t.Fatal("WithBacktraces(true) did not take")
	}
	if c.RecordBacktraces() {
		t.Fatal("WithBacktraces mutated its parent")
	}
}
