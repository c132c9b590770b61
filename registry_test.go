package morph

import (
	"context"
	"sync"
	"testing"
)

func constant(priority int, out any) Transformer {
	return NewTransformer(priority,
		func(any, *Type) bool { return true },
		func(context.Context, *Engine, any, *Type) (any, error) { return out, nil },
	)
}

func priorities(r *Registry) []int {
	var out []int
	for _, t := range r.All() {
		out = append(out, t.Priority())
	}
	return out
}

func TestRegistry_Ordering(t *testing.T) {
	r := NewRegistry(constant(5, nil), constant(Last, nil), constant(-3, nil), constant(First, nil), constant(0, nil))

	want := []int{First, -3, 0, 5, Last}
	got := priorities(r)
	if len(got) != len(want) {
		t.Fatalf("All() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("All() = %v, want %v", got, want)
		}
	}
}

func TestRegistry_PriorityUniqueness(t *testing.T) {
	first := constant(7, "first")
	second := constant(7, "second")

	r := NewRegistry()
	if !r.Add(first) {
		t.Fatal("Add(first) = false, want true")
	}
	if r.Add(second) {
		t.Error("Add(second) = true, want false for a taken priority")
	}
	if r.Len() != 1 {
		t.Fatalf("Len() = %d, want 1", r.Len())
	}
	if r.All()[0] != first {
		t.Error("first registered transformer should be retained")
	}
}

func TestRegistry_Remove(t *testing.T) {
	a, b := constant(1, nil), constant(2, nil)
	r := NewRegistry(a, b)

	if r.Remove(constant(1, nil)) {
		t.Error("Remove() of an equal-priority stranger should report false")
	}
	if !r.Remove(a) {
		t.Fatal("Remove(a) = false, want true")
	}
	if r.Remove(a) {
		t.Error("second Remove(a) = true, want false")
	}
	if got := priorities(r); len(got) != 1 || got[0] != 2 {
		t.Errorf("All() = %v, want [2]", got)
	}
	if r.Remove(nil) || r.Add(nil) {
		t.Error("nil transformers should be rejected")
	}
}

func TestRegistry_RemoveValueTransformer(t *testing.T) {
	r := NewRegistry(Builtins()...)
	if !r.Remove(Dispatcher{}) {
		t.Fatal("Remove(Dispatcher{}) = false, want true")
	}
	for _, tr := range r.All() {
		if tr.Priority() == PriorityMetadata {
			t.Error("dispatcher still registered")
		}
	}
}

func TestRegistry_SnapshotIsolation(t *testing.T) {
	r := NewRegistry(constant(1, nil))
	snap := r.All()
	r.Add(constant(0, nil))

	if len(snap) != 1 {
		t.Errorf("snapshot changed after Add: %d entries", len(snap))
	}
}

func TestRegistry_ReserveUnusedPriority(t *testing.T) {
	r := NewRegistry(Builtins()...)
	used := map[int]bool{}
	for _, p := range priorities(r) {
		used[p] = true
	}

	for i := 0; i < 100; i++ {
		p := r.ReserveUnusedPriority()
		if used[p] {
			t.Fatalf("ReserveUnusedPriority() = %d, already used", p)
		}
		if p == Last {
			t.Fatal("ReserveUnusedPriority() returned Last")
		}
	}
}

func TestRegistry_ConcurrentAdd(t *testing.T) {
	r := NewRegistry()

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			r.Add(constant(r.ReserveUnusedPriority(), nil))
			r.Add(constant(42, nil))
			_ = r.All()
		}()
	}
	wg.Wait()

	got := priorities(r)
	for i := 1; i < len(got); i++ {
		if got[i-1] >= got[i] {
			t.Fatalf("All() not strictly ascending: %v", got)
		}
	}
	if r.Len() < 2 {
		t.Errorf("Len() = %d, want at least 2", r.Len())
	}
}

func TestBuiltins_Order(t *testing.T) {
	r := NewRegistry(Builtins()...)
	want := []int{
		PriorityTypeVariable, PriorityWildcard, PriorityCollection,
		PriorityMap, PriorityArray, PriorityMetadata, PriorityCascade,
	}
	got := priorities(r)
	if len(got) != len(want) {
		t.Fatalf("All() = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("All()[%d] = %d, want %d", i, got[i], want[i])
		}
	}
}
