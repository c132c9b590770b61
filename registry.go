package morph

import (
	"context"
	"math"
	"math/rand/v2"
	"reflect"
	"sort"
	"sync"
	"sync/atomic"
)

// Reserved priorities.
const (
	// First runs before every other transformer.
	First = math.MinInt
	// Last runs after every other transformer.
	Last = math.MaxInt
)

// Transformer is one unit of type-directed rewriting.
//
// Transform must not mutate value; when it rewrites, it builds a new value.
// It may re-enter e.Transform for nested positions.
type Transformer interface {
	// Priority orders transformers, lowest first. It is read once, at registration.
	Priority() int
	// Supports reports whether the transformer applies to value at position t.
	Supports(value any, t *Type) bool
	// Transform rewrites value at position t.
	Transform(ctx context.Context, e *Engine, value any, t *Type) (any, error)
}

type transformer struct {
	priority  int
	supports  func(any, *Type) bool
	transform func(context.Context, *Engine, any, *Type) (any, error)
}

// NewTransformer builds a Transformer from functions.
func NewTransformer(
	priority int,
	supports func(value any, t *Type) bool,
	transform func(ctx context.Context, e *Engine, value any, t *Type) (any, error),
) Transformer {
	return &transformer{priority: priority, supports: supports, transform: transform}
}

func (t *transformer) Priority() int                    { return t.priority }
func (t *transformer) Supports(value any, tt *Type) bool { return t.supports(value, tt) }
func (t *transformer) Transform(ctx context.Context, e *Engine, value any, tt *Type) (any, error) {
	return t.transform(ctx, e, value, tt)
}

// entry pins the priority observed at registration.
type entry struct {
	priority    int
	transformer Transformer
}

// Registry is a set of transformers ordered by priority, where the priority is
// also the identity: adding a transformer whose priority is taken is a no-op.
// Readers see immutable snapshots; writers are serialized.
type Registry struct {
	mu      sync.Mutex
	entries atomic.Pointer[[]entry]
}

// NewRegistry returns a registry holding the given transformers.
func NewRegistry(ts ...Transformer) *Registry {
	r := &Registry{}
	empty := []entry{}
	r.entries.Store(&empty)
	for _, t := range ts {
		r.Add(t)
	}
	return r
}

// Add inserts t unless a transformer with the same priority is present.
// It reports whether t was inserted.
func (r *Registry) Add(t Transformer) bool {
	if t == nil {
		return false
	}
	p := t.Priority()

	r.mu.Lock()
	defer r.mu.Unlock()

	cur := *r.entries.Load()
	i := sort.Search(len(cur), func(i int) bool { return cur[i].priority >= p })
	if i < len(cur) && cur[i].priority == p {
		emitTransformerDropped(context.Background(), p)
		return false
	}

	next := make([]entry, 0, len(cur)+1)
	next = append(next, cur[:i]...)
	next = append(next, entry{priority: p, transformer: t})
	next = append(next, cur[i:]...)
	r.entries.Store(&next)

	emitTransformerAdded(context.Background(), p)
	return true
}

// Remove deletes t, matched by priority and identity. It reports whether
// anything was removed.
func (r *Registry) Remove(t Transformer) bool {
	if t == nil {
		return false
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	cur := *r.entries.Load()
	for i, e := range cur {
		if !same(e.transformer, t) {
			continue
		}
		next := make([]entry, 0, len(cur)-1)
		next = append(next, cur[:i]...)
		next = append(next, cur[i+1:]...)
		r.entries.Store(&next)

		emitTransformerRemoved(context.Background(), e.priority)
		return true
	}
	return false
}

// All returns the transformers in ascending priority order.
func (r *Registry) All() []Transformer {
	cur := *r.entries.Load()
	out := make([]Transformer, len(cur))
	for i, e := range cur {
		out[i] = e.transformer
	}
	return out
}

// Len returns the number of registered transformers.
func (r *Registry) Len() int {
	return len(*r.entries.Load())
}

// ReserveUnusedPriority returns a priority no registered transformer uses.
// Call it once and store the result; the value is not held for the caller.
func (r *Registry) ReserveUnusedPriority() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	cur := *r.entries.Load()
	used := make(map[int]struct{}, len(cur))
	for _, e := range cur {
		used[e.priority] = struct{}{}
	}
	for {
		p := int(rand.Uint64())
		if p == Last {
			continue
		}
		if _, taken := used[p]; !taken {
			return p
		}
	}
}

// snapshot returns the current entries without copying.
func (r *Registry) snapshot() []entry {
	return *r.entries.Load()
}

// same compares transformers by identity, falling back to false for
// non-comparable dynamic types.
func same(a, b Transformer) bool {
	ta, tb := reflect.TypeOf(a), reflect.TypeOf(b)
	if ta != tb || !ta.Comparable() {
		return false
	}
	return a == b
}
