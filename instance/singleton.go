package instance

import "reflect"

// Singleton marks a type whose instances are created at most once per process.
// Embed it in a struct; the mark carries through any chain of embedded structs.
//
//	type auditHandler struct {
//	    instance.Singleton
//	}
type Singleton struct{}

var singletonType = reflect.TypeFor[Singleton]()

// MarkSingleton registers an interface type as a singleton marker.
// Every type implementing it is treated as a singleton. Non-interface types are ignored.
func (r *Registry) MarkSingleton(iface reflect.Type) {
	if iface == nil || iface.Kind() != reflect.Interface {
		return
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, m := range r.markers {
		if m == iface {
			return
		}
	}
	r.markers = append(r.markers, iface)
	// Memoized negatives may now be stale.
	r.marks.Range(func(k, v any) bool {
		if !v.(bool) {
			r.marks.Delete(k)
		}
		return true
	})
}

// IsSingleton reports whether t carries the singleton marker, either by
// embedding Singleton (directly or through embedded structs) or by implementing
// a marker interface. The answer is memoized per type.
func (r *Registry) IsSingleton(t reflect.Type) bool {
	if t == nil {
		return false
	}
	if v, ok := r.marks.Load(t); ok {
		return v.(bool)
	}
	r.mu.RLock()
	markers := r.markers
	r.mu.RUnlock()

	v := singleton(t, markers, map[reflect.Type]bool{})
	actual, _ := r.marks.LoadOrStore(t, v)
	return actual.(bool)
}

// singleton walks the interface closure and the embedding chain of t.
func singleton(t reflect.Type, markers []reflect.Type, seen map[reflect.Type]bool) bool {
	if t == nil || seen[t] {
		return false
	}
	seen[t] = true

	if t == singletonType {
		return true
	}

	for _, m := range markers {
		if t.Implements(m) {
			return true
		}
		if t.Kind() != reflect.Pointer && t.Kind() != reflect.Interface && reflect.PointerTo(t).Implements(m) {
			return true
		}
	}

	if t.Kind() == reflect.Pointer {
		return singleton(t.Elem(), markers, seen)
	}
	if t.Kind() != reflect.Struct {
		return false
	}
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		if f.Anonymous && singleton(f.Type, markers, seen) {
			return true
		}
	}
	return false
}
