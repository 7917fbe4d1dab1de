// Package runtime holds the one process-wide indirection spec.md §5
// requires: a handle that infrastructure built before the background loop
// starts (the logger, in particular) can hold onto and read from, even
// though the concrete value it points at isn't ready until after that loop
// starts. Nothing in the teacher needed this — iho-goledger wires every
// dependency in one synchronous pass in cmd/server/main.go before serving
// any traffic, so there's no teacher file to adapt here (see DESIGN.md).
package runtime

import "sync/atomic"

// Handle is a rebindable pointer to a value of type T, safe for concurrent
// Get/Set. The zero value is usable and Get returns the zero value of T
// until the first Set.
type Handle[T any] struct {
	v atomic.Value
}

// NewHandle creates a Handle whose Get returns zero until Set is called.
func NewHandle[T any]() *Handle[T] {
	return &Handle[T]{}
}

// Set rebinds the handle to value. Called exactly once per process, right
// after the owning background loop (e.g. the C9 dispatcher) has started,
// per spec §5's load-bearing rebind contract.
func (h *Handle[T]) Set(value T) {
	h.v.Store(boxed[T]{value})
}

// Get returns the current value, or the zero value of T if Set has never
// been called.
func (h *Handle[T]) Get() T {
	b, ok := h.v.Load().(boxed[T])
	if !ok {
		var zero T
		return zero
	}
	return b.value
}

// boxed works around atomic.Value requiring identical concrete types across
// every Store call; T itself may be an interface, which atomic.Value alone
// cannot hold consistently once nil.
type boxed[T any] struct {
	value T
}
