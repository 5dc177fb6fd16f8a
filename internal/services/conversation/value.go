package conversation

import (
	"slices"
	"sync/atomic"
)

// Value is an atomically replaced immutable value. The zero Value holds
// the zero T and is ready to use. A Value must not be copied after first use.
type Value[T any] struct {
	p    atomic.Pointer[T]
	subs atomic.Pointer[[]chan struct{}]
}

// Load returns the current value.
func (v *Value[T]) Load() T {
	if p := v.p.Load(); p != nil {
		return *p
	}
	var zero T
	return zero
}

// Store publishes x.
func (v *Value[T]) Store(x T) {
	v.p.Store(&x)
	v.notify()
}

// Update publishes fn(current) and returns it. fn may run more than once
// under contention and must not mutate its argument.
func (v *Value[T]) Update(fn func(T) T) T {
	for {
		old := v.p.Load()
		var cur T
		if old != nil {
			cur = *old
		}
		next := fn(cur)
		if v.p.CompareAndSwap(old, &next) {
			v.notify()
			return next
		}
	}
}

// Subscribe returns a channel that receives a signal after each change.
// Signals coalesce; call Load to read the latest value. cancel releases
// the subscription.
func (v *Value[T]) Subscribe() (<-chan struct{}, func()) {
	ch := make(chan struct{}, 1)
	for {
		old := v.subs.Load()
		var next []chan struct{}
		if old != nil {
			next = slices.Clone(*old)
		}
		next = append(next, ch)
		if v.subs.CompareAndSwap(old, &next) {
			break
		}
	}
	return ch, func() { v.unsubscribe(ch) }
}

func (v *Value[T]) unsubscribe(ch chan struct{}) {
	for {
		old := v.subs.Load()
		if old == nil {
			return
		}
		i := slices.Index(*old, ch)
		if i < 0 {
			return
		}
		next := slices.Delete(slices.Clone(*old), i, i+1)
		if v.subs.CompareAndSwap(old, &next) {
			return
		}
	}
}

func (v *Value[T]) notify() {
	subs := v.subs.Load()
	if subs == nil {
		return
	}
	for _, ch := range *subs {
		select {
		case ch <- struct{}{}:
		default:
		}
	}
}
