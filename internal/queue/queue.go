package queue

// PriorityQueue is a binary heap ordered by a caller-supplied less function.
// The top element is the one for which less holds against every other element,
// so a min-heap of scores uses less(a, b) = a.score < b.score.
type PriorityQueue[T any] struct {
	less  func(a, b T) bool
	items []T
}

// New returns an empty queue with room for capacity items.
func New[T any](capacity int, less func(a, b T) bool) *PriorityQueue[T] {
	return &PriorityQueue[T]{
		less:  less,
		items: make([]T, 0, capacity),
	}
}

// Len returns the number of items.
func (pq *PriorityQueue[T]) Len() int { return len(pq.items) }

// Top returns the top item without removing it.
func (pq *PriorityQueue[T]) Top() (T, bool) {
	if len(pq.items) == 0 {
		var zero T
		return zero, false
	}
	return pq.items[0], true
}

// Push inserts an item while maintaining the heap invariant.
func (pq *PriorityQueue[T]) Push(item T) {
	pq.items = append(pq.items, item)
	pq.siftUp(len(pq.items) - 1)
}

// Pop removes and returns the top item.
func (pq *PriorityQueue[T]) Pop() (T, bool) {
	var zero T
	n := len(pq.items)
	if n == 0 {
		return zero, false
	}
	root := pq.items[0]
	last := pq.items[n-1]
	pq.items[n-1] = zero
	pq.items = pq.items[:n-1]
	if n-1 > 0 {
		pq.items[0] = last
		pq.siftDown(0)
	}
	return root, true
}

// PushBounded inserts item into a queue holding at most limit items. When the
// queue is full the item replaces the top only if the top sorts before it.
// It reports whether the item was kept.
func (pq *PriorityQueue[T]) PushBounded(item T, limit int) bool {
	if limit <= 0 {
		return false
	}
	if len(pq.items) < limit {
		pq.Push(item)
		return true
	}
	if !pq.less(pq.items[0], item) {
		return false
	}
	pq.ReplaceTop(item)
	return true
}

// ReplaceTop overwrites the top item and restores the heap invariant.
// On an empty queue it pushes the item.
func (pq *PriorityQueue[T]) ReplaceTop(item T) {
	if len(pq.items) == 0 {
		pq.Push(item)
		return
	}
	pq.items[0] = item
	pq.siftDown(0)
}

// FixTop restores the heap invariant after the top item was mutated in place.
// It is only useful for pointer element types.
func (pq *PriorityQueue[T]) FixTop() {
	if len(pq.items) > 0 {
		pq.siftDown(0)
	}
}

// Items returns the backing slice in heap order. Callers must not modify it.
func (pq *PriorityQueue[T]) Items() []T { return pq.items }

// Reset clears the queue for reuse.
func (pq *PriorityQueue[T]) Reset() {
	clear(pq.items)
	pq.items = pq.items[:0]
}

// Drain pops every item, returning them best-last: the top comes first.
func (pq *PriorityQueue[T]) Drain() []T {
	out := make([]T, 0, len(pq.items))
	for len(pq.items) > 0 {
		item, _ := pq.Pop()
		out = append(out, item)
	}
	return out
}

func (pq *PriorityQueue[T]) siftUp(i int) {
	for i > 0 {
		p := (i - 1) / 2
		if !pq.less(pq.items[i], pq.items[p]) {
			return
		}
		pq.items[i], pq.items[p] = pq.items[p], pq.items[i]
		i = p
	}
}

func (pq *PriorityQueue[T]) siftDown(i int) {
	n := len(pq.items)
	for {
		l := 2*i + 1
		if l >= n {
			return
		}
		best := l
		r := l + 1
		if r < n && pq.less(pq.items[r], pq.items[l]) {
			best = r
		}
		if !pq.less(pq.items[best], pq.items[i]) {
			return
		}
		pq.items[i], pq.items[best] = pq.items[best], pq.items[i]
		i = best
	}
}
