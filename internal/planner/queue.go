package planner

// PriorityQueue is a generic min-heap keyed by a float64 priority. Ties are
// broken by insertion order so that repeated runs over identical input pop
// items in the same sequence.
type PriorityQueue[T any] struct {
	items []pqItem[T]
	seq   int
}

type pqItem[T any] struct {
	value    T
	priority float64
	order    int
}

// NewPriorityQueue builds an empty queue.
func NewPriorityQueue[T any]() *PriorityQueue[T] {
	return &PriorityQueue[T]{}
}

// Len returns the number of queued items.
func (q *PriorityQueue[T]) Len() int {
	return len(q.items)
}

// Push inserts a value with the given priority.
func (q *PriorityQueue[T]) Push(value T, priority float64) {
	q.items = append(q.items, pqItem[T]{value: value, priority: priority, order: q.seq})
	q.seq++
	q.up(len(q.items) - 1)
}

// Pop removes and returns the value with the lowest priority.
func (q *PriorityQueue[T]) Pop() (T, bool) {
	var zero T
	if len(q.items) == 0 {
		return zero, false
	}
	top := q.items[0]
	last := len(q.items) - 1
	q.items[0] = q.items[last]
	q.items = q.items[:last]
	if last > 0 {
		q.down(0)
	}
	return top.value, true
}

// Peek returns the lowest-priority value without removing it.
func (q *PriorityQueue[T]) Peek() (T, bool) {
	var zero T
	if len(q.items) == 0 {
		return zero, false
	}
	return q.items[0].value, true
}

func (q *PriorityQueue[T]) less(i, j int) bool {
	if q.items[i].priority == q.items[j].priority {
		return q.items[i].order < q.items[j].order
	}
	return q.items[i].priority < q.items[j].priority
}

func (q *PriorityQueue[T]) up(i int) {
	for i > 0 {
		parent := (i - 1) / 2
		if !q.less(i, parent) {
			break
		}
		q.items[i], q.items[parent] = q.items[parent], q.items[i]
		i = parent
	}
}

func (q *PriorityQueue[T]) down(i int) {
	n := len(q.items)
	for {
		left := 2*i + 1
		if left >= n {
			break
		}
		smallest := left
		if right := left + 1; right < n && q.less(right, left) {
			smallest = right
		}
		if !q.less(smallest, i) {
			break
		}
		q.items[i], q.items[smallest] = q.items[smallest], q.items[i]
		i = smallest
	}
}
