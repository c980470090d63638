// Package frontier is the ordered open set consumed by the search: a min-priority queue
// that returns equal priorities in the order they were inserted.
package frontier

import "container/heap"

// Entry is a candidate and the priority it was inserted with.
type Entry[T comparable] struct {
	Item     T
	Priority int
	seq      uint64
}

// entries implements heap.Interface. Ordering is by priority, then by insertion sequence,
// which restores the FIFO tie-break that a bare binary heap does not have.
type entries[T comparable] []Entry[T]

func (queue entries[T]) Len() int { return len(queue) }
func (queue entries[T]) Less(i, j int) bool {
	if queue[i].Priority != queue[j].Priority {
		return queue[i].Priority < queue[j].Priority
	}
	return queue[i].seq < queue[j].seq
}
func (queue entries[T]) Swap(i, j int) { queue[i], queue[j] = queue[j], queue[i] }

func (queue *entries[T]) Push(x any) {
	*queue = append(*queue, x.(Entry[T]))
}

func (queue *entries[T]) Pop() any {
	old := *queue
	n := len(old)
	item := old[n-1]
	*queue = old[:n-1]
	return item
}

// Frontier is not safe for concurrent use. It is owned by exactly one search run.
type Frontier[T comparable] struct {
	queue entries[T]
	next  uint64
}

// New returns an empty frontier.
func New[T comparable]() *Frontier[T] {
	return &Frontier[T]{}
}

// Insert adds item at priority. The same item may be present more than once.
func (frontier *Frontier[T]) Insert(item T, priority int) {
	heap.Push(&frontier.queue, Entry[T]{Item: item, Priority: priority, seq: frontier.next})
	frontier.next++
}

// ExtractMin removes and returns the lowest priority entry; among equal priorities
// the earliest inserted one. It returns false when the frontier is empty.
func (frontier *Frontier[T]) ExtractMin() (Entry[T], bool) {
	if frontier.IsEmpty() {
		return Entry[T]{}, false
	}
	return heap.Pop(&frontier.queue).(Entry[T]), true
}

// Peek returns the entry ExtractMin would return, without removing it.
func (frontier *Frontier[T]) Peek() (Entry[T], bool) {
	if frontier.IsEmpty() {
		return Entry[T]{}, false
	}
	return frontier.queue[0], true
}

func (frontier *Frontier[T]) IsEmpty() bool {
	return len(frontier.queue) == 0
}

func (frontier *Frontier[T]) Len() int {
	return len(frontier.queue)
}

// Contains reports whether item is held anywhere in the frontier, at any priority.
// It is a linear scan, for diagnostics and tests rather than the search loop.
func (frontier *Frontier[T]) Contains(item T) bool {
	for _, entry := range frontier.queue {
		if entry.Item == item {
			return true
		}
	}
	return false
}
