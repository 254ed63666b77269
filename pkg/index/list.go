package index

// List is a doubly linked list whose elements know their list, so an owner
// holding the *Element can remove it in O(1).
type List[T any] struct {
	first, last *Element[T]
	size        int
}

type Element[T any] struct {
	Value      T
	prev, next *Element[T]
	list       *List[T]
}

func (e *Element[T]) Next() *Element[T] { return e.next }

// Added reports whether the element is still part of a list.
func (e *Element[T]) Added() bool { return e.list != nil }

func (l *List[T]) Add(v T) *Element[T] {
	e := &Element[T]{Value: v, prev: l.last, list: l}
	if l.last == nil {
		l.first = e
	} else {
		l.last.next = e
	}
	l.last = e
	l.size++
	return e
}

// Remove unlinks e. It returns false when e does not belong to l.
func (l *List[T]) Remove(e *Element[T]) bool {
	if e == nil || e.list != l {
		return false
	}
	if e.prev == nil {
		l.first = e.next
	} else {
		e.prev.next = e.next
	}
	if e.next == nil {
		l.last = e.prev
	} else {
		e.next.prev = e.prev
	}
	e.prev, e.next, e.list = nil, nil, nil
	l.size--
	return true
}

func (l *List[T]) First() *Element[T] { return l.first }

func (l *List[T]) Len() int { return l.size }

// ForEach visits values in insertion order. fn may remove the visited element.
func (l *List[T]) ForEach(fn func(T)) {
	for e := l.first; e != nil; {
		next := e.next
		fn(e.Value)
		e = next
	}
}

// Values copies the list into a slice in insertion order.
func (l *List[T]) Values() []T {
	out := make([]T, 0, l.size)
	for e := l.first; e != nil; e = e.next {
		out = append(out, e.Value)
	}
	return out
}
