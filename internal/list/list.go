// Package list implements the intrusive doubly-linked list primitive
// used for every queue in the engine (ack, outgoing, sent-reliable,
// sent-unreliable, per-channel incoming, dispatch). The original ENet
// embeds prev/next pointers inside each record so queue moves never
// allocate; spec.md §9 asks for the same property in a typed form.
// Node embeds the prev/next pointers directly so splicing a node from
// one List to another is O(1) and allocation-free.
package list

// Node must be embedded (by value) in anything that lives on a List.
type Node[T any] struct {
	prev, next *T
	owner      *List[T]
}

// node satisfies Linker[T] for any type embedding Node[T] by value; the
// promoted method lets the embedder implement Linker[T] without
// exporting anything beyond the embedded field itself.
func (n *Node[T]) node() *Node[T] { return n }

// List is an intrusive doubly-linked list over values of type T, whose
// elements embed Node[T] and implement Linker[T] to expose it.
type List[T any] struct {
	head, tail *T
	length     int
}

// Linker is implemented by *T for any T that embeds Node[T], giving the
// list access to the embedded node without reflection.
type Linker[T any] interface {
	node() *Node[T]
}

// PushBack appends v to the end of the list. v must not already be on
// any list.
func (l *List[T]) PushBack(v Linker[T]) {
	n := v.node()
	n.owner = l
	self, _ := any(v).(*T)
	if l.tail == nil {
		l.head = self
		l.tail = self
		n.prev, n.next = nil, nil
	} else {
		tailNode := any(l.tail).(Linker[T]).node()
		tailNode.next = self
		n.prev = l.tail
		n.next = nil
		l.tail = self
	}
	l.length++
}

// PushFront prepends v to the front of the list.
func (l *List[T]) PushFront(v Linker[T]) {
	n := v.node()
	n.owner = l
	self, _ := any(v).(*T)
	if l.head == nil {
		l.head = self
		l.tail = self
		n.prev, n.next = nil, nil
	} else {
		headNode := any(l.head).(Linker[T]).node()
		headNode.prev = self
		n.next = l.head
		n.prev = nil
		l.head = self
	}
	l.length++
}

// Remove splices v out of whichever list it is currently on. It is a
// no-op if v is not on a list.
func (l *List[T]) Remove(v Linker[T]) {
	n := v.node()
	if n.owner == nil {
		return
	}
	owner := n.owner
	self, _ := any(v).(*T)

	if n.prev != nil {
		any(n.prev).(Linker[T]).node().next = n.next
	} else {
		owner.head = n.next
	}
	if n.next != nil {
		any(n.next).(Linker[T]).node().prev = n.prev
	} else {
		owner.tail = n.prev
	}
	owner.length--
	n.prev, n.next, n.owner = nil, nil, nil
	_ = self
}

// Front returns the first element, or nil if the list is empty.
func (l *List[T]) Front() *T { return l.head }

// Back returns the last element, or nil if the list is empty.
func (l *List[T]) Back() *T { return l.tail }

// Next returns the element following v on its list, or nil at the tail.
func (l *List[T]) Next(v Linker[T]) *T { return v.node().next }

// Empty reports whether the list has no elements.
func (l *List[T]) Empty() bool { return l.head == nil }

// Len returns the number of elements currently on the list.
func (l *List[T]) Len() int { return l.length }

// Each calls fn for every element from front to back. fn may remove
// the current element from l (it may not remove other elements).
func (l *List[T]) Each(fn func(v *T)) {
	for cur := l.head; cur != nil; {
		next := any(cur).(Linker[T]).node().next
		fn(cur)
		cur = next
	}
}

// PopFront removes and returns the first element, or nil if empty.
func (l *List[T]) PopFront() *T {
	v := l.head
	if v == nil {
		return nil
	}
	l.Remove(any(v).(Linker[T]))
	return v
}

// MoveAllTo splices every element of l onto the back of dst, leaving l
// empty, without allocating. The splice itself is constant-time, but
// every node of dst is then walked to record its new owner, so the call
// takes time linear in the resulting length of dst.
func (l *List[T]) MoveAllTo(dst *List[T]) {
	if l.Empty() {
		return
	}
	if dst.Empty() {
		dst.head = l.head
		dst.tail = l.tail
	} else {
		dstTailNode := any(dst.tail).(Linker[T]).node()
		dstTailNode.next = l.head
		any(l.head).(Linker[T]).node().prev = dst.tail
		dst.tail = l.tail
	}
	dst.length += l.length

	// Re-parent every moved node to dst.
	for cur := dst.head; cur != nil; {
		n := any(cur).(Linker[T]).node()
		n.owner = dst
		cur = n.next
	}
	l.head, l.tail, l.length = nil, nil, 0
}
