package list

import "testing"

type entry struct {
	Node[entry]
	val int
}

func TestPushBackOrder(t *testing.T) {
	var l List[entry]
	a, b, c := &entry{val: 1}, &entry{val: 2}, &entry{val: 3}
	l.PushBack(a)
	l.PushBack(b)
	l.PushBack(c)

	var got []int
	l.Each(func(v *entry) { got = append(got, v.val) })
	want := []int{1, 2, 3}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("got[%d] = %d, want %d", i, got[i], want[i])
		}
	}
	if l.Len() != 3 {
		t.Errorf("Len() = %d, want 3", l.Len())
	}
}

func TestRemoveMiddle(t *testing.T) {
	var l List[entry]
	a, b, c := &entry{val: 1}, &entry{val: 2}, &entry{val: 3}
	l.PushBack(a)
	l.PushBack(b)
	l.PushBack(c)

	l.Remove(b)

	var got []int
	l.Each(func(v *entry) { got = append(got, v.val) })
	if len(got) != 2 || got[0] != 1 || got[1] != 3 {
		t.Errorf("after remove: got %v, want [1 3]", got)
	}
	if l.Len() != 2 {
		t.Errorf("Len() = %d, want 2", l.Len())
	}
}

func TestRemoveIsIdempotentOffList(t *testing.T) {
	var l List[entry]
	a := &entry{val: 1}
	l.PushBack(a)
	l.Remove(a)
	l.Remove(a) // must not panic or corrupt state
	if l.Len() != 0 || !l.Empty() {
		t.Errorf("expected empty list, Len()=%d", l.Len())
	}
}

func TestPopFrontDrainsInOrder(t *testing.T) {
	var l List[entry]
	l.PushBack(&entry{val: 1})
	l.PushBack(&entry{val: 2})

	first := l.PopFront()
	if first == nil || first.val != 1 {
		t.Fatalf("PopFront() = %v, want val 1", first)
	}
	second := l.PopFront()
	if second == nil || second.val != 2 {
		t.Fatalf("PopFront() = %v, want val 2", second)
	}
	if l.PopFront() != nil {
		t.Error("PopFront() on empty list should return nil")
	}
}

func TestMoveAllToAppends(t *testing.T) {
	var src, dst List[entry]
	dst.PushBack(&entry{val: 0})
	src.PushBack(&entry{val: 1})
	src.PushBack(&entry{val: 2})

	src.MoveAllTo(&dst)

	if !src.Empty() {
		t.Error("src should be empty after MoveAllTo")
	}
	var got []int
	dst.Each(func(v *entry) { got = append(got, v.val) })
	want := []int{0, 1, 2}
	if len(got) != len(want) {
		t.Fatalf("got %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("got[%d] = %d, want %d", i, got[i], want[i])
		}
	}

	// The moved node must now belong to dst, so removing it from dst works.
	moved := dst.Back()
	dst.Remove(moved)
	if dst.Len() != 2 {
		t.Errorf("Len() after removing a moved node = %d, want 2", dst.Len())
	}
}

func TestMoveAllToEmptyDestination(t *testing.T) {
	var src, dst List[entry]
	src.PushBack(&entry{val: 5})
	src.MoveAllTo(&dst)
	if dst.Len() != 1 || dst.Front().val != 5 {
		t.Errorf("dst after move = len %d front %v", dst.Len(), dst.Front())
	}
}
