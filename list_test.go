/*
 * Memkit - Byte Strings, Hash Tables and Compact Maps
 *
 * Copyright Memkit Authors
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *   http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package memkit

import (
	"testing"

	"github.com/emirpasic/gods/lists/doublylinkedlist"
	"github.com/stretchr/testify/require"
)

func listValues[V any](l *List[V]) []V {
	out := make([]V, 0, l.Len())
	iter := l.Iterator(HeadToTail)
	for node := iter.Next(); node != nil; node = iter.Next() {
		out = append(out, node.Value)
	}
	return out
}

func TestListPushHeadTail(t *testing.T) {
	l := NewList[int]()

	l.PushTail(2)
	l.PushTail(3)
	l.PushHead(1)

	require.Equal(t, uint64(3), l.Len())
	require.Equal(t, []int{1, 2, 3}, listValues(l))
	require.Equal(t, 1, l.Head().Value)
	require.Equal(t, 3, l.Tail().Value)
	require.Nil(t, l.Head().Prev())
	require.Nil(t, l.Tail().Next())
}

func TestListStructureInvariant(t *testing.T) {
	r := newRand(t)
	l := NewList[int]()

	for i := 0; i < 100; i++ {
		if r.Intn(2) == 0 {
			l.PushHead(i)
		} else {
			l.PushTail(i)
		}
	}

	// walking length-1 steps from the head by next lands exactly on the
	// tail, whose next is nil
	n := l.Head()
	for i := uint64(1); i < l.Len(); i++ {
		n = n.Next()
	}
	require.Same(t, l.Tail(), n)
	require.Nil(t, n.Next())
}

func TestListInsert(t *testing.T) {
	l := NewList[string]()

	a := l.PushTail("a")
	c := l.PushTail("c")

	l.InsertAfter(a, "b")
	require.Equal(t, []string{"a", "b", "c"}, listValues(l))

	l.InsertBefore(a, "start")
	require.Equal(t, []string{"start", "a", "b", "c"}, listValues(l))
	require.Equal(t, "start", l.Head().Value)

	l.InsertAfter(c, "end")
	require.Equal(t, "end", l.Tail().Value)
	require.Equal(t, uint64(5), l.Len())
}

func TestListDelete(t *testing.T) {
	l := NewList[int]()

	n1 := l.PushTail(1)
	n2 := l.PushTail(2)
	n3 := l.PushTail(3)

	l.Delete(n2)
	require.Equal(t, []int{1, 3}, listValues(l))

	l.Delete(n1)
	require.Equal(t, []int{3}, listValues(l))
	require.Same(t, n3, l.Head())
	require.Same(t, n3, l.Tail())

	l.Delete(n3)
	require.Equal(t, uint64(0), l.Len())
	require.Nil(t, l.Head())
	require.Nil(t, l.Tail())
}

func TestListFreeHook(t *testing.T) {
	freed := []int{}
	l := NewListOps(ListOps[int]{
		Free: func(v int) { freed = append(freed, v) },
	})

	n := l.PushTail(1)
	l.PushTail(2)
	l.PushTail(3)

	l.Delete(n)
	require.Equal(t, []int{1}, freed)

	l.Empty()
	require.Equal(t, []int{1, 2, 3}, freed)
	require.Equal(t, uint64(0), l.Len())

	// the emptied list stays usable
	l.PushTail(4)
	require.Equal(t, []int{4}, listValues(l))
}

func TestListIndex(t *testing.T) {
	l := NewList[int]()
	for i := 0; i < 5; i++ {
		l.PushTail(i)
	}

	require.Equal(t, 0, l.Index(0).Value)
	require.Equal(t, 1, l.Index(1).Value)
	require.Equal(t, 4, l.Index(-1).Value)
	require.Equal(t, 3, l.Index(-2).Value)
	require.Nil(t, l.Index(5))
	require.Nil(t, l.Index(-6))
}

func TestListSearchKey(t *testing.T) {
	l := NewListOps(ListOps[string]{
		Match: func(value, key string) bool { return value == key },
	})
	l.PushTail("a")
	b := l.PushTail("b")

	require.Same(t, b, l.SearchKey("b"))
	require.Nil(t, l.SearchKey("z"))
}

func TestListSearchKeyNoHook(t *testing.T) {
	// without a Match hook pointer values compare by identity
	l := NewList[*int]()

	x, y := new(int), new(int)
	l.PushTail(x)
	ny := l.PushTail(y)

	require.Same(t, ny, l.SearchKey(y))
	require.Nil(t, l.SearchKey(new(int)))
}

func TestListRotate(t *testing.T) {
	l := NewList[int]()
	for _, v := range []int{1, 2, 3, 4} {
		l.PushTail(v)
	}

	l.Rotate()
	require.Equal(t, []int{4, 1, 2, 3}, listValues(l))
	require.Equal(t, uint64(4), l.Len())
	require.Equal(t, 4, l.Head().Value)
	require.Equal(t, 3, l.Tail().Value)

	// a short list does not rotate
	s := NewList[int]()
	s.PushTail(1)
	s.Rotate()
	require.Equal(t, []int{1}, listValues(s))
}

func TestListJoin(t *testing.T) {
	l := NewList[int]()
	o := NewList[int]()
	for _, v := range []int{1, 2} {
		l.PushTail(v)
	}
	for _, v := range []int{3, 4} {
		o.PushTail(v)
	}

	l.Join(o)
	require.Equal(t, []int{1, 2, 3, 4}, listValues(l))
	require.Equal(t, uint64(4), l.Len())
	require.Equal(t, uint64(0), o.Len())
	require.Nil(t, o.Head())
	require.Nil(t, o.Tail())

	// joining onto an empty list adopts the other's nodes
	e := NewList[int]()
	e.Join(l)
	require.Equal(t, []int{1, 2, 3, 4}, listValues(e))
	require.Equal(t, uint64(0), l.Len())
}

func TestListDup(t *testing.T) {
	type box struct{ v int }

	l := NewListOps(ListOps[*box]{
		Dup: func(b *box) *box { return &box{v: b.v} },
	})
	l.PushTail(&box{v: 1})
	l.PushTail(&box{v: 2})

	clone := l.Dup()
	require.Equal(t, l.Len(), clone.Len())
	require.Equal(t, 1, clone.Head().Value.v)
	require.NotSame(t, l.Head().Value, clone.Head().Value)

	// without a Dup hook the values are shared
	s := NewList[*box]()
	s.PushTail(&box{v: 9})
	sc := s.Dup()
	require.Same(t, s.Head().Value, sc.Head().Value)
}

func TestListIteratorDirections(t *testing.T) {
	l := NewList[int]()
	for i := 1; i <= 4; i++ {
		l.PushTail(i)
	}

	var forward []int
	iter := l.Iterator(HeadToTail)
	for node := iter.Next(); node != nil; node = iter.Next() {
		forward = append(forward, node.Value)
	}
	require.Equal(t, []int{1, 2, 3, 4}, forward)

	var backward []int
	iter.RewindTail(l)
	for node := iter.Next(); node != nil; node = iter.Next() {
		backward = append(backward, node.Value)
	}
	require.Equal(t, []int{4, 3, 2, 1}, backward)

	iter.Rewind(l)
	require.Equal(t, 1, iter.Next().Value)
}

func TestListIteratorDeleteCurrent(t *testing.T) {
	l := NewList[int]()
	for i := 0; i < 10; i++ {
		l.PushTail(i)
	}

	// deleting exactly the node just returned is safe
	iter := l.Iterator(HeadToTail)
	for node := iter.Next(); node != nil; node = iter.Next() {
		if node.Value%2 == 0 {
			l.Delete(node)
		}
	}
	require.Equal(t, []int{1, 3, 5, 7, 9}, listValues(l))
}

func TestListOracle(t *testing.T) {
	r := newRand(t)

	l := NewList[int]()
	oracle := doublylinkedlist.New()

	for i := 0; i < 2000; i++ {
		switch r.Intn(5) {
		case 0:
			l.PushHead(i)
			oracle.Prepend(i)
		case 1:
			l.PushTail(i)
			oracle.Append(i)
		case 2:
			if l.Len() > 0 {
				idx := r.Intn(int(l.Len()))
				l.Delete(l.Index(int64(idx)))
				oracle.Remove(idx)
			}
		case 3:
			if l.Len() > 0 {
				idx := r.Intn(int(l.Len()))
				want, ok := oracle.Get(idx)
				require.True(t, ok)
				require.Equal(t, want, l.Index(int64(idx)).Value)
			}
		default:
			if l.Len() > 1 {
				l.Rotate()
				// mirror the rotation: move the last value in front
				last, ok := oracle.Get(oracle.Size() - 1)
				require.True(t, ok)
				oracle.Remove(oracle.Size() - 1)
				oracle.Prepend(last)
			}
		}

		require.Equal(t, oracle.Size(), int(l.Len()))
	}

	values := listValues(l)
	require.Equal(t, oracle.Size(), len(values))
	for i, want := range oracle.Values() {
		require.Equal(t, want, values[i])
	}
}
