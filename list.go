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

// ListOps are the optional element hooks of a list. Dup deep-copies a
// value when the list is duplicated; Free releases a value when its node
// is dropped; Match drives SearchKey. Unset hooks fall back to shallow
// copy, no-op, and plain equality of the boxed values.
type ListOps[V any] struct {
	Dup   func(value V) V
	Free  func(value V)
	Match func(value, key V) bool
}

// ListNode is one node of a List. Nodes are handed out by the list
// operations and stay valid until deleted.
type ListNode[V any] struct {
	prev  *ListNode[V]
	next  *ListNode[V]
	Value V
}

// Prev returns the previous node, nil at the head.
func (n *ListNode[V]) Prev() *ListNode[V] {
	return n.prev
}

// Next returns the next node, nil at the tail.
func (n *ListNode[V]) Next() *ListNode[V] {
	return n.next
}

// List is a doubly-linked list parameterized by its value type, with the
// element lifecycle delegated to the ListOps hooks.
type List[V any] struct {
	head *ListNode[V]
	tail *ListNode[V]
	len  uint64
	ops  ListOps[V]
}

// NewList creates an empty list with no hooks set.
func NewList[V any]() *List[V] {
	return &List[V]{}
}

// NewListOps creates an empty list with the given hooks.
func NewListOps[V any](ops ListOps[V]) *List[V] {
	return &List[V]{ops: ops}
}

// Len returns the number of nodes.
func (l *List[V]) Len() uint64 {
	return l.len
}

// Head returns the first node, nil when empty.
func (l *List[V]) Head() *ListNode[V] {
	return l.head
}

// Tail returns the last node, nil when empty.
func (l *List[V]) Tail() *ListNode[V] {
	return l.tail
}

// Empty drops every node, running the Free hook on each value, but keeps
// the list itself usable.
func (l *List[V]) Empty() {
	current := l.head
	length := l.len
	for length > 0 {
		length--
		next := current.next
		if l.ops.Free != nil {
			l.ops.Free(current.Value)
		}
		current = next
	}
	l.head = nil
	l.tail = nil
	l.len = 0
}

// Release drops every node. The list must not be used afterwards.
func (l *List[V]) Release() {
	l.Empty()
}

// PushHead prepends a node holding value and returns it.
func (l *List[V]) PushHead(value V) *ListNode[V] {
	node := &ListNode[V]{Value: value}
	if l.len == 0 {
		l.head = node
		l.tail = node
	} else {
		node.next = l.head
		l.head.prev = node
		l.head = node
	}
	l.len++
	return node
}

// PushTail appends a node holding value and returns it.
func (l *List[V]) PushTail(value V) *ListNode[V] {
	node := &ListNode[V]{Value: value}
	if l.len == 0 {
		l.head = node
		l.tail = node
	} else {
		node.prev = l.tail
		l.tail.next = node
		l.tail = node
	}
	l.len++
	return node
}

// InsertBefore adds a node holding value before an existing node.
func (l *List[V]) InsertBefore(old *ListNode[V], value V) *ListNode[V] {
	return l.insert(old, value, false)
}

// InsertAfter adds a node holding value after an existing node.
func (l *List[V]) InsertAfter(old *ListNode[V], value V) *ListNode[V] {
	return l.insert(old, value, true)
}

func (l *List[V]) insert(old *ListNode[V], value V, after bool) *ListNode[V] {
	node := &ListNode[V]{Value: value}
	if after {
		node.prev = old
		node.next = old.next
		if l.tail == old {
			l.tail = node
		}
	} else {
		node.next = old
		node.prev = old.prev
		if l.head == old {
			l.head = node
		}
	}
	if node.prev != nil {
		node.prev.next = node
	}
	if node.next != nil {
		node.next.prev = node
	}
	l.len++
	return node
}

// Delete unlinks the node and runs the Free hook on its value.
func (l *List[V]) Delete(node *ListNode[V]) {
	if node.prev != nil {
		node.prev.next = node.next
	} else {
		l.head = node.next
	}
	if node.next != nil {
		node.next.prev = node.prev
	} else {
		l.tail = node.prev
	}
	if l.ops.Free != nil {
		l.ops.Free(node.Value)
	}
	l.len--
}

// Index returns the node at the zero-based index, where 0 is the head.
// Negative indexes count from the tail, -1 being the last node. Out of
// range yields nil.
func (l *List[V]) Index(index int64) *ListNode[V] {
	var n *ListNode[V]
	if index < 0 {
		index = (-index) - 1
		n = l.tail
		for index > 0 && n != nil {
			n = n.prev
			index--
		}
	} else {
		n = l.head
		for index > 0 && n != nil {
			n = n.next
			index--
		}
	}
	return n
}

// SearchKey returns the first node (from the head) whose value matches
// key under the Match hook, or, with no hook set, compares the boxed
// values, which is pointer equality for pointer-valued lists. Returns nil
// when nothing matches.
func (l *List[V]) SearchKey(key V) *ListNode[V] {
	iter := l.Iterator(HeadToTail)
	for node := iter.Next(); node != nil; node = iter.Next() {
		if l.ops.Match != nil {
			if l.ops.Match(node.Value, key) {
				return node
			}
		} else {
			if any(node.Value) == any(key) {
				return node
			}
		}
	}
	return nil
}

// Rotate moves the tail node in front of the head.
func (l *List[V]) Rotate() {
	if l.len <= 1 {
		return
	}

	// Detach the current tail
	tail := l.tail
	l.tail = tail.prev
	l.tail.next = nil

	// Move it as head
	l.head.prev = tail
	tail.prev = nil
	tail.next = l.head
	l.head = tail
}

// Join appends every node of o onto l, leaving o empty but valid. Values
// are moved, not copied, so the Free hook of o must not run on them.
func (l *List[V]) Join(o *List[V]) {
	if o.head != nil {
		o.head.prev = l.tail
	}

	if l.tail != nil {
		l.tail.next = o.head
	} else {
		l.head = o.head
	}

	if o.tail != nil {
		l.tail = o.tail
	}
	l.len += o.len

	o.head = nil
	o.tail = nil
	o.len = 0
}

// Dup returns a copy of the list, sharing hooks. With a Dup hook set the
// values are deep-copied, otherwise the copy shares them. The original is
// never modified.
func (l *List[V]) Dup() *List[V] {
	clone := NewListOps(l.ops)
	iter := l.Iterator(HeadToTail)
	for node := iter.Next(); node != nil; node = iter.Next() {
		value := node.Value
		if clone.ops.Dup != nil {
			value = clone.ops.Dup(value)
		}
		clone.PushTail(value)
	}
	return clone
}

// ListDirection selects which way an iterator walks.
type ListDirection int

const (
	HeadToTail ListDirection = iota
	TailToHead
)

// ListIter iterates a list. Deleting the node the iterator just returned
// is safe; deleting any other node is not.
type ListIter[V any] struct {
	next      *ListNode[V]
	direction ListDirection
}

// Iterator returns an iterator walking in the given direction.
func (l *List[V]) Iterator(direction ListDirection) *ListIter[V] {
	iter := &ListIter[V]{direction: direction}
	if direction == HeadToTail {
		iter.next = l.head
	} else {
		iter.next = l.tail
	}
	return iter
}

// Rewind resets the iterator to the head, walking forward.
func (iter *ListIter[V]) Rewind(l *List[V]) {
	iter.next = l.head
	iter.direction = HeadToTail
}

// RewindTail resets the iterator to the tail, walking backward.
func (iter *ListIter[V]) RewindTail(l *List[V]) {
	iter.next = l.tail
	iter.direction = TailToHead
}

// Next returns the current node and advances, nil at the end. The
// position to advance to is read before returning, which is what makes
// deleting the returned node safe.
func (iter *ListIter[V]) Next() *ListNode[V] {
	current := iter.next
	if current != nil {
		if iter.direction == HeadToTail {
			iter.next = current.next
		} else {
			iter.next = current.prev
		}
	}
	return current
}
