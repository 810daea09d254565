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

// Allocator is the byte allocator the buffer-backed structures in this
// package (byte strings, packed maps) are built on. Failure is signaled
// by a nil slice; callers wrap it in *AllocError and propagate, leaving
// their input untouched.
//
// Realloc may relocate the buffer. UsableSize reports the bytes actually
// obtainable from a live allocation, at least what was requested.
type Allocator interface {
	Alloc(n int) []byte
	Realloc(b []byte, n int) []byte
	Free(b []byte)
	UsableSize(b []byte) int
}

// heapAllocator is the default Allocator, backed by the Go runtime.
// Alloc never fails; Realloc reslices in place when capacity permits,
// mirroring a growable heap allocator.
type heapAllocator struct{}

var _ Allocator = heapAllocator{}

// DefaultAllocator is used by callers that have no allocator of their own.
var DefaultAllocator Allocator = heapAllocator{}

func (heapAllocator) Alloc(n int) []byte {
	return make([]byte, n)
}

func (heapAllocator) Realloc(b []byte, n int) []byte {
	if n <= cap(b) {
		return b[:n]
	}
	nb := make([]byte, n)
	copy(nb, b)
	return nb
}

func (heapAllocator) Free(b []byte) {}

func (heapAllocator) UsableSize(b []byte) int {
	return cap(b)
}
