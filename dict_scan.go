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

import "math/bits"

// ScanFunc receives every entry the scan emits.
type ScanFunc func(privdata interface{}, e *Entry)

// ScanBucketFunc, when non-nil, receives each bucket slot before its
// chain is emitted. The pointer addresses the live slot, so the callback
// may rewrite the chain in place.
type ScanBucketFunc func(privdata interface{}, bucket **Entry)

// Scan iterates the table in guaranteed-coverage steps without any
// iterator state held between calls. Start with cursor 0, pass each
// returned cursor to the next call, stop when 0 comes back. Entries
// present for the whole scan are emitted at least once; some may be
// emitted more than once.
//
// The cursor walks bucket indexes in reverse-binary order: the masked
// bits are incremented from the high end. Because bucket indexes are hash
// suffixes, every index a future grow creates is an extension of an
// already scanned index, and every index a shrink merges is a prefix of
// one, so a resize between calls never makes the scan restart or lose
// buckets. During a migration the smaller table's bucket is emitted
// first, then every bucket of the larger table whose index expands it.
func (d *Dict) Scan(v uint64, fn ScanFunc, bucketfn ScanBucketFunc, privdata interface{}) uint64 {
	if d.Size() == 0 {
		return 0
	}

	if !d.IsRehashing() {
		t0 := &d.ht[0]
		m0 := t0.mask

		// Emit entries at cursor
		if bucketfn != nil {
			bucketfn(privdata, &t0.table[v&m0])
		}
		de := t0.table[v&m0]
		for de != nil {
			next := de.next
			fn(privdata, de)
			de = next
		}

		// Set unmasked bits so incrementing the reversed cursor
		// operates on the masked bits
		v |= ^m0

		// Increment the reverse cursor
		v = bits.Reverse64(v)
		v++
		v = bits.Reverse64(v)

		return v
	}

	t0 := &d.ht[0]
	t1 := &d.ht[1]

	// Make sure t0 is the smaller and t1 is the bigger table
	if t0.size > t1.size {
		t0, t1 = t1, t0
	}

	m0 := t0.mask
	m1 := t1.mask

	// Emit entries at cursor
	if bucketfn != nil {
		bucketfn(privdata, &t0.table[v&m0])
	}
	de := t0.table[v&m0]
	for de != nil {
		next := de.next
		fn(privdata, de)
		de = next
	}

	// Iterate over the indexes in the larger table that are the
	// expansion of the index pointed to by the cursor in the smaller
	for {
		// Emit entries at cursor
		if bucketfn != nil {
			bucketfn(privdata, &t1.table[v&m1])
		}
		de := t1.table[v&m1]
		for de != nil {
			next := de.next
			fn(privdata, de)
			de = next
		}

		// Increment the reverse cursor not covered by the smaller mask.
		v |= ^m1
		v = bits.Reverse64(v)
		v++
		v = bits.Reverse64(v)

		// Continue while the bits covered by the mask difference are
		// non-zero
		if v&(m0^m1) == 0 {
			break
		}
	}

	return v
}
