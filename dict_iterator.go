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
	"encoding/binary"

	"github.com/fxamacker/circlehash"
)

const fingerprintSeed = 0x6b7f_3a21_9c4d_e58b

// fingerprint condenses the structural identity of both tables (bucket
// array identity, size, element count) into 64 bits. A read-only iterator
// records it on creation and checks it on release: any difference means
// the table was mutated while the iterator was open.
func (d *Dict) fingerprint() uint64 {
	var buf [48]byte
	binary.LittleEndian.PutUint64(buf[0:], d.ht[0].gen)
	binary.LittleEndian.PutUint64(buf[8:], d.ht[0].size)
	binary.LittleEndian.PutUint64(buf[16:], d.ht[0].used)
	binary.LittleEndian.PutUint64(buf[24:], d.ht[1].gen)
	binary.LittleEndian.PutUint64(buf[32:], d.ht[1].size)
	binary.LittleEndian.PutUint64(buf[40:], d.ht[1].used)
	return circlehash.Hash64(buf[:], fingerprintSeed)
}

// Iterator walks every entry of both tables. The plain (read-only)
// iterator forbids any structural modification while it is open; the
// violation is detected on Release via the fingerprint and aborts. A safe
// iterator permits Add/Delete during iteration, at the cost of pausing
// incremental migration for as long as it is open.
//
// Within a bucket, entries are visited in chain order; the order across
// buckets carries no meaning.
type Iterator struct {
	d         *Dict
	table     int
	index     int64
	safe      bool
	entry     *Entry
	nextEntry *Entry
	// unsafe iterator fingerprint for misuse detection
	fingerprint uint64
}

// NewIterator returns a read-only iterator. The caller must not modify
// the table until Release.
func (d *Dict) NewIterator() *Iterator {
	return &Iterator{
		d:     d,
		index: -1,
	}
}

// NewSafeIterator returns an iterator that tolerates structural
// modification. It must be released, or migration stays paused forever.
func (d *Dict) NewSafeIterator() *Iterator {
	iter := d.NewIterator()
	iter.safe = true
	return iter
}

// Next returns the next entry, or nil when the iteration is complete.
func (iter *Iterator) Next() *Entry {
	for {
		if iter.entry == nil {
			ht := &iter.d.ht[iter.table]
			if iter.index == -1 && iter.table == 0 {
				if iter.safe {
					iter.d.iterators++
				} else {
					iter.fingerprint = iter.d.fingerprint()
				}
			}
			iter.index++
			if iter.index >= int64(ht.size) {
				if iter.d.IsRehashing() && iter.table == 0 {
					iter.table++
					iter.index = 0
					ht = &iter.d.ht[1]
				} else {
					break
				}
			}
			iter.entry = ht.table[iter.index]
		} else {
			iter.entry = iter.nextEntry
		}
		if iter.entry != nil {
			// Save 'next' here: the iterator user may delete the
			// entry we are returning.
			iter.nextEntry = iter.entry.next
			return iter.entry
		}
	}
	return nil
}

// Release ends the iteration. For a read-only iterator that observed a
// structural modification this aborts with a fingerprint mismatch.
func (iter *Iterator) Release() {
	if !(iter.index == -1 && iter.table == 0) {
		if iter.safe {
			iter.d.iterators--
		} else {
			fp := iter.d.fingerprint()
			if fp != iter.fingerprint {
				panic(NewFingerprintMismatchError(fp, iter.fingerprint))
			}
		}
	}
}
