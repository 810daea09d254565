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

// GetRandomKey returns a random entry, or nil when the table is empty.
// It picks a random non-empty bucket, then a uniform random element of
// its chain. The distribution is only as even as the chain lengths are.
func (d *Dict) GetRandomKey() *Entry {
	if d.Size() == 0 {
		return nil
	}
	if d.IsRehashing() {
		d.rehashStep()
	}

	var he *Entry
	if d.IsRehashing() {
		for he == nil {
			// Buckets below the migration cursor are drained, so the
			// draw covers the cursor onwards across both tables.
			h := uint64(d.rehashidx) +
				(d.rng.Uint64() % (d.ht[0].size + d.ht[1].size - uint64(d.rehashidx)))
			if h >= d.ht[0].size {
				he = d.ht[1].table[h-d.ht[0].size]
			} else {
				he = d.ht[0].table[h]
			}
		}
	} else {
		for he == nil {
			h := d.rng.Uint64() & d.ht[0].mask
			he = d.ht[0].table[h]
		}
	}

	// The bucket is a chain; count it and draw an index.
	listlen := 0
	orighe := he
	for he != nil {
		he = he.next
		listlen++
	}
	listele := d.rng.Intn(listlen)
	he = orighe
	for listele > 0 {
		he = he.next
		listele--
	}
	return he
}

// GetSomeKeys samples up to count entries by walking buckets forward from
// a random starting index, bounded at 10*count visited positions. The
// result may contain fewer entries than requested and may contain
// duplicates; this is a sampling primitive, not a fair draw.
func (d *Dict) GetSomeKeys(count uint64) []*Entry {
	if d.Size() < count {
		count = d.Size()
	}
	if count == 0 {
		return nil
	}
	maxSteps := count * 10

	// Do migration work proportional to the sample size.
	for j := uint64(0); j < count; j++ {
		if d.IsRehashing() {
			d.rehashStep()
		} else {
			break
		}
	}

	tables := 1
	if d.IsRehashing() {
		tables = 2
	}
	maxSizeMask := d.ht[0].mask
	if tables > 1 && maxSizeMask < d.ht[1].mask {
		maxSizeMask = d.ht[1].mask
	}

	des := make([]*Entry, 0, count)

	// Pick a random point inside the larger table.
	i := d.rng.Uint64() & maxSizeMask
	emptyLen := uint64(0) // continuous empty buckets seen so far
	for uint64(len(des)) < count && maxSteps > 0 {
		maxSteps--
		for j := 0; j < tables; j++ {
			// During a migration there are no populated buckets below
			// the cursor in the first table.
			if tables == 2 && j == 0 && i < uint64(d.rehashidx) {
				// If we are out of range in the second table there are
				// no elements in either table up to the cursor; jump
				// (this happens going from a big to a small table).
				if i >= d.ht[1].size {
					i = uint64(d.rehashidx)
				} else {
					continue
				}
			}
			if i >= d.ht[j].size {
				continue // out of range for this table
			}
			he := d.ht[j].table[i]

			// Count contiguous empty buckets and jump elsewhere when
			// they exceed the sample size (and number at least 5).
			if he == nil {
				emptyLen++
				if emptyLen >= 5 && emptyLen > count {
					i = d.rng.Uint64() & maxSizeMask
					emptyLen = 0
				}
			} else {
				emptyLen = 0
				for he != nil {
					// Collect every element of the non-empty buckets we
					// walk over.
					des = append(des, he)
					he = he.next
					if uint64(len(des)) == count {
						return des
					}
				}
			}
		}
		i = (i + 1) & maxSizeMask
	}
	return des
}
