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
	"bytes"
	"encoding/binary"
)

// Zipmap is a string→string map packed into one contiguous byte blob,
// built for maps of a handful of entries where a chained table's
// per-entry overhead dwarfs the data. Lookups are O(n) over the entries;
// the payoff is a near-minimum memory footprint.
//
// Layout, for the map "foo" => "bar", "hello" => "world":
//
//	<zmlen><len>"foo"<len><free>"bar"<len>"hello"<len><free>"world"<end>
//
// <zmlen> is one byte holding the entry count; at 254 it saturates and
// the count is recovered by scanning. <len> is one byte for lengths below
// 254, otherwise a 254 marker followed by a four byte little-endian
// length. <free> is one byte of slack after the value, left behind by a
// value that shrank; it stays below 4, a residual of 4 or more is
// compacted away. The blob ends with a 0xFF byte.
//
// Every mutating operation may resize and therefore relocate the blob;
// the caller must replace its reference with the returned one. The layout
// is stable and may be copied or persisted byte for byte; on big-endian
// hosts the four byte lengths still read little-endian.
type Zipmap []byte

const (
	zipmapBigLen = 254
	zipmapEnd    = 0xff

	// Slack limit for the <free> byte: a residual of this many bytes or
	// more triggers compaction instead, so the byte stays below it.
	zipmapValueMaxFree = 4
)

// NewZipmap creates an empty map: a count byte and the end marker.
func NewZipmap(a Allocator) (Zipmap, error) {
	zm := a.Alloc(2)
	if zm == nil {
		return nil, NewAllocError(2)
	}
	zm[0] = 0
	zm[1] = zipmapEnd
	return zm, nil
}

func zipmapDecodeLength(p []byte) int {
	l := int(p[0])
	if l < zipmapBigLen {
		return l
	}
	return int(binary.LittleEndian.Uint32(p[1:]))
}

func zipmapEncodeLengthSize(l int) int {
	if l < zipmapBigLen {
		return 1
	}
	return 5
}

func zipmapEncodeLength(p []byte, l int) int {
	if l < zipmapBigLen {
		p[0] = byte(l)
		return 1
	}
	p[0] = zipmapBigLen
	binary.LittleEndian.PutUint32(p[1:], uint32(l))
	return 5
}

// lookupRaw scans for key, returning its entry offset (-1 on miss) and
// the blob's total length including the end marker, so a caller about to
// insert knows how much to grow.
func (zm Zipmap) lookupRaw(key []byte) (pos, totlen int) {
	p := 1
	k := -1
	for zm[p] != zipmapEnd {
		// match or skip the key
		l := zipmapDecodeLength(zm[p:])
		llen := zipmapEncodeLengthSize(l)
		if key != nil && k == -1 && l == len(key) && bytes.Equal(zm[p+llen:p+llen+l], key) {
			k = p
		}
		p += llen + l

		// skip the value as well
		l = zipmapDecodeLength(zm[p:])
		p += zipmapEncodeLengthSize(l)
		free := int(zm[p])
		p += l + 1 + free // +1 to skip the free byte
	}
	return k, p + 1
}

// zipmapRequiredLength is the encoded size of a full entry for a key of
// klen and a value of vlen bytes: both length fields, the free byte, and
// the payloads.
func zipmapRequiredLength(klen, vlen int) int {
	l := klen + vlen + 3
	if klen >= zipmapBigLen {
		l += 4
	}
	if vlen >= zipmapBigLen {
		l += 4
	}
	return l
}

// rawKeyLength is the total size of the key part at p: length field plus
// payload.
func (zm Zipmap) rawKeyLength(p int) int {
	l := zipmapDecodeLength(zm[p:])
	return zipmapEncodeLengthSize(l) + l
}

// rawValueLength is the total size of the value part at p: length field,
// free byte, payload, and the trailing slack.
func (zm Zipmap) rawValueLength(p int) int {
	l := zipmapDecodeLength(zm[p:])
	used := zipmapEncodeLengthSize(l)
	used += int(zm[p+used]) + 1 + l
	return used
}

// rawEntryLength is the total size of the entry starting at p, key part
// plus value part.
func (zm Zipmap) rawEntryLength(p int) int {
	l := zm.rawKeyLength(p)
	return l + zm.rawValueLength(p+l)
}

func (zm Zipmap) resize(a Allocator, n int) (Zipmap, error) {
	b := a.Realloc(zm, n)
	if b == nil {
		return nil, NewAllocError(n)
	}
	b[n-1] = zipmapEnd
	return b, nil
}

// Set stores val under key, inserting or updating. The returned blob
// replaces the one passed in; the boolean reports whether an existing
// entry was updated (as opposed to inserted).
func (zm Zipmap) Set(a Allocator, key, val []byte) (Zipmap, bool, error) {
	reqlen := zipmapRequiredLength(len(key), len(val))
	update := false
	freelen := reqlen

	p, zmlen := zm.lookupRaw(key)
	if p == -1 {
		// Key not found: enlarge
		nzm, err := zm.resize(a, zmlen+reqlen)
		if err != nil {
			return zm, false, err
		}
		zm = nzm
		p = zmlen - 1
		zmlen += reqlen

		// Increase the count (this is an insert)
		if zm[0] < zipmapBigLen {
			zm[0]++
		}
	} else {
		// Key found. Is there enough room for the new value?
		update = true
		freelen = zm.rawEntryLength(p)
		if freelen < reqlen {
			// Grow, then move the tail backwards so the pair fits at
			// the current position.
			nzm, err := zm.resize(a, zmlen-freelen+reqlen)
			if err != nil {
				return zm, false, err
			}
			zm = nzm
			copy(zm[p+reqlen:], zm[p+freelen:zmlen-1])
			zmlen = zmlen - freelen + reqlen
			freelen = reqlen
		}
	}

	// The block is now large enough. If there is too much free space,
	// move the tail a few bytes to the front and shrink: these blobs
	// exist to be as small as possible.
	empty := freelen - reqlen
	vempty := empty
	if empty >= zipmapValueMaxFree {
		copy(zm[p+reqlen:], zm[p+freelen:zmlen-1])
		zmlen -= empty
		nzm, err := zm.resize(a, zmlen)
		if err != nil {
			return zm, false, err
		}
		zm = nzm
		vempty = 0
	}

	// Write the key and the value.
	p += zipmapEncodeLength(zm[p:], len(key))
	copy(zm[p:], key)
	p += len(key)
	p += zipmapEncodeLength(zm[p:], len(val))
	zm[p] = byte(vempty)
	p++
	copy(zm[p:], val)
	return zm, update, nil
}

// Delete removes key. The returned blob replaces the one passed in; the
// boolean reports whether the key was present.
func (zm Zipmap) Delete(a Allocator, key []byte) (Zipmap, bool, error) {
	p, zmlen := zm.lookupRaw(key)
	if p == -1 {
		return zm, false, nil
	}

	freelen := zm.rawEntryLength(p)
	copy(zm[p:], zm[p+freelen:zmlen-1])
	nzm, err := zm.resize(a, zmlen-freelen)
	if err != nil {
		return zm, false, err
	}
	zm = nzm

	// Decrease the count
	if zm[0] < zipmapBigLen {
		zm[0]--
	}
	return zm, true, nil
}

// Get returns the value stored under key. The slice aliases the blob and
// is invalidated by any mutation.
func (zm Zipmap) Get(key []byte) ([]byte, bool) {
	p, _ := zm.lookupRaw(key)
	if p == -1 {
		return nil, false
	}
	p += zm.rawKeyLength(p)
	vlen := zipmapDecodeLength(zm[p:])
	vstart := p + zipmapEncodeLengthSize(vlen) + 1
	return zm[vstart : vstart+vlen], true
}

// Exists reports whether key is present.
func (zm Zipmap) Exists(key []byte) bool {
	p, _ := zm.lookupRaw(key)
	return p != -1
}

// Rewind returns the cursor of the first entry, for use with Next:
//
//	for pos, k, v, ok := zm.Next(zm.Rewind()); ok; pos, k, v, ok = zm.Next(pos) {
//		...
//	}
func (zm Zipmap) Rewind() int {
	return 1
}

// Next returns the entry at the cursor and the cursor of the following
// one. ok is false at the end marker. The key and value slices alias the
// blob and are invalidated by any mutation.
func (zm Zipmap) Next(pos int) (next int, key, value []byte, ok bool) {
	if zm[pos] == zipmapEnd {
		return 0, nil, nil, false
	}

	klen := zipmapDecodeLength(zm[pos:])
	kstart := pos + zipmapEncodeLengthSize(klen)
	key = zm[kstart : kstart+klen]
	pos += zm.rawKeyLength(pos)

	vlen := zipmapDecodeLength(zm[pos:])
	vstart := pos + zipmapEncodeLengthSize(vlen) + 1
	value = zm[vstart : vstart+vlen]
	pos += zm.rawValueLength(pos)

	return pos, key, value, true
}

// Len returns the number of entries: O(1) while the count byte is exact,
// an O(n) scan once it has saturated. When a scan finds the count has
// dropped back below the saturation point, the count byte is restored.
func (zm Zipmap) Len() int {
	if zm[0] < zipmapBigLen {
		return int(zm[0])
	}

	length := 0
	pos := zm.Rewind()
	for {
		next, _, _, ok := zm.Next(pos)
		if !ok {
			break
		}
		length++
		pos = next
	}

	// Re-store the count if small enough
	if length < zipmapBigLen {
		zm[0] = byte(length)
	}
	return length
}

// BlobLen returns the blob's size in bytes, end marker included: the
// amount to write when copying or persisting the map.
func (zm Zipmap) BlobLen() int {
	_, totlen := zm.lookupRaw(nil)
	return totlen
}
