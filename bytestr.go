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
	"strconv"
	"strings"
)

// Header kinds, stored in the low 3 bits of the flags byte. Kind 5 keeps
// its length in the upper 5 bits of the flags byte itself and tracks no
// spare capacity; the other kinds carry explicit length and capacity
// fields of the matching width after the flags byte.
const (
	bstrKind5 byte = iota
	bstrKind8
	bstrKind16
	bstrKind32
	bstrKind64

	bstrKindMask byte = 7
	bstrKindBits      = 3
)

// BStr is a dynamic byte string: a single allocation holding a
// variable-width header, the payload, and a trailing zero byte. The
// payload is binary safe; the zero byte only makes the content usable as
// a C-style string when the caller avoids interior zeros.
//
// Length and capacity reads are O(1). Every operation that may grow or
// relocate the buffer returns the new handle; the handle passed in must
// not be used afterwards.
type BStr []byte

func bstrHdrSize(flags byte) int {
	switch flags & bstrKindMask {
	case bstrKind5:
		return 1
	case bstrKind8:
		return 3
	case bstrKind16:
		return 5
	case bstrKind32:
		return 9
	case bstrKind64:
		return 17
	}
	return 0
}

func bstrReqKind(n int) byte {
	if n < 1<<5 {
		return bstrKind5
	}
	if n < 1<<8 {
		return bstrKind8
	}
	if n < 1<<16 {
		return bstrKind16
	}
	if uint64(n) < 1<<32 {
		return bstrKind32
	}
	return bstrKind64
}

func (s BStr) kind() byte {
	return s[0] & bstrKindMask
}

func (s BStr) hdrSize() int {
	return bstrHdrSize(s[0])
}

// Len returns the payload length.
func (s BStr) Len() int {
	switch s.kind() {
	case bstrKind5:
		return int(s[0] >> bstrKindBits)
	case bstrKind8:
		return int(s[1])
	case bstrKind16:
		return int(binary.LittleEndian.Uint16(s[1:]))
	case bstrKind32:
		return int(binary.LittleEndian.Uint32(s[1:]))
	default:
		return int(binary.LittleEndian.Uint64(s[1:]))
	}
}

// Cap returns the payload capacity. A kind-5 header has no capacity
// field: its capacity is its length.
func (s BStr) Cap() int {
	switch s.kind() {
	case bstrKind5:
		return int(s[0] >> bstrKindBits)
	case bstrKind8:
		return int(s[2])
	case bstrKind16:
		return int(binary.LittleEndian.Uint16(s[3:]))
	case bstrKind32:
		return int(binary.LittleEndian.Uint32(s[5:]))
	default:
		return int(binary.LittleEndian.Uint64(s[9:]))
	}
}

// Avail returns the spare payload capacity.
func (s BStr) Avail() int {
	return s.Cap() - s.Len()
}

// AllocSize returns the total size of the allocation: header, capacity,
// and the trailing zero byte.
func (s BStr) AllocSize() int {
	return s.hdrSize() + s.Cap() + 1
}

// Bytes returns the payload. The slice aliases the handle's buffer and is
// invalidated by any mutating operation.
func (s BStr) Bytes() []byte {
	h := s.hdrSize()
	return s[h : h+s.Len()]
}

// String returns a copy of the payload as a Go string.
func (s BStr) String() string {
	return string(s.Bytes())
}

// SetLen overwrites the length field. The caller is responsible for the
// new length fitting the capacity and for the content past the old end.
func (s BStr) SetLen(n int) {
	switch s.kind() {
	case bstrKind5:
		s[0] = bstrKind5 | byte(n)<<bstrKindBits
	case bstrKind8:
		s[1] = byte(n)
	case bstrKind16:
		binary.LittleEndian.PutUint16(s[1:], uint16(n))
	case bstrKind32:
		binary.LittleEndian.PutUint32(s[1:], uint32(n))
	default:
		binary.LittleEndian.PutUint64(s[1:], uint64(n))
	}
}

// AddLen bumps the length field by delta without touching the payload or
// the trailing zero byte. Like SetLen, the caller is responsible for the
// capacity; IncrLen is the checked variant.
func (s BStr) AddLen(delta int) {
	s.SetLen(s.Len() + delta)
}

func (s BStr) setCap(n int) {
	switch s.kind() {
	case bstrKind5:
		// capacity is the length; nothing to store
	case bstrKind8:
		s[2] = byte(n)
	case bstrKind16:
		binary.LittleEndian.PutUint16(s[3:], uint16(n))
	case bstrKind32:
		binary.LittleEndian.PutUint32(s[5:], uint32(n))
	default:
		binary.LittleEndian.PutUint64(s[9:], uint64(n))
	}
}

// NewBStrLen creates a byte string holding a copy of init. Empty strings get
// an 8-bit header rather than the minimal one: they exist to be appended
// to, and the 5-bit header cannot track spare capacity.
func NewBStrLen(a Allocator, init []byte) (BStr, error) {
	initlen := len(init)
	kind := bstrReqKind(initlen)
	if kind == bstrKind5 && initlen == 0 {
		kind = bstrKind8
	}
	s, err := bstrAlloc(a, kind, initlen)
	if err != nil {
		return nil, err
	}
	copy(s[s.hdrSize():], init)
	return s, nil
}

// NewBStrUninit creates a byte string of length n with undefined payload
// contents. The trailing zero byte is in place; the caller fills the
// payload.
func NewBStrUninit(a Allocator, n int) (BStr, error) {
	kind := bstrReqKind(n)
	if kind == bstrKind5 && n == 0 {
		kind = bstrKind8
	}
	return bstrAlloc(a, kind, n)
}

func bstrAlloc(a Allocator, kind byte, n int) (BStr, error) {
	hdr := bstrHdrSize(kind)
	buf := a.Alloc(hdr + n + 1)
	if buf == nil {
		return nil, NewAllocError(hdr + n + 1)
	}
	s := BStr(buf)
	s[0] = kind
	s.SetLen(n)
	s.setCap(n)
	s[hdr+n] = 0
	return s, nil
}

// NewBStr creates a byte string from a Go string.
func NewBStr(a Allocator, init string) (BStr, error) {
	return NewBStrLen(a, []byte(init))
}

// NewEmptyBStr creates a zero-length byte string.
func NewEmptyBStr(a Allocator) (BStr, error) {
	return NewBStrLen(a, nil)
}

// NewBStrFromInt64 creates a byte string holding the decimal representation of v.
func NewBStrFromInt64(a Allocator, v int64) (BStr, error) {
	var buf [20]byte
	return NewBStrLen(a, strconv.AppendInt(buf[:0], v, 10))
}

// Dup returns an independent copy.
func (s BStr) Dup(a Allocator) (BStr, error) {
	return NewBStrLen(a, s.Bytes())
}

// Free releases the string. A nil handle is a no-op.
func (s BStr) Free(a Allocator) {
	if s == nil {
		return
	}
	a.Free(s)
}

// Clear truncates the string to zero length in place, keeping its
// capacity for later appends.
func (s BStr) Clear() {
	s.SetLen(0)
	s[s.hdrSize()] = 0
}

// UpdateLen resets the length to the distance to the first zero byte,
// for callers that edited the payload directly.
func (s BStr) UpdateLen() {
	h := s.hdrSize()
	n := bytes.IndexByte(s[h:h+s.Cap()+1], 0)
	if n < 0 {
		n = s.Cap()
	}
	s.SetLen(n)
}

// MakeRoomFor grows the spare capacity to at least addlen bytes. The
// length is unchanged. Growth doubles the target length below the
// preallocation ceiling and adds the ceiling above it; a grown string
// never uses the 5-bit header, because the caller is about to append and
// that header cannot track the slack.
func (s BStr) MakeRoomFor(a Allocator, addlen int) (BStr, error) {
	if s.Avail() >= addlen {
		return s, nil
	}

	length := s.Len()
	oldKind := s.kind()
	oldHdr := s.hdrSize()

	newlen := length + addlen
	if newlen < maxPrealloc {
		newlen *= 2
	} else {
		newlen += maxPrealloc
	}

	kind := bstrReqKind(newlen)
	if kind == bstrKind5 {
		kind = bstrKind8
	}

	hdr := bstrHdrSize(kind)
	if oldKind == kind {
		buf := a.Realloc(s, hdr+newlen+1)
		if buf == nil {
			return nil, NewAllocError(hdr + newlen + 1)
		}
		s = BStr(buf)
	} else {
		// The header width changes, so the payload has to move; a
		// fresh allocation avoids moving it twice.
		buf := a.Alloc(hdr + newlen + 1)
		if buf == nil {
			return nil, NewAllocError(hdr + newlen + 1)
		}
		copy(buf[hdr:], s[oldHdr:oldHdr+length+1])
		ns := BStr(buf)
		ns[0] = kind
		ns.SetLen(length)
		a.Free(s)
		s = ns
	}
	s.setCap(newlen)
	return s, nil
}

// Shrink drops the spare capacity, moving to a smaller header when one
// fits. The payload is unchanged; the next append will reallocate.
func (s BStr) Shrink(a Allocator) (BStr, error) {
	if s.Avail() == 0 {
		return s, nil
	}

	length := s.Len()
	oldKind := s.kind()
	oldHdr := s.hdrSize()

	kind := bstrReqKind(length)
	hdr := bstrHdrSize(kind)

	// Keep the current header unless the string fits one of the two
	// smallest ones; for the larger headers an in-place shrink is
	// cheaper than moving the payload.
	if oldKind == kind || kind > bstrKind8 {
		buf := a.Realloc(s, oldHdr+length+1)
		if buf == nil {
			return nil, NewAllocError(oldHdr + length + 1)
		}
		s = BStr(buf)
	} else {
		buf := a.Alloc(hdr + length + 1)
		if buf == nil {
			return nil, NewAllocError(hdr + length + 1)
		}
		copy(buf[hdr:], s[oldHdr:oldHdr+length+1])
		ns := BStr(buf)
		ns[0] = kind
		ns.SetLen(length)
		a.Free(s)
		s = ns
	}
	s.setCap(length)
	return s, nil
}

// IncrLen adjusts the length after the caller wrote delta bytes past the
// end (or truncates by -delta), and restores the trailing zero byte. The
// delta must fit the slack accounting; violating it aborts.
func (s BStr) IncrLen(delta int) {
	length := s.Len()
	if delta >= 0 {
		if delta > s.Avail() {
			panic(NewLengthDeltaError(delta, length, s.Avail()))
		}
	} else {
		if length < -delta {
			panic(NewLengthDeltaError(delta, length, s.Avail()))
		}
	}
	newlen := length + delta
	s.SetLen(newlen)
	s[s.hdrSize()+newlen] = 0
}

// Append appends t, growing as needed.
func (s BStr) Append(a Allocator, t []byte) (BStr, error) {
	curlen := s.Len()
	s, err := s.MakeRoomFor(a, len(t))
	if err != nil {
		return nil, err
	}
	h := s.hdrSize()
	copy(s[h+curlen:], t)
	newlen := curlen + len(t)
	s.SetLen(newlen)
	s[h+newlen] = 0
	return s, nil
}

// AppendString appends a Go string.
func (s BStr) AppendString(a Allocator, t string) (BStr, error) {
	curlen := s.Len()
	s, err := s.MakeRoomFor(a, len(t))
	if err != nil {
		return nil, err
	}
	h := s.hdrSize()
	copy(s[h+curlen:], t)
	newlen := curlen + len(t)
	s.SetLen(newlen)
	s[h+newlen] = 0
	return s, nil
}

// AppendBStr appends another byte string.
func (s BStr) AppendBStr(a Allocator, t BStr) (BStr, error) {
	return s.Append(a, t.Bytes())
}

// Copy destructively overwrites the content with t, growing as needed.
func (s BStr) Copy(a Allocator, t []byte) (BStr, error) {
	if s.Cap() < len(t) {
		var err error
		s, err = s.MakeRoomFor(a, len(t)-s.Len())
		if err != nil {
			return nil, err
		}
	}
	h := s.hdrSize()
	copy(s[h:], t)
	s[h+len(t)] = 0
	s.SetLen(len(t))
	return s, nil
}

// GrowZero grows the string to length n, zero-filling the added region.
// If n is not larger than the current length nothing happens.
func (s BStr) GrowZero(a Allocator, n int) (BStr, error) {
	curlen := s.Len()
	if n <= curlen {
		return s, nil
	}
	s, err := s.MakeRoomFor(a, n-curlen)
	if err != nil {
		return nil, err
	}
	h := s.hdrSize()
	clear(s[h+curlen : h+n+1])
	s.SetLen(n)
	return s, nil
}

// Trim removes leading and trailing bytes contained in cset, in place.
// The handle is unchanged.
func (s BStr) Trim(cset string) BStr {
	h := s.hdrSize()
	sp := 0
	ep := s.Len() - 1
	for sp <= ep && strings.IndexByte(cset, s[h+sp]) >= 0 {
		sp++
	}
	for ep > sp && strings.IndexByte(cset, s[h+ep]) >= 0 {
		ep--
	}
	newlen := 0
	if sp <= ep {
		newlen = ep - sp + 1
	}
	if sp > 0 && newlen > 0 {
		copy(s[h:], s[h+sp:h+sp+newlen])
	}
	s[h+newlen] = 0
	s.SetLen(newlen)
	return s
}

// Range truncates the string in place to the inclusive interval
// [start, end]. Negative indexes count from the end, -1 being the last
// byte.
func (s BStr) Range(start, end int) {
	length := s.Len()
	if length == 0 {
		return
	}
	if start < 0 {
		start = length + start
		if start < 0 {
			start = 0
		}
	}
	if end < 0 {
		end = length + end
		if end < 0 {
			end = 0
		}
	}
	newlen := 0
	if start <= end {
		newlen = end - start + 1
	}
	if newlen != 0 {
		if start >= length {
			newlen = 0
		} else if end >= length {
			end = length - 1
			newlen = 0
			if start <= end {
				newlen = end - start + 1
			}
		}
	} else {
		start = 0
	}
	h := s.hdrSize()
	if start != 0 && newlen != 0 {
		copy(s[h:], s[h+start:h+start+newlen])
	}
	s[h+newlen] = 0
	s.SetLen(newlen)
}

// MapChars substitutes every occurrence of from[i] with to[i], in place.
func (s BStr) MapChars(from, to []byte) BStr {
	h := s.hdrSize()
	length := s.Len()
	n := len(from)
	if len(to) < n {
		n = len(to)
	}
	for j := 0; j < length; j++ {
		for i := 0; i < n; i++ {
			if s[h+j] == from[i] {
				s[h+j] = to[i]
				break
			}
		}
	}
	return s
}

// ToLower folds ASCII uppercase to lowercase in place.
func (s BStr) ToLower() {
	h := s.hdrSize()
	length := s.Len()
	for j := 0; j < length; j++ {
		if c := s[h+j]; c >= 'A' && c <= 'Z' {
			s[h+j] = c + ('a' - 'A')
		}
	}
}

// ToUpper folds ASCII lowercase to uppercase in place.
func (s BStr) ToUpper() {
	h := s.hdrSize()
	length := s.Len()
	for j := 0; j < length; j++ {
		if c := s[h+j]; c >= 'a' && c <= 'z' {
			s[h+j] = c - ('a' - 'A')
		}
	}
}

// Compare compares two byte strings like bytes.Compare: byte-wise, with
// the longer string winning a shared prefix.
func Compare(s1, s2 BStr) int {
	return bytes.Compare(s1.Bytes(), s2.Bytes())
}
