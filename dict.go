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
	"fmt"
	"math/rand"
	"strings"
	"time"
)

// DictType is the per-table operations table. Hash is mandatory; the
// rest are optional. PrivData is passed back to every callback untouched.
// Build Hash from a Seed with the helpers in hash.go when the table keys
// are byte strings.
type DictType struct {
	Hash          func(key interface{}) uint64
	KeyDup        func(privdata, key interface{}) interface{}
	ValDup        func(privdata, val interface{}) interface{}
	KeyCompare    func(privdata, a, b interface{}) bool
	KeyDestructor func(privdata, key interface{})
	ValDestructor func(privdata, val interface{})
}

type entryKind uint8

const (
	entryPointer entryKind = iota
	entrySignedInt
	entryUnsignedInt
	entryFloat
)

// Entry is one key/value pair chained in a bucket. The value cell is
// tagged: it holds either an opaque value or one of three scalar kinds,
// so scalar-valued tables avoid boxing churn.
type Entry struct {
	key  interface{}
	kind entryKind
	val  interface{}
	s    int64
	u    uint64
	f    float64
	next *Entry
}

// Key returns the entry's key.
func (e *Entry) Key() interface{} {
	return e.key
}

// Value returns the stored value, boxing scalars as needed.
func (e *Entry) Value() interface{} {
	switch e.kind {
	case entrySignedInt:
		return e.s
	case entryUnsignedInt:
		return e.u
	case entryFloat:
		return e.f
	default:
		return e.val
	}
}

// SetSignedInt stores a signed scalar in the value cell.
func (e *Entry) SetSignedInt(v int64) {
	e.kind = entrySignedInt
	e.val = nil
	e.s = v
}

// SignedInt reads the value cell as a signed scalar.
func (e *Entry) SignedInt() int64 {
	return e.s
}

// SetUnsignedInt stores an unsigned scalar in the value cell.
func (e *Entry) SetUnsignedInt(v uint64) {
	e.kind = entryUnsignedInt
	e.val = nil
	e.u = v
}

// UnsignedInt reads the value cell as an unsigned scalar.
func (e *Entry) UnsignedInt() uint64 {
	return e.u
}

// SetFloat stores a float scalar in the value cell.
func (e *Entry) SetFloat(v float64) {
	e.kind = entryFloat
	e.val = nil
	e.f = v
}

// Float reads the value cell as a float scalar.
func (e *Entry) Float() float64 {
	return e.f
}

type hashTable struct {
	table []*Entry
	size  uint64
	mask  uint64 // size - 1
	used  uint64
	gen   uint64 // identity of this bucket array, folded into fingerprints
}

func (ht *hashTable) reset() {
	ht.table = nil
	ht.size = 0
	ht.mask = 0
	ht.used = 0
	ht.gen = 0
}

// Dict is a chained hash table pair with incremental migration: a grow
// installs a second table and entries move over one bucket at a time,
// driven by the operations themselves, so a large table never causes a
// stall. While a migration is in progress new entries go into the second
// table and lookups consult both.
//
// Dict is not safe for concurrent use; the layer above serializes access.
type Dict struct {
	dtype     *DictType
	privdata  interface{}
	ht        [2]hashTable
	rehashidx int64 // next ht[0] bucket to migrate; -1 when idle
	iterators uint64
	canResize bool
	tableGen  uint64
	rng       *rand.Rand
}

// NewDict creates an empty table with the given operations table. The
// first bucket array is allocated lazily by the first insert.
func NewDict(dtype *DictType, privdata interface{}) *Dict {
	return &Dict{
		dtype:     dtype,
		privdata:  privdata,
		rehashidx: -1,
		canResize: true,
		rng:       rand.New(rand.NewSource(time.Now().UnixNano())),
	}
}

func (d *Dict) hashKey(key interface{}) uint64 {
	return d.dtype.Hash(key)
}

func (d *Dict) keysEqual(a, b interface{}) bool {
	if d.dtype.KeyCompare != nil {
		return d.dtype.KeyCompare(d.privdata, a, b)
	}
	return a == b
}

func (d *Dict) setKey(e *Entry, key interface{}) {
	if d.dtype.KeyDup != nil {
		e.key = d.dtype.KeyDup(d.privdata, key)
	} else {
		e.key = key
	}
}

func (d *Dict) freeKey(e *Entry) {
	if d.dtype.KeyDestructor != nil {
		d.dtype.KeyDestructor(d.privdata, e.key)
	}
}

func (d *Dict) setVal(e *Entry, val interface{}) {
	e.kind = entryPointer
	if d.dtype.ValDup != nil {
		e.val = d.dtype.ValDup(d.privdata, val)
	} else {
		e.val = val
	}
}

func (d *Dict) freeVal(e *Entry) {
	if d.dtype.ValDestructor != nil && e.kind == entryPointer {
		d.dtype.ValDestructor(d.privdata, e.val)
	}
}

// Size returns the number of stored entries across both tables.
func (d *Dict) Size() uint64 {
	return d.ht[0].used + d.ht[1].used
}

// Slots returns the number of buckets across both tables.
func (d *Dict) Slots() uint64 {
	return d.ht[0].size + d.ht[1].size
}

// IsRehashing reports whether an incremental migration is in progress.
func (d *Dict) IsRehashing() bool {
	return d.rehashidx != -1
}

// EnableResize allows load-triggered growth again.
func (d *Dict) EnableResize() {
	d.canResize = true
}

// DisableResize suppresses load-triggered growth until the load factor
// passes the force ratio. Hosts use this while a child process shares the
// table's memory pages.
func (d *Dict) DisableResize() {
	d.canResize = false
}

func dictNextPower(size uint64) uint64 {
	i := uint64(dictInitialSize)
	if size >= 1<<62 {
		return 1 << 62
	}
	for i < size {
		i *= 2
	}
	return i
}

// Expand grows (or initially creates) the bucket array to the next power
// of two holding size. Entries are not moved here: a second table is
// installed and the migration cursor starts at bucket 0.
func (d *Dict) Expand(size uint64) error {
	// the size is invalid if it is smaller than the number of
	// elements already inside the table
	if d.IsRehashing() || d.ht[0].used > size {
		return NewResizeError("migration in progress or size below element count")
	}

	realsize := dictNextPower(size)
	if realsize == d.ht[0].size {
		return NewResizeError("table already at requested size")
	}

	d.tableGen++
	n := hashTable{
		table: make([]*Entry, realsize),
		size:  realsize,
		mask:  realsize - 1,
		gen:   d.tableGen,
	}

	// Is this the first allocation? Then it's not really a migration,
	// the first table just becomes able to accept keys.
	if d.ht[0].table == nil {
		d.ht[0] = n
		return nil
	}

	d.ht[1] = n
	d.rehashidx = 0
	return nil
}

// Resize shrinks the bucket array to the minimal size holding all
// entries, keeping the used/buckets ratio near 1.
func (d *Dict) Resize() error {
	if !d.canResize || d.IsRehashing() {
		return NewResizeError("resizing disabled or migration in progress")
	}
	minimal := d.ht[0].used
	if minimal < dictInitialSize {
		minimal = dictInitialSize
	}
	return d.Expand(minimal)
}

func (d *Dict) expandIfNeeded() {
	if d.IsRehashing() {
		return
	}

	if d.ht[0].size == 0 {
		_ = d.Expand(dictInitialSize)
		return
	}

	// Grow at a 1:1 ratio when allowed, and regardless of the resize
	// flag once the load factor passes the force ratio.
	if d.ht[0].used >= d.ht[0].size &&
		(d.canResize ||
			d.ht[0].used/d.ht[0].size > dictForceResizeRatio) {
		_ = d.Expand(d.ht[0].used * 2)
	}
}

// Rehash performs n migration steps. A step moves one whole bucket chain
// from the first table to the second; the scan over empty buckets is
// bounded at 10*n so a sparse table cannot stall the caller. Returns true
// while work remains.
func (d *Dict) Rehash(n int) bool {
	emptyVisits := n * 10 // max number of empty buckets to visit
	if !d.IsRehashing() {
		return false
	}

	for n > 0 && d.ht[0].used != 0 {
		n--

		// rehashidx can't overflow, there are more elements because
		// ht[0].used != 0
		if uint64(d.rehashidx) >= d.ht[0].size {
			panic(NewRehashIndexError(d.rehashidx, d.ht[0].size))
		}
		for d.ht[0].table[d.rehashidx] == nil {
			d.rehashidx++
			emptyVisits--
			if emptyVisits == 0 {
				return true
			}
		}

		// Move the whole chain to the new table.
		de := d.ht[0].table[d.rehashidx]
		for de != nil {
			next := de.next
			idx := d.hashKey(de.key) & d.ht[1].mask
			de.next = d.ht[1].table[idx]
			d.ht[1].table[idx] = de
			d.ht[0].used--
			d.ht[1].used++
			de = next
		}
		d.ht[0].table[d.rehashidx] = nil
		d.rehashidx++
	}

	if d.ht[0].used == 0 {
		d.ht[0] = d.ht[1]
		d.ht[1].reset()
		d.rehashidx = -1
		return false
	}

	// More to migrate.
	return true
}

// RehashForMs runs migration in 100-bucket chunks until the elapsed wall
// clock exceeds ms milliseconds. Hosts call this during idle moments.
// Returns 100 for every chunk after which migration work remained.
func (d *Dict) RehashForMs(ms int) int {
	start := time.Now()
	rehashes := 0

	for d.Rehash(100) {
		rehashes += 100
		if time.Since(start) > time.Duration(ms)*time.Millisecond {
			break
		}
	}
	return rehashes
}

// rehashStep moves a single bucket, and only when no safe iterator is
// open: moving entries between the tables under an iterator would make it
// miss or repeat elements.
func (d *Dict) rehashStep() {
	if d.iterators == 0 {
		d.Rehash(1)
	}
}

// keyIndex returns the bucket index a new entry for key goes into, or -1
// with the existing entry when the key is already present. During a
// migration the index is always relative to the second table.
func (d *Dict) keyIndex(key interface{}, hash uint64) (int64, *Entry) {
	d.expandIfNeeded()

	var idx uint64
	for table := 0; table <= 1; table++ {
		idx = hash & d.ht[table].mask
		he := d.ht[table].table[idx]
		for he != nil {
			if d.keysEqual(key, he.key) {
				return -1, he
			}
			he = he.next
		}
		if !d.IsRehashing() {
			break
		}
	}
	return int64(idx), nil
}

// AddRaw inserts key with an unset value cell and returns the new entry
// for the caller to fill. If the key is already present the new entry is
// nil and the existing one is returned instead.
func (d *Dict) AddRaw(key interface{}) (entry, existing *Entry) {
	if d.IsRehashing() {
		d.rehashStep()
	}

	index, found := d.keyIndex(key, d.hashKey(key))
	if index == -1 {
		return nil, found
	}

	// Insert at the chain head: recently added entries are the ones
	// accessed more frequently.
	ht := &d.ht[0]
	if d.IsRehashing() {
		ht = &d.ht[1]
	}
	e := &Entry{next: ht.table[index]}
	ht.table[index] = e
	ht.used++
	d.setKey(e, key)
	return e, nil
}

// Add inserts a key/value pair, failing if the key is already present.
func (d *Dict) Add(key, val interface{}) error {
	entry, _ := d.AddRaw(key)
	if entry == nil {
		return NewDuplicateKeyError(key)
	}
	d.setVal(entry, val)
	return nil
}

// Replace inserts or overwrites. Returns true when the key was added,
// false when an existing value was replaced.
func (d *Dict) Replace(key, val interface{}) bool {
	entry, existing := d.AddRaw(key)
	if entry != nil {
		d.setVal(entry, val)
		return true
	}

	// Install the new value before releasing the old one: with
	// reference counted payloads the two may be the same object.
	aux := *existing
	d.setVal(existing, val)
	d.freeVal(&aux)
	return false
}

// AddOrFind returns the entry for key, inserting one with an unset value
// cell when absent.
func (d *Dict) AddOrFind(key interface{}) *Entry {
	entry, existing := d.AddRaw(key)
	if entry != nil {
		return entry
	}
	return existing
}

func (d *Dict) genericDelete(key interface{}, nofree bool) *Entry {
	if d.ht[0].used == 0 && d.ht[1].used == 0 {
		return nil
	}

	if d.IsRehashing() {
		d.rehashStep()
	}
	h := d.hashKey(key)

	for table := 0; table <= 1; table++ {
		idx := h & d.ht[table].mask
		he := d.ht[table].table[idx]
		var prev *Entry
		for he != nil {
			if d.keysEqual(key, he.key) {
				if prev != nil {
					prev.next = he.next
				} else {
					d.ht[table].table[idx] = he.next
				}
				if !nofree {
					d.freeKey(he)
					d.freeVal(he)
				}
				he.next = nil
				d.ht[table].used--
				return he
			}
			prev = he
			he = he.next
		}
		if !d.IsRehashing() {
			break
		}
	}
	return nil
}

// Delete removes key, running its key and value destructors. Returns
// false when the key is absent.
func (d *Dict) Delete(key interface{}) bool {
	return d.genericDelete(key, false) != nil
}

// Unlink detaches the entry for key from its chain without running
// destructors and returns it, so a caller can use the entry and release
// it later with FreeUnlinked without paying a second lookup. Returns nil
// when the key is absent.
func (d *Dict) Unlink(key interface{}) *Entry {
	return d.genericDelete(key, true)
}

// FreeUnlinked releases an entry returned by Unlink. A nil entry is a
// no-op.
func (d *Dict) FreeUnlinked(e *Entry) {
	if e == nil {
		return
	}
	d.freeKey(e)
	d.freeVal(e)
}

// Find returns the entry for key, or nil. A lookup never misses an
// existing key because of an in-progress migration: both tables are
// consulted.
func (d *Dict) Find(key interface{}) *Entry {
	if d.Size() == 0 {
		return nil
	}
	if d.IsRehashing() {
		d.rehashStep()
	}
	h := d.hashKey(key)
	for table := 0; table <= 1; table++ {
		idx := h & d.ht[table].mask
		he := d.ht[table].table[idx]
		for he != nil {
			if d.keysEqual(key, he.key) {
				return he
			}
			he = he.next
		}
		if !d.IsRehashing() {
			return nil
		}
	}
	return nil
}

// FetchValue returns the value stored under key, or nil.
func (d *Dict) FetchValue(key interface{}) interface{} {
	he := d.Find(key)
	if he == nil {
		return nil
	}
	return he.Value()
}

// GetHash returns the hash of key under this table's hash function, for
// use with FindEntryByPtrAndHash.
func (d *Dict) GetHash(key interface{}) uint64 {
	return d.hashKey(key)
}

// FindEntryByPtrAndHash finds the entry whose stored key equals oldKey
// under Go's == on the interface values, using a precomputed hash and
// without calling KeyCompare. For pointer keys this is identity, so a key
// whose content may no longer be readable can still be found.
func (d *Dict) FindEntryByPtrAndHash(oldKey interface{}, hash uint64) *Entry {
	if d.ht[0].used == 0 && d.ht[1].used == 0 {
		return nil
	}
	for table := 0; table <= 1; table++ {
		idx := hash & d.ht[table].mask
		he := d.ht[table].table[idx]
		for he != nil {
			if oldKey == he.key {
				return he
			}
			he = he.next
		}
		if !d.IsRehashing() {
			return nil
		}
	}
	return nil
}

func (d *Dict) clearTable(ht *hashTable, callback func(privdata interface{})) {
	for i := uint64(0); i < ht.size && ht.used > 0; i++ {
		if callback != nil && i&65535 == 0 {
			callback(d.privdata)
		}
		he := ht.table[i]
		for he != nil {
			next := he.next
			d.freeKey(he)
			d.freeVal(he)
			ht.used--
			he = next
		}
	}
	ht.reset()
}

// Release destroys every entry, running destructors, and drops the bucket
// arrays. The Dict must not be used afterwards.
func (d *Dict) Release() {
	d.clearTable(&d.ht[0], nil)
	d.clearTable(&d.ht[1], nil)
}

// Empty removes every entry but keeps the Dict usable. The callback, when
// set, is invoked with the private data every 65536 buckets, so hosts can
// keep serving events while a huge table drains.
func (d *Dict) Empty(callback func(privdata interface{})) {
	d.clearTable(&d.ht[0], callback)
	d.clearTable(&d.ht[1], callback)
	d.rehashidx = -1
	d.iterators = 0
}

const dictStatsVectLen = 50

func dictStatsTable(sb *strings.Builder, ht *hashTable, tableid int) {
	if ht.used == 0 {
		fmt.Fprintf(sb, "No stats available for empty tables\n")
		return
	}

	var clvector [dictStatsVectLen]uint64
	var slots, maxChainLen, totChainLen uint64

	for i := uint64(0); i < ht.size; i++ {
		if ht.table[i] == nil {
			clvector[0]++
			continue
		}
		slots++
		chainlen := uint64(0)
		for he := ht.table[i]; he != nil; he = he.next {
			chainlen++
		}
		if chainlen < dictStatsVectLen {
			clvector[chainlen]++
		} else {
			clvector[dictStatsVectLen-1]++
		}
		if chainlen > maxChainLen {
			maxChainLen = chainlen
		}
		totChainLen += chainlen
	}

	name := "main table"
	if tableid == 1 {
		name = "migration target"
	}
	fmt.Fprintf(sb,
		"Table %d stats (%s):\n"+
			" table size: %d\n"+
			" number of elements: %d\n"+
			" different slots: %d\n"+
			" max chain length: %d\n"+
			" avg chain length (counted): %.02f\n"+
			" avg chain length (computed): %.02f\n"+
			" Chain length distribution:\n",
		tableid, name,
		ht.size, ht.used, slots, maxChainLen,
		float64(totChainLen)/float64(slots), float64(ht.used)/float64(slots))

	for i := 0; i < dictStatsVectLen-1; i++ {
		if clvector[i] == 0 {
			continue
		}
		fmt.Fprintf(sb, "   %d: %d (%.02f%%)\n",
			i, clvector[i], float64(clvector[i])/float64(ht.size)*100)
	}
}

// Stats returns a human readable report of bucket occupancy and chain
// length distribution for both tables.
func (d *Dict) Stats() string {
	var sb strings.Builder
	dictStatsTable(&sb, &d.ht[0], 0)
	if d.IsRehashing() {
		dictStatsTable(&sb, &d.ht[1], 1)
	}
	return sb.String()
}
