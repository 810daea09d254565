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
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDictAddFind(t *testing.T) {
	d := NewDict(stringDictType(), nil)
	defer d.Release()

	require.NoError(t, d.Add("a", 1))
	require.NoError(t, d.Add("b", 2))

	err := d.Add("a", 3)
	var dupErr *DuplicateKeyError
	require.ErrorAs(t, err, &dupErr)
	require.False(t, dupErr.IsFatal())

	require.Equal(t, uint64(2), d.Size())
	require.Equal(t, 1, d.Find("a").Value())
	require.Equal(t, 2, d.FetchValue("b"))
	require.Nil(t, d.Find("missing"))
	require.Nil(t, d.FetchValue("missing"))
}

func TestDictIncrementalRehash(t *testing.T) {
	d := NewDict(stringDictType(), nil)
	defer d.Release()

	for j := 0; j < 1000; j++ {
		require.NoError(t, d.Add(fmt.Sprintf("k%d", j), j))
		// every key inserted so far stays reachable mid-migration
		for i := 0; i <= j; i++ {
			he := d.Find(fmt.Sprintf("k%d", i))
			require.NotNil(t, he, "k%d missing after inserting k%d", i, j)
			require.Equal(t, i, he.Value())
		}
	}

	for d.IsRehashing() {
		d.Rehash(100)
	}

	require.Equal(t, uint64(1000), d.Size())
	require.Equal(t, uint64(1000), d.ht[0].used)
	require.Equal(t, uint64(0), d.ht[1].used)
	require.Nil(t, d.ht[1].table)
	require.Equal(t, int64(-1), d.rehashidx)
}

func TestDictRehashOneBucketPerOp(t *testing.T) {
	d := NewDict(stringDictType(), nil)
	defer d.Release()

	// Fill, then make sure a migration is in flight.
	for j := 0; j < 64; j++ {
		require.NoError(t, d.Add(fmt.Sprintf("k%d", j), j))
	}
	if !d.IsRehashing() {
		require.NoError(t, d.Expand(d.ht[0].size * 2))
	}
	require.True(t, d.IsRehashing())

	// Each lookup migrates at most one bucket chain, so the cursor moves
	// past at most ten bucket slots, empty ones included.
	for d.IsRehashing() {
		before := d.rehashidx
		d.Find("k0")
		if d.IsRehashing() {
			require.LessOrEqual(t, d.rehashidx-before, int64(10))
		}
	}
	require.Equal(t, uint64(64), d.Size())
}

func TestDictReplace(t *testing.T) {
	d := NewDict(stringDictType(), nil)
	defer d.Release()

	require.True(t, d.Replace("k", "v1"))
	require.False(t, d.Replace("k", "v2"))
	require.Equal(t, "v2", d.FetchValue("k"))
	require.Equal(t, uint64(1), d.Size())
}

func TestDictReplaceDestructorOrder(t *testing.T) {
	type payload struct{ refs int }

	freed := []*payload{}
	dt := stringDictType()
	dt.ValDestructor = func(_, val interface{}) {
		p := val.(*payload)
		p.refs--
		freed = append(freed, p)
	}

	d := NewDict(dt, nil)

	// Replacing a key with the same reference-counted object must
	// install before releasing, or the object would die.
	p := &payload{refs: 1}
	require.True(t, d.Replace("k", p))
	p.refs++
	require.False(t, d.Replace("k", p))

	require.Equal(t, []*payload{p}, freed)
	require.Equal(t, 1, p.refs)
	require.Same(t, p, d.FetchValue("k"))

	d.Release()
	require.Equal(t, 0, p.refs)
}

func TestDictDelete(t *testing.T) {
	d := NewDict(stringDictType(), nil)
	defer d.Release()

	for j := 0; j < 100; j++ {
		require.NoError(t, d.Add(fmt.Sprintf("k%d", j), j))
	}

	require.True(t, d.Delete("k50"))
	require.False(t, d.Delete("k50"))
	require.Nil(t, d.Find("k50"))
	require.Equal(t, uint64(99), d.Size())
}

func TestDictUnlink(t *testing.T) {
	keyFrees := 0
	dt := stringDictType()
	dt.KeyDestructor = func(_, _ interface{}) { keyFrees++ }

	d := NewDict(dt, nil)
	defer d.Release()

	require.NoError(t, d.Add("k", "v"))

	he := d.Unlink("k")
	require.NotNil(t, he)
	require.Nil(t, d.Find("k"))
	require.Equal(t, uint64(0), d.Size())

	// destructors run only at FreeUnlinked time
	require.Equal(t, 0, keyFrees)
	require.Equal(t, "v", he.Value())
	d.FreeUnlinked(he)
	require.Equal(t, 1, keyFrees)

	require.Nil(t, d.Unlink("missing"))
	d.FreeUnlinked(nil)
}

func TestDictAddOrFind(t *testing.T) {
	d := NewDict(stringDictType(), nil)
	defer d.Release()

	he := d.AddOrFind("k")
	he.SetSignedInt(100)

	again := d.AddOrFind("k")
	require.Same(t, he, again)
	require.Equal(t, int64(100), again.SignedInt())
	require.Equal(t, uint64(1), d.Size())
}

func TestDictValueCells(t *testing.T) {
	d := NewDict(stringDictType(), nil)
	defer d.Release()

	he, _ := d.AddRaw("signed")
	he.SetSignedInt(-5)
	require.Equal(t, int64(-5), d.Find("signed").SignedInt())
	require.Equal(t, int64(-5), d.Find("signed").Value())

	he, _ = d.AddRaw("unsigned")
	he.SetUnsignedInt(5)
	require.Equal(t, uint64(5), d.Find("unsigned").UnsignedInt())

	he, _ = d.AddRaw("float")
	he.SetFloat(3.25)
	require.Equal(t, 3.25, d.Find("float").Float())

	require.NoError(t, d.Add("pointer", "p"))
	require.Equal(t, "p", d.Find("pointer").Value())
}

func TestDictContainsOracle(t *testing.T) {
	r := newRand(t)
	d := NewDict(stringDictType(), nil)
	defer d.Release()

	oracle := map[string]int{}
	for i := 0; i < 5000; i++ {
		key := fmt.Sprintf("k%d", r.Intn(500))
		switch r.Intn(3) {
		case 0:
			d.Replace(key, i)
			oracle[key] = i
		case 1:
			_, ok := oracle[key]
			require.Equal(t, ok, d.Delete(key))
			delete(oracle, key)
		default:
			want, ok := oracle[key]
			he := d.Find(key)
			if !ok {
				require.Nil(t, he)
			} else {
				require.NotNil(t, he)
				require.Equal(t, want, he.Value())
			}
		}
	}

	require.Equal(t, uint64(len(oracle)), d.Size())
	for k, v := range oracle {
		require.Equal(t, v, d.FetchValue(k))
	}
}

func TestDictDisableResizeForceRatio(t *testing.T) {
	d := NewDict(stringDictType(), nil)
	defer d.Release()

	d.DisableResize()

	// With resizing disabled the table stays at its size past a 1:1
	// load factor. The force ratio uses integer division, so the grow
	// fires once used/size exceeds it.
	keys := dictInitialSize * (dictForceResizeRatio + 1)
	for j := 0; j < keys; j++ {
		require.NoError(t, d.Add(fmt.Sprintf("k%d", j), j))
	}
	require.Equal(t, uint64(dictInitialSize), d.ht[0].size)
	require.False(t, d.IsRehashing())

	require.NoError(t, d.Add("overload", 1))
	require.True(t, d.IsRehashing())

	for d.IsRehashing() {
		d.Rehash(100)
	}
	require.Equal(t, uint64(keys+1), d.Size())
	for j := 0; j < keys; j++ {
		require.NotNil(t, d.Find(fmt.Sprintf("k%d", j)))
	}
}

func TestDictExpand(t *testing.T) {
	d := NewDict(stringDictType(), nil)
	defer d.Release()

	require.NoError(t, d.Expand(100))
	require.Equal(t, uint64(128), d.ht[0].size)
	require.False(t, d.IsRehashing(), "first allocation installs directly")

	require.NoError(t, d.Add("k", "v"))
	require.NoError(t, d.Expand(1000))
	require.True(t, d.IsRehashing())

	var resizeErr *ResizeError
	require.ErrorAs(t, d.Expand(2000), &resizeErr)
}

func TestDictResizeShrinks(t *testing.T) {
	d := NewDict(stringDictType(), nil)
	defer d.Release()

	for j := 0; j < 300; j++ {
		require.NoError(t, d.Add(fmt.Sprintf("k%d", j), j))
	}
	for d.IsRehashing() {
		d.Rehash(100)
	}
	grownSize := d.ht[0].size

	for j := 0; j < 295; j++ {
		require.True(t, d.Delete(fmt.Sprintf("k%d", j)))
	}

	require.NoError(t, d.Resize())
	for d.IsRehashing() {
		d.Rehash(100)
	}
	require.Less(t, d.ht[0].size, grownSize)
	require.Equal(t, uint64(5), d.Size())

	d.DisableResize()
	var resizeErr *ResizeError
	require.ErrorAs(t, d.Resize(), &resizeErr)
	d.EnableResize()
}

func TestDictEmpty(t *testing.T) {
	d := NewDict(stringDictType(), nil)
	defer d.Release()

	for j := 0; j < 100; j++ {
		require.NoError(t, d.Add(fmt.Sprintf("k%d", j), j))
	}

	calls := 0
	d.Empty(func(interface{}) { calls++ })
	require.Equal(t, uint64(0), d.Size())
	require.Positive(t, calls)

	// still usable
	require.NoError(t, d.Add("k", "v"))
	require.Equal(t, "v", d.FetchValue("k"))
}

func TestDictRehashForMs(t *testing.T) {
	d := NewDict(stringDictType(), nil)
	defer d.Release()

	for j := 0; j < 10_000; j++ {
		require.NoError(t, d.Add(fmt.Sprintf("k%d", j), j))
	}

	for d.IsRehashing() {
		d.RehashForMs(1)
	}
	require.Equal(t, uint64(10_000), d.Size())
	require.Equal(t, int64(-1), d.rehashidx)
}

func TestDictFindEntryByPtrAndHash(t *testing.T) {
	dt := stringDictType()
	d := NewDict(dt, nil)
	defer d.Release()

	key := "the-key"
	require.NoError(t, d.Add(key, "v"))
	hash := d.GetHash(key)

	he := d.FindEntryByPtrAndHash(key, hash)
	require.NotNil(t, he)
	require.Equal(t, "v", he.Value())

	require.Nil(t, d.FindEntryByPtrAndHash("other", d.GetHash("other")))
}

func TestDictKeyValDup(t *testing.T) {
	dt := stringDictType()
	dt.KeyDup = func(_, key interface{}) interface{} {
		return "dup:" + key.(string)
	}
	dt.ValDup = func(_, val interface{}) interface{} {
		return val.(int) * 2
	}
	dt.KeyCompare = func(_, a, b interface{}) bool {
		ka, kb := a.(string), b.(string)
		// lookups present the raw key, stored keys carry the prefix
		if len(kb) >= 4 && kb[:4] == "dup:" {
			kb = kb[4:]
		}
		if len(ka) >= 4 && ka[:4] == "dup:" {
			ka = ka[4:]
		}
		return ka == kb
	}
	dt.Hash = func(key interface{}) uint64 {
		k := key.(string)
		if len(k) >= 4 && k[:4] == "dup:" {
			k = k[4:]
		}
		return Hash(testSeed, []byte(k))
	}

	d := NewDict(dt, nil)
	defer d.Release()

	require.NoError(t, d.Add("k", 21))
	he := d.Find("k")
	require.NotNil(t, he)
	require.Equal(t, "dup:k", he.Key())
	require.Equal(t, 42, he.Value())
}

func TestDictStats(t *testing.T) {
	d := NewDict(stringDictType(), nil)
	defer d.Release()

	require.Contains(t, d.Stats(), "No stats available")

	for j := 0; j < 100; j++ {
		require.NoError(t, d.Add(fmt.Sprintf("k%d", j), j))
	}
	stats := d.Stats()
	require.Contains(t, stats, "number of elements: 100")
	require.Contains(t, stats, "Chain length distribution")
}
