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
	"flag"
	"math/rand"
	"testing"
	"time"
)

var (
	runes = []rune("ABCDEFGHIJKLMNOPQRSTUVWXYZabcdefghijklmnopqrstuvwxyz0123456789-_")
)

var seedFlag = flag.Int64("seed", 0, "seed for pseudo-random source")

func newRand(tb testing.TB) *rand.Rand {
	if *seedFlag == 0 {
		*seedFlag = time.Now().UnixNano()
	}

	// Benchmarks always log, so only log for tests which
	// will only log with -v flag or on error.
	if t, ok := tb.(*testing.T); ok {
		t.Logf("seed: %d\n", *seedFlag)
	}

	return rand.New(rand.NewSource(*seedFlag))
}

// randStr returns a random string of given length.
func randStr(r *rand.Rand, length int) string {
	b := make([]rune, length)
	for i := 0; i < length; i++ {
		b[i] = runes[r.Intn(len(runes))]
	}
	return string(b)
}

// randBytes returns random binary data of given length, interior zeros
// included.
func randBytes(r *rand.Rand, length int) []byte {
	b := make([]byte, length)
	r.Read(b)
	return b
}

var testSeed = NewSeed(0x0706050403020100, 0x0f0e0d0c0b0a0908)

// stringDictType hashes and compares string keys with the test seed.
func stringDictType() *DictType {
	return &DictType{
		Hash: func(key interface{}) uint64 {
			return Hash(testSeed, []byte(key.(string)))
		},
		KeyCompare: func(_, a, b interface{}) bool {
			return a.(string) == b.(string)
		},
	}
}

// failAllocator delegates to the default allocator until its budget runs
// out, then fails every allocation, for exercising failure propagation.
type failAllocator struct {
	remaining int
}

var _ Allocator = &failAllocator{}

func (fa *failAllocator) Alloc(n int) []byte {
	if fa.remaining <= 0 {
		return nil
	}
	fa.remaining--
	return DefaultAllocator.Alloc(n)
}

func (fa *failAllocator) Realloc(b []byte, n int) []byte {
	if fa.remaining <= 0 {
		return nil
	}
	fa.remaining--
	return DefaultAllocator.Realloc(b, n)
}

func (fa *failAllocator) Free(b []byte) {
	DefaultAllocator.Free(b)
}

func (fa *failAllocator) UsableSize(b []byte) int {
	return DefaultAllocator.UsableSize(b)
}
