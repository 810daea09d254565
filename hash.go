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
	"github.com/dchest/siphash"
	"github.com/zeebo/blake3"
	"lukechampine.com/uint128"
)

// Seed is the 128-bit key for the table hash functions. The host
// initializes one seed before creating tables; interoperating stores must
// share it, since the hash outputs are part of the table's identity.
type Seed struct {
	v uint128.Uint128
}

// NewSeed builds a seed from its two 64-bit halves.
func NewSeed(k0, k1 uint64) Seed {
	return Seed{v: uint128.New(k0, k1)}
}

// SeedFromBytes builds a seed from a 16-byte little-endian vector, the
// form hosts usually read from their entropy source.
func SeedFromBytes(b [16]byte) Seed {
	return Seed{v: uint128.FromBytes(b[:])}
}

// K0 returns the low 64 bits of the seed.
func (s Seed) K0() uint64 {
	return s.v.Lo
}

// K1 returns the high 64 bits of the seed.
func (s Seed) K1() uint64 {
	return s.v.Hi
}

// Bytes returns the seed as the 16-byte little-endian vector accepted by
// SeedFromBytes.
func (s Seed) Bytes() [16]byte {
	var b [16]byte
	s.v.PutBytes(b[:])
	return b
}

// DeriveSeed derives a sub-seed from master material and a context string,
// so a host can give each store its own seed without managing extra
// entropy. Same inputs, same seed.
func DeriveSeed(material []byte, context string) Seed {
	var b [16]byte
	blake3.DeriveKey(context, material, b[:])
	return SeedFromBytes(b)
}

// Hash is SipHash-2-4 of data keyed by the seed.
func Hash(seed Seed, data []byte) uint64 {
	return siphash.Hash(seed.K0(), seed.K1(), data)
}

// HashNoCase is Hash over the input with ASCII uppercase folded to
// lowercase, so keys differing only in case collide deliberately.
func HashNoCase(seed Seed, data []byte) uint64 {
	h := siphash.New(tobytes(seed))
	var buf [64]byte
	for len(data) > 0 {
		n := copy(buf[:], data)
		for i := 0; i < n; i++ {
			c := buf[i]
			if c >= 'A' && c <= 'Z' {
				buf[i] = c + ('a' - 'A')
			}
		}
		_, _ = h.Write(buf[:n])
		data = data[n:]
	}
	return h.Sum64()
}

func tobytes(seed Seed) []byte {
	b := seed.Bytes()
	return b[:]
}
