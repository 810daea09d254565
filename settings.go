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

var (
	// Ceiling for byte string preallocation. Below it a growing string
	// doubles its target length; above it growth adds this many bytes.
	maxPrealloc = 1024 * 1024 // 1mb
)

// SetMaxPrealloc replaces the preallocation ceiling and returns the
// previous value.
func SetMaxPrealloc(n int) int {
	old := maxPrealloc
	maxPrealloc = n
	return old
}

const (
	// Initial bucket count of a hash table; every later size is a
	// larger power of two.
	dictInitialSize = 4

	// Load factor past which a table grows even while resizing is
	// disabled.
	dictForceResizeRatio = 5
)
