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

import "fmt"

type Error interface {
	// returns true if the error is fatal
	IsFatal() bool
	// and anything else that is needed to be an error
	error
}

// AllocError is returned when the allocator fails to provide a buffer.
// The operation's input remains valid and unchanged.
type AllocError struct {
	size int
}

// NewAllocError constructs an AllocError
func NewAllocError(size int) *AllocError {
	return &AllocError{size: size}
}

func (e *AllocError) Error() string {
	return fmt.Sprintf("allocation of %d bytes failed", e.size)
}

// IsFatal returns true if the error is fatal
func (e *AllocError) IsFatal() bool {
	return false
}

// SeparatorError is returned when a split is attempted with an empty separator.
type SeparatorError struct{}

// NewSeparatorError constructs a SeparatorError
func NewSeparatorError() *SeparatorError {
	return &SeparatorError{}
}

func (e *SeparatorError) Error() string {
	return "separator must be at least one byte"
}

// IsFatal returns true if the error is fatal
func (e *SeparatorError) IsFatal() bool {
	return false
}

// QuoteError is returned when an argument line contains unbalanced quotes
// or a closing quote not followed by whitespace.
type QuoteError struct {
	offset int
}

// NewQuoteError constructs a QuoteError
func NewQuoteError(offset int) *QuoteError {
	return &QuoteError{offset: offset}
}

func (e *QuoteError) Error() string {
	return fmt.Sprintf("unbalanced quotes at offset %d", e.offset)
}

// IsFatal returns true if the error is fatal
func (e *QuoteError) IsFatal() bool {
	return false
}

// FormatError is returned when a restricted format directive receives an
// argument of the wrong type, or runs out of arguments.
type FormatError struct {
	directive byte
	arg       interface{}
}

// NewFormatError constructs a FormatError
func NewFormatError(directive byte, arg interface{}) *FormatError {
	return &FormatError{directive: directive, arg: arg}
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("directive %%%c cannot format argument of type %T", e.directive, e.arg)
}

// IsFatal returns true if the error is fatal
func (e *FormatError) IsFatal() bool {
	return false
}

// ResizeError is returned when a table resize cannot be performed: the
// table is mid-migration, the requested size is below the element count,
// or resizing is disabled.
type ResizeError struct {
	reason string
}

// NewResizeError constructs a ResizeError
func NewResizeError(reason string) *ResizeError {
	return &ResizeError{reason: reason}
}

func (e *ResizeError) Error() string {
	return fmt.Sprintf("resize rejected: %s", e.reason)
}

// IsFatal returns true if the error is fatal
func (e *ResizeError) IsFatal() bool {
	return false
}

// DuplicateKeyError is returned by Add when the key is already present.
type DuplicateKeyError struct {
	key interface{}
}

// NewDuplicateKeyError constructs a DuplicateKeyError
func NewDuplicateKeyError(key interface{}) *DuplicateKeyError {
	return &DuplicateKeyError{key: key}
}

func (e *DuplicateKeyError) Error() string {
	return fmt.Sprintf("key %v already present", e.key)
}

// IsFatal returns true if the error is fatal
func (e *DuplicateKeyError) IsFatal() bool {
	return false
}

// LengthDeltaError is a fatal error raised when a length adjustment does
// not fit the buffer's slack accounting. This is API misuse and aborts.
type LengthDeltaError struct {
	delta  int
	length int
	avail  int
}

// NewLengthDeltaError constructs a LengthDeltaError
func NewLengthDeltaError(delta, length, avail int) *LengthDeltaError {
	return &LengthDeltaError{delta: delta, length: length, avail: avail}
}

func (e *LengthDeltaError) Error() string {
	return fmt.Sprintf("length delta %d invalid for length %d with %d available", e.delta, e.length, e.avail)
}

// IsFatal returns true if the error is fatal
func (e *LengthDeltaError) IsFatal() bool {
	return true
}

// RehashIndexError is a fatal error raised when the migration cursor points
// past the table being drained.
type RehashIndexError struct {
	index int64
	size  uint64
}

// NewRehashIndexError constructs a RehashIndexError
func NewRehashIndexError(index int64, size uint64) *RehashIndexError {
	return &RehashIndexError{index: index, size: size}
}

func (e *RehashIndexError) Error() string {
	return fmt.Sprintf("rehash index %d out of bounds for table of size %d", e.index, e.size)
}

// IsFatal returns true if the error is fatal
func (e *RehashIndexError) IsFatal() bool {
	return true
}

// FingerprintMismatchError is a fatal error raised when a read-only iterator
// detects that the table was mutated while it was open.
type FingerprintMismatchError struct {
	got      uint64
	expected uint64
}

// NewFingerprintMismatchError constructs a FingerprintMismatchError
func NewFingerprintMismatchError(got, expected uint64) *FingerprintMismatchError {
	return &FingerprintMismatchError{got: got, expected: expected}
}

func (e *FingerprintMismatchError) Error() string {
	return fmt.Sprintf("table mutated under read-only iterator: fingerprint %x, expected %x", e.got, e.expected)
}

// IsFatal returns true if the error is fatal
func (e *FingerprintMismatchError) IsFatal() bool {
	return true
}
