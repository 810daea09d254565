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

import "bytes"

// SplitLen splits s at every exact occurrence of sep and returns the
// tokens as fresh byte strings. Zero-length input yields an empty,
// non-nil result. The separator may span multiple bytes and the input may
// contain any byte values.
func SplitLen(a Allocator, s, sep []byte) ([]BStr, error) {
	if len(sep) < 1 {
		return nil, NewSeparatorError()
	}

	tokens := make([]BStr, 0, 5)
	if len(s) == 0 {
		return tokens, nil
	}

	start := 0
	for j := 0; j <= len(s)-len(sep); j++ {
		if (len(sep) == 1 && s[j] == sep[0]) || bytes.Equal(s[j:j+len(sep)], sep) {
			tok, err := NewBStrLen(a, s[start:j])
			if err != nil {
				FreeSplitRes(a, tokens)
				return nil, err
			}
			tokens = append(tokens, tok)
			start = j + len(sep)
			j += len(sep) - 1 // skip the separator
		}
	}
	// Add the final element.
	tok, err := NewBStrLen(a, s[start:])
	if err != nil {
		FreeSplitRes(a, tokens)
		return nil, err
	}
	return append(tokens, tok), nil
}

// FreeSplitRes releases every token returned by SplitLen or SplitArgs.
// A nil slice is a no-op.
func FreeSplitRes(a Allocator, tokens []BStr) {
	for _, t := range tokens {
		t.Free(a)
	}
}

// Join concatenates Go strings with sep between them.
func Join(a Allocator, argv []string, sep string) (BStr, error) {
	join, err := NewEmptyBStr(a)
	if err != nil {
		return nil, err
	}
	for j, arg := range argv {
		if join, err = join.AppendString(a, arg); err != nil {
			return nil, err
		}
		if j != len(argv)-1 {
			if join, err = join.AppendString(a, sep); err != nil {
				return nil, err
			}
		}
	}
	return join, nil
}

// JoinBStr concatenates byte strings with sep between them. Unlike Join
// it is binary safe on both the elements and the separator.
func JoinBStr(a Allocator, argv []BStr, sep []byte) (BStr, error) {
	join, err := NewEmptyBStr(a)
	if err != nil {
		return nil, err
	}
	for j, arg := range argv {
		if join, err = join.AppendBStr(a, arg); err != nil {
			return nil, err
		}
		if j != len(argv)-1 {
			if join, err = join.Append(a, sep); err != nil {
				return nil, err
			}
		}
	}
	return join, nil
}

func isSpaceByte(c byte) bool {
	switch c {
	case ' ', '\t', '\n', '\r', '\v', '\f':
		return true
	}
	return false
}

func isHexDigit(c byte) bool {
	return (c >= '0' && c <= '9') || (c >= 'a' && c <= 'f') ||
		(c >= 'A' && c <= 'F')
}

func hexDigitToInt(c byte) int {
	switch {
	case c >= '0' && c <= '9':
		return int(c - '0')
	case c >= 'a' && c <= 'f':
		return int(c-'a') + 10
	case c >= 'A' && c <= 'F':
		return int(c-'A') + 10
	}
	return 0
}

// SplitArgs splits a command line into arguments, where every argument
// can take a REPL-alike form:
//
//	foo bar "newlines are supported\n" and "\xff\x00otherstuff"
//
// Double-quoted arguments honor \n \r \t \a \b and \xHH escapes;
// single-quoted arguments are literal except for \'. A closing quote must
// be followed by whitespace or the end of the line. Unbalanced quotes
// yield a QuoteError. CatRepr produces strings this parser reads back.
func SplitArgs(a Allocator, line string) ([]BStr, error) {
	argv := []BStr{}
	p := 0

	for {
		// skip blanks
		for p < len(line) && isSpaceByte(line[p]) {
			p++
		}
		if p >= len(line) {
			return argv, nil
		}

		inq := false  // within "quotes"
		insq := false // within 'single quotes'
		done := false

		current, err := NewEmptyBStr(a)
		if err != nil {
			FreeSplitRes(a, argv)
			return nil, err
		}
		fail := func(err error) ([]BStr, error) {
			current.Free(a)
			FreeSplitRes(a, argv)
			return nil, err
		}

		for !done {
			if p >= len(line) {
				if inq || insq {
					// unterminated quotes
					return fail(NewQuoteError(p))
				}
				break
			}
			c := line[p]
			switch {
			case inq:
				switch {
				case c == '\\' && p+3 < len(line) && line[p+1] == 'x' &&
					isHexDigit(line[p+2]) && isHexDigit(line[p+3]):
					b := byte(hexDigitToInt(line[p+2])*16 + hexDigitToInt(line[p+3]))
					if current, err = current.Append(a, []byte{b}); err != nil {
						return fail(err)
					}
					p += 3
				case c == '\\' && p+1 < len(line):
					p++
					var e byte
					switch line[p] {
					case 'n':
						e = '\n'
					case 'r':
						e = '\r'
					case 't':
						e = '\t'
					case 'b':
						e = '\b'
					case 'a':
						e = '\a'
					default:
						e = line[p]
					}
					if current, err = current.Append(a, []byte{e}); err != nil {
						return fail(err)
					}
				case c == '"':
					// closing quote must be followed by a space or
					// nothing at all
					if p+1 < len(line) && !isSpaceByte(line[p+1]) {
						return fail(NewQuoteError(p))
					}
					done = true
				default:
					if current, err = current.Append(a, []byte{c}); err != nil {
						return fail(err)
					}
				}
			case insq:
				switch {
				case c == '\\' && p+1 < len(line) && line[p+1] == '\'':
					p++
					if current, err = current.Append(a, []byte{'\''}); err != nil {
						return fail(err)
					}
				case c == '\'':
					if p+1 < len(line) && !isSpaceByte(line[p+1]) {
						return fail(NewQuoteError(p))
					}
					done = true
				default:
					if current, err = current.Append(a, []byte{c}); err != nil {
						return fail(err)
					}
				}
			default:
				switch c {
				case ' ', '\n', '\r', '\t':
					done = true
				case '"':
					inq = true
				case '\'':
					insq = true
				default:
					if current, err = current.Append(a, []byte{c}); err != nil {
						return fail(err)
					}
				}
			}
			p++
		}
		argv = append(argv, current)
	}
}

const reprHex = "0123456789abcdef"

// CatRepr appends a quoted, escaped representation of p that SplitArgs
// can parse back.
func (s BStr) CatRepr(a Allocator, p []byte) (BStr, error) {
	repr := make([]byte, 0, len(p)+2)
	repr = append(repr, '"')
	for _, c := range p {
		switch c {
		case '\\', '"':
			repr = append(repr, '\\', c)
		case '\n':
			repr = append(repr, '\\', 'n')
		case '\r':
			repr = append(repr, '\\', 'r')
		case '\t':
			repr = append(repr, '\\', 't')
		case '\a':
			repr = append(repr, '\\', 'a')
		case '\b':
			repr = append(repr, '\\', 'b')
		default:
			if c >= 0x20 && c <= 0x7e {
				repr = append(repr, c)
			} else {
				repr = append(repr, '\\', 'x', reprHex[c>>4], reprHex[c&0xf])
			}
		}
	}
	repr = append(repr, '"')
	return s.Append(a, repr)
}
