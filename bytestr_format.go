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
	"strconv"
)

// CatPrintf appends the fmt-formatted string to s.
func (s BStr) CatPrintf(a Allocator, format string, args ...interface{}) (BStr, error) {
	return s.AppendString(a, fmt.Sprintf(format, args...))
}

// CatFmt appends a formatted string like CatPrintf, but supports only a
// restricted directive set and formats it directly into the buffer, never
// going through the general formatter:
//
//	%s - Go string or byte slice
//	%S - byte string handle
//	%i - signed 32 bit integer (int or int32)
//	%I - signed 64 bit integer (int or int64)
//	%u - unsigned 32 bit integer (uint or uint32)
//	%U - unsigned 64 bit integer (uint or uint64)
//	%% - verbatim "%"
//
// Any other directive emits its character verbatim.
func (s BStr) CatFmt(a Allocator, format string, args ...interface{}) (BStr, error) {
	h := s.hdrSize()
	i := s.Len()
	argi := 0

	next := func() (interface{}, bool) {
		if argi >= len(args) {
			return nil, false
		}
		v := args[argi]
		argi++
		return v, true
	}

	// write copies str at the current end, growing first if the slack
	// is not enough.
	write := func(str []byte) error {
		if s.Avail() < len(str) {
			var err error
			if s, err = s.MakeRoomFor(a, len(str)); err != nil {
				return err
			}
			h = s.hdrSize()
		}
		copy(s[h+i:], str)
		i += len(str)
		s.SetLen(i)
		return nil
	}

	var nbuf [20]byte
	for f := 0; f < len(format); f++ {
		// Make sure there is always space for at least 1 char.
		if s.Avail() == 0 {
			var err error
			if s, err = s.MakeRoomFor(a, 1); err != nil {
				return nil, err
			}
			h = s.hdrSize()
		}

		c := format[f]
		if c != '%' || f+1 >= len(format) {
			s[h+i] = c
			i++
			s.SetLen(i)
			continue
		}

		f++
		d := format[f]
		switch d {
		case 's', 'S':
			arg, ok := next()
			if !ok {
				return nil, NewFormatError(d, nil)
			}
			var str []byte
			switch v := arg.(type) {
			case string:
				str = []byte(v)
			case []byte:
				str = v
			case BStr:
				if d != 'S' {
					return nil, NewFormatError(d, arg)
				}
				str = v.Bytes()
			default:
				return nil, NewFormatError(d, arg)
			}
			if err := write(str); err != nil {
				return nil, err
			}
		case 'i', 'I':
			arg, ok := next()
			if !ok {
				return nil, NewFormatError(d, nil)
			}
			var num int64
			switch v := arg.(type) {
			case int:
				num = int64(v)
			case int32:
				num = int64(v)
			case int64:
				num = v
			default:
				return nil, NewFormatError(d, arg)
			}
			if err := write(strconv.AppendInt(nbuf[:0], num, 10)); err != nil {
				return nil, err
			}
		case 'u', 'U':
			arg, ok := next()
			if !ok {
				return nil, NewFormatError(d, nil)
			}
			var num uint64
			switch v := arg.(type) {
			case uint:
				num = uint64(v)
			case uint32:
				num = uint64(v)
			case uint64:
				num = v
			default:
				return nil, NewFormatError(d, arg)
			}
			if err := write(strconv.AppendUint(nbuf[:0], num, 10)); err != nil {
				return nil, err
			}
		default: // handles %% and generally %<unknown>
			s[h+i] = d
			i++
			s.SetLen(i)
		}
	}

	s[h+i] = 0
	return s, nil
}
