// Copyright 2026 The packlib Authors. All rights reserved.
// Use of this source code is governed by Apache v2 license
// license that can be found in the LICENSE file.

package packlib

import (
	"encoding/binary"
	"math"

	"golang.org/x/text/encoding/unicode"
)

// utf16Codec decodes/encodes the UTF-16LE strings the formats embed (table
// cells of type StringU16/OptionalStringU16; index paths are zero-terminated
// UTF-8 and do not go through it). Grounded
// on helper.go's DecodeUTF16String, which runs the same
// unicode.UTF16(LittleEndian, ...).NewDecoder().Bytes() call.
var utf16Codec = unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM)

// cursor is the checked offset-tracking reader every binary decoder in this
// module embeds, the same "offset, bounds-check, return value+error" shape
// the teacher repeats across helper.go/richheader.go/section.go.
type cursor struct {
	buf []byte
	off int
}

func newCursor(buf []byte) *cursor { return &cursor{buf: buf} }

func (c *cursor) remaining() int { return len(c.buf) - c.off }

func (c *cursor) need(n int) error {
	if n < 0 || c.remaining() < n {
		return wrap(KindFormat, "cursor.need", ErrUnexpectedEOF)
	}
	return nil
}

func (c *cursor) u8() (uint8, error) {
	if err := c.need(1); err != nil {
		return 0, err
	}
	v := c.buf[c.off]
	c.off++
	return v, nil
}

func (c *cursor) bool() (bool, error) {
	v, err := c.u8()
	if err != nil {
		return false, err
	}
	return v != 0, nil
}

func (c *cursor) u16() (uint16, error) {
	if err := c.need(2); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint16(c.buf[c.off:])
	c.off += 2
	return v, nil
}

func (c *cursor) u32() (uint32, error) {
	if err := c.need(4); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint32(c.buf[c.off:])
	c.off += 4
	return v, nil
}

func (c *cursor) u64() (uint64, error) {
	if err := c.need(8); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint64(c.buf[c.off:])
	c.off += 8
	return v, nil
}

func (c *cursor) i32() (int32, error) {
	v, err := c.u32()
	return int32(v), err
}

func (c *cursor) i64() (int64, error) {
	v, err := c.u64()
	return int64(v), err
}

func (c *cursor) f32() (float32, error) {
	v, err := c.u32()
	if err != nil {
		return 0, err
	}
	return math.Float32frombits(v), nil
}

// bytes returns a slice view (not a copy) of the next n bytes.
func (c *cursor) bytes(n int) ([]byte, error) {
	if err := c.need(n); err != nil {
		return nil, err
	}
	b := c.buf[c.off : c.off+n]
	c.off += n
	return b, nil
}

// stringU8 reads a u16-length-prefixed UTF-8 string.
func (c *cursor) stringU8() (string, error) {
	n, err := c.u16()
	if err != nil {
		return "", err
	}
	b, err := c.bytes(int(n))
	if err != nil {
		return "", wrap(KindFormat, "cursor.stringU8", ErrStringOutOfBound)
	}
	return string(b), nil
}

// stringU16 reads a u16-code-unit-length-prefixed UTF-16LE string, decoding
// it through golang.org/x/text/encoding/unicode the same way
// helper.go's DecodeUTF16String decodes PE version-resource strings.
func (c *cursor) stringU16() (string, error) {
	n, err := c.u16()
	if err != nil {
		return "", err
	}
	raw, err := c.bytes(int(n) * 2)
	if err != nil {
		return "", wrap(KindFormat, "cursor.stringU16", ErrStringOutOfBound)
	}
	s, err := utf16Codec.NewDecoder().Bytes(raw)
	if err != nil {
		return "", wrap(KindFormat, "cursor.stringU16", err)
	}
	return string(s), nil
}

// cstring reads a zero-terminated UTF-8 string, advancing the cursor to just
// past the NUL terminator.
func (c *cursor) cstring() (string, error) {
	start := c.off
	for c.off < len(c.buf) {
		if c.buf[c.off] == 0 {
			s := string(c.buf[start:c.off])
			c.off++
			return s, nil
		}
		c.off++
	}
	return "", wrap(KindFormat, "cursor.cstring", ErrUnexpectedEOF)
}

// writer accumulates encoded bytes the way the codecs in this package emit
// them: append-only, never seeking backwards.
type writer struct {
	buf []byte
}

func newWriter() *writer { return &writer{} }

func (w *writer) bytes() []byte { return w.buf }

func (w *writer) putU8(v uint8)   { w.buf = append(w.buf, v) }
func (w *writer) putBool(v bool) {
	if v {
		w.putU8(1)
	} else {
		w.putU8(0)
	}
}

func (w *writer) putU16(v uint16) {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], v)
	w.buf = append(w.buf, b[:]...)
}

func (w *writer) putU32(v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	w.buf = append(w.buf, b[:]...)
}

func (w *writer) putU64(v uint64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], v)
	w.buf = append(w.buf, b[:]...)
}

func (w *writer) putI32(v int32) { w.putU32(uint32(v)) }
func (w *writer) putI64(v int64) { w.putU64(uint64(v)) }
func (w *writer) putF32(v float32) { w.putU32(math.Float32bits(v)) }

func (w *writer) putRaw(b []byte) { w.buf = append(w.buf, b...) }

// putStringU8 writes a u16-length-prefixed UTF-8 string. Returns an error if
// the byte length overflows a u16.
func (w *writer) putStringU8(s string) error {
	b := []byte(s)
	if len(b) > 0xFFFF {
		return wrap(KindFormat, "writer.putStringU8", ErrStringOutOfBound)
	}
	w.putU16(uint16(len(b)))
	w.putRaw(b)
	return nil
}

// putStringU16 writes a u16-code-unit-length-prefixed UTF-16LE string,
// encoding it through the same golang.org/x/text/encoding/unicode codec
// stringU16 decodes with.
func (w *writer) putStringU16(s string) error {
	raw, err := utf16Codec.NewEncoder().Bytes([]byte(s))
	if err != nil {
		return wrap(KindFormat, "writer.putStringU16", err)
	}
	if len(raw)%2 != 0 || len(raw)/2 > 0xFFFF {
		return wrap(KindFormat, "writer.putStringU16", ErrStringOutOfBound)
	}
	w.putU16(uint16(len(raw) / 2))
	w.putRaw(raw)
	return nil
}

// putCString writes a zero-terminated UTF-8 string.
func (w *writer) putCString(s string) {
	w.putRaw([]byte(s))
	w.putU8(0)
}
