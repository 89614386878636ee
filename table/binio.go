package table

import (
	"encoding/binary"
	"fmt"
	"math"

	"golang.org/x/text/encoding/unicode"
)

// utf16Codec decodes/encodes StringU16/OptionalStringU16 cells, the same
// golang.org/x/text/encoding/unicode codec packlib's binio.go uses and
// helper.go's DecodeUTF16String is grounded on.
var utf16Codec = unicode.UTF16(unicode.LittleEndian, unicode.IgnoreBOM)

// cursor is this package's own checked offset-reader, the same shape
// packlib's binio.go uses for the container codec. The teacher repeats this
// "offset, bounds-check, return value+error" pattern per file
// (helper.go/richheader.go/section.go) rather than factoring one shared
// type across packages, so table keeps its own rather than reach across a
// package boundary for an unexported type.
type cursor struct {
	buf []byte
	off int
}

var errEOF = fmt.Errorf("unexpected end of table payload")
var errStringBound = fmt.Errorf("string length runs past end of table payload")

func (c *cursor) need(n int) error {
	if n < 0 || len(c.buf)-c.off < n {
		return errEOF
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
	return v != 0, err
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

func (c *cursor) i32() (int32, error) {
	v, err := c.u32()
	return int32(v), err
}

func (c *cursor) i64() (int64, error) {
	if err := c.need(8); err != nil {
		return 0, err
	}
	v := binary.LittleEndian.Uint64(c.buf[c.off:])
	c.off += 8
	return int64(v), nil
}

func (c *cursor) f32() (float32, error) {
	v, err := c.u32()
	if err != nil {
		return 0, err
	}
	return math.Float32frombits(v), nil
}

func (c *cursor) bytes(n int) ([]byte, error) {
	if err := c.need(n); err != nil {
		return nil, err
	}
	b := c.buf[c.off : c.off+n]
	c.off += n
	return b, nil
}

func (c *cursor) stringU8() (string, error) {
	n, err := c.u16()
	if err != nil {
		return "", err
	}
	b, err := c.bytes(int(n))
	if err != nil {
		return "", errStringBound
	}
	return string(b), nil
}

func (c *cursor) stringU16() (string, error) {
	n, err := c.u16()
	if err != nil {
		return "", err
	}
	raw, err := c.bytes(int(n) * 2)
	if err != nil {
		return "", errStringBound
	}
	s, err := utf16Codec.NewDecoder().Bytes(raw)
	if err != nil {
		return "", err
	}
	return string(s), nil
}

type writer struct{ buf []byte }

func (w *writer) bytes() []byte { return w.buf }

func (w *writer) putU8(v uint8) { w.buf = append(w.buf, v) }

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

func (w *writer) putI32(v int32) { w.putU32(uint32(v)) }

func (w *writer) putI64(v int64) {
	var b [8]byte
	binary.LittleEndian.PutUint64(b[:], uint64(v))
	w.buf = append(w.buf, b[:]...)
}

func (w *writer) putF32(v float32) { w.putU32(math.Float32bits(v)) }

func (w *writer) putRaw(b []byte) { w.buf = append(w.buf, b...) }

func (w *writer) putStringU8(s string) error {
	b := []byte(s)
	if len(b) > 0xFFFF {
		return errStringBound
	}
	w.putU16(uint16(len(b)))
	w.putRaw(b)
	return nil
}

func (w *writer) putStringU16(s string) error {
	raw, err := utf16Codec.NewEncoder().Bytes([]byte(s))
	if err != nil {
		return err
	}
	if len(raw)%2 != 0 || len(raw)/2 > 0xFFFF {
		return errStringBound
	}
	w.putU16(uint16(len(raw) / 2))
	w.putRaw(raw)
	return nil
}
