// Package wire implements typed reads on top of a bytesource.Source,
// applying the endianness negotiated from the dump header. It also supplies
// the zero-terminated and fixed-length string readers the packet framer
// needs for the 8/16/32-bit code unit widths the format uses.
package wire

import (
	"encoding/binary"
	"fmt"
	"math"

	"github.com/psoff-tools/p7dtrace/internal/bytesource"
)

// Endian selects the byte order multi-byte wire fields are encoded in.
type Endian int

const (
	Little Endian = iota
	Big
)

func (e Endian) order() binary.ByteOrder {
	if e == Big {
		return binary.BigEndian
	}
	return binary.LittleEndian
}

// Reader wraps a byte source and the endianness fixed for the lifetime of a
// decode run.
type Reader struct {
	src    bytesource.Source
	endian Endian
}

// NewReader builds a Reader over src using the given wire endianness.
func NewReader(src bytesource.Source, endian Endian) *Reader {
	return &Reader{src: src, endian: endian}
}

// Remaining reports bytes left in the underlying source.
func (r *Reader) Remaining() int64 { return r.src.Remaining() }

// Skip advances n bytes in the underlying source.
func (r *Reader) Skip(n int64) error { return r.src.Skip(n) }

func (r *Reader) Uint8() (uint8, error) {
	var buf [1]byte
	if err := r.src.Read(buf[:]); err != nil {
		return 0, err
	}
	return buf[0], nil
}

func (r *Reader) Int8() (int8, error) {
	v, err := r.Uint8()
	return int8(v), err
}

func (r *Reader) Uint16() (uint16, error) {
	var buf [2]byte
	if err := r.src.Read(buf[:]); err != nil {
		return 0, err
	}
	return r.endian.order().Uint16(buf[:]), nil
}

func (r *Reader) Int16() (int16, error) {
	v, err := r.Uint16()
	return int16(v), err
}

func (r *Reader) Uint32() (uint32, error) {
	var buf [4]byte
	if err := r.src.Read(buf[:]); err != nil {
		return 0, err
	}
	return r.endian.order().Uint32(buf[:]), nil
}

func (r *Reader) Int32() (int32, error) {
	v, err := r.Uint32()
	return int32(v), err
}

func (r *Reader) Uint64() (uint64, error) {
	var buf [8]byte
	if err := r.src.Read(buf[:]); err != nil {
		return 0, err
	}
	return r.endian.order().Uint64(buf[:]), nil
}

func (r *Reader) Int64() (int64, error) {
	v, err := r.Uint64()
	return int64(v), err
}

func (r *Reader) Float64() (float64, error) {
	v, err := r.Uint64()
	if err != nil {
		return 0, err
	}
	return math.Float64frombits(v), nil
}

// ZeroStringASCII reads 8-bit code units until a NUL, reporting the number
// of bytes actually consumed (including the terminator).
func (r *Reader) ZeroStringASCII() (string, int, error) {
	var out []byte
	consumed := 0
	for r.src.Remaining() > 0 {
		b, err := r.Uint8()
		if err != nil {
			return "", consumed, err
		}
		consumed++
		if b == 0 {
			return string(out), consumed, nil
		}
		out = append(out, b)
	}
	return string(out), consumed, fmt.Errorf("wire: zero string ran off end of source")
}

// ZeroStringUTF16 reads 16-bit code units until a NUL code unit.
func (r *Reader) ZeroStringUTF16() (string, int, error) {
	var units []uint16
	consumed := 0
	for r.src.Remaining() > 0 {
		u, err := r.Uint16()
		if err != nil {
			return "", consumed, err
		}
		consumed += 2
		if u == 0 {
			return utf16ToString(units), consumed, nil
		}
		units = append(units, u)
	}
	return utf16ToString(units), consumed, fmt.Errorf("wire: zero string ran off end of source")
}

// ZeroStringUTF32 reads 32-bit code units until a NUL code unit.
func (r *Reader) ZeroStringUTF32() (string, int, error) {
	var runes []rune
	consumed := 0
	for r.src.Remaining() > 0 {
		u, err := r.Uint32()
		if err != nil {
			return "", consumed, err
		}
		consumed += 4
		if u == 0 {
			return string(runes), consumed, nil
		}
		runes = append(runes, rune(u))
	}
	return string(runes), consumed, fmt.Errorf("wire: zero string ran off end of source")
}

// FixedStringASCII reads 8-bit code units until either a NUL or byteBudget
// is exhausted; any bytes remaining in the budget after a NUL are skipped.
func (r *Reader) FixedStringASCII(byteBudget int) (string, error) {
	var out []byte
	remaining := byteBudget
	for remaining > 0 {
		b, err := r.Uint8()
		if err != nil {
			return "", err
		}
		remaining--
		if b == 0 {
			break
		}
		out = append(out, b)
	}
	if remaining > 0 {
		if err := r.src.Skip(int64(remaining)); err != nil {
			return "", err
		}
	}
	return string(out), nil
}

// FixedStringUTF16 reads 16-bit code units until either a NUL or byteBudget
// is exhausted; any bytes remaining in the budget after a NUL are skipped.
func (r *Reader) FixedStringUTF16(byteBudget int) (string, error) {
	var units []uint16
	remaining := byteBudget
	for remaining >= 2 {
		u, err := r.Uint16()
		if err != nil {
			return "", err
		}
		remaining -= 2
		if u == 0 {
			break
		}
		units = append(units, u)
	}
	if remaining > 0 {
		if err := r.src.Skip(int64(remaining)); err != nil {
			return "", err
		}
	}
	return utf16ToString(units), nil
}

// utf16ToString decodes UTF-16 code units (no surrogate-pair handling beyond
// what unicode/utf16 provides) into a Go string.
func utf16ToString(units []uint16) string {
	return string(decodeUTF16(units))
}
