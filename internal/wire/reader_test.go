package wire

import (
	"testing"

	"github.com/psoff-tools/p7dtrace/internal/bytesource"
)

func TestUint32Endianness(t *testing.T) {
	le := NewReader(bytesource.NewMemorySource([]byte{0x01, 0x00, 0x00, 0x00}), Little)
	v, err := le.Uint32()
	if err != nil {
		t.Fatalf("Uint32() error: %v", err)
	}
	if v != 1 {
		t.Fatalf("Uint32() little-endian = %d, want 1", v)
	}

	be := NewReader(bytesource.NewMemorySource([]byte{0x00, 0x00, 0x00, 0x01}), Big)
	v, err = be.Uint32()
	if err != nil {
		t.Fatalf("Uint32() error: %v", err)
	}
	if v != 1 {
		t.Fatalf("Uint32() big-endian = %d, want 1", v)
	}
}

func TestZeroStringUTF16(t *testing.T) {
	// "hi" in UTF-16LE, NUL-terminated.
	data := []byte{'h', 0, 'i', 0, 0, 0}
	r := NewReader(bytesource.NewMemorySource(data), Little)
	s, consumed, err := r.ZeroStringUTF16()
	if err != nil {
		t.Fatalf("ZeroStringUTF16() error: %v", err)
	}
	if s != "hi" {
		t.Fatalf("ZeroStringUTF16() = %q, want %q", s, "hi")
	}
	if consumed != 6 {
		t.Fatalf("consumed = %d, want 6", consumed)
	}
}

func TestFixedStringUTF16StopsAtNulAndSkipsRest(t *testing.T) {
	// "ab" + NUL, padded to a 10-byte budget with garbage.
	data := []byte{'a', 0, 'b', 0, 0, 0, 0xff, 0xff, 0xff, 0xff}
	r := NewReader(bytesource.NewMemorySource(data), Little)
	s, err := r.FixedStringUTF16(10)
	if err != nil {
		t.Fatalf("FixedStringUTF16() error: %v", err)
	}
	if s != "ab" {
		t.Fatalf("FixedStringUTF16() = %q, want %q", s, "ab")
	}
	if r.Remaining() != 0 {
		t.Fatalf("Remaining() = %d, want 0 (budget fully consumed/skipped)", r.Remaining())
	}
}

func TestFixedStringASCIINoTerminator(t *testing.T) {
	data := []byte{'a', 'b', 'c'}
	r := NewReader(bytesource.NewMemorySource(data), Little)
	s, err := r.FixedStringASCII(3)
	if err != nil {
		t.Fatalf("FixedStringASCII() error: %v", err)
	}
	if s != "abc" {
		t.Fatalf("FixedStringASCII() = %q, want %q", s, "abc")
	}
}
