package p7d

import (
	"fmt"

	"github.com/psoff-tools/p7dtrace/internal/bytesource"
	"github.com/psoff-tools/p7dtrace/internal/wire"
)

var (
	magicLE = [8]byte{0xA6, 0x2C, 0xF3, 0xEC, 0x71, 0xAC, 0xD2, 0x45}
	magicBE = [8]byte{0x45, 0xD2, 0xAC, 0x71, 0xEC, 0xF3, 0x2C, 0xA6}
)

// detectEndian reads the 8-byte header and returns the wire endianness it
// selects, or ErrBadMagic if the bytes match neither canonical sequence.
func detectEndian(src bytesource.Source) (wire.Endian, error) {
	var buf [8]byte
	if err := src.Read(buf[:]); err != nil {
		return 0, fmt.Errorf("p7d: reading header: %w", err)
	}
	switch buf {
	case magicLE:
		return wire.Little, nil
	case magicBE:
		return wire.Big, nil
	default:
		return 0, fmt.Errorf("%w: %x", ErrBadMagic, buf)
	}
}

// preamble is the dump-level data immediately following the header.
type preamble struct {
	ProcessID   uint32
	CreateTime  uint64
	ProcessName string
	HostName    string
}

func readPreamble(r *wire.Reader) (preamble, error) {
	var p preamble
	var err error

	if p.ProcessID, err = r.Uint32(); err != nil {
		return p, fmt.Errorf("p7d: reading processId: %w", err)
	}
	if p.CreateTime, err = r.Uint64(); err != nil {
		return p, fmt.Errorf("p7d: reading createTime: %w", err)
	}
	if p.ProcessName, err = r.FixedStringUTF16(0x200); err != nil {
		return p, fmt.Errorf("p7d: reading processName: %w", err)
	}
	if p.HostName, err = r.FixedStringUTF16(0x200); err != nil {
		return p, fmt.Errorf("p7d: reading hostName: %w", err)
	}
	return p, nil
}

// packedStreamInfo unpacks the 32-bit StreamInfo envelope word: size:27
// (low bits) then channel:5 (high bits) — the wire format is a bitfield
// concern, not a language feature, so we unpack explicitly from a plain
// uint32 rather than relying on struct layout.
type packedStreamInfo struct {
	Size    uint32
	Channel uint8
}

func unpackStreamInfo(raw uint32) packedStreamInfo {
	return packedStreamInfo{
		Size:    raw & 0x07FFFFFF,
		Channel: uint8((raw >> 27) & 0x1F),
	}
}

// packedStreamItem unpacks the 32-bit StreamItem header word: type:5,
// subtype:5, size:22, in ascending bit order.
type packedStreamItem struct {
	Type    uint8
	Subtype uint8
	Size    uint32
}

func unpackStreamItem(raw uint32) packedStreamItem {
	return packedStreamItem{
		Type:    uint8(raw & 0x1F),
		Subtype: uint8((raw >> 5) & 0x1F),
		Size:    (raw >> 10) & 0x3FFFFF,
	}
}
