package p7d

import (
	"encoding/binary"
	"errors"
	"testing"

	"github.com/psoff-tools/p7dtrace/internal/bytesource"
	"github.com/psoff-tools/p7dtrace/internal/render"
)

type recordingSink struct {
	lines []RenderedLine
}

func (s *recordingSink) OnLine(rl RenderedLine) {
	s.lines = append(s.lines, rl)
}

func packStreamInfo(size uint32, channel uint8) uint32 {
	return (size & 0x07FFFFFF) | (uint32(channel&0x1F) << 27)
}

func packStreamItem(typ, subtype uint8, size uint32) uint32 {
	return uint32(typ&0x1F) | (uint32(subtype&0x1F) << 5) | ((size & 0x3FFFFF) << 10)
}

type dumpBuilder struct {
	buf        []byte
	order      binary.ByteOrder
	bigEndian  bool
}

func newDumpBuilder(bigEndian bool) *dumpBuilder {
	order := binary.ByteOrder(binary.LittleEndian)
	magic := []byte{0xA6, 0x2C, 0xF3, 0xEC, 0x71, 0xAC, 0xD2, 0x45}
	if bigEndian {
		order = binary.BigEndian
		magic = []byte{0x45, 0xD2, 0xAC, 0x71, 0xEC, 0xF3, 0x2C, 0xA6}
	}
	b := &dumpBuilder{order: order, bigEndian: bigEndian}
	b.buf = append(b.buf, magic...)
	return b
}

func (b *dumpBuilder) u16(v uint16) { b.buf = appendUint(b.buf, b.bigEndian, uint64(v), 2) }
func (b *dumpBuilder) u32(v uint32) { b.buf = appendUint(b.buf, b.bigEndian, uint64(v), 4) }
func (b *dumpBuilder) u64(v uint64) { b.buf = appendUint(b.buf, b.bigEndian, v, 8) }
func (b *dumpBuilder) i64(v int64)  { b.u64(uint64(v)) }
func (b *dumpBuilder) u8(v uint8)   { b.buf = append(b.buf, v) }

func (b *dumpBuilder) fixedUTF16(s string, byteBudget int) {
	written := 0
	for _, r := range s {
		b.u16(uint16(r))
		written += 2
	}
	b.u16(0)
	written += 2
	for written < byteBudget {
		b.buf = append(b.buf, 0)
		written++
	}
}

func (b *dumpBuilder) zeroUTF16(s string) {
	for _, r := range s {
		b.u16(uint16(r))
	}
	b.u16(0)
}

func (b *dumpBuilder) zeroASCII(s string) {
	b.buf = append(b.buf, []byte(s)...)
	b.buf = append(b.buf, 0)
}

func (b *dumpBuilder) fixedASCII(s string, byteBudget int) {
	b.buf = append(b.buf, []byte(s)...)
	for i := len(s); i < byteBudget; i++ {
		b.buf = append(b.buf, 0)
	}
}

func appendUint(buf []byte, bigEndian bool, v uint64, width int) []byte {
	tmp := make([]byte, 8)
	binary.BigEndian.PutUint64(tmp, v)
	if bigEndian {
		return append(buf, tmp[8-width:]...)
	}
	little := make([]byte, 8)
	binary.LittleEndian.PutUint64(little, v)
	return append(buf, little[:width]...)
}

func (b *dumpBuilder) preamble(pid uint32, createTime uint64, processName, hostName string) {
	b.u32(pid)
	b.u64(createTime)
	b.fixedUTF16(processName, 0x200)
	b.fixedUTF16(hostName, 0x200)
}

// envelope appends a StreamInfo word + items, computing size automatically.
func (b *dumpBuilder) envelope(channel uint8, items [][]byte) {
	total := uint32(4)
	for _, it := range items {
		total += uint32(len(it))
	}
	b.u32(packStreamInfo(total, channel))
	for _, it := range items {
		b.buf = append(b.buf, it...)
	}
}

func (b *dumpBuilder) item(typ, subtype uint8, payload []byte) []byte {
	size := uint32(len(payload) + 4)
	head := make([]byte, 4)
	b.order.PutUint32(head, packStreamItem(typ, subtype, size))
	return append(head, payload...)
}

func TestDecodeBadMagic(t *testing.T) {
	src := bytesource.NewMemorySource([]byte{0xAA, 0xBB, 0xCC, 0xDD, 0xEE, 0xFF, 0x00, 0x11})
	dec := NewDecoder()
	err := dec.Run(src, &recordingSink{})
	if !errors.Is(err, ErrBadMagic) {
		t.Fatalf("Run() error = %v, want ErrBadMagic", err)
	}
}

func TestDecodeEmptyDump(t *testing.T) {
	b := newDumpBuilder(false)
	b.preamble(0, 0, "", "")

	src := bytesource.NewMemorySource(b.buf)
	dec := NewDecoder()
	sink := &recordingSink{}
	if err := dec.Run(src, sink); err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if len(sink.lines) != 0 {
		t.Fatalf("got %d lines, want 0", len(sink.lines))
	}
	if dec.ProcessName != "" {
		t.Fatalf("ProcessName = %q, want empty", dec.ProcessName)
	}
}

func TestDecodeModuleDescriptionDataNoArgs(t *testing.T) {
	b := newDumpBuilder(false)
	b.preamble(1, 0, "psOff_tunnel.exe", "host")

	// Module item: modId=7, verb=0, name="Kernel"
	var modPayload dumpBuilder
	modPayload.bigEndian = b.bigEndian
	modPayload.u16(7)
	modPayload.u32(0)
	modPayload.fixedASCII("Kernel", 54)
	modItem := b.item(0, subtypeModule, modPayload.buf)

	// Description item: lineId=1, fileLine=10, moduleId=7, numFmt=0,
	// formatString = "psOff.app.id = CUSA12345"
	var descPayload dumpBuilder
	descPayload.bigEndian = b.bigEndian
	descPayload.u16(1)
	descPayload.u16(10)
	descPayload.u16(7)
	descPayload.u16(0)
	descPayload.zeroUTF16("psOff.app.id = CUSA12345")
	descItem := b.item(0, subtypeDescription, descPayload.buf)

	// Data item: id=1
	var dataPayload dumpBuilder
	dataPayload.bigEndian = b.bigEndian
	dataPayload.u16(1)
	dataPayload.u8(0)
	dataPayload.u8(0)
	dataPayload.u32(0)
	dataPayload.u32(0)
	dataPayload.u64(0)
	dataItem := b.item(0, subtypeData, dataPayload.buf)

	b.envelope(3, [][]byte{modItem, descItem, dataItem})

	src := bytesource.NewMemorySource(b.buf)
	dec := NewDecoder()
	sink := &recordingSink{}
	if err := dec.Run(src, sink); err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if len(sink.lines) != 1 {
		t.Fatalf("got %d lines, want 1", len(sink.lines))
	}
	if sink.lines[0].Text != "psOff.app.id = CUSA12345" {
		t.Fatalf("Text = %q", sink.lines[0].Text)
	}
	if sink.lines[0].Channel.Module(7).Name != "Kernel" {
		t.Fatalf("module name = %q, want Kernel", sink.lines[0].Channel.Module(7).Name)
	}
}

func TestDecodeVariadicRender(t *testing.T) {
	b := newDumpBuilder(false)
	b.preamble(1, 0, "", "")

	var descPayload dumpBuilder
	descPayload.bigEndian = b.bigEndian
	descPayload.u16(5)
	descPayload.u16(1)
	descPayload.u16(0)
	descPayload.u16(2)
	descPayload.u8(render.ArgInt32)
	descPayload.u8(4)
	descPayload.u8(render.ArgASCII)
	descPayload.u8(1)
	descPayload.zeroUTF16("%d %s")
	descItem := b.item(0, subtypeDescription, descPayload.buf)

	var dataPayload dumpBuilder
	dataPayload.bigEndian = b.bigEndian
	dataPayload.u16(5)
	dataPayload.u8(0)
	dataPayload.u8(0)
	dataPayload.u32(0)
	dataPayload.u32(0)
	dataPayload.u64(0)
	dataPayload.i64(42)
	dataPayload.zeroASCII("ok")
	dataItem := b.item(0, subtypeData, dataPayload.buf)

	b.envelope(0, [][]byte{descItem, dataItem})

	src := bytesource.NewMemorySource(b.buf)
	dec := NewDecoder()
	sink := &recordingSink{}
	if err := dec.Run(src, sink); err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if len(sink.lines) != 1 || sink.lines[0].Text != "42 ok" {
		t.Fatalf("got lines=%+v", sink.lines)
	}
}

func TestDecodeEndiannessProducesIdenticalRender(t *testing.T) {
	build := func(bigEndian bool) []byte {
		b := newDumpBuilder(bigEndian)
		b.preamble(1, 0, "psOff_tunnel.exe", "host")

		var modPayload dumpBuilder
		modPayload.bigEndian = b.bigEndian
		modPayload.u16(7)
		modPayload.u32(0)
		modPayload.fixedASCII("Kernel", 54)
		modItem := b.item(0, subtypeModule, modPayload.buf)

		var descPayload dumpBuilder
		descPayload.bigEndian = b.bigEndian
		descPayload.u16(1)
		descPayload.u16(10)
		descPayload.u16(7)
		descPayload.u16(0)
		descPayload.zeroUTF16("psOff.app.id = CUSA12345")
		descItem := b.item(0, subtypeDescription, descPayload.buf)

		var dataPayload dumpBuilder
		dataPayload.bigEndian = b.bigEndian
		dataPayload.u16(1)
		dataPayload.u8(0)
		dataPayload.u8(0)
		dataPayload.u32(0)
		dataPayload.u32(0)
		dataPayload.u64(0)
		dataItem := b.item(0, subtypeData, dataPayload.buf)

		b.envelope(3, [][]byte{modItem, descItem, dataItem})
		return b.buf
	}

	leSink := &recordingSink{}
	if err := NewDecoder().Run(bytesource.NewMemorySource(build(false)), leSink); err != nil {
		t.Fatalf("LE Run() error: %v", err)
	}
	beSink := &recordingSink{}
	if err := NewDecoder().Run(bytesource.NewMemorySource(build(true)), beSink); err != nil {
		t.Fatalf("BE Run() error: %v", err)
	}

	if leSink.lines[0].Text != beSink.lines[0].Text {
		t.Fatalf("LE text %q != BE text %q", leSink.lines[0].Text, beSink.lines[0].Text)
	}
}

func TestDecodeUnknownSubtypeTolerated(t *testing.T) {
	b := newDumpBuilder(false)
	b.preamble(1, 0, "", "")

	unknownItem := b.item(0, 0x1F, []byte{0x00, 0x00, 0x00, 0x00})

	var descPayload dumpBuilder
	descPayload.bigEndian = b.bigEndian
	descPayload.u16(1)
	descPayload.u16(1)
	descPayload.u16(0)
	descPayload.u16(0)
	descPayload.zeroUTF16("hello")
	descItem := b.item(0, subtypeDescription, descPayload.buf)

	var dataPayload dumpBuilder
	dataPayload.bigEndian = b.bigEndian
	dataPayload.u16(1)
	dataPayload.u8(0)
	dataPayload.u8(0)
	dataPayload.u32(0)
	dataPayload.u32(0)
	dataPayload.u64(0)
	dataItem := b.item(0, subtypeData, dataPayload.buf)

	b.envelope(0, [][]byte{unknownItem, descItem, dataItem})

	src := bytesource.NewMemorySource(b.buf)
	dec := NewDecoder()
	sink := &recordingSink{}
	if err := dec.Run(src, sink); err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if len(sink.lines) != 1 || sink.lines[0].Text != "hello" {
		t.Fatalf("got lines=%+v", sink.lines)
	}
}

func TestDecodeZeroItemIsFatal(t *testing.T) {
	b := newDumpBuilder(false)
	b.preamble(1, 0, "", "")
	zeroItemWord := make([]byte, 4)
	b.order.PutUint32(zeroItemWord, packStreamItem(0, 0, 0))
	b.envelope(0, [][]byte{zeroItemWord})

	src := bytesource.NewMemorySource(b.buf)
	dec := NewDecoder()
	err := dec.Run(src, &recordingSink{})
	if !errors.Is(err, ErrZeroItem) {
		t.Fatalf("Run() error = %v, want ErrZeroItem", err)
	}
}

func TestDecodeUnknownLineIDIsNonFatal(t *testing.T) {
	b := newDumpBuilder(false)
	b.preamble(1, 0, "", "")

	var dataPayload dumpBuilder
	dataPayload.bigEndian = b.bigEndian
	dataPayload.u16(99) // no matching Description
	dataPayload.u8(0)
	dataPayload.u8(0)
	dataPayload.u32(0)
	dataPayload.u32(0)
	dataPayload.u64(0)
	dataItem := b.item(0, subtypeData, dataPayload.buf)

	b.envelope(0, [][]byte{dataItem})

	src := bytesource.NewMemorySource(b.buf)
	dec := NewDecoder()
	sink := &recordingSink{}
	var diagCalled bool
	dec.Diag = func(format string, args ...any) { diagCalled = true }
	if err := dec.Run(src, sink); err != nil {
		t.Fatalf("Run() error: %v", err)
	}
	if len(sink.lines) != 0 {
		t.Fatalf("got %d lines, want 0", len(sink.lines))
	}
	if !diagCalled {
		t.Fatalf("expected diagnostic to be called")
	}
}

func TestDecodeUnknownArgumentTagIsFatal(t *testing.T) {
	b := newDumpBuilder(false)
	b.preamble(1, 0, "", "")

	var descPayload dumpBuilder
	descPayload.bigEndian = b.bigEndian
	descPayload.u16(1)
	descPayload.u16(1)
	descPayload.u16(0)
	descPayload.u16(1)
	descPayload.u8(0x00) // unknown tag
	descPayload.u8(0)
	descPayload.zeroUTF16("%d")
	descItem := b.item(0, subtypeDescription, descPayload.buf)

	var dataPayload dumpBuilder
	dataPayload.bigEndian = b.bigEndian
	dataPayload.u16(1)
	dataPayload.u8(0)
	dataPayload.u8(0)
	dataPayload.u32(0)
	dataPayload.u32(0)
	dataPayload.u64(0)
	dataItem := b.item(0, subtypeData, dataPayload.buf)

	b.envelope(0, [][]byte{descItem, dataItem})

	src := bytesource.NewMemorySource(b.buf)
	dec := NewDecoder()
	err := dec.Run(src, &recordingSink{})
	if !errors.Is(err, render.ErrUnknownArgument) {
		t.Fatalf("Run() error = %v, want render.ErrUnknownArgument", err)
	}
}
