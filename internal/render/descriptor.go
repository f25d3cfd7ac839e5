// Package render reconstructs a variadic call frame from a wire-formatted
// argument blob and renders it through a line's stored printf-style format
// string. It implements a printf-subset interpreter rather than handing the
// reconstructed frame to a host vprintf: the source this is ported from
// depends on a C-library implementation detail (argument vectors laid out
// as a contiguous byte blob), which a portable implementation should not
// reproduce literally.
package render

// ArgDescriptor is a single (type tag, wire size) pair stored with a line
// description, in the order arguments must be pulled off the wire for a
// Data record referencing that line.
type ArgDescriptor struct {
	Type uint8
	Size uint8
}

// Argument type tags, per the wire format's description table.
const (
	ArgInt8    uint8 = 0x01
	ArgChar16  uint8 = 0x02
	ArgInt16   uint8 = 0x03
	ArgInt32   uint8 = 0x04
	ArgInt64   uint8 = 0x05
	ArgDouble  uint8 = 0x06
	ArgPointer uint8 = 0x07
	ArgUTF16   uint8 = 0x08
	ArgASCII   uint8 = 0x09
	ArgUTF8    uint8 = 0x0A
	ArgUTF32   uint8 = 0x0B
	ArgChar32  uint8 = 0x0C
	ArgIntmax  uint8 = 0x0D
)

// ErrUnknownArgument is returned when a descriptor's type tag is outside the
// table above.
var ErrUnknownArgument = unknownArgErr{}

type unknownArgErr struct{}

func (unknownArgErr) Error() string { return "render: unknown argument descriptor tag" }
