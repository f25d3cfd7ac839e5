package render

import (
	"fmt"

	"github.com/psoff-tools/p7dtrace/internal/wire"
)

// Value is one slot of the reconstructed argument frame: the originating
// descriptor tag plus whichever of Int/Float/Str actually holds data. A
// string's code-unit width is resolved by ReadFrame from the descriptor
// tag when the value is read, so Format's %s prints Str as is and never
// looks at the format string's own length modifier.
type Value struct {
	Tag   uint8
	Int   int64
	Float float64
	Str   string
}

// ReadFrame reconstructs the variadic argument frame for a Data record:
// for each descriptor in order, it pulls the described value off the wire
// and appends it to the returned slice. It returns the number of bytes
// consumed from r so callers can reconcile against an item's declared
// payload length.
func ReadFrame(r *wire.Reader, descriptors []ArgDescriptor) ([]Value, int, error) {
	values := make([]Value, 0, len(descriptors))
	consumed := 0

	for _, d := range descriptors {
		switch d.Type {
		case ArgInt8, ArgChar16, ArgInt16, ArgInt32, ArgInt64, ArgPointer:
			// All numeric-integer tags occupy a full 8-byte slot on the
			// wire regardless of their nominal size — the logger always
			// stores variadic integer arguments widened to int64.
			v, err := r.Int64()
			if err != nil {
				return nil, consumed, err
			}
			consumed += 8
			values = append(values, Value{Tag: d.Type, Int: v})

		case ArgDouble:
			v, err := r.Float64()
			if err != nil {
				return nil, consumed, err
			}
			consumed += 8
			values = append(values, Value{Tag: d.Type, Float: v})

		case ArgUTF16:
			s, n, err := r.ZeroStringUTF16()
			if err != nil {
				return nil, consumed, err
			}
			consumed += n
			values = append(values, Value{Tag: d.Type, Str: s})

		case ArgASCII:
			s, n, err := r.ZeroStringASCII()
			if err != nil {
				return nil, consumed, err
			}
			consumed += n
			values = append(values, Value{Tag: d.Type, Str: s})

		case ArgUTF8:
			s, n, err := r.ZeroStringASCII() // UTF-8 code units are 8-bit; bytes pass through unchanged.
			if err != nil {
				return nil, consumed, err
			}
			consumed += n
			values = append(values, Value{Tag: d.Type, Str: s})

		case ArgUTF32:
			s, n, err := r.ZeroStringUTF32()
			if err != nil {
				return nil, consumed, err
			}
			consumed += n
			values = append(values, Value{Tag: d.Type, Str: s})

		case ArgChar32:
			// Redesigned per the governing specification: widen the 32-bit
			// code unit to a 64-bit frame slot and keep it, rather than the
			// ported codebase's historical behavior of skipping it.
			v, err := r.Uint32()
			if err != nil {
				return nil, consumed, err
			}
			consumed += 4
			values = append(values, Value{Tag: d.Type, Int: int64(v)})

		case ArgIntmax:
			v, err := r.Int64()
			if err != nil {
				return nil, consumed, err
			}
			consumed += 8
			values = append(values, Value{Tag: d.Type, Int: v})

		default:
			return nil, consumed, fmt.Errorf("%w: 0x%02x", ErrUnknownArgument, d.Type)
		}
	}

	return values, consumed, nil
}
