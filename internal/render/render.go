package render

import "github.com/psoff-tools/p7dtrace/internal/wire"

// Render reads the argument frame described by descriptors off r and
// formats it through format, per spec: if descriptors is empty, format is
// returned unchanged (no arguments were stored for this line). It returns
// the rendered text and the number of wire bytes consumed reading the
// frame.
func Render(r *wire.Reader, format string, descriptors []ArgDescriptor) (string, int, error) {
	if len(descriptors) == 0 {
		return format, 0, nil
	}
	frame, consumed, err := ReadFrame(r, descriptors)
	if err != nil {
		return "", consumed, err
	}
	return Format(format, frame), consumed, nil
}
