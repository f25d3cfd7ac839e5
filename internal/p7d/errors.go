package p7d

import (
	"errors"

	"github.com/psoff-tools/p7dtrace/internal/render"
)

// Fatal error sentinels. All are returned wrapped with context via fmt.Errorf
// and propagate to the caller of Decoder.Run as a single decode failure.
var (
	ErrBadMagic        = errors.New("p7d: unrecognized header magic")
	ErrZeroItem        = errors.New("p7d: stream item has zero size")
	ErrCorrupted       = errors.New("p7d: description declares more bytes than the item payload")
	ErrUnknownArgument = render.ErrUnknownArgument
)

// Non-fatal conditions: the framer logs a diagnostic and keeps decoding.
const (
	diagUnknownStreamType  = "p7d: unknown stream type %d ignored (channel %d)"
	diagUnknownTraceSubtype = "p7d: unknown trace subtype %d ignored (channel %d)"
	diagUnknownLineID      = "p7d: data item references unregistered line id %d (channel %d)"
)
