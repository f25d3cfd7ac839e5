package p7d

import (
	"fmt"
	"os"

	"github.com/psoff-tools/p7dtrace/internal/bytesource"
	"github.com/psoff-tools/p7dtrace/internal/wire"
)

// DiagFunc receives non-fatal diagnostics (unknown stream type, unknown
// trace subtype, unknown line id). The default implementation writes a
// single line to stderr, matching §4.C's "single stderr diagnostic".
type DiagFunc func(format string, args ...any)

func defaultDiag(format string, args ...any) {
	fmt.Fprintf(os.Stderr, format+"\n", args...)
}

// Decoder replays a single P7D dump end-to-end. It is strictly
// single-threaded and synchronous: the only blocking points are the byte
// source's own reads.
type Decoder struct {
	Diag DiagFunc

	// ProcessID, CreateTime, ProcessName, HostName are populated by Run
	// from the dump preamble.
	ProcessID   uint32
	CreateTime  uint64
	ProcessName string
	HostName    string

	channels map[uint8]*Channel
}

// NewDecoder constructs a Decoder ready for a single Run.
func NewDecoder() *Decoder {
	return &Decoder{channels: make(map[uint8]*Channel)}
}

func (d *Decoder) diag(format string, args ...any) {
	if d.Diag != nil {
		d.Diag(format, args...)
		return
	}
	defaultDiag(format, args...)
}

// Run decodes src end-to-end, calling sink.OnLine for every rendered trace
// line in wire order. A fatal decode error aborts the run and discards
// anything not yet delivered to sink.
func (d *Decoder) Run(src bytesource.Source, sink LineSink) error {
	endian, err := detectEndian(src)
	if err != nil {
		return err
	}
	r := wire.NewReader(src, endian)

	pre, err := readPreamble(r)
	if err != nil {
		return err
	}
	d.ProcessID = pre.ProcessID
	d.CreateTime = pre.CreateTime
	d.ProcessName = pre.ProcessName
	d.HostName = pre.HostName

	for r.Remaining() >= 4 {
		rawInfo, err := r.Uint32()
		if err != nil {
			return fmt.Errorf("p7d: reading StreamInfo: %w", err)
		}
		info := unpackStreamInfo(rawInfo)

		channel := d.channels[info.Channel]
		if channel == nil {
			channel = newChannel(info.Channel)
			d.channels[info.Channel] = channel
		}

		envelopeRemaining := int64(info.Size) - 4 // StreamInfo itself is 4 bytes
		for envelopeRemaining > 0 {
			rawItem, err := r.Uint32()
			if err != nil {
				return fmt.Errorf("p7d: reading StreamItem: %w", err)
			}
			item := unpackStreamItem(rawItem)
			if item.Size == 0 {
				return fmt.Errorf("%w", ErrZeroItem)
			}
			envelopeRemaining -= int64(item.Size)
			payloadLen := int64(item.Size) - 4

			switch item.Type {
			case 0:
				actualRead, err := d.dispatchTrace(r, channel, item.Subtype, payloadLen, sink)
				if err != nil {
					return err
				}
				if payloadLen > actualRead {
					if err := r.Skip(payloadLen - actualRead); err != nil {
						return fmt.Errorf("p7d: skipping trailing item bytes: %w", err)
					}
				}
			default:
				if err := r.Skip(payloadLen); err != nil {
					return fmt.Errorf("p7d: skipping unknown stream type payload: %w", err)
				}
				d.diag(diagUnknownStreamType, item.Type, info.Channel)
			}
		}
	}

	return nil
}
