package p7d

import (
	"fmt"

	"github.com/psoff-tools/p7dtrace/internal/render"
	"github.com/psoff-tools/p7dtrace/internal/wire"
)

const (
	subtypeStreamInfo   = 0x00
	subtypeDescription  = 0x01
	subtypeData         = 0x02
	subtypeVerb         = 0x03
	subtypeClose        = 0x04
	subtypeModule       = 0x07
	subtypeUTCOffset    = 0x09
)

// dispatchTrace handles a single trace-stream (type==0) item and returns
// the number of payload bytes it actually consumed, so the caller can skip
// any trailing bytes the subtype didn't read.
func (d *Decoder) dispatchTrace(r *wire.Reader, channel *Channel, subtype uint8, payloadLen int64, sink LineSink) (int64, error) {
	switch subtype {
	case subtypeStreamInfo:
		return readStreamInfoRecord(r, channel)

	case subtypeDescription:
		return readDescription(r, channel, payloadLen)

	case subtypeData:
		return d.readData(r, channel, payloadLen, sink)

	case subtypeModule:
		return readModule(r, channel)

	case subtypeVerb, subtypeClose, subtypeUTCOffset:
		return 0, nil

	default:
		d.diag(diagUnknownTraceSubtype, subtype, channel.ID)
		return 0, nil
	}
}

func readStreamInfoRecord(r *wire.Reader, channel *Channel) (int64, error) {
	var cread int64
	var rec StreamInfoRecord
	var err error

	if rec.Time, err = r.Uint64(); err != nil {
		return cread, fmt.Errorf("p7d: StreamInfo.time: %w", err)
	}
	cread += 8
	if rec.Timer, err = r.Uint64(); err != nil {
		return cread, fmt.Errorf("p7d: StreamInfo.timer: %w", err)
	}
	cread += 8
	if rec.TimerFreq, err = r.Uint64(); err != nil {
		return cread, fmt.Errorf("p7d: StreamInfo.timer_freq: %w", err)
	}
	cread += 8
	if rec.Flags, err = r.Uint64(); err != nil {
		return cread, fmt.Errorf("p7d: StreamInfo.flags: %w", err)
	}
	cread += 8
	if rec.Name, err = r.FixedStringUTF16(0x80); err != nil {
		return cread, fmt.Errorf("p7d: StreamInfo.name: %w", err)
	}
	cread += 0x80

	channel.Info = rec
	return cread, nil
}

func readDescription(r *wire.Reader, channel *Channel, payloadLen int64) (int64, error) {
	var cread int64
	var lineID, numFmt uint16
	var line Line
	var err error

	if lineID, err = r.Uint16(); err != nil {
		return cread, fmt.Errorf("p7d: Description.lineId: %w", err)
	}
	cread += 2
	if line.FileLine, err = r.Uint16(); err != nil {
		return cread, fmt.Errorf("p7d: Description.fileLine: %w", err)
	}
	cread += 2
	if line.ModuleID, err = r.Uint16(); err != nil {
		return cread, fmt.Errorf("p7d: Description.moduleId: %w", err)
	}
	cread += 2
	if numFmt, err = r.Uint16(); err != nil {
		return cread, fmt.Errorf("p7d: Description.numFmt: %w", err)
	}
	cread += 2

	if payloadLen > cread {
		if numFmt > 0 {
			argBytes := int64(numFmt) * 2 // (type:u8, size:u8) per descriptor
			if payloadLen < cread+argBytes {
				return cread, fmt.Errorf("%w: descriptors need %d bytes, payload has %d left", ErrCorrupted, argBytes, payloadLen-cread)
			}
			line.Args = make([]render.ArgDescriptor, 0, numFmt)
			for i := uint16(0); i < numFmt; i++ {
				t, err := r.Uint8()
				if err != nil {
					return cread, fmt.Errorf("p7d: Description argType[%d]: %w", i, err)
				}
				sz, err := r.Uint8()
				if err != nil {
					return cread, fmt.Errorf("p7d: Description argSize[%d]: %w", i, err)
				}
				line.Args = append(line.Args, render.ArgDescriptor{Type: t, Size: sz})
			}
			cread += argBytes
		}

		if cread < payloadLen {
			s, n, err := r.ZeroStringUTF16()
			if err != nil {
				return cread, fmt.Errorf("p7d: Description.formatString: %w", err)
			}
			line.Format = s
			if cread+int64(n) > payloadLen {
				return cread, fmt.Errorf("%w: format string overruns item payload", ErrCorrupted)
			}
			cread += int64(n)
		}

		if cread < payloadLen {
			s, n, err := r.ZeroStringASCII()
			if err != nil {
				return cread, fmt.Errorf("p7d: Description.fileName: %w", err)
			}
			line.FileName = s
			if cread+int64(n) > payloadLen {
				return cread, fmt.Errorf("%w: file name overruns item payload", ErrCorrupted)
			}
			cread += int64(n)
		}

		if cread < payloadLen {
			s, n, err := r.ZeroStringASCII()
			if err != nil {
				return cread, fmt.Errorf("p7d: Description.funcName: %w", err)
			}
			line.FuncName = s
			if cread+int64(n) > payloadLen {
				return cread, fmt.Errorf("%w: func name overruns item payload", ErrCorrupted)
			}
			cread += int64(n)
		}
	}

	channel.Lines[lineID] = line
	return cread, nil
}

func readModule(r *wire.Reader, channel *Channel) (int64, error) {
	var cread int64
	var modID int16
	var mod Module
	var err error

	rawID, err := r.Uint16()
	if err != nil {
		return cread, fmt.Errorf("p7d: Module.id: %w", err)
	}
	modID = int16(rawID)
	cread += 2

	if mod.VerbLevel, err = r.Uint32(); err != nil {
		return cread, fmt.Errorf("p7d: Module.verbLevel: %w", err)
	}
	cread += 4

	if mod.Name, err = r.FixedStringASCII(54); err != nil {
		return cread, fmt.Errorf("p7d: Module.name: %w", err)
	}
	cread += 54

	channel.Modules[uint16(modID)] = mod
	return cread, nil
}

func (d *Decoder) readData(r *wire.Reader, channel *Channel, payloadLen int64, sink LineSink) (int64, error) {
	var cread int64
	var tsd TraceLineData
	var err error

	if tsd.LineID, err = r.Uint16(); err != nil {
		return cread, fmt.Errorf("p7d: Data.id: %w", err)
	}
	cread += 2
	if tsd.Level, err = r.Uint8(); err != nil {
		return cread, fmt.Errorf("p7d: Data.level: %w", err)
	}
	cread++
	if tsd.CPU, err = r.Uint8(); err != nil {
		return cread, fmt.Errorf("p7d: Data.cpu: %w", err)
	}
	cread++
	if tsd.ThreadID, err = r.Uint32(); err != nil {
		return cread, fmt.Errorf("p7d: Data.threadId: %w", err)
	}
	cread += 4
	if tsd.Sequence, err = r.Uint32(); err != nil {
		return cread, fmt.Errorf("p7d: Data.sequence: %w", err)
	}
	cread += 4
	if tsd.Timer, err = r.Uint64(); err != nil {
		return cread, fmt.Errorf("p7d: Data.timer: %w", err)
	}
	cread += 8

	line, ok := channel.Lines[tsd.LineID]
	if !ok {
		d.diag(diagUnknownLineID, tsd.LineID, channel.ID)
		return cread, nil
	}
	tsd.ModuleID = line.ModuleID

	text, consumed, err := render.Render(r, line.Format, line.Args)
	if err != nil {
		return cread, fmt.Errorf("p7d: rendering line %d: %w", tsd.LineID, err)
	}
	cread += int64(consumed)

	sink.OnLine(RenderedLine{Channel: channel, Line: line, Trace: tsd, Text: text})
	return cread, nil
}
