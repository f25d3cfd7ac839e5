package p7d

import "github.com/psoff-tools/p7dtrace/internal/render"

// Line is a cached (format string, argument types) tuple keyed by line id
// within a channel, plus its source location.
type Line struct {
	FileLine uint16
	ModuleID uint16
	Args     []render.ArgDescriptor
	Format   string
	FileName string
	FuncName string
}

// Module describes a firmware/engine module registered on a channel.
type Module struct {
	VerbLevel uint32
	Name      string
}

// StreamInfoRecord is the per-channel TraceStreamInfo payload (subtype 0x00).
type StreamInfoRecord struct {
	Time      uint64
	Timer     uint64
	TimerFreq uint64
	Flags     uint64
	Name      string
}

// Channel is the per-stream storage keyed by 5-bit channel id: a
// TraceStreamInfo plus the line and module description tables accumulated
// for that channel over the life of the decode.
type Channel struct {
	ID      uint8
	Info    StreamInfoRecord
	Lines   map[uint16]Line
	Modules map[uint16]Module
}

func newChannel(id uint8) *Channel {
	return &Channel{
		ID:      id,
		Lines:   make(map[uint16]Line),
		Modules: make(map[uint16]Module),
	}
}

// Module looks up a module by id, returning the zero value (empty name,
// verbosity 0) if the id was never registered — a Data item referencing an
// unregistered module renders against this zero value rather than erroring,
// mirroring the original decoder's map-index-operator semantics.
func (c *Channel) Module(id uint16) Module {
	return c.Modules[id]
}

// TraceLineData is a single emitted trace record's fixed header.
type TraceLineData struct {
	LineID   uint16
	ModuleID uint16
	Level    uint8
	CPU      uint8
	ThreadID uint32
	Sequence uint32
	Timer    uint64
}

// RenderedLine is what the decoder hands to a LineSink for every Data
// record it successfully renders.
type RenderedLine struct {
	Channel *Channel
	Line    Line
	Trace   TraceLineData
	Text    string
}

// LineSink receives rendered lines in wire order. Implementations (the
// analyzer, in this repo) must not retain Channel beyond the call: its
// description tables keep growing as the decode progresses.
type LineSink interface {
	OnLine(rl RenderedLine)
}
