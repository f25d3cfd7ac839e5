// Package decode wires the P7D and PLOG frontends to the analyzer: the
// small amount of glue each format needs to turn its own framing into the
// analyzer's rendered-line, module/stream context shape.
package decode

import (
	"strings"

	"github.com/psoff-tools/p7dtrace/internal/analyzer"
	"github.com/psoff-tools/p7dtrace/internal/bytesource"
	"github.com/psoff-tools/p7dtrace/internal/p7d"
)

// p7dSink adapts the decoder's LineSink contract to the analyzer. The
// process-type guess is latched from the dump's preamble process name on
// the very first rendered line, then every line — including that first
// one — is fed to the classifier, matching the source analyzer's
// behavior of not dropping the guessing line.
type p7dSink struct {
	dec *p7d.Decoder
	an  *analyzer.Analyzer
}

func (s *p7dSink) OnLine(rl p7d.RenderedLine) {
	if !s.an.Guessed() {
		s.an.Guess(s.dec.ProcessName == "psOff_tunnel.exe")
	}
	ctx := analyzer.LineContext{
		ModuleName: rl.Channel.Module(rl.Line.ModuleID).Name,
		IsTTY:      strings.Contains(strings.ToLower(rl.Channel.Info.Name), "tty"),
	}
	s.an.Process(ctx, rl.Text)
}

// P7D decodes a single dump end-to-end and returns its analyzer document
// as pretty-printed JSON. diag, if non-nil, receives the decoder's
// non-fatal diagnostics (unknown subtype/stream-type/line-id).
func P7D(src bytesource.Source, diag p7d.DiagFunc) ([]byte, error) {
	dec := p7d.NewDecoder()
	if diag != nil {
		dec.Diag = diag
	}
	an := analyzer.New()
	sink := &p7dSink{dec: dec, an: an}

	if err := dec.Run(src, sink); err != nil {
		return nil, err
	}

	// A dump with no trace lines at all (S2) never guesses a process type;
	// fall back to the preamble's process name so the empty-dump case
	// still produces a well-formed document.
	if !an.Guessed() {
		an.Guess(dec.ProcessName == "psOff_tunnel.exe")
	}

	return an.Finalize()
}
