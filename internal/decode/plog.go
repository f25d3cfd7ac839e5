package decode

import (
	"io"

	"github.com/psoff-tools/p7dtrace/internal/analyzer"
	"github.com/psoff-tools/p7dtrace/internal/plog"
)

// PLOG parses a PLOG text stream end-to-end and returns its analyzer
// document as pretty-printed JSON. The process type is latched on the
// first line whose message is non-empty; that line is consumed for the
// guess only and is not itself classified, matching the source PLOG
// analyzer's early return.
func PLOG(r io.Reader) ([]byte, error) {
	an := analyzer.New()

	err := plog.ScanLines(r, func(li plog.Line) {
		if !an.Guessed() {
			if li.Message == "" {
				return
			}
			an.Guess(li.Message == "child process")
			return
		}

		ctx := analyzer.LineContext{
			ModuleName: li.Module,
			IsTTY:      li.Module == "TTY",
		}
		an.Process(ctx, li.Message)
	})
	if err != nil {
		return nil, err
	}

	if !an.Guessed() {
		an.Guess(false)
	}
	return an.Finalize()
}
