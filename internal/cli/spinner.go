package cli

import (
	"io"
	"time"

	"github.com/briandowns/spinner"
	"github.com/jedib0t/go-pretty/v6/text"
)

// Progress shows a spinner on a terminal while a long call runs.
type Progress struct {
	s *spinner.Spinner
}

// StartProgress starts a spinner with the given suffix. In quiet mode it
// returns a Progress whose methods do nothing.
func StartProgress(w io.Writer, quiet bool, suffix string) *Progress {
	if quiet {
		return &Progress{}
	}
	s := spinner.New(spinner.CharSets[14], 100*time.Millisecond, spinner.WithWriter(w))
	s.Suffix = " " + suffix
	s.Start()
	return &Progress{s: s}
}

// Stop stops the spinner, leaving a final success or failure line.
func (p *Progress) Stop(ok bool, msg string) {
	if p.s == nil {
		return
	}
	if ok {
		p.s.FinalMSG = text.FgGreen.Sprint("✓ "+msg) + "\n"
	} else {
		p.s.FinalMSG = text.FgRed.Sprint("❌ "+msg) + "\n"
	}
	p.s.Stop()
}
