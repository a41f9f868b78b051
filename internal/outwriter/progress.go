package outwriter

import (
	"fmt"
	"io"

	"github.com/schollz/progressbar/v3"
)

// BarProgressReporter shows per-repository progress of a portfolio scan.
// It writes to its own writer (stderr in the CLI) so stdout stays clean for results.
type BarProgressReporter struct {
	out         io.Writer
	description string
	bar         *progressbar.ProgressBar
}

// NewBarProgressReporter creates a reporter; the bar is sized by SetTotal.
func NewBarProgressReporter(out io.Writer, description string) *BarProgressReporter {
	p := &BarProgressReporter{out: out, description: description}
	p.bar = p.newBar(-1)
	return p
}

func (p *BarProgressReporter) newBar(total int) *progressbar.ProgressBar {
	return progressbar.NewOptions(total,
		progressbar.OptionSetWriter(p.out),
		progressbar.OptionSetDescription(p.description),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionThrottle(100e6),           // rate-limit updates
		progressbar.OptionSetRenderBlankState(true), // show an initial blank bar
		progressbar.OptionOnCompletion(func() {
			_, _ = fmt.Fprintln(p.out)
		}),
	)
}

// SetTotal reinitializes the progress bar with the new total count.
func (p *BarProgressReporter) SetTotal(total int) {
	p.bar = p.newBar(total)
}

// Increment increases the progress bar by one.
func (p *BarProgressReporter) Increment() {
	_ = p.bar.Add(1)
}

// Count returns how many increments have been recorded.
func (p *BarProgressReporter) Count() int {
	return int(p.bar.State().CurrentNum)
}
