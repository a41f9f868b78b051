package outwriter

import (
	"os"

	"github.com/crackerjack/gitmetrics/internal/contract"
	"golang.org/x/term"
)

// getMaxTablePathWidth calculates the maximum width for repository paths in table output
// based on terminal width and the width taken by the other columns.
func getMaxTablePathWidth(cfg *contract.Config, otherColumns int) int {
	termWidth := cfg.Width

	if termWidth == 0 { // Not set by override
		detectedWidth, _, err := term.GetSize(int(os.Stdout.Fd()))
		if err != nil || detectedWidth <= 0 {
			// Conservative default for narrow terminals and CI
			termWidth = 80
		} else {
			termWidth = detectedWidth
		}
	}

	// Borders, separators and padding
	baseWidth := otherColumns + 20

	available := termWidth - baseWidth
	if available < 15 {
		return 15
	}
	if available > 70 {
		return 70
	}
	return available
}
