package report

import (
	"os"

	"golang.org/x/term"

	"github.com/evokedbci/evoked/internal/contract"
)

// maxTablePathWidth calculates the maximum width for recording names in
// table output based on terminal width.
func maxTablePathWidth(cfg *contract.Config) int {
	var termWidth int

	// Check for absolute width override from flag/env
	if cfg.Width > 0 {
		termWidth = cfg.Width
	}

	if termWidth == 0 { // Not set by override
		// Get terminal width
		detectedWidth, _, err := term.GetSize(int(os.Stdout.Fd()))
		if err != nil || detectedWidth <= 0 {
			// Fallback to conservative default if terminal size can't be detected
			termWidth = 80 // Conservative default for narrow terminals and CI
		} else {
			termWidth = detectedWidth
		}
	}

	// Reserve space for the rank, score and grade columns plus borders.
	baseWidth := 35

	available := termWidth - baseWidth
	if available < 20 {
		available = 20
	}
	return available
}
