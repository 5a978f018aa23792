package outwriter

import (
	"os"

	"golang.org/x/term"
)

// getMaxDescriptionWidth calculates the maximum width of the description column
// of the flags table based on the terminal width.
func getMaxDescriptionWidth(override int) int {
	termWidth := override

	if termWidth <= 0 {
		detectedWidth, _, err := term.GetSize(int(os.Stdout.Fd()))
		if err != nil || detectedWidth <= 0 {
			termWidth = 80 // Conservative default for narrow terminals and CI
		} else {
			termWidth = detectedWidth
		}
	}

	// ID + Name columns with borders and padding
	available := termWidth - 40
	if available < 20 {
		return 20
	}
	if available > 90 {
		return 90
	}
	return available
}

// truncate shortens s to width runes, marking the cut with "...".
func truncate(s string, width int) string {
	runes := []rune(s)
	if len(runes) <= width || width <= 3 {
		return s
	}
	return string(runes[:width-3]) + "..."
}
