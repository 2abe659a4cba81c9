package cli

import (
	"fmt"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/matzehuels/boardsync/pkg/boardsync"
	"github.com/matzehuels/boardsync/pkg/diff"
	"github.com/matzehuels/boardsync/pkg/units"
)

// =============================================================================
// Color Palette
// =============================================================================

var (
	colorCyan   = lipgloss.Color("36")  // Teal - primary actions
	colorGreen  = lipgloss.Color("35")  // Green - success
	colorYellow = lipgloss.Color("220") // Amber - warnings
	colorRed    = lipgloss.Color("167") // Soft red - errors
	colorBlue   = lipgloss.Color("75")  // Light blue - links
	colorWhite  = lipgloss.Color("255") // Bright white - values
	colorGray   = lipgloss.Color("245") // Gray - secondary text
	colorDim    = lipgloss.Color("240") // Dim gray - muted text
)

// =============================================================================
// Public Styles
// =============================================================================

var (
	// StyleTitle for main headings.
	StyleTitle = lipgloss.NewStyle().Bold(true).Foreground(colorCyan)

	// StyleHighlight for emphasized values.
	StyleHighlight = lipgloss.NewStyle().Foreground(colorCyan)

	// StyleLink for URLs.
	StyleLink = lipgloss.NewStyle().Foreground(colorBlue).Underline(true)

	// StyleDim for secondary/muted text.
	StyleDim = lipgloss.NewStyle().Foreground(colorDim)

	// StyleValue for data values.
	StyleValue = lipgloss.NewStyle().Foreground(colorWhite)

	// StyleNumber for numeric values.
	StyleNumber = lipgloss.NewStyle().Foreground(colorCyan)

	// StyleSuccess for success messages.
	StyleSuccess = lipgloss.NewStyle().Foreground(colorGreen)

	// StyleWarning for warning messages.
	StyleWarning = lipgloss.NewStyle().Foreground(colorYellow)
)

// =============================================================================
// Internal Styles
// =============================================================================

var (
	styleIconSuccess = lipgloss.NewStyle().Foreground(colorGreen)
	styleIconError   = lipgloss.NewStyle().Foreground(colorRed)
	styleIconWarning = lipgloss.NewStyle().Foreground(colorYellow)
	styleIconInfo    = lipgloss.NewStyle().Foreground(colorGray)
	styleIconSpinner = lipgloss.NewStyle().Foreground(colorCyan)

	styleCreated = lipgloss.NewStyle().Foreground(colorGreen)
	styleUpdated = lipgloss.NewStyle().Foreground(colorYellow)
	styleDeleted = lipgloss.NewStyle().Foreground(colorRed)

	styleCommand = lipgloss.NewStyle().Foreground(colorBlue)
)

// =============================================================================
// Icons
// =============================================================================

const (
	iconSuccess = "✓"
	iconError   = "✗"
	iconWarning = "!"
	iconInfo    = "›"
	iconArrow   = "→"
)

// =============================================================================
// Status Output
// =============================================================================

// printSuccess prints a success message.
func printSuccess(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Println(styleIconSuccess.Render(iconSuccess) + " " + msg)
}

// printError prints an error message.
func printError(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Println(styleIconError.Render(iconError) + " " + msg)
}

// printWarning prints a warning message.
func printWarning(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Println(styleIconWarning.Render(iconWarning) + " " + StyleWarning.Render(msg))
}

// printInfo prints an info/status message.
func printInfo(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Println(styleIconInfo.Render(iconInfo) + " " + msg)
}

// printDetail prints a detail line (indented).
func printDetail(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Println("  " + StyleDim.Render(msg))
}

// =============================================================================
// File Output
// =============================================================================

// printFile prints a file output line.
func printFile(path string) {
	fmt.Println("  " + StyleDim.Render(iconArrow) + " " + StyleValue.Render(path))
}

// =============================================================================
// Key-Value Output
// =============================================================================

// printKeyValue prints a labeled value.
func printKeyValue(key, value string) {
	keyStyle := lipgloss.NewStyle().Foreground(colorGray).Width(12)
	fmt.Println(keyStyle.Render(key) + " " + StyleValue.Render(value))
}

// =============================================================================
// Stats Display
// =============================================================================

// printStats prints graph statistics on a single line.
func printStats(nodeCount, edgeCount int, width, height float64) {
	parts := []string{fmt.Sprintf("%d nodes", nodeCount)}
	if edgeCount > 0 {
		parts = append(parts, fmt.Sprintf("%d edges", edgeCount))
	}
	if width > 0 && height > 0 {
		parts = append(parts, fmt.Sprintf("%.0f × %.0f units (%.0f × %.0f mm)",
			width, height, units.BoardUnitsToMm(width), units.BoardUnitsToMm(height)))
	}
	printParts(parts)
}

// printReport prints the outcome of a sync.
func printReport(rep *boardsync.Report) {
	if rep.OK() {
		printSuccess("Sync complete")
	} else {
		printWarning("Sync finished with %d failed rows", rep.Failed())
	}

	parts := []string{
		styleCreated.Render(fmt.Sprintf("+%d created", rep.Created)),
		styleUpdated.Render(fmt.Sprintf("~%d updated", rep.Updated)),
		styleDeleted.Render(fmt.Sprintf("-%d deleted", rep.Deleted)),
		fmt.Sprintf("%d unchanged", rep.Unchanged),
	}
	if n := rep.ConnectorsCreated + rep.ConnectorsDeleted; n > 0 {
		parts = append(parts, fmt.Sprintf("%d connectors", n))
	}
	parts = append(parts, rep.Duration.Round(time.Millisecond).String())
	printParts(parts)

	for _, e := range rep.Errors {
		key := e.Key
		if key == "" {
			key = fmt.Sprintf("row %d", e.Row)
		}
		printDetail("%s %s: %s", styleIconError.Render(iconError), key, e.Message)
	}
}

// printChanges prints a row diff, one line per key.
func printChanges(changes diff.Result, idColumn string) {
	keyOf := diff.RecordKey(idColumn)
	line := func(icon string, style lipgloss.Style, r diff.Record) {
		key, _ := keyOf(r)
		fmt.Println("  " + style.Render(icon+" "+key))
	}
	for _, r := range changes.Creates {
		line("+", styleCreated, r)
	}
	for _, r := range changes.Updates {
		line("~", styleUpdated, r)
	}
	for _, r := range changes.Deletes {
		line("-", styleDeleted, r)
	}
	printParts([]string{
		fmt.Sprintf("%d created", len(changes.Creates)),
		fmt.Sprintf("%d updated", len(changes.Updates)),
		fmt.Sprintf("%d deleted", len(changes.Deletes)),
	})
}

func printParts(parts []string) {
	line := "  "
	for i, part := range parts {
		if i > 0 {
			line += StyleDim.Render(" · ")
		}
		line += StyleDim.Render(part)
	}
	fmt.Println(line)
}

// =============================================================================
// Commands & Next Steps
// =============================================================================

// printNextStep prints a suggested next command.
func printNextStep(description, cmd string) {
	fmt.Println(StyleDim.Render(description+":") + " " + styleCommand.Render(cmd))
}

// =============================================================================
// Utilities
// =============================================================================

// printInline prints a dim message without a trailing newline.
func printInline(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	fmt.Print(StyleDim.Render(msg))
}

// printNewline prints an empty line.
func printNewline() {
	fmt.Println()
}
