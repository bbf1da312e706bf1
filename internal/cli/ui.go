package cli

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/matzehuels/reqscan/pkg/compat"
	"github.com/matzehuels/reqscan/pkg/pipeline"
)

// =============================================================================
// Color Palette
// =============================================================================

var (
	colorCyan   = lipgloss.Color("36")  // Teal - primary actions
	colorGreen  = lipgloss.Color("35")  // Green - success
	colorYellow = lipgloss.Color("220") // Amber - warnings
	colorWhite  = lipgloss.Color("255") // Bright white - values
	colorGray   = lipgloss.Color("245") // Gray - secondary text
	colorDim    = lipgloss.Color("240") // Dim gray - muted text
)

// =============================================================================
// Styles
// =============================================================================

var (
	// StyleDim for secondary/muted text.
	StyleDim = lipgloss.NewStyle().Foreground(colorDim)

	// StyleValue for data values.
	StyleValue = lipgloss.NewStyle().Foreground(colorWhite)

	// StyleNumber for numeric values.
	StyleNumber = lipgloss.NewStyle().Foreground(colorCyan)

	// StyleWarning for warning messages.
	StyleWarning = lipgloss.NewStyle().Foreground(colorYellow)

	styleIconSuccess = lipgloss.NewStyle().Foreground(colorGreen)
	styleIconWarning = lipgloss.NewStyle().Foreground(colorYellow)
	styleIconInfo    = lipgloss.NewStyle().Foreground(colorGray)
)

const (
	iconSuccess = "✓"
	iconWarning = "!"
	iconInfo    = "›"
	iconArrow   = "→"
)

// =============================================================================
// Status Output
// =============================================================================

func (c *CLI) printSuccess(format string, args ...any) {
	fmt.Fprintln(c.Err, styleIconSuccess.Render(iconSuccess)+" "+fmt.Sprintf(format, args...))
}

func (c *CLI) printWarning(format string, args ...any) {
	fmt.Fprintln(c.Err, styleIconWarning.Render(iconWarning)+" "+StyleWarning.Render(fmt.Sprintf(format, args...)))
}

func (c *CLI) printInfo(format string, args ...any) {
	fmt.Fprintln(c.Err, styleIconInfo.Render(iconInfo)+" "+fmt.Sprintf(format, args...))
}

// printDetail prints an indented, dimmed line.
func (c *CLI) printDetail(format string, args ...any) {
	fmt.Fprintln(c.Err, "  "+StyleDim.Render(fmt.Sprintf(format, args...)))
}

// printFile prints a file output line.
func (c *CLI) printFile(path string) {
	fmt.Fprintln(c.Err, "  "+StyleDim.Render(iconArrow)+" "+StyleValue.Render(path))
}

// =============================================================================
// Scan Summary
// =============================================================================

// printResult summarizes a finished scan.
func (c *CLI) printResult(res *pipeline.Result, path string, elapsed time.Duration) {
	c.printSuccess("Wrote %s packages (%s)", StyleNumber.Render(fmt.Sprint(res.Stats.Packages)), elapsed)
	c.printFile(path)
	c.printStats(res.Stats)
	for _, e := range res.Entries {
		if e.Status == compat.Incompatible {
			c.printWarning("%s is commented out: %s", e.Package, e.Reason)
		}
	}
}

// printStats prints scan statistics on a single line.
func (c *CLI) printStats(s pipeline.Stats) {
	parts := []string{
		fmt.Sprintf("%d files", s.Files),
		fmt.Sprintf("%d imports", s.Imports),
		fmt.Sprintf("%d standard", s.Standard),
		fmt.Sprintf("%d internal", s.Internal),
	}
	if s.FailedFiles > 0 {
		parts = append(parts, fmt.Sprintf("%d unparsable", s.FailedFiles))
	}
	if s.Unverified > 0 {
		parts = append(parts, fmt.Sprintf("%d unverified", s.Unverified))
	}
	if s.CacheHits > 0 {
		parts = append(parts, fmt.Sprintf("%d cached", s.CacheHits))
	}
	fmt.Fprintln(c.Err, "  "+StyleDim.Render(strings.Join(parts, " · ")))
}
