package cli

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/schollz/progressbar/v3"
)

// CLIProgressReporter renders graph building progress as a progress bar.
type CLIProgressReporter struct {
	quiet    bool
	out      io.Writer
	graphBar *progressbar.ProgressBar
}

// NewCLIProgressReporter creates a reporter writing to stderr.
func NewCLIProgressReporter(quiet bool) *CLIProgressReporter {
	return newProgressReporter(os.Stderr, quiet)
}

func newProgressReporter(out io.Writer, quiet bool) *CLIProgressReporter {
	return &CLIProgressReporter{quiet: quiet, out: out}
}

func (c *CLIProgressReporter) OnGraphBuildingStart(totalFiles int) {
	if c.quiet {
		return
	}
	if c.graphBar != nil {
		c.graphBar.Finish()
	}
	c.graphBar = progressbar.NewOptions(totalFiles,
		progressbar.OptionSetWriter(c.out),
		progressbar.OptionSetDescription("Building code graph"),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowCount(),
		progressbar.OptionShowIts(),
		progressbar.OptionSetItsString("files/s"),
		progressbar.OptionThrottle(65*time.Millisecond),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprintln(c.out)
		}),
	)
}

func (c *CLIProgressReporter) OnGraphFileProcessed(processedFiles, totalFiles int, fileName string) {
	if c.quiet {
		return
	}
	if c.graphBar != nil {
		c.graphBar.Add(1)
	}
}

func (c *CLIProgressReporter) OnGraphBuildingComplete(nodeCount, edgeCount int, duration time.Duration) {
	if c.quiet {
		return
	}
	if c.graphBar != nil {
		c.graphBar.Finish()
		c.graphBar = nil
	}
	fmt.Fprintf(c.out, "✓ Graph built: %s nodes, %s edges (took %.1fs)\n",
		formatNumber(nodeCount), formatNumber(edgeCount), duration.Seconds())
}

// formatNumber formats integer with thousand separators.
// Examples: 1234 -> "1,234", 1234567 -> "1,234,567"
func formatNumber(n int) string {
	if n < 0 {
		return "-" + formatNumber(-n)
	}
	str := fmt.Sprintf("%d", n)
	if len(str) <= 3 {
		return str
	}
	var result []byte
	for i := range len(str) {
		if i > 0 && (len(str)-i)%3 == 0 {
			result = append(result, ',')
		}
		result = append(result, str[i])
	}
	return string(result)
}
