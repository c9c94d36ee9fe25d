package ui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/progress"
)

const meterWidth = 40

// Meter fill colours.
const (
	CPUFill    = "#00D7D7"
	MemoryFill = "#D700D7"
)

// Bar renders a fixed-width bar for a 0-100 percentage.
func Bar(percent float64, fill string) string {
	bar := progress.New(
		progress.WithSolidFill(fill),
		progress.WithWidth(meterWidth),
		progress.WithoutPercentage(),
	)
	return bar.ViewAs(percent / 100)
}

// Meter prints a titled usage bar followed by a detail line.
func (c *Console) Meter(title string, percent float64, fill, detail string) {
	c.write(fmt.Sprintf("%s\n%3.0f%% %s\n%s\n",
		headingStyle.Render(title), percent, Bar(percent, fill), detail))
}
