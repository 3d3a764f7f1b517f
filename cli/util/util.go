package util

import (
	"os"

	"github.com/fatih/color"
	"github.com/spaolacci/murmur3"
)

var colors = []*color.Color{
	color.New(color.FgRed),
	color.New(color.FgBlue),
	color.New(color.FgYellow),
	color.New(color.FgCyan),
	color.New(color.FgGreen),
	color.New(color.FgMagenta),
	color.New(color.FgHiRed),
	color.New(color.FgHiBlue),
	color.New(color.FgHiYellow),
	color.New(color.FgHiCyan),
	color.New(color.FgHiGreen),
	color.New(color.FgHiMagenta),
}

// StdoutRedirected returns true if stdout is redirected to a file or pipe.
func StdoutRedirected() bool {
	if fi, err := os.Stdout.Stat(); err == nil {
		return (fi.Mode() & os.ModeCharDevice) == 0
	}
	return false
}

// ColorFor returns a stable color for key, so every sample of an instance
// prints in the same color.
func ColorFor(key string) *color.Color {
	return colors[murmur3.Sum32([]byte(key))%uint32(len(colors))]
}
