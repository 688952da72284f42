package ui

import (
	"os"

	"github.com/mattn/go-isatty"
)

// ANSI color and style constants for CLI output
const (
	ColorReset = "\033[0m"
	ColorBold  = "\033[1m"
	ColorDim   = "\033[2m"

	ColorCyan   = "\033[36m"
	ColorGreen  = "\033[32m"
	ColorYellow = "\033[33m"
	ColorWhite  = "\033[97m"
	ColorRed    = "\033[31m"
)

// enabled gates all styling; off when stdout is not a terminal or the
// user passed --no-color.
var enabled = isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd())

// SetEnabled overrides color detection.
func SetEnabled(on bool) {
	enabled = on
}

// Enabled reports whether styled output is on.
func Enabled() bool {
	return enabled
}

func style(code, s string) string {
	if !enabled {
		return s
	}
	return code + s + ColorReset
}

// Convenience helpers to build styled strings. Keep minimal so tests can use constants directly.
func Bold(s string) string {
	return style(ColorBold, s)
}

func Success(s string) string {
	return style(ColorGreen, s)
}

func Info(s string) string {
	return style(ColorDim+ColorYellow, s)
}

func Warn(s string) string {
	return style(ColorYellow, s)
}

func Error(s string) string {
	return style(ColorRed, s)
}
