package output

import (
	"fmt"
	"os"

	"github.com/fatih/color"
)

var (
	// Source colors
	Pacman  = color.New(color.FgCyan)
	AUR     = color.New(color.FgYellow)
	Local   = color.New(color.FgMagenta)
	Unknown = color.New(color.Faint)

	// Message colors
	Success = color.New(color.FgGreen)
	Warning = color.New(color.FgYellow)
	Error   = color.New(color.FgRed)
	Info    = color.New(color.FgCyan)
	Dim     = color.New(color.Faint)

	// Structural colors
	Header  = color.New(color.FgWhite, color.Bold)
	Package = color.New(color.FgBlue, color.Bold)
)

// NoColor disables color output
func NoColor() {
	color.NoColor = true
}

// ForceColor enables color output even when not a TTY
func ForceColor() {
	color.NoColor = false
}

// IsTerminal returns true if stdout is a terminal
func IsTerminal() bool {
	fi, err := os.Stdout.Stat()
	if err != nil {
		return false
	}
	return (fi.Mode() & os.ModeCharDevice) != 0
}

// SourceColor returns the appropriate color for a package source
func SourceColor(source string) *color.Color {
	switch source {
	case "pacman":
		return Pacman
	case "aur":
		return AUR
	case "local":
		return Local
	case "unknown":
		return Unknown
	default:
		return color.New(color.Reset)
	}
}

// FormatSource formats a source name with appropriate color
func FormatSource(source string) string {
	c := SourceColor(source)
	return c.Sprintf("[%s]", source)
}

// FormatPackage formats a package name with color
func FormatPackage(name string) string {
	return Package.Sprint(name)
}

// PrintSuccess prints a success message
func PrintSuccess(format string, args ...interface{}) {
	Success.Printf("✓ "+format+"\n", args...)
}

// PrintError prints an error message
func PrintError(format string, args ...interface{}) {
	Error.Fprintf(os.Stderr, "✗ "+format+"\n", args...)
}

// PrintWarning prints a warning message
func PrintWarning(format string, args ...interface{}) {
	Warning.Printf("⚠ "+format+"\n", args...)
}

// PrintInfo prints an info message
func PrintInfo(format string, args ...interface{}) {
	Info.Printf("→ "+format+"\n", args...)
}

// Sprintf returns a colored string without printing
func Sprintf(c *color.Color, format string, args ...interface{}) string {
	return c.Sprintf(format, args...)
}

// Sprint returns a colored string without printing
func Sprint(c *color.Color, a ...interface{}) string {
	return c.Sprint(a...)
}

// Printf prints with color
func Printf(c *color.Color, format string, args ...interface{}) {
	c.Printf(format, args...)
}

// Println prints with color and newline
func Println(c *color.Color, a ...interface{}) {
	c.Println(a...)
}

var byteUnits = []string{"B", "KiB", "MiB", "GiB", "TiB"}

// HumanBytes renders a byte count in IEC units with two decimals.
// Bytes below 1 KiB are printed without decimals; values beyond TiB
// stay in TiB.
func HumanBytes(n uint64) string {
	size := float64(n)
	unit := 0
	for size >= 1024 && unit < len(byteUnits)-1 {
		size /= 1024
		unit++
	}
	if unit == 0 {
		return fmt.Sprintf("%d B", n)
	}
	return fmt.Sprintf("%.2f %s", size, byteUnits[unit])
}
