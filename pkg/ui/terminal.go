package ui

import (
	"fmt"
	"io"
	"os"
	"strings"
	"sync/atomic"

	"golang.org/x/term"
)

// ASCII logo for the application
const ASCIILogo = `
    ╔═══════════════════════════════════════════════════════╗
    ║  ██╗███╗   ███╗ ██████╗  ██████╗██████╗  █████╗ ██╗    ║
    ║  ██║████╗ ████║██╔════╝ ██╔════╝██╔══██╗██╔══██╗██║    ║
    ║  ██║██╔████╔██║██║  ███╗██║     ██████╔╝███████║██║    ║
    ║  ██║██║╚██╔╝██║██║   ██║██║     ██╔══██╗██╔══██║██║    ║
    ║  ██║██║ ╚═╝ ██║╚██████╔╝╚██████╗██║  ██║██║  ██║█████╗ ║
    ║  ╚═╝╚═╝     ╚═╝ ╚═════╝  ╚═════╝╚═╝  ╚═╝╚═╝  ╚═╝╚════╝ ║
    ║            IMAGE SEARCH DATASET DOWNLOADER             ║
    ╚═══════════════════════════════════════════════════════╝
`

// DefaultWidth is used when the terminal size cannot be determined
const DefaultWidth = 80

var colorEnabled atomic.Bool

func init() {
	colorEnabled.Store(true)
}

// SetColor turns ANSI colouring on or off for every helper in this package
func SetColor(enabled bool) {
	colorEnabled.Store(enabled)
}

// Color functions for terminal output
var (
	Cyan    = colorize("\033[36m%s\033[0m")
	Yellow  = colorize("\033[33m%s\033[0m")
	Red     = colorize("\033[31m%s\033[0m")
	Green   = colorize("\033[32m%s\033[0m")
	Magenta = colorize("\033[35m%s\033[0m")
	Dim     = colorize("\033[2m%s\033[0m")
)

// colorize returns a function that wraps text with ANSI color codes
func colorize(colorString string) func(string) string {
	return func(text string) string {
		if !colorEnabled.Load() {
			return text
		}
		return fmt.Sprintf(colorString, text)
	}
}

// TerminalWidth returns the column count of stdout, or DefaultWidth when
// stdout is not a terminal.
func TerminalWidth() int {
	fd := int(os.Stdout.Fd())
	if !term.IsTerminal(fd) {
		return DefaultWidth
	}
	w, _, err := term.GetSize(fd)
	if err != nil || w <= 0 {
		return DefaultWidth
	}
	return w
}

// Separator returns a rule of '=' spanning width columns
func Separator(width int) string {
	if width <= 0 {
		width = DefaultWidth
	}
	return strings.Repeat("=", width)
}

// PrintLogo prints the ASCII logo with color
func PrintLogo(w io.Writer) {
	fmt.Fprint(w, Cyan(ASCIILogo))
}

// PrintError prints an error message in red
func PrintError(msg string, args ...interface{}) {
	if len(args) > 0 {
		fmt.Fprintln(os.Stderr, Red(msg+": "+fmt.Sprintf("%v", args[0])))
	} else {
		fmt.Fprintln(os.Stderr, Red(msg))
	}
}

// PrintSuccess prints a success message in green
func PrintSuccess(msg string) {
	fmt.Println(Green(msg))
}

// PrintInfo prints an info message in cyan
func PrintInfo(label string, value string) {
	fmt.Printf("%s: %s\n", Cyan(label), Yellow(value))
}

// PrintWarning prints a warning message in yellow
func PrintWarning(msg string, args ...interface{}) {
	if len(args) > 0 {
		fmt.Println(Yellow(msg + ": " + fmt.Sprintf("%v", args[0])))
	} else {
		fmt.Println(Yellow(msg))
	}
}
