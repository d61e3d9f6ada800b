package ui

import (
	"fmt"
	"io"
	"os"

	"golang.org/x/term"
	"igfetch/pkg/media"
)

// Banner printed by interactive commands
const Banner = `
  _       __      _       _
 (_) __ _/ _| ___| |_ ___| |__
 | |/ _' | |_ / _ \ __/ __| '_ \
 | | (_| |  _|  __/ || (__| | | |
 |_|\__, |_|  \___|\__\___|_| |_|
    |___/   instagram media resolver
`

// Color functions for terminal output
var (
	Cyan    = colorize("\033[36m%s\033[0m")
	Yellow  = colorize("\033[33m%s\033[0m")
	Red     = colorize("\033[31m%s\033[0m")
	Green   = colorize("\033[32m%s\033[0m")
	Magenta = colorize("\033[35m%s\033[0m")
	Dim     = colorize("\033[2m%s\033[0m")
)

// plain disables colors when stdout is not a terminal
var plain = !term.IsTerminal(int(os.Stdout.Fd()))

// colorize returns a function that wraps text with ANSI color codes
func colorize(colorString string) func(string) string {
	return func(text string) string {
		if plain {
			return text
		}
		return fmt.Sprintf(colorString, text)
	}
}

// SetPlain turns colors off (or back on)
func SetPlain(p bool) {
	plain = p
}

// PrintBanner prints the banner with color
func PrintBanner(w io.Writer) {
	fmt.Fprint(w, Cyan(Banner))
}

// PrintError prints an error message in red
func PrintError(w io.Writer, msg string, err error) {
	if err != nil {
		fmt.Fprintln(w, Red(msg+": "+err.Error()))
		return
	}
	fmt.Fprintln(w, Red(msg))
}

// PrintSuccess prints a success message in green
func PrintSuccess(w io.Writer, msg string) {
	fmt.Fprintln(w, Green(msg))
}

// PrintInfo prints a label and value
func PrintInfo(w io.Writer, label string, value string) {
	fmt.Fprintf(w, "%s: %s\n", Cyan(label), Yellow(value))
}

// PrintWarning prints a warning message in yellow
func PrintWarning(w io.Writer, msg string) {
	fmt.Fprintln(w, Yellow(msg))
}

// PrintDescriptor renders a resolved descriptor for humans
func PrintDescriptor(w io.Writer, d media.Descriptor) {
	switch d.Kind() {
	case media.KindPhoto:
		PrintInfo(w, "photo", d.URLs)
	case media.KindVideo:
		PrintInfo(w, "video", d.URLs)
		PrintInfo(w, "filename", d.Filename)
	case media.KindCarousel:
		fmt.Fprintln(w, Magenta(fmt.Sprintf("carousel with %d items", len(d.Picker))))
		for i, item := range d.Picker {
			fmt.Fprintf(w, "  %s %s %s\n", Dim(fmt.Sprintf("%2d.", i+1)), Cyan(string(item.Type)), item.URL)
		}
	default:
		PrintError(w, "not resolved: "+d.Outcome(), nil)
	}
}

// PrintDownload reports one saved, skipped or failed file
func PrintDownload(w io.Writer, filename, path string, skipped bool, err error) {
	switch {
	case err != nil:
		PrintError(w, "✗ "+filename, err)
	case skipped:
		fmt.Fprintln(w, Dim("- "+filename+" (already downloaded)"))
	default:
		PrintSuccess(w, "✓ "+path)
	}
}
