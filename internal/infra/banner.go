package infra

import (
	"fmt"
	"io"
)

// ANSI Color Codes
const (
	ColorReset  = "\033[0m"
	ColorGreen  = "\033[32m"
	ColorYellow = "\033[33m"
	ColorCyan   = "\033[36m"
)

// PrintBanner writes the startup banner. nativeMode is "NATIVE" or "FALLBACK".
func PrintBanner(w io.Writer, cfg *Config, nativeMode, storageDriver string) {
	color := ColorGreen
	modeDesc := "platform settings module connected"
	if nativeMode != "NATIVE" {
		color = ColorYellow
		modeDesc = "in-process stand-in (no native side-channel)"
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "%s###########################################################%s\n", color, ColorReset)
	fmt.Fprintf(w, "%s#               👛 %-38s #%s\n", color, cfg.App.Name, ColorReset)
	fmt.Fprintf(w, "%s#   VERSION: %-44s #%s\n", color, cfg.App.Version, ColorReset)
	fmt.Fprintf(w, "%s#   NATIVE:  %-44s #%s\n", color, nativeMode, ColorReset)
	fmt.Fprintf(w, "%s#            %-44s #%s\n", color, modeDesc, ColorReset)
	fmt.Fprintf(w, "%s#   STORAGE: %-44s #%s\n", ColorCyan, storageDriver, ColorReset)
	fmt.Fprintf(w, "%s###########################################################%s\n", color, ColorReset)
	fmt.Fprintln(w)
}
