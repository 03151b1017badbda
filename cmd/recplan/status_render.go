package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"recplan/internal/store"
)

const (
	ansiReset  = "\x1b[0m"
	ansiRed    = "\x1b[31m"
	ansiGreen  = "\x1b[32m"
	ansiYellow = "\x1b[33m"
	ansiBlue   = "\x1b[34m"
)

const (
	statusLabelWidth = 20
	statusIndent     = "  "
)

var titleCaser = cases.Title(language.Und)

// displayLabel turns a stored status like "partial" into "Partial".
func displayLabel(value string) string {
	value = strings.TrimSpace(strings.ReplaceAll(value, "_", " "))
	if value == "" {
		return "-"
	}
	return titleCaser.String(value)
}

func runStatusColor(status store.RunStatus) string {
	switch status {
	case store.RunCompleted:
		return ansiGreen
	case store.RunPartial, store.RunRunning:
		return ansiYellow
	case store.RunFailed, store.RunRejected:
		return ansiRed
	default:
		return ""
	}
}

func sectionStatusColor(status store.SectionStatus) string {
	switch status {
	case store.SectionRendered:
		return ansiGreen
	case store.SectionPending:
		return ansiBlue
	case store.SectionSkipped:
		return ansiYellow
	case store.SectionFailed:
		return ansiRed
	default:
		return ""
	}
}

func colorize(value, color string, enabled bool) string {
	if !enabled || color == "" {
		return value
	}
	return color + value + ansiReset
}

// renderCheckLine formats one preflight or dependency line.
func renderCheckLine(label string, ok, optional bool, detail string, color bool) string {
	state, tint := "OK", ansiGreen
	switch {
	case !ok && optional:
		state, tint = "WARN", ansiYellow
	case !ok:
		state, tint = "ERROR", ansiRed
	}
	statusText := fmt.Sprintf("[%s]", state)
	if detail != "" {
		statusText = fmt.Sprintf("[%s] %s", state, detail)
	}
	base := fmt.Sprintf("%s%-*s %s", statusIndent, statusLabelWidth, label+":", statusText)
	return colorize(base, tint, color)
}

func shouldColorize(writer io.Writer) bool {
	file, ok := writer.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}
