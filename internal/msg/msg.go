package msg

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/fatih/color"
)

// Out receives info and warnings, Err receives errors
var (
	Out io.Writer = color.Output
	Err io.Writer = color.Error
)

func printLabel(w io.Writer, label, format string, a ...any) {
	fmt.Fprint(w, label)
	fmt.Fprint(w, ": ")
	fmt.Fprintf(w, format, a...)
	fmt.Fprint(w, "\n")
}

func Error(format string, a ...any) {
	printLabel(Err, color.HiRedString("error"), format, a...)
}

func Warn(format string, a ...any) {
	printLabel(Out, color.YellowString("warn"), format, a...)
}

// Fatal prints the message and exits with status 1
func Fatal(format string, a ...any) {
	FatalCode(1, format, a...)
}

func FatalCode(code int, format string, a ...any) {
	printLabel(Err, color.RedString("fatal"), format, a...)
	os.Exit(code)
}

func Info(format string, a ...any) {
	printLabel(Out, color.HiGreenString("info"), format, a...)
}

// Step prints a right-aligned green verb followed by the subject, e.g. "  Configuring cgal"
func Step(w io.Writer, verb, format string, a ...any) {
	pad := ""
	if len(verb) < 12 {
		pad = strings.Repeat(" ", 12-len(verb))
	}
	fmt.Fprintf(w, "%s%s %s\n", pad, color.HiGreenString(verb), fmt.Sprintf(format, a...))
}

type IndentWriter struct {
	Indent    string
	W         io.Writer
	didIndent bool
}

func (w *IndentWriter) Write(p []byte) (n int, err error) {
	for _, c := range p {
		if !w.didIndent {
			if _, err := w.W.Write([]byte(w.Indent)); err != nil {
				return n, err
			}
			w.didIndent = true
		}
		if _, err := w.W.Write([]byte{c}); err != nil { // FIXME-perf: buffer this
			return n, err
		}
		n++
		if c == '\n' || c == '\r' {
			w.didIndent = false
		}
	}
	return n, nil
}
