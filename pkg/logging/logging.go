package logging

import (
	"io"
	"log"
	"os"
)

func init() {
	// Set the global logger to use standard output by default. SetOutput can
	// redirect this, e.g. when advanced.logToFile is set in configuration.
	log.SetOutput(os.Stdout)
}

// SetOutput redirects all logging (from every Logger, since they share the
// underlying standard library logger) to the given writer. It implements
// advanced.logToFile: callers open the target file and pass it here during
// startup.
func SetOutput(w io.Writer) {
	log.SetOutput(w)
}
