package astraai

import "log"

// verboseMode gates the package's debug logging; set once at startup.
var verboseMode bool

// SetVerbose enables or disables debug logging for the whole package.
func SetVerbose(verbose bool) {
	verboseMode = verbose
}

// VerboseLog writes a log line only when verbose mode is enabled.
func VerboseLog(format string, v ...interface{}) {
	if verboseMode {
		log.Printf(format, v...)
	}
}
