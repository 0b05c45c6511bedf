// package shared defines shared helpers
package shared

import (
	"io"
	"os"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
)

// NewLogger creates a [log.Logger] writing to w, with timestamps and caller
// reporting enabled. A nil writer falls back to [os.Stderr].
func NewLogger(w io.Writer) *log.Logger {
	if w == nil {
		w = os.Stderr
	}
	return log.NewWithOptions(w, log.Options{ReportTimestamp: true, ReportCaller: true})
}

// WithLogger derives a child logger that stamps the given key-value pairs on
// every entry. The engines use this to tag their log lines by component.
func WithLogger(l *log.Logger, kv ...any) *log.Logger {
	return l.With(kv...)
}

// SetLogLevel adjusts the threshold on an existing logger, so verbosity can
// be raised after construction without rewiring the consumers.
func SetLogLevel(l *log.Logger, level log.Level) {
	l.SetLevel(level)
}

// GenerateID generates a new v4 [uuid.UUID] as a string
func GenerateID() string {
	return uuid.New().String()
}
