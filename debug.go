package notify

import (
	"fmt"
	"os"
	"time"
)

// Set NOTIFY_DEBUG=1 in the environment to have every backend log raw
// kernel events to stderr as they're read, before translation and before
// the ignore filters run.
var debugEnabled = os.Getenv("NOTIFY_DEBUG") != ""

func debugf(backend, format string, args ...any) {
	if !debugEnabled {
		return
	}
	fmt.Fprintf(os.Stderr, "NOTIFY_DEBUG: %s %s  %s\n",
		time.Now().Format("15:04:05.000000000"), backend, fmt.Sprintf(format, args...))
}
