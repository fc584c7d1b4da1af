package logging

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/go-logr/logr"
	"github.com/go-logr/logr/funcr"
)

// New returns a logger writing one timestamped key=value line per entry to
// w. Entries above verbosity are dropped.
func New(w io.Writer, verbosity int) logr.Logger {
	var mu sync.Mutex
	return funcr.New(func(prefix, args string) {
		line := strings.TrimRight(args, "\n")
		if prefix != "" {
			line = prefix + ": " + line
		}
		mu.Lock()
		defer mu.Unlock()
		fmt.Fprintln(w, line)
	}, funcr.Options{
		LogTimestamp: true,
		Verbosity:    verbosity,
	})
}
