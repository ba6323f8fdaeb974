// Package log configures apex/log for the smartcache command.
package log

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/apex/log"
)

// EnvLevel names the environment variable holding the log level.
const EnvLevel = "SMARTCACHE_LOG"

// InitLogger installs a Handler writing to stderr and sets the level from
// SMARTCACHE_LOG, defaulting to ERROR.
func InitLogger() {
	level := strings.ToLower(os.Getenv(EnvLevel))
	if level == "" {
		level = "error"
	}
	log.SetHandler(NewHandler(os.Stderr))
	lvl, err := log.ParseLevel(level)
	if err != nil {
		log.SetLevel(log.ErrorLevel)
		log.WithField("value", level).Error("unknown log level, using error")
		return
	}
	log.SetLevel(lvl)
}

// Handler writes one line per entry: timestamp, level initial, message and
// the entry's fields sorted by name.
type Handler struct {
	mu  sync.Mutex
	w   io.Writer
	now func() time.Time
}

// NewHandler returns a Handler writing to w.
func NewHandler(w io.Writer) *Handler {
	return &Handler{w: w, now: time.Now}
}

// HandleLog implements the log.Handler interface
func (h *Handler) HandleLog(e *log.Entry) error {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %.1s %s", h.now().Format("2006-01-02 15:04:05"),
		strings.ToUpper(e.Level.String()), e.Message)

	names := make([]string, 0, len(e.Fields))
	for name := range e.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		fmt.Fprintf(&b, " %s=%v", name, e.Fields[name])
	}
	b.WriteByte('\n')

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := io.WriteString(h.w, b.String())
	return err
}
