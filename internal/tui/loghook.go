package tui

import (
	"fmt"
	"strings"

	log "github.com/sirupsen/logrus"
)

// LogHook is a logrus hook that captures log entries and feeds them to the
// dashboard's activity view. While the TUI owns the terminal the global
// logger writes to io.Discard, so the hook is the only visible log output.
type LogHook struct {
	ch        chan string
	formatter log.Formatter
}

// NewLogHook creates a hook with a buffered channel of the given size.
func NewLogHook(bufSize int, formatter log.Formatter) *LogHook {
	if formatter == nil {
		formatter = &log.TextFormatter{DisableColors: true, FullTimestamp: true}
	}
	return &LogHook{
		ch:        make(chan string, bufSize),
		formatter: formatter,
	}
}

// Levels reports the levels this hook fires on. Debug noise stays out of the
// dashboard.
func (h *LogHook) Levels() []log.Level {
	return []log.Level{log.PanicLevel, log.FatalLevel, log.ErrorLevel, log.WarnLevel, log.InfoLevel}
}

// Fire is called by logrus for each log entry.
func (h *LogHook) Fire(entry *log.Entry) error {
	var line string
	b, err := h.formatter.Format(entry)
	if err == nil {
		line = strings.TrimRight(string(b), "\n\r")
	} else {
		line = fmt.Sprintf("[%s] %s", entry.Level, entry.Message)
	}

	// Non-blocking send; drop the oldest line when the buffer is full.
	select {
	case h.ch <- line:
	default:
		select {
		case <-h.ch:
		default:
		}
		select {
		case h.ch <- line:
		default:
		}
	}
	return nil
}

// Chan returns the channel to read log lines from.
func (h *LogHook) Chan() <-chan string {
	return h.ch
}
