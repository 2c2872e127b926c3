package tui

import (
	"bytes"
	"strings"
	"sync"

	"github.com/francegen/tilebatch/internal/download"
)

// lineWriter turns processor output into log entries, one per line.
type lineWriter struct {
	level download.ProgressLevel
	emit  func(download.ProgressEvent)

	mu  sync.Mutex
	buf bytes.Buffer
}

func (w *lineWriter) Write(p []byte) (int, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	w.buf.Write(p)
	for {
		line, err := w.buf.ReadString('\n')
		if err != nil {
			// keep the partial line for the next write
			w.buf.Reset()
			w.buf.WriteString(line)
			break
		}
		if msg := strings.TrimRight(line, "\r\n"); msg != "" {
			w.emit(download.ProgressEvent{Message: msg, Level: w.level})
		}
	}
	return len(p), nil
}
