package audit

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"
	"time"
)

const (
	EventToolCall    = "tool.call"
	EventToolError   = "tool.error"
	EventGroupSend   = "group.send"
	defaultFileMode  = 0o600
	defaultDirMode   = 0o755
	defaultLineBreak = '\n'
)

// sensitive keys are dropped from payloads before they hit disk.
var sensitiveKeys = map[string]bool{
	"apiKey":  true,
	"api_key": true,
	"token":   true,
}

// Event is one line of the trade audit trail.
type Event struct {
	Timestamp time.Time      `json:"ts"`
	Type      string         `json:"type"`
	Tool      string         `json:"tool,omitempty"`
	Error     string         `json:"error,omitempty"`
	Payload   map[string]any `json:"payload,omitempty"`
}

// Trail is an append-only JSONL record of every trade request the bridge
// handles. It survives restarts and is safe for concurrent writers.
type Trail struct {
	path   string
	mu     sync.Mutex
	file   *os.File
	writer *bufio.Writer
}

func Open(path string) (*Trail, error) {
	if err := os.MkdirAll(filepath.Dir(path), defaultDirMode); err != nil {
		return nil, err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, defaultFileMode)
	if err != nil {
		return nil, err
	}
	return &Trail{path: path, file: f, writer: bufio.NewWriterSize(f, 32*1024)}, nil
}

// Record appends one event. Sensitive payload keys are scrubbed, the line is
// flushed before returning so a crash loses at most the event in flight.
func (t *Trail) Record(eventType, tool, errText string, payload map[string]any) error {
	e := Event{Type: eventType, Timestamp: time.Now().UTC(), Tool: tool, Error: errText}

	if len(payload) > 0 {
		clean := make(map[string]any, len(payload))
		for k, v := range payload {
			if sensitiveKeys[k] {
				continue
			}
			clean[k] = v
		}
		if len(clean) > 0 {
			e.Payload = clean
		}
	}

	line, err := json.Marshal(e)
	if err != nil {
		return err
	}
	line = append(line, defaultLineBreak)

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.file == nil || t.writer == nil {
		f, err := os.OpenFile(t.path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, defaultFileMode)
		if err != nil {
			return err
		}
		t.file = f
		t.writer = bufio.NewWriterSize(f, 32*1024)
	}

	if _, err := t.writer.Write(line); err != nil {
		return err
	}
	return t.writer.Flush()
}

func (t *Trail) Close() error {
	if t == nil {
		return nil
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.file == nil {
		return nil
	}
	if t.writer != nil {
		if err := t.writer.Flush(); err != nil {
			_ = t.file.Close()
			t.file = nil
			t.writer = nil
			return err
		}
	}
	if err := t.file.Sync(); err != nil {
		_ = t.file.Close()
		t.file = nil
		t.writer = nil
		return err
	}
	err := t.file.Close()
	t.file = nil
	t.writer = nil
	return err
}
