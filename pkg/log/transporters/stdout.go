package transporters

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"sync"
	"time"

	"pubspy/pkg/log"
)

// Format selects how entries are rendered.
type Format int

const (
	// JSON writes one JSON object per line.
	JSON Format = iota
	// Text writes "time LEVEL msg key=value ..." lines for terminals.
	Text
)

// ParseFormat maps "json" or "text" to a Format. Anything else is JSON.
func ParseFormat(s string) Format {
	if strings.EqualFold(strings.TrimSpace(s), "text") {
		return Text
	}
	return JSON
}

// Stdout writes log entries to stdout (or any io.Writer).
type Stdout struct {
	mu     sync.Mutex
	writer io.Writer
	format Format
}

// NewStdout creates a JSON transporter that writes to os.Stdout.
func NewStdout() *Stdout {
	return &Stdout{writer: os.Stdout, format: JSON}
}

// NewStderr creates a transporter on os.Stderr, used by the CLI so results on
// stdout stay machine readable.
func NewStderr(format Format) *Stdout {
	return &Stdout{writer: os.Stderr, format: format}
}

// NewStdoutWithWriter creates a transporter with a custom writer and format.
func NewStdoutWithWriter(w io.Writer, format Format) *Stdout {
	return &Stdout{writer: w, format: format}
}

// Name returns the transporter identifier.
func (s *Stdout) Name() string {
	if s.format == Text {
		return "stdout-text"
	}
	return "stdout"
}

// Write renders the entry and writes it as a single line.
func (s *Stdout) Write(entry log.Entry) error {
	var data []byte
	if s.format == Text {
		data = []byte(renderText(entry))
	} else {
		var err error
		if data, err = json.Marshal(entry); err != nil {
			return err
		}
	}
	data = append(data, '\n')

	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.writer.Write(data)
	return err
}

// Close is a no-op.
func (s *Stdout) Close() error {
	return nil
}

func renderText(entry log.Entry) string {
	var b strings.Builder
	b.WriteString(entry.Timestamp.UTC().Format(time.RFC3339))
	fmt.Fprintf(&b, " %-5s %s", entry.Level.String(), entry.Message)

	if entry.RequestID != "" {
		fmt.Fprintf(&b, " request_id=%s", entry.RequestID)
	}

	keys := make([]string, 0, len(entry.Fields))
	for k := range entry.Fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		v := fmt.Sprint(log.FieldValue(k, entry.Fields[k]))
		if strings.ContainsAny(v, " \t\"=") {
			v = fmt.Sprintf("%q", v)
		}
		fmt.Fprintf(&b, " %s=%s", k, v)
	}
	return b.String()
}
