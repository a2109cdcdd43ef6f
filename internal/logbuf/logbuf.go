// Package logbuf implements the decoder-internal structured diagnostic
// log: a bounded, in-memory ring of leveled entries keyed by module and
// BUFR message id, renderable as CSV or JSON lines.
package logbuf

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Level orders the log's severities, lowest-to-highest, plus the Off
// sentinel used to silence a buffer entirely.
type Level int

const (
	Trace Level = iota
	Debug
	Info
	Warn
	Error
	Fatal
	Off
)

func (l Level) String() string {
	switch l {
	case Trace:
		return "TRACE"
	case Debug:
		return "DEBUG"
	case Info:
		return "INFO"
	case Warn:
		return "WARN"
	case Error:
		return "ERROR"
	case Fatal:
		return "FATAL"
	default:
		return "OFF"
	}
}

// Entry is a single log record.
type Entry struct {
	Time    time.Time `json:"time"`
	Level   Level     `json:"-"`
	Module  string    `json:"module"`
	BufrID  string    `json:"bufr_id"`
	Message string    `json:"message"`
}

// MarshalJSON renders Level as its string form rather than its int value.
func (e Entry) MarshalJSON() ([]byte, error) {
	type alias struct {
		Time    time.Time `json:"time"`
		Level   string    `json:"level"`
		Module  string    `json:"module"`
		BufrID  string    `json:"bufr_id"`
		Message string    `json:"message"`
	}
	return json.Marshal(alias{
		Time:    e.Time,
		Level:   e.Level.String(),
		Module:  e.Module,
		BufrID:  e.BufrID,
		Message: e.Message,
	})
}

const fullEntryMessage = "LogBuffer full"

// Buffer is a ring-bounded sequence of Entries gated by a minimum level.
// When appends reach max-1, a synthetic Fatal "LogBuffer full" entry is
// pushed and further appends are dropped until Clear.
type Buffer struct {
	entries []Entry
	max     int
	level   Level
	full    bool
}

// New returns a Buffer accepting entries at level or above, holding at
// most max entries (including the synthetic full-marker).
func New(level Level, max int) *Buffer {
	if max <= 0 {
		max = 5000
	}
	return &Buffer{max: max, level: level}
}

// Add appends an entry if its level meets the buffer's threshold and the
// buffer has not already filled. Module and bufrID are attached as-is.
func (b *Buffer) Add(level Level, module, bufrID, message string) {
	if level < b.level || b.level == Off {
		return
	}
	if b.full {
		return
	}
	b.entries = append(b.entries, Entry{
		Time:    timeNow(),
		Level:   level,
		Module:  module,
		BufrID:  bufrID,
		Message: message,
	})
	if len(b.entries) >= b.max-1 {
		b.entries = append(b.entries, Entry{
			Time:    timeNow(),
			Level:   Fatal,
			Module:  "logbuf",
			BufrID:  bufrID,
			Message: fullEntryMessage,
		})
		b.full = true
	}
}

// Tracef/Debugf/Infof/Warnf/Errorf/Fatalf are convenience wrappers around
// Add for each level, formatting message like fmt.Sprintf.
func (b *Buffer) Tracef(module, bufrID, format string, args ...any) {
	b.Add(Trace, module, bufrID, fmt.Sprintf(format, args...))
}
func (b *Buffer) Debugf(module, bufrID, format string, args ...any) {
	b.Add(Debug, module, bufrID, fmt.Sprintf(format, args...))
}
func (b *Buffer) Infof(module, bufrID, format string, args ...any) {
	b.Add(Info, module, bufrID, fmt.Sprintf(format, args...))
}
func (b *Buffer) Warnf(module, bufrID, format string, args ...any) {
	b.Add(Warn, module, bufrID, fmt.Sprintf(format, args...))
}
func (b *Buffer) Errorf(module, bufrID, format string, args ...any) {
	b.Add(Error, module, bufrID, fmt.Sprintf(format, args...))
}
func (b *Buffer) Fatalf(module, bufrID, format string, args ...any) {
	b.Add(Fatal, module, bufrID, fmt.Sprintf(format, args...))
}

// Clear empties the buffer and resets the full marker.
func (b *Buffer) Clear() {
	b.entries = nil
	b.full = false
}

// Entries returns the buffer's entries at or above level. Pass Off to get
// everything.
func (b *Buffer) Entries(level Level) []Entry {
	if level == Off {
		return append([]Entry(nil), b.entries...)
	}
	out := make([]Entry, 0, len(b.entries))
	for _, e := range b.entries {
		if e.Level >= level {
			out = append(out, e)
		}
	}
	return out
}

// SetLevel changes the minimum accepted level. If purge is true, existing
// entries below the new level are dropped.
func (b *Buffer) SetLevel(level Level, purge bool) {
	b.level = level
	if !purge {
		return
	}
	b.entries = b.Entries(level)
}

// RenderCSV renders one line of CSV per entry (time;level;module;bufr_id;
// message by default), filtered to level and above.
func (b *Buffer) RenderCSV(delimiter rune, level Level) string {
	if delimiter == 0 {
		delimiter = ';'
	}
	var sb strings.Builder
	d := string(delimiter)
	for _, e := range b.Entries(level) {
		sb.WriteString(e.Time.Format(time.RFC3339))
		sb.WriteString(d)
		sb.WriteString(e.Level.String())
		sb.WriteString(d)
		sb.WriteString(e.Module)
		sb.WriteString(d)
		sb.WriteString(e.BufrID)
		sb.WriteString(d)
		sb.WriteString(e.Message)
		sb.WriteString("\n")
	}
	return sb.String()
}

// RenderJSON renders one JSON object per entry, one per line, filtered to
// level and above.
func (b *Buffer) RenderJSON(level Level) string {
	var sb strings.Builder
	for _, e := range b.Entries(level) {
		line, err := json.Marshal(e)
		if err != nil {
			continue
		}
		sb.Write(line)
		sb.WriteString("\n")
	}
	return sb.String()
}

// timeNow is a var so tests can stub it out for deterministic output.
var timeNow = time.Now
