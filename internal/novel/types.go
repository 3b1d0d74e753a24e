package novel

import (
	"encoding/json"
	"strings"
	"time"
)

const backendTimestampLayout = "2006-01-02 15:04:05"

// Status is the parse state of a chapter.
type Status string

const (
	StatusUnparsed Status = "UNPARSED"
	StatusParsing  Status = "PARSING"
	StatusParsed   Status = "PARSED"
)

// The backend reports statuses either by name or by these display labels.
var statusLabels = map[string]Status{
	"未解析":  StatusUnparsed,
	"正在解析": StatusParsing,
	"已解析":  StatusParsed,
}

// ParseStatus maps an English status name or a backend label to a Status.
// Unrecognised values are returned verbatim.
func ParseStatus(value string) Status {
	trimmed := strings.TrimSpace(value)
	if s, ok := statusLabels[trimmed]; ok {
		return s
	}
	switch upper := strings.ToUpper(trimmed); upper {
	case string(StatusUnparsed), string(StatusParsing), string(StatusParsed):
		return Status(upper)
	}
	return Status(trimmed)
}

// Known reports whether s is one of the three parse states.
func (s Status) Known() bool {
	switch s {
	case StatusUnparsed, StatusParsing, StatusParsed:
		return true
	}
	return false
}

// Label returns the backend's display label, or the raw value when unknown.
func (s Status) Label() string {
	for label, status := range statusLabels {
		if status == s {
			return label
		}
	}
	return string(s)
}

// Terminal reports whether no further progress is expected.
func (s Status) Terminal() bool {
	return s == StatusParsed
}

// UnmarshalJSON accepts both status names and backend labels.
func (s *Status) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*s = ParseStatus(raw)
	return nil
}

// Chapter is a status snapshot for one chapter as reported by the backend.
type Chapter struct {
	Name     string  `json:"name" yaml:"name"`
	Status   Status  `json:"status" yaml:"status"`
	Progress float64 `json:"progress" yaml:"progress"`
}

// Percent returns the progress clamped to [0,100].
func (c Chapter) Percent() float64 {
	switch {
	case c.Progress < 0:
		return 0
	case c.Progress > 100:
		return 100
	}
	return c.Progress
}

// ChapterPage mirrors /novels/{novel}/chapters.
type ChapterPage struct {
	Items []Chapter `json:"items"`
	Total int       `json:"total,omitempty"`
}

// AudioManifest is the raw audio_list_with_text payload. Its shape belongs to
// the backend's audio player and is not interpreted here.
type AudioManifest json.RawMessage

// MarshalJSON keeps the manifest as-is when re-encoding.
func (m AudioManifest) MarshalJSON() ([]byte, error) {
	if len(m) == 0 {
		return []byte("null"), nil
	}
	return m, nil
}

// LogLevel filters /logs requests.
type LogLevel string

const (
	LevelAll     LogLevel = "all"
	LevelError   LogLevel = "error"
	LevelWarning LogLevel = "warning"
	LevelInfo    LogLevel = "info"
	LevelDebug   LogLevel = "debug"
)

// ExportFormat selects the /logs/export body format.
type ExportFormat string

const (
	ExportText ExportFormat = "txt"
	ExportJSON ExportFormat = "json"
)

// LogStats mirrors /logs/stats.
type LogStats struct {
	Total   int            `json:"total" yaml:"total"`
	ByLevel map[string]int `json:"byLevel" yaml:"byLevel"`
	Recent  []LogRecord    `json:"recent" yaml:"recent"`
}

// LogRecord is one entry of LogStats.Recent.
type LogRecord struct {
	Timestamp string `json:"timestamp" yaml:"timestamp"`
	Level     string `json:"level" yaml:"level"`
	Message   string `json:"message" yaml:"message"`
}

// ParsedTime returns the timestamp as time.Time when possible.
func (r LogRecord) ParsedTime() time.Time {
	return ParseTime(r.Timestamp)
}

// ParseTime accepts RFC 3339 and the backend's "2006-01-02 15:04:05" layout,
// optionally with a ",000" millisecond suffix. It returns the zero time when
// nothing matches.
func ParseTime(value string) time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}
	}
	for _, layout := range []string{time.RFC3339Nano, time.RFC3339} {
		if t, err := time.Parse(layout, value); err == nil {
			return t
		}
	}
	if idx := strings.IndexByte(value, ','); idx > 0 {
		value = value[:idx]
	}
	if t, err := time.ParseInLocation(backendTimestampLayout, value, time.Local); err == nil {
		return t
	}
	return time.Time{}
}
