// Package logger is tipguard's leveled logger. Entries go to stderr either as
// one human-readable line or as one JSON object, so they never mix with the
// report written to stdout.
package logger

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"runtime"
	"sort"
	"strings"
	"sync"
	"time"
)

// Level represents the severity level of log messages
type Level int

const (
	TraceLevel Level = iota
	DebugLevel
	InfoLevel
	WarnLevel
	ErrorLevel
)

var levelNames = [...]string{"TRACE", "DEBUG", "INFO", "WARN", "ERROR"}

// ANSI colors per level, index-aligned with levelNames.
var levelColors = [...]string{"37", "36", "32", "33", "31"}

// String returns the string representation of the level
func (l Level) String() string {
	if l < TraceLevel || l > ErrorLevel {
		return "UNKNOWN"
	}
	return levelNames[l]
}

// ParseLevel maps a flag value to a Level. Unknown values fall back to InfoLevel.
func ParseLevel(s string) Level {
	s = strings.ToUpper(strings.TrimSpace(s))
	if s == "WARNING" {
		return WarnLevel
	}
	for i, name := range levelNames {
		if name == s {
			return Level(i)
		}
	}
	return InfoLevel
}

// Config holds the logger configuration
type Config struct {
	Level     Level
	UseColor  bool
	JSON      bool
	Component string
	NoOp      bool
	// Output defaults to os.Stderr.
	Output io.Writer
}

// Logger writes entries for one configuration. Safe for concurrent use.
type Logger struct {
	config Config

	mu  sync.Mutex
	out io.Writer
}

var defaultLogger *Logger

// New builds a logger from config.
func New(config Config) *Logger {
	if config.Component == "" {
		config.Component = "tipguard"
	}
	out := config.Output
	if out == nil {
		out = os.Stderr
	}
	return &Logger{config: config, out: out}
}

// Initialize sets up the default logger
func Initialize(config Config) error {
	defaultLogger = New(config)
	return nil
}

// Log writes a log message
func (l *Logger) Log(level Level, message string, fields ...Field) {
	l.log(2, level, message, fields)
}

func (l *Logger) log(skip int, level Level, message string, fields []Field) {
	if level < l.config.Level {
		return
	}

	entry := LogEntry{
		Time:      time.Now(),
		Level:     level.String(),
		Message:   message,
		Component: l.config.Component,
		fields:    fields,
	}
	if level <= DebugLevel {
		if _, file, line, ok := runtime.Caller(skip); ok {
			entry.File = file
			entry.Line = line
		}
	}

	var line string
	if l.config.JSON {
		entry.Fields = fieldMap(fields)
		data, err := json.Marshal(entry)
		if err != nil {
			data = []byte(fmt.Sprintf(`{"level":%q,"message":%q}`, entry.Level, message))
		}
		line = string(data)
	} else {
		line = l.formatPretty(entry)
	}

	l.mu.Lock()
	defer l.mu.Unlock()
	_, _ = io.WriteString(l.out, line+"\n")
}

func (l *Logger) paint(code, s string) string {
	if !l.config.UseColor {
		return s
	}
	return "\033[" + code + "m" + s + "\033[0m"
}

// formatPretty renders "time [LEVEL] component: [NO-OP] message {k=v, ...} (file:line)".
// Fields keep the order they were passed in.
func (l *Logger) formatPretty(entry LogEntry) string {
	var b strings.Builder
	b.WriteString(entry.Time.Format("2006-01-02 15:04:05"))

	level := entry.Level
	if lv := ParseLevel(level); lv.String() == level {
		level = l.paint(levelColors[lv], level)
	}
	fmt.Fprintf(&b, " [%s]", level)

	if entry.Component != "" {
		fmt.Fprintf(&b, " %s:", entry.Component)
	}
	if l.config.NoOp {
		b.WriteString(" " + l.paint("35", "[NO-OP]"))
	}
	b.WriteString(" " + entry.Message)

	fields := entry.fields
	if fields == nil {
		fields = sortedFields(entry.Fields)
	}
	if len(fields) > 0 {
		b.WriteString(" {")
		for i, f := range fields {
			if i > 0 {
				b.WriteString(", ")
			}
			fmt.Fprintf(&b, "%s=%v", f.Key, f.Value)
		}
		b.WriteString("}")
	}

	if entry.File != "" {
		fmt.Fprintf(&b, " (%s:%d)", entry.File, entry.Line)
	}
	return b.String()
}

// Field represents a structured field in a log entry
type Field struct {
	Key   string
	Value interface{}
}

// String creates a string field
func String(key, value string) Field {
	return Field{Key: key, Value: value}
}

// Strings creates a comma-joined string list field
func Strings(key string, values []string) Field {
	return Field{Key: key, Value: strings.Join(values, ",")}
}

// Int creates an int field
func Int(key string, value int) Field {
	return Field{Key: key, Value: value}
}

// Bool creates a bool field
func Bool(key string, value bool) Field {
	return Field{Key: key, Value: value}
}

// Doc tags a log entry with the document identifier being processed
func Doc(id string) Field {
	return Field{Key: "doc", Value: id}
}

// Err creates an error field
func Err(err error) Field {
	if err == nil {
		return Field{Key: "error", Value: ""}
	}
	return Field{Key: "error", Value: err.Error()}
}

// LogEntry is the JSON shape of one entry.
type LogEntry struct {
	Time      time.Time              `json:"time"`
	Level     string                 `json:"level"`
	Message   string                 `json:"message"`
	Component string                 `json:"component,omitempty"`
	File      string                 `json:"file,omitempty"`
	Line      int                    `json:"line,omitempty"`
	Fields    map[string]interface{} `json:"fields,omitempty"`

	fields []Field
}

func fieldMap(fields []Field) map[string]interface{} {
	if len(fields) == 0 {
		return nil
	}
	m := make(map[string]interface{}, len(fields))
	for _, f := range fields {
		m[f.Key] = f.Value
	}
	return m
}

func sortedFields(m map[string]interface{}) []Field {
	fields := make([]Field, 0, len(m))
	for k, v := range m {
		fields = append(fields, Field{Key: k, Value: v})
	}
	sort.Slice(fields, func(i, j int) bool { return fields[i].Key < fields[j].Key })
	return fields
}

// emit logs through the default logger. Before Initialize, info and above go
// to stderr as plain lines.
func emit(level Level, message string, fields []Field) {
	if defaultLogger != nil {
		defaultLogger.log(3, level, message, fields)
		return
	}
	if level < InfoLevel {
		return
	}
	var b strings.Builder
	fmt.Fprintf(&b, "[%s] tipguard: %s", level, message)
	for _, f := range fields {
		fmt.Fprintf(&b, " %s=%v", f.Key, f.Value)
	}
	b.WriteString("\n")
	_, _ = os.Stderr.WriteString(b.String())
}

func Trace(message string, fields ...Field) { emit(TraceLevel, message, fields) }

func Debug(message string, fields ...Field) { emit(DebugLevel, message, fields) }

func Info(message string, fields ...Field) { emit(InfoLevel, message, fields) }

func Warn(message string, fields ...Field) { emit(WarnLevel, message, fields) }

func Error(message string, fields ...Field) { emit(ErrorLevel, message, fields) }

// SetOutput redirects the default logger.
func SetOutput(w io.Writer) {
	if defaultLogger == nil {
		return
	}
	defaultLogger.mu.Lock()
	defer defaultLogger.mu.Unlock()
	defaultLogger.out = w
}
