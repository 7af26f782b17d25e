// Package logging provides a simple leveled logger for the TGA tools.
package logging

import (
	"encoding/json"
	"fmt"
	"io"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"sync"
	"time"
)

// Level represents log severity levels
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarn
	LevelError
)

var levelNames = map[Level]string{
	LevelDebug: "DEBUG",
	LevelInfo:  "INFO",
	LevelWarn:  "WARN",
	LevelError: "ERROR",
}

// Output formats
const (
	FormatText = "text"
	FormatJSON = "json"
)

// Options configures a Logger.
type Options struct {
	Level  string
	Format string
	File   string
	Caller bool
}

// Logger provides leveled logging
type Logger struct {
	level  Level
	json   bool
	caller bool
	mu     sync.RWMutex
	out    io.Writer
	logger *log.Logger
	closer io.Closer
}

var (
	defaultLogger *Logger
	once          sync.Once
)

// Default returns the default logger instance
func Default() *Logger {
	once.Do(func() {
		defaultLogger = New(os.Stderr)
	})
	return defaultLogger
}

// New returns a text logger at info level writing to w.
func New(w io.Writer) *Logger {
	return &Logger{
		level:  LevelInfo,
		out:    w,
		logger: log.New(w, "", log.LstdFlags|log.LUTC),
	}
}

// Configure applies opts to the logger. A non-empty File redirects output
// to that file, appending; the previous file, if any, is closed.
func (l *Logger) Configure(opts Options) error {
	format := strings.ToLower(opts.Format)
	if format != "" && format != FormatText && format != FormatJSON {
		return fmt.Errorf("logging: unknown format %q", opts.Format)
	}

	var out io.Writer
	var closer io.Closer
	if opts.File != "" {
		if err := os.MkdirAll(filepath.Dir(opts.File), 0o755); err != nil {
			return fmt.Errorf("logging: %w", err)
		}
		f, err := os.OpenFile(opts.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("logging: %w", err)
		}
		out, closer = f, f
	}

	l.SetLevelFromString(opts.Level)

	l.mu.Lock()
	defer l.mu.Unlock()

	if out != nil {
		if l.closer != nil {
			l.closer.Close()
		}
		l.out, l.closer = out, closer
	}
	l.json = format == FormatJSON
	l.caller = opts.Caller
	if l.json {
		l.logger = log.New(l.out, "", 0)
	} else {
		l.logger = log.New(l.out, "", log.LstdFlags|log.LUTC)
	}

	return nil
}

// Close releases the log file opened by Configure.
func (l *Logger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closer == nil {
		return nil
	}
	err := l.closer.Close()
	l.closer = nil
	l.out = os.Stderr
	l.logger = log.New(os.Stderr, "", log.LstdFlags|log.LUTC)
	return err
}

// SetLevel sets the minimum log level
func (l *Logger) SetLevel(level Level) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.level = level
}

// ParseLevel maps a level name to a Level. Unknown names map to LevelInfo.
func ParseLevel(levelStr string) Level {
	switch strings.ToLower(levelStr) {
	case "debug":
		return LevelDebug
	case "info":
		return LevelInfo
	case "warn", "warning":
		return LevelWarn
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

// SetLevelFromString sets the log level from a string
func (l *Logger) SetLevelFromString(levelStr string) {
	l.SetLevel(ParseLevel(levelStr))
}

// GetLevel returns the current log level
func (l *Logger) GetLevel() Level {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.level
}

// GetLevelString returns the current log level as a string
func (l *Logger) GetLevelString() string {
	return levelNames[l.GetLevel()]
}

// GetLevelString returns the default logger's level as a string
func GetLevelString() string {
	return Default().GetLevelString()
}

type jsonLine struct {
	Time    string `json:"time"`
	Level   string `json:"level"`
	Message string `json:"msg"`
	Caller  string `json:"caller,omitempty"`
}

func (l *Logger) log(level Level, format string, args ...interface{}) {
	l.mu.RLock()
	currentLevel, asJSON, withCaller, logger := l.level, l.json, l.caller, l.logger
	l.mu.RUnlock()

	if level < currentLevel {
		return
	}

	prefix := levelNames[level]
	msg := fmt.Sprintf(format, args...)

	var caller string
	if withCaller {
		// log <- Debug/Info/... <- package func or caller
		if _, file, line, ok := runtime.Caller(2); ok {
			caller = fmt.Sprintf("%s:%d", filepath.Base(file), line)
		}
	}

	if asJSON {
		b, err := json.Marshal(jsonLine{
			Time:    time.Now().UTC().Format(time.RFC3339Nano),
			Level:   prefix,
			Message: msg,
			Caller:  caller,
		})
		if err != nil {
			logger.Printf(`{"level":"ERROR","msg":%q}`, err.Error())
			return
		}
		logger.Print(string(b))
		return
	}

	if caller != "" {
		logger.Printf("[%s] %s %s", prefix, caller, msg)
		return
	}
	logger.Printf("[%s] %s", prefix, msg)
}

// Debug logs a debug message
func (l *Logger) Debug(format string, args ...interface{}) {
	l.log(LevelDebug, format, args...)
}

// Info logs an info message
func (l *Logger) Info(format string, args ...interface{}) {
	l.log(LevelInfo, format, args...)
}

// Warn logs a warning message
func (l *Logger) Warn(format string, args ...interface{}) {
	l.log(LevelWarn, format, args...)
}

// Error logs an error message
func (l *Logger) Error(format string, args ...interface{}) {
	l.log(LevelError, format, args...)
}

// Package-level convenience functions

// Configure applies opts to the default logger
func Configure(opts Options) error {
	return Default().Configure(opts)
}

// SetLevel sets the default logger's level
func SetLevel(level Level) {
	Default().SetLevel(level)
}

// SetLevelFromString sets the default logger's level from a string
func SetLevelFromString(levelStr string) {
	Default().SetLevelFromString(levelStr)
}

// Debug logs a debug message to the default logger
func Debug(format string, args ...interface{}) {
	Default().log(LevelDebug, format, args...)
}

// Info logs an info message to the default logger
func Info(format string, args ...interface{}) {
	Default().log(LevelInfo, format, args...)
}

// Warn logs a warning message to the default logger
func Warn(format string, args ...interface{}) {
	Default().log(LevelWarn, format, args...)
}

// Error logs an error message to the default logger
func Error(format string, args ...interface{}) {
	Default().log(LevelError, format, args...)
}
