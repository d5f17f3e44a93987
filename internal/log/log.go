// Package log provides structured logging for go-facemark.
// It wraps logrus with a nested formatter on stderr and an optional rotating file.
package log

import (
	"fmt"
	"io"
	"os"
	"path"
	"runtime"
	"strings"
	"sync"

	formatter "github.com/antonfisher/nested-logrus-formatter"
	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	logger *logrus.Logger
	once   sync.Once
)

// Fields is a set of structured log attributes.
type Fields = logrus.Fields

// Options configures the global logger.
type Options struct {
	Level string // "debug", "info", "warn", "error"
	File  string // Rotating log file; empty disables file output
}

// Init initializes the global logger. Only the first call has an effect.
func Init(opts Options) {
	once.Do(func() {
		logger = newLogger(opts, os.Stderr)
	})
}

func newLogger(opts Options, console io.Writer) *logrus.Logger {
	l := logrus.New()
	l.SetLevel(parseLevel(opts.Level))
	l.SetFormatter(&formatter.Formatter{
		NoColors:        false,
		TimestampFormat: "15:04:05.000",
		HideKeys:        false,
		CallerFirst:     true,
		CustomCallerFormatter: func(f *runtime.Frame) string {
			s := strings.Split(f.Function, ".")
			return fmt.Sprintf(" [%s:%d][%s()]", path.Base(f.File), f.Line, s[len(s)-1])
		},
	})

	writers := []io.Writer{console}
	if opts.File != "" {
		writers = append(writers, &lumberjack.Logger{
			Filename:   opts.File,
			LocalTime:  true,
			Compress:   true,
			MaxSize:    20,
			MaxAge:     7,
			MaxBackups: 3,
		})
	}
	l.SetOutput(io.MultiWriter(writers...))
	l.SetReportCaller(opts.Level == "debug")
	return l
}

func parseLevel(level string) logrus.Level {
	switch level {
	case "debug":
		return logrus.DebugLevel
	case "warn":
		return logrus.WarnLevel
	case "error":
		return logrus.ErrorLevel
	default:
		return logrus.InfoLevel
	}
}

// L returns the global logger instance.
func L() *logrus.Logger {
	Init(Options{Level: "info"}) // no-op after the first call
	return logger
}

// Debug logs at debug level.
func Debug(fields Fields, msg string) {
	L().WithFields(fields).Debug(msg)
}

// Info logs at info level.
func Info(fields Fields, msg string) {
	L().WithFields(fields).Info(msg)
}

// Warn logs at warn level.
func Warn(fields Fields, msg string) {
	L().WithFields(fields).Warn(msg)
}

// Error logs at error level.
func Error(fields Fields, msg string) {
	L().WithFields(fields).Error(msg)
}

// With returns an entry carrying the given fields.
func With(fields Fields) *logrus.Entry {
	return L().WithFields(fields)
}
