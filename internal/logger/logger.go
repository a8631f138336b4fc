// Package logger wraps logrus with component-scoped structured logging
package logger

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
	lumberjack "gopkg.in/natefinch/lumberjack.v2"
)

// Fields is an alias for logrus.Fields
type Fields = logrus.Fields

// Log wraps a logrus logger
type Log struct {
	*logrus.Logger
}

// New returns a logger with JSON output at info level; Configure adjusts it
// from loaded configuration.
func New() *Log {
	l := logrus.New()
	l.SetLevel(logrus.InfoLevel)
	l.SetFormatter(jsonFormatter())
	l.SetOutput(os.Stdout)
	return &Log{Logger: l}
}

func jsonFormatter() logrus.Formatter {
	return &logrus.JSONFormatter{
		TimestampFormat: time.RFC3339Nano,
		FieldMap: logrus.FieldMap{
			logrus.FieldKeyTime:  "timestamp",
			logrus.FieldKeyLevel: "level",
			logrus.FieldKeyMsg:   "message",
		},
	}
}

// WithComponent returns an entry tagged with the originating component
func (l *Log) WithComponent(component string) *logrus.Entry {
	return l.Logger.WithField("component", component)
}

// Configure applies level, format and output settings. Output is "stdout",
// "stderr" or a file path; file output rotates by age when maxAgeDays > 0.
func (l *Log) Configure(level, format, output string, maxAgeDays int) error {
	lvl, err := logrus.ParseLevel(strings.ToLower(level))
	if err != nil {
		return fmt.Errorf("invalid log level %q", level)
	}
	l.SetLevel(lvl)

	switch format {
	case "json", "":
		l.SetFormatter(jsonFormatter())
	case "text":
		l.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: time.RFC3339,
		})
	default:
		return fmt.Errorf("invalid log format %q", format)
	}

	switch output {
	case "stdout", "":
		l.SetOutput(os.Stdout)
	case "stderr":
		l.SetOutput(os.Stderr)
	default:
		if maxAgeDays > 0 {
			l.SetOutput(&lumberjack.Logger{
				Filename: output,
				MaxAge:   maxAgeDays,
				MaxSize:  100,
				Compress: true,
			})
		} else {
			file, err := os.OpenFile(output, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
			if err != nil {
				return fmt.Errorf("failed to open log file %q: %w", output, err)
			}
			l.SetOutput(file)
		}
	}

	return nil
}
