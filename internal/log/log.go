// Package log is the process logger: logrus with a nested formatter, caller
// reporting and an optional rotated log file.
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
	mu     sync.Mutex
	logger *logrus.Logger
)

type Fields = logrus.Fields

// Options configures the process logger.
type Options struct {
	Level   string // debug | info | warn | error
	File    string // rotated log file, empty for stderr only
	NoColor bool
}

// Init builds the process logger, replacing any logger set up earlier
// (including the defaults L installs on first use).
func Init(opts Options) *logrus.Logger {
	l := newLogger(opts)
	mu.Lock()
	logger = l
	mu.Unlock()
	return l
}

func newLogger(opts Options) *logrus.Logger {
	l := logrus.New()
	l.SetLevel(parseLevel(opts.Level))
	l.SetFormatter(&formatter.Formatter{
		NoColors:        opts.NoColor,
		TimestampFormat: "2006-01-02 15:04:05",
		HideKeys:        false,
		CallerFirst:     true,
		CustomCallerFormatter: func(f *runtime.Frame) string {
			s := strings.Split(f.Function, ".")
			funcName := s[len(s)-1]
			return fmt.Sprintf(" [%s:%d][%s()]", path.Base(f.File), f.Line, funcName)
		},
	})

	writers := []io.Writer{os.Stderr}
	if opts.File != "" {
		writers = append(writers, &lumberjack.Logger{
			Filename:   opts.File,
			LocalTime:  true,
			Compress:   true,
			MaxSize:    50,
			MaxAge:     14,
			MaxBackups: 5,
		})
	}
	l.SetOutput(io.MultiWriter(writers...))
	l.SetReportCaller(true)
	return l
}

func parseLevel(level string) logrus.Level {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		return logrus.InfoLevel
	}
	return lvl
}

// L returns the process logger, initializing it with defaults if needed.
func L() *logrus.Logger {
	mu.Lock()
	defer mu.Unlock()
	if logger == nil {
		logger = newLogger(Options{Level: "info"})
	}
	return logger
}

// SetOutput redirects the process logger, used by tests to silence or capture it.
func SetOutput(w io.Writer) {
	L().SetOutput(w)
}

func Debug(fields Fields, msg string) {
	L().WithFields(orEmpty(fields)).Debug(msg)
}

func Info(fields Fields, msg string) {
	L().WithFields(orEmpty(fields)).Info(msg)
}

func Warn(fields Fields, msg string) {
	L().WithFields(orEmpty(fields)).Warn(msg)
}

func Error(fields Fields, msg string) {
	L().WithFields(orEmpty(fields)).Error(msg)
}

func Fatal(fields Fields, msg string) {
	L().WithFields(orEmpty(fields)).Fatal(msg)
}

func orEmpty(fields Fields) Fields {
	if fields == nil {
		return Fields{}
	}
	return fields
}

// SetLevel changes the process log level. Unknown names fall back to info.
func SetLevel(level string) {
	L().SetLevel(parseLevel(level))
}
