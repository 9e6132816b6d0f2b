package logger

import (
	"io"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

var (
	InfoLogger  = logrus.New()
	WarnLogger  = logrus.New()
	ErrorLogger = logrus.New()
)

// InitLoggers points the three loggers at stdout and a rotated file under LOG_DIR.
func InitLoggers() {
	dir := os.Getenv("LOG_DIR")
	if dir == "" {
		dir = "logs"
	}

	InfoLogger = newLogger(filepath.Join(dir, "info.log"), logrus.InfoLevel)
	WarnLogger = newLogger(filepath.Join(dir, "warn.log"), logrus.WarnLevel)
	ErrorLogger = newLogger(filepath.Join(dir, "error.log"), logrus.ErrorLevel)
}

func newLogger(path string, level logrus.Level) *logrus.Logger {
	l := logrus.New()
	l.SetFormatter(&logrus.JSONFormatter{})
	l.SetLevel(level)

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		l.SetOutput(os.Stdout)
		l.Warnf("log directory unavailable, logging to stdout only: %v", err)
		return l
	}

	l.SetOutput(io.MultiWriter(os.Stdout, &lumberjack.Logger{
		Filename:   path,
		MaxSize:    10, // MB
		MaxBackups: 5,
		MaxAge:     30, // days
		Compress:   true,
	}))
	return l
}
