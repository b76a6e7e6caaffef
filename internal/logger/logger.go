package logger

import (
	"io"
	"os"
	"strings"
	"time"

	"github.com/sirupsen/logrus"
)

// New returns a configured logrus.Logger. JSON output is used to keep logs structured.
func New(env string) *logrus.Logger {
	log := logrus.New()
	log.SetOutput(os.Stdout)
	log.SetLevel(parseLevel(env))
	log.SetFormatter(&logrus.JSONFormatter{
		TimestampFormat: time.RFC3339,
	})
	return log
}

// NewSilent returns a logger that discards everything, for tests.
func NewSilent() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(io.Discard)
	return log
}

func parseLevel(env string) logrus.Level {
	switch strings.ToLower(env) {
	case "local", "dev", "test":
		return logrus.DebugLevel
	default:
		return logrus.InfoLevel
	}
}
