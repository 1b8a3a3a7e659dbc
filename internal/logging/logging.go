package logging

import (
	"os"
	"strings"

	"events_api/internal/config"

	"github.com/sirupsen/logrus"
)

const timeFormat = "2006-01-02 15:04:05"

// Init configures the global logrus logger. The returned entry carries the
// component name and is meant for process-level messages in main.
func Init(component string, cfg *config.LogConfig) *logrus.Entry {
	if strings.EqualFold(cfg.Format, "json") {
		logrus.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: timeFormat,
		})
	} else {
		logrus.SetFormatter(&logrus.TextFormatter{
			FullTimestamp:   true,
			TimestampFormat: timeFormat,
		})
	}
	logrus.SetOutput(os.Stdout)
	logrus.SetLevel(ParseLevel(cfg.Level))

	entry := logrus.WithField("component", component)
	entry.WithField("level", logrus.GetLevel().String()).Debug("logger initiated")
	return entry
}

// ParseLevel falls back to info for anything logrus does not recognise.
func ParseLevel(level string) logrus.Level {
	switch strings.ToLower(level) {
	case "debug":
		return logrus.DebugLevel
	case "warn", "warning":
		return logrus.WarnLevel
	case "error":
		return logrus.ErrorLevel
	default:
		return logrus.InfoLevel
	}
}
