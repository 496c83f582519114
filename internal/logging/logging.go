// Package logging configures the process-wide logrus logger.
package logging

import (
	"github.com/sirupsen/logrus"
)

// Setup applies the configured level and a timestamped text format to the
// standard logger. Unknown levels fall back to info.
func Setup(level string) {
	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
		logrus.Warnf("unknown log level %q, using info", level)
	}
	logrus.SetLevel(lvl)
	logrus.SetFormatter(&logrus.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "15:04:05",
	})
}
