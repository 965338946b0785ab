package logging

import (
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

var base = logrus.New()

// Init configures the shared logger. Unknown levels fall back to info.
func Init(level, format string) *logrus.Logger {
	lvl, err := logrus.ParseLevel(strings.TrimSpace(level))
	if err != nil {
		lvl = logrus.InfoLevel
	}
	base.SetLevel(lvl)
	base.SetOutput(os.Stdout)

	if strings.EqualFold(strings.TrimSpace(format), "json") {
		base.SetFormatter(&logrus.JSONFormatter{})
	} else {
		base.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	}
	return base
}

// Logger returns the shared logger.
func Logger() *logrus.Logger {
	return base
}

// For returns an entry tagged with the component name.
func For(component string) *logrus.Entry {
	return base.WithField("component", component)
}
