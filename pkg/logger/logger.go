package logger

import (
	"io"
	"os"
	"strings"

	"github.com/sirupsen/logrus"
)

// New creates a configured logrus logger. Development gets human-readable
// text output, every other environment gets JSON.
func New(appName, env, level string) *logrus.Logger {
	return NewWithWriter(appName, env, level, os.Stdout)
}

func NewWithWriter(appName, env, level string, w io.Writer) *logrus.Logger {
	log := logrus.New()
	log.SetOutput(w)

	lvl, err := logrus.ParseLevel(level)
	if err != nil {
		lvl = logrus.InfoLevel
	}
	log.SetLevel(lvl)

	if env == "development" {
		log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})
	} else {
		log.SetFormatter(&logrus.JSONFormatter{})
	}

	log.WithFields(logrus.Fields{"app": appName, "env": env}).Debug("logger initialized")
	return log
}

func LogError(log logrus.FieldLogger, msg string, err error, fields logrus.Fields) {
	if fields == nil {
		fields = logrus.Fields{}
	}
	if err != nil {
		fields["error"] = err.Error()
	}
	log.WithFields(fields).Error(msg)
}

// RedactEmail keeps the first two characters of the local part.
func RedactEmail(s string) string {
	local, domain, ok := strings.Cut(s, "@")
	if !ok || domain == "" {
		return "***"
	}

	if len(local) > 2 {
		local = local[:2] + "***"
	} else {
		local = "***"
	}

	return local + "@" + domain
}
