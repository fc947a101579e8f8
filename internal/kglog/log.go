// Package kglog is the process-wide logger for keg. It wraps logrus the
// same way the teacher's own pkg/log wraps its backend: package-level
// Debugf/Infof/Warningf/Errorf functions over a single logger instance,
// so call sites never carry a *logrus.Logger around.
package kglog

import (
	"os"

	"github.com/sirupsen/logrus"
)

var log = newLogger()

func newLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(os.Stderr)
	l.SetFormatter(&logrus.TextFormatter{
		DisableTimestamp: false,
		FullTimestamp:    true,
	})
	l.SetLevel(logrus.InfoLevel)
	if lvl, err := logrus.ParseLevel(os.Getenv("KEG_LOG_LEVEL")); err == nil {
		l.SetLevel(lvl)
	}
	return l
}

// SetDebug raises the log level to Debug, for the top-level --debug
// flag (given before the profile name).
func SetDebug() {
	log.SetLevel(logrus.DebugLevel)
}

// WithStage returns a logger tagged with the current stage and pid, for
// the handful of call sites (the isolation ladder) that want every line
// around a transition to carry that context.
func WithStage(stage string, pid int) *logrus.Entry {
	return log.WithFields(logrus.Fields{"stage": stage, "pid": pid})
}

func Debugf(format string, args ...interface{})   { log.Debugf(format, args...) }
func Infof(format string, args ...interface{})    { log.Infof(format, args...) }
func Warningf(format string, args ...interface{}) { log.Warnf(format, args...) }
func Errorf(format string, args ...interface{})   { log.Errorf(format, args...) }
