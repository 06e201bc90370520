// Package monitoring holds the diagnostic logger and the fetch metrics shared
// by the elevation pipeline.
package monitoring

import (
	"log"

	"go.uber.org/zap"
)

// Logf is the package-level diagnostic logger. It defaults to a zap production
// logger (falling back to log.Printf if zap cannot be built) and may be
// replaced by SetLogger. Tests or production code can redirect or mute it.
var Logf func(format string, v ...interface{}) = defaultLogf()

func defaultLogf() func(format string, v ...interface{}) {
	l, err := zap.NewProduction()
	if err != nil {
		return log.Printf
	}
	return l.Sugar().Infof
}

// SetLogger replaces the package logger. Passing nil will set a no-op logger.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = func(string, ...interface{}) {}
		return
	}
	Logf = f
}

// UseZap routes Logf through the given sugared logger at info level.
func UseZap(l *zap.SugaredLogger) {
	if l == nil {
		SetLogger(nil)
		return
	}
	Logf = l.Infof
}
