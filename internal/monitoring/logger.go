// Package monitoring holds the process-wide diagnostic logger shared by the
// storage and service layers.
package monitoring

import "log"

// Logf is the package-level diagnostic logger. It defaults to log.Printf but may
// be replaced by SetLogger. Tests or production code can redirect or mute it.
var Logf func(format string, v ...interface{}) = log.Printf

// SetLogger replaces the package logger. Passing nil will set a no-op logger.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		Logf = func(string, ...interface{}) {}
		return
	}
	Logf = f
}

// PrefixLogger writes through Logf with a fixed prefix. It satisfies the
// Printf/Verbose logger interface used by golang-migrate.
type PrefixLogger struct {
	Prefix string
	Debug  bool
}

// Printf logs one line through Logf.
func (l PrefixLogger) Printf(format string, v ...interface{}) {
	Logf(l.Prefix+format, v...)
}

// Verbose reports whether debug output was requested.
func (l PrefixLogger) Verbose() bool {
	return l.Debug
}
