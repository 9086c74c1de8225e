// Package monitoring holds the engine's diagnostic logging hook. The
// hot path logs through a swappable function so tests can capture or
// mute output without global log state.
package monitoring

import "log"

// Logf emits one diagnostic line. Defaults to log.Printf.
var Logf = log.Printf

// SetLogger swaps the diagnostic sink. nil installs a no-op sink.
func SetLogger(f func(format string, v ...interface{})) {
	if f == nil {
		f = func(string, ...interface{}) {}
	}
	Logf = f
}
