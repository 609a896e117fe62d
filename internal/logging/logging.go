// Package logging provides the single package-level structured logger used
// across the ledger. Every component logs through this instead of the
// standard library's log package, so log level and format are shared by
// every component.
package logging

import "github.com/sirupsen/logrus"

// Log is the shared logger. It runs with logrus's default level and
// formatter; neither cmd/ledger nor the library packages reconfigure it.
var Log = logrus.New()

// For returns a logger tagged with the calling component's name, so every
// entry it emits carries a "component" field.
func For(component string) *logrus.Entry {
	return Log.WithField("component", component)
}
