// Package logging provides concrete implementations of the pgdal.Logger interface.
//
// Available implementations:
//   - ConsoleLogger: plain lines on stderr with [VERBOSE] and [ERROR] prefixes
//   - ZapLogger: structured entries through go.uber.org/zap, JSON or console encoded
//   - NullLogger: discards everything (useful for testing)
//
// All logger implementations are safe for concurrent use by multiple goroutines.
package logging
