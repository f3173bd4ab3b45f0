// Package logging provides concrete implementations of the pgscrape.Logger interface.
//
// Available implementations:
//   - ConsoleLogger: Writes formatted messages to stderr with thread-safe output
//   - FileLogger: Appends error messages to a log file with timestamps
//   - MultiLogger: Fans each message out to several loggers
//   - NullLogger: Discards all messages (useful for testing)
//
// All logger implementations are safe for concurrent use by multiple goroutines.
package logging
