package logging

import (
	"fmt"
	"os"
	"sync"
	"time"
)

// TimestampLayout matches the "asctime" layout used in error.log.
const TimestampLayout = "2006-01-02 15:04:05,000"

// FileLogger appends ERROR-level messages to a file, one line per message:
//
//	2024-05-01 10:00:00,123 - ERROR - failed to retrieve data for year 2012
//
// Verbose and Info are discarded. The file is created on the first error,
// so a clean run leaves no file behind.
type FileLogger struct {
	path string
	now  func() time.Time

	mu   sync.Mutex
	file *os.File
	err  error
}

// NewFileLogger creates a FileLogger that appends to path.
func NewFileLogger(path string) *FileLogger {
	if path == "" {
		panic("path cannot be empty")
	}
	return &FileLogger{path: path, now: time.Now}
}

// Verbose is a no-op.
func (l *FileLogger) Verbose(format string, args ...interface{}) {}

// Info is a no-op.
func (l *FileLogger) Info(format string, args ...interface{}) {}

// Error appends a timestamped line to the log file.
// Failures to open or write the file are reported once on stderr.
func (l *FileLogger) Error(format string, args ...interface{}) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.err != nil {
		return
	}
	if l.file == nil {
		f, err := os.OpenFile(l.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
		if err != nil {
			l.err = err
			fmt.Fprintf(os.Stderr, "[ERROR] cannot open error log %s: %v\n", l.path, err)
			return
		}
		l.file = f
	}

	line := fmt.Sprintf("%s - ERROR - %s\n", l.now().Format(TimestampLayout), render(format, args))
	if _, err := l.file.WriteString(line); err != nil {
		l.err = err
		fmt.Fprintf(os.Stderr, "[ERROR] cannot write error log %s: %v\n", l.path, err)
	}
}

// Close releases the underlying file, if one was opened.
func (l *FileLogger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.file == nil {
		return nil
	}
	err := l.file.Close()
	l.file = nil
	return err
}
