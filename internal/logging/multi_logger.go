package logging

import "github.com/vvka-141/pgscrape/pkg/pgscrape"

// MultiLogger forwards every call to each wrapped logger in order.
type MultiLogger struct {
	loggers []pgscrape.Logger
}

// NewMultiLogger combines loggers; nil entries are skipped.
func NewMultiLogger(loggers ...pgscrape.Logger) *MultiLogger {
	m := &MultiLogger{}
	for _, l := range loggers {
		if l != nil {
			m.loggers = append(m.loggers, l)
		}
	}
	return m
}

func (m *MultiLogger) Verbose(format string, args ...interface{}) {
	for _, l := range m.loggers {
		l.Verbose(format, args...)
	}
}

func (m *MultiLogger) Info(format string, args ...interface{}) {
	for _, l := range m.loggers {
		l.Info(format, args...)
	}
}

func (m *MultiLogger) Error(format string, args ...interface{}) {
	for _, l := range m.loggers {
		l.Error(format, args...)
	}
}
