package pgscrape_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/vvka-141/pgscrape/pkg/pgscrape"
)

func TestExitCodeForError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want int
	}{
		{"nil error", nil, pgscrape.ExitSuccess},
		{"unknown flag", errors.New("unknown flag --foo"), pgscrape.ExitUsageError},
		{"unknown shorthand flag", errors.New("unknown shorthand flag: 'x'"), pgscrape.ExitUsageError},
		{"accepts args", errors.New("accepts at most 3 arg(s), received 4"), pgscrape.ExitUsageError},
		{"invalid argument", errors.New("invalid argument \"abc\" for \"--port\""), pgscrape.ExitUsageError},
		{"general error", errors.New("something went wrong"), pgscrape.ExitGeneralError},
		{"invalid config", fmt.Errorf("bad year range: %w", pgscrape.ErrInvalidConfig), pgscrape.ExitConfigError},
		{"unknown job", fmt.Errorf("job \"foo\": %w", pgscrape.ErrUnknownJob), pgscrape.ExitConfigError},
		{"unsupported auth", pgscrape.ErrUnsupportedAuthMethod, pgscrape.ExitConfigError},
		{"approval denied", pgscrape.ErrApprovalDenied, pgscrape.ExitApprovalDenied},
		{"job failed", errors.Join(pgscrape.ErrJobFailed, errors.New("hockey: boom")), pgscrape.ExitJobFailed},
		{"connection failed", pgscrape.ErrConnectionFailed, pgscrape.ExitConnectionError},
		{"connection refused text", errors.New("dial tcp: connection refused"), pgscrape.ExitConnectionError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := pgscrape.ExitCodeForError(tt.err); got != tt.want {
				t.Errorf("ExitCodeForError(%v) = %d, want %d", tt.err, got, tt.want)
			}
		})
	}
}
