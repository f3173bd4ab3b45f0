package tui

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vvka-141/pgscrape/pkg/pgscrape"
)

func TestLineProgress(t *testing.T) {
	var buf bytes.Buffer
	p := NewLineProgress(&buf)

	p.JobStarted("movies")
	p.JobFinished(pgscrape.JobResult{Name: "movies", Table: "movies", Rows: 12, Duration: 1500 * time.Millisecond})
	p.JobStarted("hockey")
	p.JobFinished(pgscrape.JobResult{Name: "hockey", Err: errors.New("page 3: fetch failed")})
	p.Stop()

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "→ movies", lines[0])
	assert.Equal(t, "✓ movies: 12 rows into movies (1.5s)", lines[1])
	assert.Equal(t, "✗ hockey failed after 0s: page 3: fetch failed", lines[3])
}

func TestProgressModel_TracksJobStates(t *testing.T) {
	m := newProgressModel([]string{"movies", "hockey"})

	m = update(t, m, jobStartedMsg{name: "movies"})
	view := m.View()
	assert.Contains(t, view, "movies")
	assert.Contains(t, view, SymbolPending+" hockey")

	m = update(t, m, jobFinishedMsg{result: pgscrape.JobResult{Name: "movies", Table: "movies", Rows: 3}})
	assert.Contains(t, m.View(), "✓ movies: 3 rows into movies")

	m = update(t, m, jobFinishedMsg{result: pgscrape.JobResult{Name: "unknown"}})
	assert.NotContains(t, m.View(), "unknown", "events for unlisted jobs are ignored")

	m = update(t, m, stopMsg{})
	assert.Contains(t, m.View(), "hockey (not run)")
}

func TestProgressModel_StopQuits(t *testing.T) {
	m := newProgressModel(nil)
	_, cmd := m.Update(stopMsg{})
	require.NotNil(t, cmd)
}


func update(t *testing.T, m progressModel, msg any) progressModel {
	t.Helper()
	next, _ := m.Update(msg)
	pm, ok := next.(progressModel)
	require.True(t, ok)
	return pm
}

func TestNewProgressReporter_NonInteractiveIsLineBased(t *testing.T) {
	t.Setenv("PGSCRAPE_NON_INTERACTIVE", "1")

	r := NewProgressReporter(&bytes.Buffer{}, []string{"topics"})
	_, ok := r.(*LineProgress)
	assert.True(t, ok)
}
