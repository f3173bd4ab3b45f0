package tui

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/vvka-141/pgscrape/pkg/pgscrape"
)

func TestRenderSummary(t *testing.T) {
	out := RenderSummary([]pgscrape.JobResult{
		{Name: "movies", Table: "movies", Rows: 87, Pages: 6},
		{Name: "hockey", Table: "hockey_teams", Rows: 50, Pages: 2, Err: errors.New("page 3: fetch failed\nsecond line")},
	})

	assert.Contains(t, out, "JOB")
	assert.Contains(t, out, "hockey_teams")
	assert.Contains(t, out, "87")
	assert.Contains(t, out, "page 3: fetch failed")
	assert.NotContains(t, out, "second line")
	assert.Contains(t, out, "137 rows written by 2 jobs, 1 failed")
}

func TestRenderStatus(t *testing.T) {
	out := RenderStatus("scrapethissite", true, []TableStatusRow{
		{Job: "movies", Table: "movies", Exists: true, Rows: 87},
		{Job: "topics", Table: "advance_topics"},
	})
	assert.Contains(t, out, "scrapethissite")
	assert.Contains(t, out, "87")
	assert.Contains(t, out, "-")

	missing := RenderStatus("scrapethissite", false, nil)
	assert.Contains(t, missing, "does not exist yet")
}
