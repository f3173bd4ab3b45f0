package scrape

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/vvka-141/pgscrape/pkg/pgscrape"
)

type TopicsJob struct {
	url     string
	fetcher Fetcher
	logger  pgscrape.Logger
}

func NewTopicsJob(url string, fetcher Fetcher, logger pgscrape.Logger) *TopicsJob {
	return &TopicsJob{url: url, fetcher: fetcher, logger: logger}
}

func (j *TopicsJob) Name() string   { return pgscrape.JobTopics }
func (j *TopicsJob) Table() string  { return TableAdvanceTopics }
func (j *TopicsJob) Source() string { return j.url }

func (j *TopicsJob) Run(ctx context.Context, store Store) (Stats, error) {
	body, err := j.fetcher.Get(ctx, j.url, nil)
	if err != nil {
		return Stats{}, err
	}

	result, err := ParseTopics(body)
	if err != nil {
		return Stats{}, err
	}
	if result.Headings != result.Contents {
		j.logger.Error("topics: %d headings but %d contents, keeping the first %d pairs",
			result.Headings, result.Contents, len(result.Topics))
	}

	rows, err := store.InsertTopics(ctx, result.Topics)
	if err != nil {
		return Stats{Pages: 1}, fmt.Errorf("error while inserting data into %s: %w", TableAdvanceTopics, err)
	}
	j.logger.Info("Data inserted successfully into the '%s' table (%d rows)", TableAdvanceTopics, rows)
	return Stats{Rows: rows, Pages: 1}, nil
}

// TopicsResult holds the pairs plus the raw counts so callers can spot a mismatch.
type TopicsResult struct {
	Topics   []pgscrape.Topic
	Headings int
	Contents int
}

// ParseTopics pairs every h4 with the paragraph at the same index, ignoring
// paragraphs with class "lead". Extra items on the longer side are dropped.
func ParseTopics(body []byte) (TopicsResult, error) {
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return TopicsResult{}, fmt.Errorf("parse topics page: %w: %w", pgscrape.ErrUnexpectedPayload, err)
	}

	headings := texts(doc.Find("h4"))
	contents := texts(doc.Find("p").Not(".lead"))

	n := min(len(headings), len(contents))
	topics := make([]pgscrape.Topic, n)
	for i := 0; i < n; i++ {
		topics[i] = pgscrape.Topic{Heading: headings[i], Content: contents[i]}
	}
	return TopicsResult{Topics: topics, Headings: len(headings), Contents: len(contents)}, nil
}

func texts(sel *goquery.Selection) []string {
	return sel.Map(func(_ int, s *goquery.Selection) string {
		return strings.TrimSpace(s.Text())
	})
}
