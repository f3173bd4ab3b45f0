// Package scrape implements the three scrapethissite.com jobs.
//
// Every job follows the same flat sequence: fetch, parse, then hand the
// records to a Store. Parsing functions are exported separately so they can
// be exercised against fixtures without a network or database.
//
//	topics  advanced/       h4 headings paired with non-lead paragraphs
//	hockey  forms/          tr.team rows, paginated until an empty page
//	movies  ajax-javascript JSON array per year
package scrape
