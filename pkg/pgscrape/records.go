package pgscrape

// Topic is a heading/content pair from the advanced topics page.
type Topic struct {
	Heading string
	Content string
}

// TeamSeason is one row of the hockey team statistics table.
// OTLosses is nil when the page leaves the cell empty (seasons before OT losses were tracked).
type TeamSeason struct {
	Name         string
	Year         int
	Wins         int
	Losses       int
	OTLosses     *int
	Pct          string
	GoalsFor     int
	GoalsAgainst int
	Diff         int
}

// Movie is one award record from the AJAX films endpoint.
type Movie struct {
	Title       string `json:"title"`
	Year        int    `json:"year"`
	Awards      *int   `json:"awards"`
	Nominations *int   `json:"nominations"`
	BestPicture bool   `json:"best_picture"`
}
