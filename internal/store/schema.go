package store

import "github.com/vvka-141/pgscrape/internal/scrape"

var schemas = map[string]string{
	scrape.TableAdvanceTopics: `
		CREATE TABLE IF NOT EXISTS advance_topics (
			id SERIAL PRIMARY KEY,
			heading TEXT,
			content TEXT
		)`,
	scrape.TableHockeyTeams: `
		CREATE TABLE IF NOT EXISTS hockey_teams (
			id SERIAL PRIMARY KEY,
			name VARCHAR(255),
			year INT,
			wins INT,
			losses INT,
			ot_losses INT,
			pct VARCHAR(10),
			gf INT,
			ga INT,
			diff INT
		)`,
	scrape.TableMovies: `
		CREATE TABLE IF NOT EXISTS movies (
			id SERIAL PRIMARY KEY,
			title VARCHAR(255) NOT NULL,
			year INT NOT NULL,
			awards INT,
			nominations INT,
			best_picture BOOLEAN
		)`,
}

const (
	insertTopic      = `INSERT INTO advance_topics (heading, content) VALUES ($1, $2)`
	insertTeamSeason = `INSERT INTO hockey_teams (name, year, wins, losses, ot_losses, pct, gf, ga, diff)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	insertMovie = `INSERT INTO movies (title, year, awards, nominations, best_picture) VALUES ($1, $2, $3, $4, $5)`

	queryTableExists = `SELECT to_regclass('public.' || quote_ident($1)) IS NOT NULL`
)

// Schema returns the DDL for table.
func Schema(table string) (string, bool) {
	ddl, ok := schemas[table]
	return ddl, ok
}

// Tables lists the job tables in launcher order.
func Tables() []string {
	return []string{scrape.TableMovies, scrape.TableHockeyTeams, scrape.TableAdvanceTopics}
}
