package cli

import (
	"time"

	"github.com/vvka-141/pgscrape/internal/db"
	"github.com/vvka-141/pgscrape/internal/db/manager"
	"github.com/vvka-141/pgscrape/internal/fetch"
	"github.com/vvka-141/pgscrape/internal/scrape"
	"github.com/vvka-141/pgscrape/internal/services"
	"github.com/vvka-141/pgscrape/pkg/pgscrape"
)

// newRunner wires the production dependencies of a Runner.
func newRunner(cfg pgscrape.RunConfig, logger pgscrape.Logger) *services.Runner {
	connectors := db.ConnectorFactory(db.WithRetries(cfg.ConnectRetries), db.WithLogger(logger))
	fetchers := func(minInterval time.Duration) scrape.Fetcher {
		return fetch.NewFromSources(cfg.Sources, fetch.WithMinInterval(minInterval), fetch.WithLogger(logger))
	}
	return services.NewRunner(connectors, manager.New(), fetchers, logger)
}
