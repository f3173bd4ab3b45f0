package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/vvka-141/pgscrape/internal/scrape"
	"github.com/vvka-141/pgscrape/internal/tui"
)

var jobsCmd = &cobra.Command{
	Use:   "jobs",
	Short: "List jobs with their table and source URL",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		sources, err := loadSources()
		if err != nil {
			return err
		}
		var rows []tui.JobRow
		for _, info := range scrape.Describe(sources) {
			rows = append(rows, tui.JobRow{Name: info.Name, Table: info.Table, Source: info.Source})
		}
		fmt.Fprint(cmd.OutOrStdout(), tui.RenderJobs(rows))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(jobsCmd)
}
