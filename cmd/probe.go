package cmd

import (
	"github.com/IliaW/autocomplete-crawler/internal/probe"
	"github.com/IliaW/autocomplete-crawler/internal/session"
	"github.com/spf13/cobra"
)

var probeCmd = &cobra.Command{
	Use:   "probe",
	Short: "Sends one test query to every endpoint and reports the status codes",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		endpoints, err := session.NewEndpoints(cfg.CrawlerSettings.Endpoints)
		if err != nil {
			return err
		}
		probe.Endpoints(newFetcher(), endpoints)
		return nil
	},
}
