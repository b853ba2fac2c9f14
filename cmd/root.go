package cmd

import (
	"log/slog"
	"os"

	"github.com/IliaW/autocomplete-crawler/config"
	"github.com/spf13/cobra"
)

const appName = "autocomplete-crawler"

var cfg *config.Config

var rootCmd = &cobra.Command{
	Use:   appName,
	Short: "Enumerates the vocabulary of a rate-limited autocomplete service",
	Long: `Queries every single-letter prefix against a set of redundant autocomplete endpoints,
feeds every new suggestion back as a query and stops when no new terms come back.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		cfgPath, _ := cmd.Flags().GetString("config")
		cfg = config.MustLoad(cfgPath, cmd.Flags())
		setupLogger()
		return nil
	},
}

func Execute() {
	rootCmd.PersistentFlags().String("config", "", "path to the config file (default ./config.yaml)")
	rootCmd.PersistentFlags().String("log-level", "", "log level: debug, info, warn, error")
	rootCmd.PersistentFlags().StringSlice("endpoint", nil, "autocomplete endpoint url, repeatable")
	initRunFlags()

	rootCmd.AddCommand(runCmd, probeCmd)
	if err := rootCmd.Execute(); err != nil {
		slog.Error("command failed.", slog.String("err", err.Error()))
		os.Exit(1)
	}
}
