package main

import (
	"fmt"
	"os"

	"feedsync/internal/di"
	"feedsync/internal/structures"

	"github.com/spf13/cobra"
)

// Version is overwritten at build time using -ldflags.
var Version = "dev"

func newRootCmd() *cobra.Command {
	flags := &structures.CliFlags{}

	cmd := &cobra.Command{
		Use:           "feedsync",
		Short:         "Timeline and notification consistency engine",
		Long:          "feedsync keeps a paginated home timeline and notification list consistent with live updates and serves them over HTTP.",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			_, cleanup, err := di.InitApp(flags)
			if err != nil {
				return err
			}
			cleanup()
			return nil
		},
	}

	cmd.Version = Version
	cmd.SetVersionTemplate("feedsync version {{.Version}}\n")
	cmd.Flags().StringVarP(&flags.ConfigPath, "config", "c", "config.yaml", "path to the yaml config file")
	cmd.Flags().BoolVar(&flags.DebugMode, "debug", false, "enable debug mode")
	return cmd
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
