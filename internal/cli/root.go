// Package cli wires configuration, storage, and the rebuild pipeline into
// the rebuilder commands.
package cli

import (
	"github.com/spf13/cobra"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose     bool
	Collections string
}

// NewRootCommand creates the root command for the rebuilder CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "rebuilder",
		Short: "Content API that rebuilds the static site when content changes",
		Long: `rebuilder stores site content, geocodes event addresses, and triggers
a frontend rebuild through a deploy hook or a GitHub repository dispatch
whenever content changes. Repeated edits to one record inside the cooldown
are coalesced into a single rebuild.

Configuration is read from the environment (see DATABASE_URL,
REBUILD_HOOK_URL, GITHUB_TOKEN, GEOCODE_URL and friends).`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "log at debug level")
	cmd.PersistentFlags().StringVar(&opts.Collections, "collections", "", "collections YAML file (overrides COLLECTIONS_CONFIG_PATH)")

	cmd.AddCommand(NewServeCommand(opts))
	cmd.AddCommand(NewMigrateCommand(opts))
	cmd.AddCommand(NewBackfillCommand(opts))
	cmd.AddCommand(NewTriggerCommand(opts))

	return cmd
}
