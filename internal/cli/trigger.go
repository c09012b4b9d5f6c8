package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ryanbastic/go-rebuilder/internal/collection"
	"github.com/ryanbastic/go-rebuilder/internal/storage"
)

// NewTriggerCommand creates the trigger command.
func NewTriggerCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "trigger <source> [entity-id]",
		Short: "Send one rebuild trigger now, ignoring the cooldown",
		Long: `Send one rebuild trigger now, ignoring the cooldown.

Use this to retry after a failed trigger. source is a collection name or a
global slug; entity-id defaults to "manual".

Example:
  rebuilder trigger events
  rebuilder trigger site-settings`,
		Args: cobra.RangeArgs(1, 2),
		RunE: func(cmd *cobra.Command, args []string) error {
			env, err := loadEnvironment(rootOpts, cmd.ErrOrStderr())
			if err != nil {
				return err
			}

			notifier, _ := env.newNotifier()
			if !notifier.Enabled() {
				return NewExitError(ExitCommandError, "rebuild trigger not configured")
			}

			entityID := ""
			if len(args) == 2 {
				entityID = args[1]
			}

			ctx := cmd.Context()
			if ctx == nil {
				ctx = context.Background()
			}

			// Triggers never touch the store.
			svc := collection.NewService(storage.NewMemoryStore(), nil, notifier, env.collections, env.logger)
			if err := svc.TriggerRebuild(ctx, args[0], entityID); err != nil {
				if errors.Is(err, collection.ErrUnknownCollection) {
					return WrapExitError(ExitCommandError, "unknown source", err)
				}
				return WrapExitError(ExitFailure, "trigger failed", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "rebuild trigger sent for %s via %s\n", args[0], notifier.Transport())
			return nil
		},
	}
}
