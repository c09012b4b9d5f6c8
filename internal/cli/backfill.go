package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/ryanbastic/go-rebuilder/internal/collection"
	"github.com/ryanbastic/go-rebuilder/internal/storage"
)

// BackfillEntityID identifies the single rebuild sent after a backfill.
const BackfillEntityID = "geocode-backfill"

// BackfillOptions holds flags for the geocode-backfill command.
type BackfillOptions struct {
	*RootOptions
	Collection string
	DryRun     bool
	BatchSize  int

	// Store and Geocoder override the configured ones (for testing).
	Store    storage.DocumentStore
	Geocoder collection.Geocoder
}

// NewBackfillCommand creates the geocode-backfill command.
func NewBackfillCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &BackfillOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "geocode-backfill",
		Short: "Geocode stored documents that have an address but no coordinates",
		Long: `Geocode stored documents that have an address but no coordinates.

Lookups are paced at GEOCODE_INTERVAL (one per second by default). Documents
that cannot be geocoded are logged and skipped. When anything was written and
the collection rebuilds on change, one rebuild is triggered at the end.

Example:
  rebuilder geocode-backfill --collection events --dry-run`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBackfill(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.Collection, "collection", "events", "collection to backfill")
	cmd.Flags().BoolVar(&opts.DryRun, "dry-run", false, "look up coordinates without writing them")
	cmd.Flags().IntVar(&opts.BatchSize, "batch-size", storage.DefaultPageSize, "documents read per page")

	return cmd
}

func runBackfill(cmd *cobra.Command, opts *BackfillOptions) error {
	env, err := loadEnvironment(opts.RootOptions, cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	def, ok := env.collectionDefinition(opts.Collection)
	if !ok {
		return NewExitError(ExitCommandError, fmt.Sprintf("unknown collection %q", opts.Collection))
	}
	if !def.Geocode {
		return NewExitError(ExitCommandError, fmt.Sprintf("collection %q is not configured for geocoding", opts.Collection))
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	store := opts.Store
	if store == nil {
		be, err := openBackend(ctx, env, false)
		if err != nil {
			return WrapExitError(ExitFailure, "failed to open store", err)
		}
		defer be.Close()
		store = be.store
	}

	client, pacer := env.newGeocoder()
	var geocoder collection.Geocoder = client
	if opts.Geocoder != nil {
		geocoder = opts.Geocoder
	}

	res, err := collection.NewBackfiller(store, geocoder, pacer, opts.BatchSize, env.logger).
		Run(ctx, opts.Collection, opts.DryRun)
	if res != nil {
		writeBackfillSummary(cmd.OutOrStdout(), res)

		// Documents written before a failure are live; rebuild for them too.
		if !opts.DryRun && res.Geocoded > 0 && def.Rebuild {
			notifier, _ := env.newNotifier()
			notifier.Trigger(ctx, opts.Collection, BackfillEntityID)
		}
	}
	if err != nil {
		return WrapExitError(ExitFailure, "backfill failed", err)
	}
	return nil
}

func writeBackfillSummary(w io.Writer, res *collection.BackfillResult) {
	mode := ""
	if res.DryRun {
		mode = " (dry run)"
	}
	fmt.Fprintf(w, "geocode backfill of %s%s\n", res.Collection, mode)
	fmt.Fprintf(w, "  scanned:  %d\n", res.Scanned)
	fmt.Fprintf(w, "  geocoded: %d\n", res.Geocoded)
	fmt.Fprintf(w, "  failed:   %d\n", res.Failed)
	fmt.Fprintf(w, "  skipped:  %d\n", res.Skipped)
}
