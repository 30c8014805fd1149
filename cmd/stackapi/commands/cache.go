package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewCacheCommand creates the cache command group.
func NewCacheCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage the response cache",
		Long:  "Inspect and clear the cache configured under cache.type",
	}

	cmd.AddCommand(newCachePurgeCommand())

	return cmd
}

func newCachePurgeCommand() *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "purge",
		Short: "Remove cached responses",
		Long:  "Remove expired cached responses, or every cached response with --all",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := commandContext(cmd)

			api, err := newAPI(ctx)
			if err != nil {
				return err
			}

			defer func() { _ = api.Client().Close() }()

			err = api.Client().PurgeCache(ctx, all)
			if err != nil {
				return err
			}

			what := "expired entries"
			if all {
				what = "all entries"
			}

			_, err = fmt.Fprintf(cmd.OutOrStdout(), "Purged %s from the %s cache.\n", what, apiConfig().Cache.Type)

			return err
		},
	}

	cmd.Flags().BoolVarP(&all, "all", "a", false, "remove every entry, not only expired ones")

	return cmd
}
