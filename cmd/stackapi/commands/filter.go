package commands

import (
	"fmt"

	"github.com/spf13/cobra"
)

// NewFilterCommand creates the filter command group.
func NewFilterCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "filter",
		Short: "Manage response filters",
		Long:  "Create filters that control which fields the API returns",
	}

	cmd.AddCommand(newFilterCreateCommand())

	return cmd
}

func newFilterCreateCommand() *cobra.Command {
	var (
		base     string
		includes []string
		excludes []string
	)

	cmd := &cobra.Command{
		Use:   "create",
		Short: "Create a filter",
		Long:  "Create a filter on the server from a base filter and print its identifier",
		Example: `  stackapi filter create --include question.body --exclude question.tags
  stackapi filter create --base withbody --include answer.body_markdown`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := commandContext(cmd)

			api, err := newAPI(ctx)
			if err != nil {
				return err
			}

			defer func() { _ = api.Client().Close() }()

			filter := api.NewFilter(base).Include(includes...).Exclude(excludes...)

			id, err := filter.Resolve(ctx)
			if err != nil {
				return fmt.Errorf("failed to create filter: %w", err)
			}

			if done, err := writeStructured(cmd.OutOrStdout(), map[string]string{"filter": id}); done {
				return err
			}

			_, err = fmt.Fprintln(cmd.OutOrStdout(), id)

			return err
		},
	}

	cmd.Flags().StringVar(&base, "base", "", "filter to start from (default is the configured filter)")
	cmd.Flags().StringSliceVar(&includes, "include", nil, "fields to add, e.g. question.body")
	cmd.Flags().StringSliceVar(&excludes, "exclude", nil, "fields to remove")

	return cmd
}
