package commands

import (
	"context"

	"github.com/spf13/cobra"
)

// NewSitesCommand creates the sites command.
func NewSitesCommand() *cobra.Command {
	var (
		pages   int
		columns []string
	)

	cmd := &cobra.Command{
		Use:   "sites",
		Short: "List Stack Exchange sites",
		Long:  "List the sites of the Stack Exchange network and the parameter used to query each one",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			configureColor()

			ctx := commandContext(cmd)

			api, err := newAPI(ctx)
			if err != nil {
				return err
			}

			defer func() { _ = api.Client().Close() }()

			items, err := fetchPages(ctx, api.Sites(), pages)
			if err != nil {
				return err
			}

			return renderItems(cmd.OutOrStdout(), items, columns)
		},
	}

	cmd.Flags().IntVar(&pages, "pages", 1, "number of pages to fetch while more are available")
	cmd.Flags().StringSliceVar(&columns, "columns", []string{"name", "api_site_parameter", "site_url"}, "columns shown in table output")

	return cmd
}

// NewSiteInfoCommand creates the site-info command.
func NewSiteInfoCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "site-info [SITE]",
		Short: "Show statistics about a site",
		Long:  "Show the name and statistics of a site, defaulting to the configured site",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			configureColor()

			domain, err := currentSite()
			if len(args) == 1 {
				domain, err = args[0], nil
			}

			if err != nil {
				return err
			}

			ctx := commandContext(cmd)

			api, err := newAPI(ctx)
			if err != nil {
				return err
			}

			defer func() { _ = api.Client().Close() }()

			site := api.Site(domain)

			info, err := site.Info().First(ctx)
			if err != nil {
				return err
			}

			properties := make(map[string]any)

			for field, value := range info.Raw() {
				switch value.(type) {
				case map[string]any, []any:
					continue
				}

				properties[field] = value
			}

			name, err := site.Name(ctx)
			if err != nil {
				return err
			}

			properties["name"] = name
			properties["site"] = domain

			return renderProperties(cmd.OutOrStdout(), properties)
		},
	}
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}

	return context.Background()
}
