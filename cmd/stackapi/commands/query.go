package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/fivetwenty-io/stackapi/internal/constants"
	"github.com/fivetwenty-io/stackapi/internal/where"
	"github.com/fivetwenty-io/stackapi/pkg/stackapi"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

type queryOptions struct {
	params   []string
	filter   string
	sort     string
	order    string
	page     int
	pageSize int
	pages    int
	columns  []string
	where    string
	sites    []string
	network  bool
}

// NewQueryCommand creates the query command.
func NewQueryCommand() *cobra.Command {
	opts := &queryOptions{}

	cmd := &cobra.Command{
		Use:   "query METHOD [IDS|METHOD]...",
		Short: "Query an API method",
		Long: `Build a request from a chain of methods and identifiers and print the items.

Components can be given as separate arguments or joined with "/", so
"users 1;2 answers" and "users/1;2/answers" are the same request.`,
		Example: `  stackapi query questions --sort votes --pagesize 5
  stackapi query users/22656/answers --columns answer_id,score
  stackapi query questions --sites stackoverflow,superuser --where 'item.score > 10'
  stackapi query sites --network --columns name,api_site_parameter`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runQuery(cmd, opts, args)
		},
	}

	cmd.Flags().StringArrayVarP(&opts.params, "param", "p", nil, "query parameter as name=value (repeatable)")
	cmd.Flags().StringVar(&opts.filter, "filter", "", "filter identifier")
	cmd.Flags().StringVar(&opts.sort, "sort", "", "sort field")
	cmd.Flags().StringVar(&opts.order, "order", "", "sort order (asc, desc)")
	cmd.Flags().IntVar(&opts.page, "page", 0, "page to fetch")
	cmd.Flags().IntVar(&opts.pageSize, "pagesize", 0, "items per page")
	cmd.Flags().IntVar(&opts.pages, "pages", 1, "number of pages to fetch while more are available")
	cmd.Flags().StringSliceVar(&opts.columns, "columns", nil, "columns shown in table output")
	cmd.Flags().StringVar(&opts.where, "where", "", "CEL expression items must match, e.g. 'item.score > 10'")
	cmd.Flags().StringSliceVar(&opts.sites, "sites", nil, "query several sites concurrently")
	cmd.Flags().BoolVar(&opts.network, "network", false, "call a network-wide method instead of a site method")

	return cmd
}

func runQuery(cmd *cobra.Command, opts *queryOptions, args []string) error {
	configureColor()

	ctx := commandContext(cmd)

	var predicate *where.Predicate

	if opts.where != "" {
		compiled, err := where.Compile(opts.where)
		if err != nil {
			return err
		}

		predicate = compiled
	}

	api, err := newAPI(ctx)
	if err != nil {
		return err
	}

	defer func() { _ = api.Client().Close() }()

	tokens := splitComponents(args)

	if opts.network {
		req, err := buildNetworkRequest(api, tokens, opts)
		if err != nil {
			return err
		}

		items, err := fetchPages(ctx, req, opts.pages)
		if err != nil {
			return err
		}

		return renderItems(cmd.OutOrStdout(), matchItems(items, predicate), opts.columns)
	}

	sites := opts.sites
	if len(sites) == 0 {
		site, err := currentSite()
		if err != nil {
			return err
		}

		sites = []string{site}
	}

	requests := make([]*stackapi.Request, len(sites))

	for i, site := range sites {
		req, err := buildSiteRequest(api.Site(site), tokens, opts)
		if err != nil {
			return err
		}

		requests[i] = req
	}

	if len(requests) == 1 {
		items, err := fetchPages(ctx, requests[0], opts.pages)
		if err != nil {
			return err
		}

		return renderItems(cmd.OutOrStdout(), matchItems(items, predicate), opts.columns)
	}

	return renderBatch(ctx, cmd, sites, requests, predicate, opts.columns)
}

// renderBatch resolves one request per site concurrently and prints the
// items of each site under its name.
func renderBatch(
	ctx context.Context,
	cmd *cobra.Command,
	sites []string,
	requests []*stackapi.Request,
	predicate *where.Predicate,
	columns []string,
) error {
	resolver := stackapi.NewBatchResolver(constants.DefaultConcurrencyLimit)
	results := resolver.Resolve(ctx, requests...)

	bySite := make(map[string][]map[string]any, len(results))
	failed := 0

	for _, result := range results {
		site := sites[result.Index]

		if result.Error != nil {
			failed++

			PrintError(cmd.ErrOrStderr(), fmt.Errorf("%s: %w", site, result.Error))

			continue
		}

		items := matchItems(result.Response.Items, predicate)

		if viper.GetString("output") == constants.FormatJSON || viper.GetString("output") == constants.FormatYAML {
			bySite[site] = itemMaps(items)

			continue
		}

		_, _ = headerColor.Fprintf(cmd.OutOrStdout(), "%s\n", site)

		if err := renderItems(cmd.OutOrStdout(), items, columns); err != nil {
			return err
		}
	}

	if len(bySite) > 0 {
		if _, err := writeStructured(cmd.OutOrStdout(), bySite); err != nil {
			return err
		}
	}

	if failed > 0 {
		return fmt.Errorf("%w: %d of %d", constants.ErrQueriesFailed, failed, len(results))
	}

	return nil
}

// splitComponents splits arguments on "/" and drops empty parts.
func splitComponents(args []string) []string {
	var tokens []string

	for _, arg := range args {
		for _, part := range strings.Split(arg, "/") {
			if part = strings.TrimSpace(part); part != "" {
				tokens = append(tokens, part)
			}
		}
	}

	return tokens
}

func buildSiteRequest(site *stackapi.Site, tokens []string, opts *queryOptions) (*stackapi.Request, error) {
	if len(tokens) == 0 {
		return nil, constants.ErrMissingMethod
	}

	req, err := site.Method(tokens[0])
	if err != nil {
		return nil, err
	}

	return extendRequest(req, tokens[1:], opts)
}

func buildNetworkRequest(api *stackapi.API, tokens []string, opts *queryOptions) (*stackapi.Request, error) {
	if len(tokens) == 0 {
		return nil, constants.ErrMissingMethod
	}

	req, err := api.Method(tokens[0])
	if err != nil {
		return nil, err
	}

	return extendRequest(req, tokens[1:], opts)
}

// extendRequest appends the remaining components and applies the flags.
// A component that is not a method is taken as a ";" separated id list.
func extendRequest(req *stackapi.Request, tokens []string, opts *queryOptions) (*stackapi.Request, error) {
	for _, token := range tokens {
		next, err := req.Method(token)
		if stackapi.IsUnknownMethod(err) {
			req = req.IDs(splitIDs(token)...)

			continue
		}

		if err != nil {
			return nil, err
		}

		req = next
	}

	params, err := parseParams(opts.params)
	if err != nil {
		return nil, err
	}

	for name, value := range params {
		req = req.Param(name, value)
	}

	if opts.filter != "" {
		req = req.Filter(opts.filter)
	}

	if opts.sort != "" {
		req = req.Sort(opts.sort)
	}

	if opts.order != "" {
		req = req.Order(opts.order)
	}

	if opts.page > 0 {
		req = req.Page(opts.page)
	}

	if opts.pageSize > 0 {
		req = req.PageSize(opts.pageSize)
	}

	if token := viper.GetString("access_token"); token != "" {
		req = req.AccessToken(token)
	}

	return req, nil
}

func splitIDs(token string) []any {
	parts := strings.Split(token, constants.IDSeparator)
	ids := make([]any, 0, len(parts))

	for _, part := range parts {
		if part != "" {
			ids = append(ids, part)
		}
	}

	return ids
}

// fetchPages resolves req and up to pages-1 following pages while the API
// reports more.
func fetchPages(ctx context.Context, req *stackapi.Request, pages int) ([]*stackapi.Item, error) {
	var items []*stackapi.Item

	for page := 0; page < max(pages, 1); page++ {
		response, err := req.Resolve(ctx)
		if err != nil {
			return nil, err
		}

		items = append(items, response.Items...)

		if !response.HasMore() {
			break
		}

		req = req.NextPage()
	}

	return items, nil
}

// matchItems keeps the items the predicate accepts. Items the expression
// cannot be evaluated on are dropped.
func matchItems(items []*stackapi.Item, predicate *where.Predicate) []*stackapi.Item {
	if predicate == nil {
		return items
	}

	matched := make([]*stackapi.Item, 0, len(items))

	for _, item := range items {
		ok, err := predicate.Match(item.Raw())
		if err == nil && ok {
			matched = append(matched, item)
		}
	}

	return matched
}
