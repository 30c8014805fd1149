package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/fivetwenty-io/stackapi/internal/constants"
	"github.com/fivetwenty-io/stackapi/pkg/stackapi"
	"github.com/fivetwenty-io/stackapi/pkg/stackexchange"
	"github.com/olekukonko/tablewriter"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

const defaultJSONIndent = "  "

var (
	headerColor = color.New(color.FgCyan, color.Bold)
	errorColor  = color.New(color.FgRed, color.Bold)
	dimColor    = color.New(color.Faint)
)

// newAPI creates an API from the CLI configuration.
func newAPI(ctx context.Context) (*stackapi.API, error) {
	return stackexchange.New(ctx, apiConfig())
}

// apiConfig maps viper settings onto the library configuration.
func apiConfig() *stackapi.Config {
	config := stackapi.DefaultConfig()
	config.Key = viper.GetString("key")
	config.ClientID = viper.GetString("client_id")
	config.ClientSecret = viper.GetString("client_secret")
	config.Debug = viper.GetBool("verbose")
	config.Logger = stackapi.NewZerologLogger(newLogger(os.Stderr))

	if endpoint := viper.GetString("endpoint"); endpoint != "" {
		config.Endpoint = endpoint
	}

	if filter := viper.GetString("filter"); filter != "" {
		config.DefaultFilter = filter
	}

	if ttl := viper.GetDuration("ttl"); ttl > 0 {
		config.DefaultTTL = ttl
	}

	if cacheType := viper.GetString("cache.type"); cacheType != "" {
		config.Cache.Type = stackapi.CacheType(cacheType)
	}

	if path := viper.GetString("cache.sqlite_path"); path != "" {
		config.Cache.SQLite.Path = path
	}

	config.Cache.Redis.URL = viper.GetString("cache.redis_url")
	config.Cache.NATS.URL = viper.GetString("cache.nats_url")
	config.Cache.Postgres.DSN = viper.GetString("cache.postgres_dsn")
	config.Cache.Etcd.Endpoints = viper.GetStringSlice("cache.etcd_endpoints")

	return config
}

// newLogger returns a console logger when --verbose is set and a disabled one otherwise.
func newLogger(out io.Writer) zerolog.Logger {
	if !viper.GetBool("verbose") {
		return zerolog.Nop()
	}

	writer := zerolog.ConsoleWriter{
		Out:        out,
		NoColor:    viper.GetBool("no_color"),
		TimeFormat: time.Kitchen,
	}

	return zerolog.New(writer).Level(zerolog.DebugLevel).With().Timestamp().Logger()
}

// configureColor honours --no-color.
func configureColor() {
	if viper.GetBool("no_color") {
		color.NoColor = true
	}
}

// currentSite returns the --site flag or the configured site.
func currentSite() (string, error) {
	site := viper.GetString("site")
	if site == "" {
		return "", constants.ErrNoSiteConfigured
	}

	return site, nil
}

// parseParams turns name=value pairs into a map.
func parseParams(pairs []string) (map[string]string, error) {
	params := make(map[string]string, len(pairs))

	for _, pair := range pairs {
		name, value, ok := strings.Cut(pair, "=")
		if !ok || name == "" {
			return nil, fmt.Errorf("%w: %q", constants.ErrInvalidParameterPair, pair)
		}

		params[name] = value
	}

	return params, nil
}

// writeStructured writes value as JSON or YAML. It reports false for table output.
func writeStructured(out io.Writer, value any) (bool, error) {
	switch format := viper.GetString("output"); format {
	case constants.FormatJSON:
		encoder := json.NewEncoder(out)
		encoder.SetIndent("", defaultJSONIndent)

		return true, encoder.Encode(value)
	case constants.FormatYAML:
		encoder := yaml.NewEncoder(out)
		defer func() { _ = encoder.Close() }()

		return true, encoder.Encode(value)
	case constants.FormatTable, "":
		return false, nil
	default:
		return true, fmt.Errorf("%w: %s", constants.ErrUnsupportedOutput, format)
	}
}

// renderItems prints items in the configured output format. Table output
// shows columns, or every top-level scalar field when columns is empty.
func renderItems(out io.Writer, items []*stackapi.Item, columns []string) error {
	if done, err := writeStructured(out, itemMaps(items)); done {
		return err
	}

	if len(items) == 0 {
		_, err := dimColor.Fprintln(out, "No items.")

		return err
	}

	if len(columns) == 0 {
		columns = scalarColumns(items)
	}

	header := make([]any, len(columns))
	for i, column := range columns {
		header[i] = headerColor.Sprint(column)
	}

	table := tablewriter.NewWriter(out)
	table.Header(header...)

	for _, item := range items {
		row := make([]string, len(columns))
		for i, column := range columns {
			row[i] = cellValue(item, column)
		}

		err := table.Append(row)
		if err != nil {
			return fmt.Errorf("failed to append table row: %w", err)
		}
	}

	if err := table.Render(); err != nil {
		return fmt.Errorf("failed to render table: %w", err)
	}

	return nil
}

// renderProperties prints name/value pairs.
func renderProperties(out io.Writer, properties map[string]any) error {
	if done, err := writeStructured(out, properties); done {
		return err
	}

	names := make([]string, 0, len(properties))
	for name := range properties {
		names = append(names, name)
	}

	sort.Strings(names)

	table := tablewriter.NewWriter(out)
	table.Header(headerColor.Sprint("Property"), headerColor.Sprint("Value"))

	for _, name := range names {
		_ = table.Append([]string{name, formatValue(properties[name])})
	}

	if err := table.Render(); err != nil {
		return fmt.Errorf("failed to render table: %w", err)
	}

	return nil
}

func itemMaps(items []*stackapi.Item) []map[string]any {
	maps := make([]map[string]any, len(items))
	for i, item := range items {
		maps[i] = item.Raw()
	}

	return maps
}

func scalarColumns(items []*stackapi.Item) []string {
	seen := make(map[string]bool)

	var columns []string

	for _, item := range items {
		for name, value := range item.Raw() {
			if seen[name] {
				continue
			}

			switch value.(type) {
			case map[string]any, []any:
				continue
			}

			seen[name] = true
			columns = append(columns, name)
		}
	}

	sort.Strings(columns)

	return columns
}

func cellValue(item *stackapi.Item, column string) string {
	if !item.Contains(column) {
		return constants.NotAvailable
	}

	value, err := item.Get(column)
	if err != nil {
		return constants.NotAvailable
	}

	return formatValue(value)
}

func formatValue(value any) string {
	switch typed := value.(type) {
	case nil:
		return ""
	case time.Time:
		return typed.UTC().Format(time.DateTime)
	case *stackapi.Item:
		return typed.String()
	case []*stackapi.Item:
		parts := make([]string, len(typed))
		for i, element := range typed {
			parts[i] = element.String()
		}

		return strings.Join(parts, ", ")
	case []any:
		parts := make([]string, len(typed))
		for i, element := range typed {
			parts[i] = formatValue(element)
		}

		return strings.Join(parts, ", ")
	default:
		return fmt.Sprint(typed)
	}
}

// PrintError writes err in the error colour.
func PrintError(out io.Writer, err error) {
	_, _ = errorColor.Fprintf(out, "Error: %v\n", err)
}
