package commands

import (
	"fmt"
	"strings"

	"github.com/fivetwenty-io/stackapi/pkg/stackapi"
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

type patternType struct {
	Pattern    string   `json:"pattern"               yaml:"pattern"`
	Type       string   `json:"type"                  yaml:"type"`
	IDField    string   `json:"id_field,omitempty"    yaml:"id_field,omitempty"`
	DateFields []string `json:"date_fields,omitempty" yaml:"date_fields,omitempty"`
}

// NewTypesCommand creates the types command.
func NewTypesCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "types [PATTERN]",
		Short: "List request patterns and their item types",
		Long:  "List the request patterns with a known item type, optionally only those containing PATTERN",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			configureColor()

			var rows []patternType

			for _, pattern := range stackapi.RegisteredPatterns() {
				if len(args) == 1 && !strings.Contains(pattern, args[0]) {
					continue
				}

				name, _ := stackapi.LookupPatternType(pattern)
				info, _ := stackapi.LookupTypeInfo(name)

				rows = append(rows, patternType{
					Pattern:    pattern,
					Type:       name,
					IDField:    info.IDField,
					DateFields: info.DateFields,
				})
			}

			if done, err := writeStructured(cmd.OutOrStdout(), rows); done {
				return err
			}

			table := tablewriter.NewWriter(cmd.OutOrStdout())
			table.Header(headerColor.Sprint("Pattern"), headerColor.Sprint("Type"), headerColor.Sprint("ID Field"))

			for _, row := range rows {
				_ = table.Append([]string{row.Pattern, row.Type, row.IDField})
			}

			if err := table.Render(); err != nil {
				return fmt.Errorf("failed to render table: %w", err)
			}

			return nil
		},
	}
}
