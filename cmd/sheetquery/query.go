package main

import (
	"context"
	"strings"

	"github.com/spf13/cobra"
	"github.com/ukaji3/sheetquery-go/pkg/config"
	"github.com/ukaji3/sheetquery-go/pkg/sheetquery"
	"github.com/ukaji3/sheetquery-go/pkg/sheetquery/query"
)

var sheetName string

// openService validates cfg and opens the configured source.
func openService(ctx context.Context, cfg *config.Config) (*sheetquery.Service, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	schemas, err := cfg.Schemas()
	if err != nil {
		return nil, err
	}
	return sheetquery.Open(ctx, schemas, cfg.SourceOptions())
}

// withService opens the service and resolves --sheet, defaulting to the first sheet.
func withService(cmd *cobra.Command, fn func(svc *sheetquery.Service, sheet string) (interface{}, error)) error {
	svc, err := openService(cmd.Context(), cfg)
	if err != nil {
		return err
	}
	sheet := sheetName
	if sheet == "" {
		sheet = svc.DefaultSheet().Name
	}
	out, err := fn(svc, sheet)
	if err != nil {
		return err
	}
	return writeJSON(cmd.OutOrStdout(), out)
}

func addSheetFlag(cmd *cobra.Command) {
	cmd.Flags().StringVarP(&sheetName, "sheet", "s", "", "Sheet name (default: first configured sheet)")
}

func newHeadersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "headers",
		Short: "Print the header entries of a sheet",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(cmd, func(svc *sheetquery.Service, sheet string) (interface{}, error) {
				return svc.Headers(cmd.Context(), sheet)
			})
		},
	}
	addSheetFlag(cmd)
	return cmd
}

func newCellCmd() *cobra.Command {
	var col, row int
	cmd := &cobra.Command{
		Use:   "cell",
		Short: "Print one cell",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(cmd, func(svc *sheetquery.Service, sheet string) (interface{}, error) {
				if !cmd.Flags().Changed("row") {
					schema, err := svc.Schema(sheet)
					if err != nil {
						return nil, err
					}
					row = schema.DataStartRow
				}
				return svc.Cell(cmd.Context(), sheet, col, row)
			})
		},
	}
	addSheetFlag(cmd)
	cmd.Flags().IntVar(&col, "col", 1, "1-based column")
	cmd.Flags().IntVar(&row, "row", 0, "1-based row (default: first data row)")
	return cmd
}

func newRangeCmd() *cobra.Command {
	var start, end int
	cmd := &cobra.Command{
		Use:   "range",
		Short: "Print a range of rows (at most 101)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(cmd, func(svc *sheetquery.Service, sheet string) (interface{}, error) {
				schema, err := svc.Schema(sheet)
				if err != nil {
					return nil, err
				}
				if !cmd.Flags().Changed("start") {
					start = schema.DataStartRow
				}
				if !cmd.Flags().Changed("end") {
					end = start + query.DefaultRangeRows - 1
				}
				return svc.Range(cmd.Context(), sheet, start, end)
			})
		},
	}
	addSheetFlag(cmd)
	cmd.Flags().IntVar(&start, "start", 0, "First row (default: first data row)")
	cmd.Flags().IntVar(&end, "end", 0, "Last row (default: start + 19)")
	return cmd
}

func newSearchCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search the sheet's search column for a substring",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(cmd, func(svc *sheetquery.Service, sheet string) (interface{}, error) {
				return svc.Search(cmd.Context(), sheet, strings.Join(args, " "))
			})
		},
	}
	addSheetFlag(cmd)
	return cmd
}

func newInfoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Load the workbook and print source diagnostics",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withService(cmd, func(svc *sheetquery.Service, sheet string) (interface{}, error) {
				if err := svc.Warm(cmd.Context()); err != nil {
					return nil, err
				}
				return struct {
					Sheets interface{} `json:"sheets"`
					File   interface{} `json:"file"`
				}{svc.ListSheets(), svc.FileInfo()}, nil
			})
		},
	}
}
