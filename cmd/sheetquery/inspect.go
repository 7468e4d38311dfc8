package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/ukaji3/sheetquery-go/pkg/config"
	"github.com/ukaji3/sheetquery-go/pkg/sheetquery/parser"
	"gopkg.in/yaml.v3"
)

func newInspectCmd() *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "inspect <workbook.xlsx>",
		Short: "Propose sheet sections for a workbook",
		Long: `inspect reads every worksheet, takes the first non-empty row as the header
and the rightmost populated column as the width, and prints the resulting
sheet sections in config file form.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			inputPath := args[0]
			if _, err := os.Stat(inputPath); os.IsNotExist(err) {
				return fmt.Errorf("file not found: %s", inputPath)
			}

			wb, err := parser.OpenFile(inputPath)
			if err != nil {
				return err
			}
			defer wb.Close()

			schemas, err := wb.Inspect()
			if err != nil {
				return fmt.Errorf("inspection failed: %w", err)
			}
			out := struct {
				Sheets []config.SheetConfig `json:"sheets" yaml:"sheets"`
			}{config.SheetsFromSchemas(schemas)}

			if asJSON {
				return writeJSON(cmd.OutOrStdout(), out)
			}
			enc := yaml.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent(2)
			defer enc.Close()
			return enc.Encode(out)
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "Print JSON instead of YAML")
	return cmd
}
