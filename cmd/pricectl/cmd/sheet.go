package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/wooyoungkug/photocafe-sub007/app"
	"github.com/wooyoungkug/photocafe-sub007/internal/catalog"
)

var sheetCmd = &cobra.Command{
	Use:   "sheet",
	Short: "Validate and import YAML price sheets",
}

var sheetValidateCmd = &cobra.Command{
	Use:   "validate <file>",
	Short: "Check a price sheet without touching the database",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		content, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}

		sheet, err := catalog.NewParser().Parse(content)
		if err != nil {
			return err
		}
		if err := catalog.NewValidator().Validate(sheet); err != nil {
			return err
		}
		tables, err := sheet.TierTables()
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "%s: %d tables\n", sheet.Sheet.Name, len(tables))
		for _, table := range tables {
			fmt.Fprintf(out, "  %s  %d tiers\n", table.Scope, len(table.Tiers))
		}
		return nil
	},
}

var sheetImportCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Replace every table named in a price sheet in one transaction",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		content, err := os.ReadFile(args[0])
		if err != nil {
			return err
		}

		application, err := app.New()
		if err != nil {
			return err
		}
		defer application.Close()

		summary, err := application.RateTableService.ImportSheet(cmd.Context(), content)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "imported %s: %d tables, %d tiers\n", summary.Sheet, summary.Tables, summary.Tiers)
		return nil
	},
}

func init() {
	sheetCmd.AddCommand(sheetValidateCmd)
	sheetCmd.AddCommand(sheetImportCmd)
}
