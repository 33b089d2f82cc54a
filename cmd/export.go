package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/nzambello/plone-map/internal/export"
)

var (
	exportData   string
	exportFormat string
	exportOut    string
)

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Export the dataset as CSV, XLSX or YAML",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg.Server.DataPath = firstNonEmpty(exportData, cfg.Server.DataPath)
		if err := cfg.Validate("export"); err != nil {
			return err
		}

		format, err := export.ParseFormat(exportFormat)
		if err != nil {
			return err
		}
		members, err := loadMembers(cfg.Server.DataPath)
		if err != nil {
			return err
		}

		if exportOut == "" || exportOut == "-" {
			return export.Write(cmd.OutOrStdout(), format, members)
		}
		if err := export.WriteFile(exportOut, format, members); err != nil {
			return err
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "exported %d members to %s\n", len(members), exportOut)
		return nil
	},
}

func init() {
	exportCmd.Flags().StringVar(&exportData, "data", "", "dataset to export (default from config)")
	exportCmd.Flags().StringVar(&exportFormat, "format", "csv", "output format: csv, xlsx or yaml")
	exportCmd.Flags().StringVarP(&exportOut, "out", "o", "", "output file (default stdout)")
	rootCmd.AddCommand(exportCmd)
}
