package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"toolcost/internal/pipeline"
	"toolcost/internal/render"
)

var (
	compareCSV    string
	compareXLSX   string
	compareFormat string
)

var compareCmd = &cobra.Command{
	Use:   "compare <file.csv> <file.csv> [more...]",
	Short: "Compare two to five quotation CSV files",
	Long: `Parses every file, merges them module by module and prints the
comparison. Files that are not CSV, repeat an earlier name or exceed the
file limit are skipped.

Example:
  toolcost compare supplierA.csv supplierB.csv --xlsx comparison.xlsx`,
	Args: cobra.MinimumNArgs(2),
	RunE: runCompare,
}

var importCmd = &cobra.Command{
	Use:   "import <file.csv>",
	Short: "Read a quotation CSV into cost entry form fields",
	Args:  cobra.ExactArgs(1),
	RunE:  runImport,
}

func init() {
	compareCmd.Flags().StringVar(&compareCSV, "csv", "", "Write the comparison as CSV to this path")
	compareCmd.Flags().StringVar(&compareXLSX, "xlsx", "", "Write the comparison as XLSX to this path")
	compareCmd.Flags().StringVar(&compareFormat, "format", "table", "Output printed to stdout: table|html|none")
}

func runCompare(cmd *cobra.Command, args []string) error {
	session := pipeline.NewSession(cfg.CompareMaxFiles, "cli", logger)
	for _, path := range args {
		info, err := os.Stat(path)
		if err != nil {
			return err
		}
		if !session.Add(pipeline.FileUpload(path, filepath.Base(path), info.Size())) {
			logger.Warn("file skipped", zap.String("file", path))
		}
	}

	view, err := session.Compare()
	if errors.Is(err, pipeline.ErrTooFewFiles) {
		return fmt.Errorf("please select at least 2 CSV files to compare")
	}
	if err != nil {
		return err
	}

	if compareCSV != "" {
		f, err := os.Create(compareCSV)
		if err != nil {
			return err
		}
		if err := pipeline.WriteViewCSV(f, view); err != nil {
			_ = f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return err
		}
		logger.Info("csv written", zap.String("path", compareCSV))
	}
	if compareXLSX != "" {
		if err := pipeline.ExportViewToXLSX(view, compareXLSX); err != nil {
			return err
		}
		logger.Info("xlsx written", zap.String("path", compareXLSX))
	}

	out := cmd.OutOrStdout()
	switch compareFormat {
	case "table":
		fmt.Fprint(out, render.Terminal(view))
	case "html":
		fmt.Fprint(out, render.Page(view))
	case "none":
	default:
		return fmt.Errorf("unknown format %q", compareFormat)
	}
	return nil
}

func runImport(cmd *cobra.Command, args []string) error {
	blob, err := os.ReadFile(args[0])
	if err != nil {
		return err
	}
	fields, err := pipeline.ParseFlatFields(pipeline.DecodeText(blob))
	if err != nil {
		return err
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(map[string]any{
		"fields": fields,
		"form":   pipeline.MapToFormFields(fields),
	})
}
