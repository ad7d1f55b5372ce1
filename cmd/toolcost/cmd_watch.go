package main

import (
	"context"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"toolcost/internal/watch"
)

var (
	watchDir string
	watchOut string
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Keep a comparison CSV in sync with a folder of quotations",
	Long: `Compares the first CSV files of --dir (by name) whenever one of them is
added, changed or removed, and writes the result to --out.`,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().StringVar(&watchDir, "dir", ".", "Folder holding quotation CSV files")
	watchCmd.Flags().StringVar(&watchOut, "out", "", "Comparison CSV path (default OUTPUT_DIR/comparison.csv)")
}

func runWatch(cmd *cobra.Command, args []string) error {
	out := watchOut
	if out == "" {
		out = filepath.Join(cfg.OutputDir, "comparison.csv")
	}
	if err := os.MkdirAll(filepath.Dir(out), 0o755); err != nil {
		return err
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	debounce := time.Duration(cfg.WatchDebounceMs) * time.Millisecond
	return watch.New(watchDir, out, cfg.CompareMaxFiles, debounce, logger).Run(ctx)
}
