package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/vmunix/batchprep/internal/config"
	"github.com/vmunix/batchprep/internal/history"
)

var (
	historyBatch string
	historyLimit int
)

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Show recorded reservations",
	Args:  cobra.NoArgs,
	RunE:  runHistory,
}

func init() {
	historyCmd.Flags().StringVar(&historyBatch, "batch", "", "Only show this batch ID")
	historyCmd.Flags().IntVar(&historyLimit, "limit", 50, "Maximum entries (0 for all)")
	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	return showHistory(cmd.Context(), cfg, history.Filter{BatchID: historyBatch, Limit: historyLimit}, jsonOutput, cmd.OutOrStdout())
}

func showHistory(ctx context.Context, cfg *config.Config, f history.Filter, asJSON bool, w io.Writer) error {
	if ctx == nil {
		ctx = context.Background()
	}

	path := config.ExpandHome(cfg.History.Path)
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		if !cfg.History.Enabled {
			return errors.New("history is disabled: set history.enabled = true")
		}
		fmt.Fprintln(w, "No batches recorded")
		return nil
	}

	db, err := history.Open(path)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	entries, err := history.NewStore(db).List(ctx, f)
	if err != nil {
		if errors.Is(err, history.ErrNotFound) {
			return fmt.Errorf("batch %s: %w", f.BatchID, err)
		}
		return err
	}

	if asJSON {
		return printJSON(w, entries)
	}
	if len(entries) == 0 {
		fmt.Fprintln(w, "No batches recorded")
		return nil
	}

	rows := make([][]string, 0, len(entries))
	for _, e := range entries {
		rows = append(rows, []string{
			e.CreatedAt.Local().Format("2006-01-02 15:04"),
			shortID(e.BatchID),
			strconv.Itoa(e.Ordinal),
			e.ItemID,
			e.Path,
		})
	}
	fmt.Fprintln(w, renderTable(w, []string{"Created", "Batch", "#", "ID", "Path"}, rows, 3))
	return nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}
