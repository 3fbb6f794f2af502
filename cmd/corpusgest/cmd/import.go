package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/dgallion1/corpusgest/internal/config"
	"github.com/dgallion1/corpusgest/internal/metrics"
	"github.com/dgallion1/corpusgest/internal/pipeline"
	"github.com/dgallion1/corpusgest/internal/sink"
)

var (
	manifestPath string
	importForce  bool
	concurrency  int
	reportPath   string
)

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Import every corpus in a manifest into the configured sinks",
	Long: `Import the corpora listed in a YAML manifest. Corpora are built,
indexed and stored concurrently; each one succeeds or fails on its own.
Corpora whose sources have not changed since their last complete import
are skipped unless --force is given. When the manifest names a catalog
path, a chapter-list record linking every stored corpus is written there.

Example:
  corpusgest import --manifest corpora.yaml --concurrency 2`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := cfg.Validate(); err != nil {
			return err
		}
		m, err := config.LoadManifest(manifestPath)
		if err != nil {
			return err
		}

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		jobs := make([]*pipeline.Job, 0, len(m.Corpora))
		for _, c := range m.Corpora {
			req, err := pipeline.NewRequest(c, cfg, importForce)
			if err != nil {
				return fmt.Errorf("corpus %s: %w", c.Name, err)
			}
			data, err := os.ReadFile(c.File)
			if err != nil {
				return fmt.Errorf("corpus %s: %w", c.Name, err)
			}
			jobs = append(jobs, pipeline.NewJob(req, data))
		}

		store, err := sink.Open(ctx, cfg.SinkOptions(), log)
		if err != nil {
			return err
		}
		defer store.Close()

		worker := pipeline.NewWorker(store, metrics.New(), log, cfg.StoreBatchSize)
		limit := concurrency
		if limit <= 0 {
			limit = cfg.WorkerCount
		}
		outcomes := pipeline.RunBatch(ctx, worker, jobs, limit)

		if m.Catalog.Path != "" {
			if err := pipeline.WriteCatalog(ctx, store, m.Catalog.Path, m.Catalog.Titles, outcomes); err != nil {
				return err
			}
			log.Info("catalog written", "path", m.Catalog.Path)
		}

		failed := 0
		for _, o := range outcomes {
			fmt.Printf("%-10s %-32s records=%d stored=%d warnings=%d\n",
				o.Status, o.MountPath, o.Progress.Records, o.Progress.Stored, o.Progress.Warnings)
			for _, e := range o.Progress.Errors {
				fmt.Printf("           error: %s\n", e)
			}
			if !o.OK() {
				failed++
			}
		}
		if reportPath != "" {
			if err := writeJSON(reportPath, outcomes); err != nil {
				return fmt.Errorf("write report: %w", err)
			}
		}
		if failed > 0 {
			return fmt.Errorf("%d of %d corpora did not import cleanly", failed, len(outcomes))
		}
		return nil
	},
}

func init() {
	importCmd.Flags().StringVarP(&manifestPath, "manifest", "m", "corpora.yaml", "YAML manifest listing the corpora")
	importCmd.Flags().BoolVar(&importForce, "force", false, "re-import corpora even when unchanged")
	importCmd.Flags().IntVar(&concurrency, "concurrency", 0, "corpora imported at once (default WORKER_COUNT)")
	importCmd.Flags().StringVar(&reportPath, "report", "", "write per-corpus outcomes and diagnostics as JSON to this file")
	rootCmd.AddCommand(importCmd)
}
