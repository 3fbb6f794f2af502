package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dgallion1/corpusgest/internal/config"
	"github.com/dgallion1/corpusgest/internal/sink"
)

var pruneCmd = &cobra.Command{
	Use:   "prune <mount_path>",
	Short: "Delete an imported corpus from every sink",
	Long: `Delete every record stored at or below a mount path and forget its
import marker, so the next import stores it again.

Example:
  corpusgest prune /books/al-kafi`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		mount := args[0]
		if err := config.ValidateMountPath(mount); err != nil {
			return fmt.Errorf("mount_path: %w", err)
		}
		if err := cfg.Validate(); err != nil {
			return err
		}
		ctx := context.Background()
		store, err := sink.Open(ctx, cfg.SinkOptions(), log)
		if err != nil {
			return err
		}
		defer store.Close()

		if err := store.Prune(ctx, mount); err != nil {
			return err
		}
		if err := store.SetImportHash(ctx, mount, ""); err != nil {
			return err
		}
		fmt.Printf("pruned %s\n", mount)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(pruneCmd)
}
