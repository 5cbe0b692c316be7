package cmd

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"notion-lite/cache"
	"notion-lite/store"
)

var sweepCmd = &cobra.Command{
	Use:   "sweep",
	Short: "Delete blocks whose page no longer exists and expired export cache files",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		s, err := openStore(cmd.Context(), cfg)
		if err != nil {
			return err
		}
		defer s.Close()

		blocks, files, err := sweep(cmd.Context(), s, cache.New(cfg.CacheDir, cfg.CacheMaxAge))
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "removed %d orphan blocks, %d cache files\n", blocks, files)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(sweepCmd)
}

// sweep is one reconciliation pass. It cleans up after a page deletion that removed
// the page but not all of its blocks, and trims the export cache.
func sweep(ctx context.Context, s store.Store, renders *cache.FileCache) (int64, int, error) {
	blocks, err := s.DeleteOrphanBlocks(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("delete orphan blocks: %w", err)
	}

	files, err := renders.ClearOld()
	if err != nil {
		return blocks, files, fmt.Errorf("clear export cache: %w", err)
	}

	log.Info().Int64("blocks", blocks).Int("cache_files", files).Msg("sweep finished")
	return blocks, files, nil
}
