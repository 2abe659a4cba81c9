package cli

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/matzehuels/boardsync/pkg/boardsync"
	"github.com/matzehuels/boardsync/pkg/cache"
)

// cacheCommand creates the cache management command.
func (c *CLI) cacheCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cache",
		Short: "Manage cached layouts and sync snapshots",
	}

	cmd.AddCommand(c.cacheClearCommand())
	cmd.AddCommand(c.cachePathCommand())
	cmd.AddCommand(c.cacheForgetCommand())

	return cmd
}

// cacheClearCommand creates the "cache clear" subcommand.
func (c *CLI) cacheClearCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "clear",
		Short: "Remove every cached layout and sync snapshot",
		Long: `Remove every cached layout and sync snapshot.

Without snapshots the next sync to a board creates every row again; use
'boardsync cache forget' to drop a single board.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := c.cachePath()
			if err != nil {
				return err
			}
			if _, err := os.Stat(dir); os.IsNotExist(err) {
				printInfo("Cache is empty")
				return nil
			}

			count := 0
			filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
				if err == nil && !d.IsDir() {
					count++
				}
				return nil
			})

			fc, err := cache.NewFileCache(dir)
			if err != nil {
				return err
			}
			if err := fc.Clear(); err != nil {
				return fmt.Errorf("clear cache: %w", err)
			}

			printSuccess("Cleared %d cached entries", count)
			printDetail("Directory: %s", dir)
			return nil
		},
	}
}

// cachePathCommand creates the "cache path" subcommand.
func (c *CLI) cachePathCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "path",
		Short: "Print the cache directory path",
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := c.cachePath()
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), dir)
			return nil
		},
	}
}

// cacheForgetCommand creates the "cache forget" subcommand.
func (c *CLI) cacheForgetCommand() *cobra.Command {
	var board string
	cmd := &cobra.Command{
		Use:   "forget",
		Short: "Drop the sync snapshot of one board",
		RunE: func(cmd *cobra.Command, args []string) error {
			boardID, err := c.boardID(board)
			if err != nil {
				return err
			}
			ch, err := c.newCache(false)
			if err != nil {
				return err
			}
			defer ch.Close()
			if err := ch.Delete(cmd.Context(), boardsync.StateKey(cache.NewDefaultKeyer(), boardID)); err != nil {
				return err
			}
			printSuccess("Forgot the last sync to %s", boardID)
			return nil
		},
	}
	cmd.Flags().StringVar(&board, "board", "", "board id (default: MIRO_BOARD_ID)")
	return cmd
}

// cachePath is the configured cache directory or the XDG default.
func (c *CLI) cachePath() (string, error) {
	if dir := c.Config.Storage.CacheDir; dir != "" {
		return dir, nil
	}
	dir, err := cacheDir()
	if err != nil {
		return "", fmt.Errorf("get cache dir: %w", err)
	}
	return dir, nil
}
