// Package cli wires the review-scheduling core into a cobra command tree,
// grounded on the teacher's cli/agent.go shape (persistent flags resolved
// in PersistentPreRunE, one file per subcommand, RunE returning a wrapped
// error rather than calling os.Exit directly).
package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/memoster/reviewcore/internal/config"
)

var (
	flagConfigPath string
	flagDataDir    string
)

var rootCmd = &cobra.Command{
	Use:   "reviewcore",
	Short: "Adaptive review-scheduling core for spaced-repetition study",
	Long: "reviewcore runs the review-scheduling core standalone: it studies items on a\n" +
		"schedule, classifies gestures, and serves a read-only diagnostic API over the\n" +
		"running session.",
	SilenceUsage: true,
}

// Execute runs the command tree, returning the first error encountered.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&flagConfigPath, "config", "", "path to a TOML config file (defaults to the built-in spec constants)")
	rootCmd.PersistentFlags().StringVar(&flagDataDir, "data-dir", defaultDataDir(), "directory holding the sqlite database and crash-recovery files")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(simulateCmd)
	rootCmd.AddCommand(recoverCmd)
}

// defaultDataDir resolves ~/.reviewcore, falling back to the current
// directory if the home directory can't be determined.
func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".reviewcore"
	}
	return filepath.Join(home, ".reviewcore")
}

// loadConfig decodes flagConfigPath if set, otherwise returns the built-in
// defaults.
func loadConfig() (config.Config, error) {
	if flagConfigPath == "" {
		return config.DefaultConfig(), nil
	}
	cfg, err := config.LoadFile(flagConfigPath)
	if err != nil {
		return config.Config{}, fmt.Errorf("reviewcore: loading config %s: %w", flagConfigPath, err)
	}
	return cfg, nil
}

// ensureDataDir creates the data directory (and any parents) if missing.
func ensureDataDir(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("reviewcore: creating data dir %s: %w", dir, err)
	}
	return nil
}

func dbPath(dir string) string               { return filepath.Join(dir, "reviewcore.db") }
func backupLogPath(dir string) string        { return filepath.Join(dir, "backup_study_records.json") }
func pendingSnapshotPath(dir string) string   { return filepath.Join(dir, "pending_updates.json") }
