// cragsync is the development CLI around the Cragbook sync engine: run
// the background scheduler against a real backend, fire one-off passes,
// and inspect sync health. The mobile app embeds the same engine
// through cmd/mobile instead.
package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "cragsync",
	Short: "Cragbook offline-first sync engine",
	Long: `cragsync drives the Cragbook synchronization engine from the command
line. It keeps a local SQLite logbook in step with the remote backend:
remote changes are pulled and merged, queued local changes are pushed.

Configuration comes from the environment (or a .env file):
  CRAGBOOK_API_URL         backend base URL (required)
  CRAGBOOK_API_KEY         project api key (required)
  CRAGBOOK_TOKEN           per-user bearer token
  CRAGBOOK_DATA_DIR        local database directory (default ./data)
  CRAGBOOK_SYNC_INTERVAL   background sync cadence (default 5m)
  CRAGBOOK_LOG_LEVEL       debug, info, warn, error (default info)`,
	SilenceUsage: true,
}

func main() {
	// A missing .env is fine; the environment may carry everything.
	_ = godotenv.Load()

	rootCmd.AddCommand(runCmd, syncCmd, statusCmd, retryCmd)

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
