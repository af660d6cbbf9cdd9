package cmd

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"

	"github.com/okanlawon/pawdispatch/internal/config"
	"github.com/okanlawon/pawdispatch/internal/gateway"
	"github.com/okanlawon/pawdispatch/internal/queue"
)

var (
	cfgPath    string
	serverURL  string
	jsonOutput bool

	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "pawctl",
	Short: "CLI for the pawdispatch emergency pipeline",
	Long: `pawctl reports pet emergencies to a pawdispatch server.

Reports are queued locally first, so submission works without
connectivity; queued reports drain automatically once the server is
reachable again.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(cfgPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		if serverURL != "" {
			cfg.Client.ServerURL = serverURL
		}
		return nil
	},
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "path to config file")
	rootCmd.PersistentFlags().StringVarP(&serverURL, "server", "s", "", "dispatch server URL")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "print machine-readable JSON")
}

// queuePath resolves the local queue file, defaulting under the home
// directory when the config does not name one.
func queuePath() (string, error) {
	if cfg.Client.QueuePath != "" {
		return cfg.Client.QueuePath, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, ".pawdispatch", "queue.json"), nil
}

// openQueue builds the offline queue over the local file store and the
// configured server gateway.
func openQueue() (*queue.OfflineQueue, error) {
	path, err := queuePath()
	if err != nil {
		return nil, err
	}
	fs, err := queue.NewFileStore(path)
	if err != nil {
		return nil, fmt.Errorf("open queue at %s: %w", path, err)
	}

	gw := gateway.New(cfg.Client.ServerURL, 15*time.Second)
	monitor := queue.NewMonitor(gw.Healthy, cfg.Client.ProbeInterval)
	return queue.NewOfflineQueue(fs, gw, cfg.Retry, monitor), nil
}
