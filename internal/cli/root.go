// Package cli provides the fleetdeck command-line interface.
package cli

import (
	"os"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/opentelematics/fleetdeck/internal/config"
	"github.com/opentelematics/fleetdeck/internal/logging"
)

var (
	cfgPath  string
	logLevel string

	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "fleetdeck",
	Short: "Fleet dashboard with a narrated demo orchestrator",
	Long: `fleetdeck serves a vehicle-fleet dashboard and drives fully narrated,
self-running product tours over it: synthesized narration, simulated voice
queries into the AI chat, and scripted map actions.`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		loaded, err := config.Load(cfgPath)
		if err != nil {
			return err
		}
		if logLevel != "" {
			loaded.LogLevel = logLevel
		}
		logging.Setup(loaded.LogLevel, isInteractive())
		cfg = loaded
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "config file (default: ./fleetdeck.yaml)")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level override (trace|debug|info|warn|error)")
}

// Execute runs the CLI.
func Execute() error {
	return rootCmd.Execute()
}

func isInteractive() bool {
	return term.IsTerminal(int(os.Stdout.Fd()))
}
