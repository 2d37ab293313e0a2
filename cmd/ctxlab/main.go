// ctxlab is a teaching workbench for LLM context management. It runs the
// same travel-concierge queries through engine levels that differ only
// in who curates the context, records every step with verified token
// counts, and serves the results for inspection.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"ctxlab/internal/config"
)

var (
	verbose   bool
	level     int
	logDir    string
	skillsDir string
	model     string

	logger *zap.Logger
	cfg    config.Config
)

var rootCmd = &cobra.Command{
	Use:   "ctxlab",
	Short: "ctxlab - context management teaching workbench",
	Long: `ctxlab runs travel-concierge queries through progressively smarter
context-management levels and records exactly where every input token
went. All token figures are measured or derived from provider
measurements; nothing is estimated.

Run "ctxlab chat" to talk to an engine, "ctxlab serve" for the
dashboard API, and "ctxlab verify" to reconcile the recorded math.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		zapConfig := zap.NewProductionConfig()
		if verbose {
			zapConfig.Level = zap.NewAtomicLevelAt(zapcore.DebugLevel)
		}
		var err error
		logger, err = zapConfig.Build()
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}

		cfg, err = config.Load()
		if err != nil {
			logger.Warn("config load failed, using defaults", zap.Error(err))
		}
		if logDir != "" {
			cfg.LogDir = logDir
		}
		if skillsDir != "" {
			cfg.SkillsDir = skillsDir
		}
		if model != "" {
			cfg.Model = model
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&logDir, "log-dir", "", "session log directory (default from config)")
	rootCmd.PersistentFlags().StringVar(&skillsDir, "skills-dir", "", "skills directory (default from config)")
	rootCmd.PersistentFlags().StringVar(&model, "model", "", "model name (default from config)")

	rootCmd.AddCommand(chatCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(sessionsCmd)
	rootCmd.AddCommand(verifyCmd)
	rootCmd.AddCommand(configCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
