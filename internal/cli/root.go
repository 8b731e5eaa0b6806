// Package cli содержит команды convergectl: пересчёт начислений и синхронизацию данных.
package cli

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// app хранит общее для всех команд состояние.
type app struct {
	envFile string
	verbose bool
	logger  *zap.Logger
}

// NewRootCommand создаёт корневую команду convergectl.
func NewRootCommand() *cobra.Command {
	a := &app{logger: zap.NewNop()}

	root := &cobra.Command{
		Use:   "convergectl",
		Short: "Batch jobs for the Converge rewards program",
		Long: `convergectl runs the batch jobs behind the Converge rewards shop.

Configuration is read from the environment. Use --env-file to load
variables from a .env file first; variables already set in the
environment take precedence.

Examples:
  convergectl payout --dry-run          # Preview the token ledger
  convergectl payment-report --xlsx out.xlsx
  convergectl loops-sync --concurrency 4`,
		SilenceUsage:      true,
		PersistentPreRunE: a.setup,
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = a.logger.Sync()
		},
	}

	root.PersistentFlags().StringVar(&a.envFile, "env-file", "", "load environment variables from this file")
	root.PersistentFlags().BoolVarP(&a.verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(
		newPayoutCommand(a),
		newPaymentReportCommand(a),
		newBackfillCommand(a),
		newLoopsSyncCommand(a),
		newFilloutSyncCommand(a),
	)

	return root
}

func (a *app) setup(cmd *cobra.Command, args []string) error {
	if a.envFile != "" {
		if err := godotenv.Load(a.envFile); err != nil {
			return fmt.Errorf("load env file %s: %w", a.envFile, err)
		}
	}

	logger, err := newLogger(a.verbose)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	a.logger = logger
	return nil
}

func newLogger(verbose bool) (*zap.Logger, error) {
	cfg := zap.NewDevelopmentConfig()
	cfg.OutputPaths = []string{"stderr"}
	cfg.DisableStacktrace = true
	cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	if !verbose {
		cfg.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}
	return cfg.Build()
}

func createFile(path string) (*os.File, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", path, err)
	}
	return f, nil
}
