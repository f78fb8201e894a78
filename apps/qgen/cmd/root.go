package cmd

import (
	"context"
	"errors"
	"log/slog"
	"os"

	"github.com/quatton/qgen/pkg/qlog"
	"github.com/quatton/qgen/pkg/qsdk"
	"github.com/spf13/cobra"
)

type contextKey string

const (
	configContextKey contextKey = "qgenconfig"
	loggerContextKey contextKey = "qgenlogger"
)

var (
	cfgFile string
	verbose bool
	quiet   bool
	rootCmd = &cobra.Command{
		Use:   "qgen",
		Short: "Schema-driven client for hosted image generation models",
		Long: `qgen talks to a Replicate-compatible inference API. It lists and inspects
models, resolves prediction inputs from a model's declared schema, runs single
predictions, and drives batches of jobs until a requested number of images is
produced. 'qgen serve' exposes the same operations over HTTP for node-graph
hosts.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := qsdk.LoadConfig(cfgFile)
			if err != nil {
				return err
			}

			if err := cfg.Viper().BindPFlags(cmd.Flags()); err != nil {
				return err
			}
			if u, _ := cmd.Flags().GetString("base-url"); u != "" {
				cfg.BaseURL = u
			}

			level := slog.LevelInfo
			switch {
			case verbose:
				level = slog.LevelDebug
			case quiet:
				level = slog.LevelWarn
			}
			logger := qlog.NewLogger(level, os.Stderr)

			ctx := context.WithValue(cmd.Context(), configContextKey, cfg)
			ctx = context.WithValue(ctx, loggerContextKey, logger)
			cmd.SetContext(ctx)

			return nil
		},
	}
)

// GetConfig retrieves the Config from the command context
func GetConfig(cmd *cobra.Command) (*qsdk.Config, error) {
	cfg, ok := cmd.Context().Value(configContextKey).(*qsdk.Config)
	if !ok {
		return nil, errors.New("no config in context")
	}
	return cfg, nil
}

func getLogger(cmd *cobra.Command) *qlog.Logger {
	l, _ := cmd.Context().Value(loggerContextKey).(*qlog.Logger)
	return qlog.OrNop(l)
}

// newClient builds a gateway client from the loaded config and token.
func newClient(cmd *cobra.Command) (*qsdk.Client, error) {
	cfg, err := GetConfig(cmd)
	if err != nil {
		return nil, err
	}
	return qsdk.NewClientFromConfig(cfg, qsdk.WithLogger(getLogger(cmd)))
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		exitIfSdkError(err)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (YAML). Searches: qgen.yaml, .qgen/config.yaml")
	rootCmd.PersistentFlags().String("base-url", "", "Base URL of the inference API (overrides config)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Debug logging")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Only log warnings and errors")
}
