// Command gclab exposes the GC method-development calculators and the QC
// workflow from the command line.
package main

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"

	"github.com/lmittmann/tint"
	"github.com/spf13/cobra"

	"gclabcore/internal/config"
	"gclabcore/internal/core"
)

var (
	cfgPath string
	cfg     config.Config
)

var rootCmd = &cobra.Command{
	Use:           "gclab",
	Short:         "GC method development and quality-control toolkit",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(cfgPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		slog.SetDefault(slog.New(
			tint.NewHandler(os.Stderr, &tint.Options{
				Level:      logLevel(cfg.Logging.Level),
				TimeFormat: "15:04:05",
			}),
		))
		return nil
	},
}

func logLevel(level string) slog.Level {
	switch level {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// newService wires a persistent store and the instrumented service according
// to the loaded configuration.
func newService() (*core.Service, error) {
	cfg.ApplyEnv()
	store, err := core.OpenPersistentStore(core.NewDefaultRulesEngine())
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	return core.NewService(store,
		core.WithLogger(core.NewSlogLogger(slog.Default())),
		core.WithPolicy(cfg.Policy()),
	), nil
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "", "path to YAML configuration file")
	rootCmd.AddCommand(calcCmd, qcCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
