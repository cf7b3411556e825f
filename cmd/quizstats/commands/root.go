package commands

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"quizstats/internal/app"
	"quizstats/internal/serviceutil"
	"quizstats/internal/telemetry"

	"github.com/spf13/cobra"
)

var (
	configPath *string
	verbose    *bool
)

func init() {
	configPath = rootCmd.PersistentFlags().String("config", "quizstats.json5", "The config file, a .local. variant next to it overrides it.")
	verbose = rootCmd.PersistentFlags().BoolP("verbose", "v", false, "Print debug logs.")
}

var rootCmd = &cobra.Command{
	Use:   "quizstats",
	Short: "quizstats appends the results of new quizplease games to a spreadsheet.",
	Run: func(cmd *cobra.Command, args []string) {
		env := setup(cmd.Context())
		defer env.close()

		a, err := app.Open(cmd.Context(), env.cfg, env.tel)
		if err != nil {
			env.fatal("failed to initialize", err)
		}
		defer a.Close()

		summary, err := a.Run(cmd.Context())
		if err != nil {
			a.Close()
			env.fatal("run failed", err)
		}
		slog.Info(
			"run complete",
			"watermark", summary.Watermark,
			"written", len(summary.Written),
			"failed", len(summary.Failed),
			"rows", summary.Rows,
		)
	},
}

type environment struct {
	cfg   app.Config
	tel   telemetry.API
	close func()
}

// setup loads .env and the config, then initializes logging and otel.
func setup(ctx context.Context) environment {
	err := serviceutil.LoadEnv(".env", ".env.local")
	if err != nil {
		serviceutil.Fatal("failed to load .env", err)
	}

	cfg, err := app.LoadConfig(*configPath)
	if err != nil {
		serviceutil.Fatal("failed to read config", err)
	}
	serviceutil.InitSlog(*verbose || cfg.Verbose)

	otel, err := telemetry.SetupOtel(ctx, "quizstats", cfg.Otlp)
	if err != nil {
		serviceutil.Fatal("failed to setup otel", err)
	}

	return environment{
		cfg: cfg,
		tel: telemetry.NewSlogAPI(slog.Default()),
		close: func() {
			err := otel.Shutdown(context.Background())
			if err != nil {
				slog.Warn("shutdown otel", "err", err)
			}
		},
	}
}

// fatal flushes telemetry before exiting, deferred calls never run after
// os.Exit.
func (e environment) fatal(message string, err error) {
	e.close()
	exit(message, err)
}

var exit = serviceutil.Fatal

func ExecuteContext(ctx context.Context) {
	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
