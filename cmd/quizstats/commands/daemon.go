package commands

import (
	"log/slog"
	"quizstats/internal/app"
	"quizstats/internal/chrono"

	"github.com/spf13/cobra"
)

var daemonNow *bool

func init() {
	daemonNow = daemonCmd.Flags().Bool("now", false, "Also run once immediately on startup.")
	rootCmd.AddCommand(daemonCmd)
}

var daemonCmd = &cobra.Command{
	Use:   "daemon [--now]",
	Short: "Runs on the configured cron schedule until interrupted.",
	Run: func(cmd *cobra.Command, args []string) {
		ctx := cmd.Context()
		env := setup(ctx)
		defer env.close()

		a, err := app.Open(ctx, env.cfg, env.tel)
		if err != nil {
			env.fatal("failed to initialize", err)
		}
		defer a.Close()

		run := func() {
			summary, err := a.Run(ctx)
			if err != nil {
				slog.Error("run failed", "err", err)
				return
			}
			slog.Info(
				"run complete",
				"watermark", summary.Watermark,
				"written", len(summary.Written),
				"failed", len(summary.Failed),
			)
		}

		cron := chrono.NewStandardCron(env.tel)
		err = cron.Cron(env.cfg.Schedule, run)
		if err != nil {
			env.fatal("invalid schedule", err)
		}
		if *daemonNow {
			run()
		}

		cron.Start()
		slog.Info("waiting for schedule", "schedule", env.cfg.Schedule, "timezone", chrono.Yerevan().String())
		<-ctx.Done()

		slog.Info("shutting down")
		cron.Stop()
	},
}
