package cli

import (
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/shaiso/flowgraph/internal/document"
	"github.com/shaiso/flowgraph/internal/engine"
	"github.com/shaiso/flowgraph/internal/scheduler"
	"github.com/shaiso/flowgraph/internal/telemetry"
)

// NewWatchCmd создаёт команду повторных запусков графа по cron-расписанию.
func NewWatchCmd(outputFn func(cmd *cobra.Command) *Output) *cobra.Command {
	var (
		flags    engineFlags
		input    string
		expr     string
		timezone string
		preview  int
	)

	cmd := &cobra.Command{
		Use:   "watch FILE",
		Short: "Run a graph document repeatedly on a cron schedule",
		Example: `  flowgraph watch onboard.json --cron "*/5 * * * *"
  flowgraph watch ping.json --cron "@every 30s" --input '{"url": "https://example.com"}'`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			out := outputFn(cmd)

			if preview > 0 {
				runs, err := scheduler.NextRuns(expr, timezone, time.Now(), preview)
				if err != nil {
					return err
				}
				rows := make([][]string, len(runs))
				for i, t := range runs {
					rows[i] = []string{fmt.Sprint(i + 1), t.Format(time.RFC3339)}
				}
				out.Print([]string{"#", "AT"}, rows, runs)
				return nil
			}

			doc, err := document.ReadFile(args[0])
			if err != nil {
				return err
			}
			trigger, err := parseInput(input)
			if err != nil {
				return err
			}

			logger := telemetry.NewCLILogger(cmd.ErrOrStderr())
			eng, _, cleanup, err := flags.build(cmd.Context(), logger)
			defer cleanup()
			if err != nil {
				return err
			}
			// Падения ловим заранее: расписание с невалидным графом бесполезно.
			if err := eng.Validate(&doc.Graph); err != nil {
				return err
			}

			sched, err := scheduler.New(scheduler.Config{
				Engine:   eng,
				Graph:    &doc.Graph,
				Input:    trigger,
				Expr:     expr,
				Timezone: timezone,
				Logger:   logger,
				OnRun: func(result *engine.Result, runErr error) {
					if runErr != nil {
						out.Error(fmt.Sprintf("run %s failed: %v", result.RunID, runErr))
						return
					}
					out.Success(fmt.Sprintf("run %s succeeded in %s", result.RunID, result.Duration().Round(time.Millisecond)))
				},
			})
			if err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			out.Success(fmt.Sprintf("Watching %s on %q, Ctrl+C to stop", args[0], expr))
			if err := sched.Run(ctx); err != nil && ctx.Err() == nil {
				return err
			}
			out.Success(fmt.Sprintf("Stopped after %d runs", sched.Runs()))
			return nil
		},
	}

	flags.register(cmd)
	cmd.Flags().StringVar(&input, "input", "", "Run input: JSON or @file")
	cmd.Flags().StringVar(&expr, "cron", "", "Cron expression (5 fields or @every/@hourly descriptors)")
	cmd.Flags().StringVar(&timezone, "tz", "UTC", "Timezone of the schedule")
	cmd.Flags().IntVar(&preview, "next", 0, "Only print the next N fire times and exit")
	cmd.MarkFlagRequired("cron")

	return cmd
}

