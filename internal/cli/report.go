package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"vocab-battle/internal/app"
	"vocab-battle/internal/config"
	"vocab-battle/internal/infra/memory"
	pgstore "vocab-battle/internal/infra/postgres"
	"vocab-battle/internal/match"
	"vocab-battle/internal/report"

	"github.com/jackc/pgx/v4/pgxpool"
	"github.com/spf13/cobra"
)

// NewReportCmd prints a CSV class report built from stored answers.
func NewReportCmd(configPath *string) *cobra.Command {
	var (
		classID string
		period  string
		detail  bool
	)
	cmd := &cobra.Command{
		Use:   "report",
		Short: "Print a CSV report of stored answers for a class",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runReport(cmd.Context(), cmd.OutOrStdout(), *configPath, classID, period, detail)
		},
	}
	cmd.Flags().StringVar(&classID, "class", app.AllClasses, "class id, or all")
	cmd.Flags().StringVar(&period, "period", match.PeriodWeek, "day, week, month or all")
	cmd.Flags().BoolVar(&detail, "answers", false, "list every answer instead of the per-student summary")
	return cmd
}

func runReport(ctx context.Context, out io.Writer, configPath, classID, period string, detail bool) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if cfg.Postgres.URL == "" {
		return fmt.Errorf("postgres url not configured")
	}
	window, err := match.WindowFor(period, time.Now())
	if err != nil {
		return err
	}

	pool, err := pgxpool.Connect(ctx, cfg.Postgres.URL)
	if err != nil {
		return err
	}
	defer pool.Close()
	db := openBun(cfg.Postgres.URL)
	defer db.Close()

	history := app.NewHistoryService(memory.NewRosterRepository(pgstore.NewRosterLoader(pool), time.Minute), pgstore.NewAnswerStore(db))
	res, err := history.Report(ctx, classID, window)
	if err != nil {
		return err
	}

	render := report.StatsCSV
	if detail {
		render = report.AnswersCSV
	}
	body, err := render(res.Stats)
	if err != nil {
		return err
	}
	_, err = out.Write(body)
	return err
}
