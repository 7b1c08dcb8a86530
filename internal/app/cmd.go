package app

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/hitoshi/weeklynews/internal/calendar"
	"github.com/hitoshi/weeklynews/internal/model"
	"github.com/hitoshi/weeklynews/internal/pipeline"
)

// Command はアプリケーションの起動モードを表す。
type Command string

const (
	// CommandServe はAPIサーバーモードで起動することを示す。引数なしの場合の既定。
	CommandServe Command = "serve"
	// CommandMigrate はお気に入りストアのマイグレーションを実行することを示す。
	CommandMigrate Command = "migrate"
	// CommandWeek は1週分のダイジェストを絞り込んでJSONで出力することを示す。
	CommandWeek Command = "week"
	// CommandHealthcheck はヘルスチェックを実行することを示す。
	// distroless環境でのDockerヘルスチェック用。
	CommandHealthcheck Command = "healthcheck"
)

// NewRootCommand はweeklynewsのルートコマンドを生成する。
// ログとエラーはwに、weekサブコマンドの結果はコマンドの出力先（既定は標準出力）に書き出す。
// サブコマンドを指定しない場合はserveとして動作する。
func NewRootCommand(w io.Writer) *cobra.Command {
	root := &cobra.Command{
		Use:           "weeklynews",
		Short:         "Week-indexed news digest archive",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := Init(w)
			if err != nil {
				return fmt.Errorf("initialization failed: %w", err)
			}
			return runServe(cmd.Context(), cfg, log)
		},
	}
	root.SetErr(w)

	root.AddCommand(
		newServeCommand(w),
		newMigrateCommand(w),
		newWeekCommand(w),
		&cobra.Command{
			Use:   string(CommandHealthcheck),
			Short: "Check /health of the local API server",
			RunE: func(_ *cobra.Command, _ []string) error {
				return runHealthcheck(healthcheckPort())
			},
		},
	)
	return root
}

func newServeCommand(w io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   string(CommandServe),
		Short: "Start the API server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := Init(w)
			if err != nil {
				return fmt.Errorf("initialization failed: %w", err)
			}
			return runServe(cmd.Context(), cfg, log)
		},
	}
}

func newMigrateCommand(w io.Writer) *cobra.Command {
	return &cobra.Command{
		Use:   string(CommandMigrate),
		Short: "Apply favourites store migrations",
		Args:  cobra.NoArgs,
		RunE: func(_ *cobra.Command, _ []string) error {
			cfg, log, err := Init(w)
			if err != nil {
				return fmt.Errorf("initialization failed: %w", err)
			}
			return runMigrate(cfg, log)
		},
	}
}

// weekOptions はweekサブコマンドのフラグ。
type weekOptions struct {
	date     string
	year     int
	week     int
	category string
	query    string
	page     int
}

// weekOutput はweekサブコマンドの出力。
type weekOutput struct {
	ISOYear     int              `json:"iso_year"`
	ISOWeek     int              `json:"iso_week"`
	Key         string           `json:"key"`
	GeneratedAt string           `json:"generated_at,omitempty"`
	Notice      string           `json:"notice,omitempty"`
	Categories  []string         `json:"categories"`
	Items       []model.NewsItem `json:"items"`
	Page        int              `json:"page"`
	TotalPages  int              `json:"total_pages"`
	Total       int              `json:"total"`
}

func newWeekCommand(w io.Writer) *cobra.Command {
	var opts weekOptions

	cmd := &cobra.Command{
		Use:   string(CommandWeek),
		Short: "Print one page of a weekly digest as JSON",
		Long: `Load the digest for the ISO week containing --date (or --year/--week),
apply the category and query filters, and print the requested page to stdout.
Without a week selector the current week is used.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := Init(w)
			if err != nil {
				return fmt.Errorf("initialization failed: %w", err)
			}
			arc, err := newArchive(cfg, nil, log)
			if err != nil {
				return err
			}

			isoYear, isoWeek, err := opts.resolve(arc.clock)
			if err != nil {
				return err
			}

			result := arc.loader.Load(cmd.Context(), isoYear, isoWeek)
			out := weekOutput{
				ISOYear: isoYear,
				ISOWeek: isoWeek,
				Key:     result.Key,
				Notice:  result.Cause(),
			}
			var items []model.NewsItem
			if result.Digest != nil {
				items = result.Digest.Items
				out.GeneratedAt = result.Digest.GeneratedAt
			}
			page := pipeline.Apply(items, pipeline.Filters{Category: opts.category, Query: opts.query}, opts.page)
			out.Categories = pipeline.Categories(items)
			out.Items = page.Items
			out.Page, out.TotalPages, out.Total = page.Page, page.TotalPages, page.Total

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(out)
		},
	}

	flags := cmd.Flags()
	flags.StringVar(&opts.date, "date", "", "date within the week (YYYY-MM-DD)")
	flags.IntVar(&opts.year, "year", 0, "ISO year (used with --week)")
	flags.IntVar(&opts.week, "week", 0, "ISO week number (used with --year)")
	flags.StringVar(&opts.category, "category", "", "exact category filter")
	flags.StringVarP(&opts.query, "query", "q", "", "case-insensitive search term")
	flags.IntVar(&opts.page, "page", 1, "page number (clamped to the available range)")
	cmd.MarkFlagsRequiredTogether("year", "week")
	cmd.MarkFlagsMutuallyExclusive("date", "year")
	return cmd
}

// resolve は対象のISO週を決める。--date、--year/--week、今日の順に使う。
func (o weekOptions) resolve(clock *calendar.Clock) (int, int, error) {
	switch {
	case o.date != "":
		d, err := calendar.ParseDate(o.date)
		if err != nil {
			return 0, 0, model.NewInvalidDateError(o.date)
		}
		y, wk := calendar.ToISOWeek(d)
		return y, wk, nil
	case o.year != 0 || o.week != 0:
		if !calendar.ValidWeek(o.year, o.week) {
			return 0, 0, model.NewInvalidWeekError(o.year, o.week)
		}
		return o.year, o.week, nil
	default:
		y, wk := calendar.ToISOWeek(clock.Today())
		return y, wk, nil
	}
}
