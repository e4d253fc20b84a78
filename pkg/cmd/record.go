package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/pkg/errors"
	"github.com/rs/xid"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/benchwatch/benchwatch/pkg/bench"
	"github.com/benchwatch/benchwatch/pkg/config"
	"github.com/benchwatch/benchwatch/pkg/detect"
	"github.com/benchwatch/benchwatch/pkg/extract"
	"github.com/benchwatch/benchwatch/pkg/logging"
	"github.com/benchwatch/benchwatch/pkg/metrics"
	"github.com/benchwatch/benchwatch/pkg/notify"
	"github.com/benchwatch/benchwatch/pkg/persist"
	"github.com/benchwatch/benchwatch/pkg/report"
	"github.com/benchwatch/benchwatch/pkg/vcs"
)

var RecordCommand = cli.Command{
	Name:  "record",
	Usage: "append a benchmark run to the suite history and check it for regressions",
	Flags: []cli.Flag{
		&cli.StringFlag{Name: "name", Aliases: []string{"n"}, Usage: "`NAME` of the benchmark suite"},
		&cli.StringFlag{Name: "tool", Aliases: []string{"t"}, Usage: "benchmark `TOOL` that produced the output"},
		&cli.StringSliceFlag{Name: "input", Aliases: []string{"i"}, Usage: "`GLOB` of raw benchmark output files (repeatable)"},
		&cli.Float64Flag{Name: "alert-threshold", Usage: "degradation `RATIO` above which a metric is reported"},
		&cli.Float64Flag{Name: "fail-threshold", Usage: "degradation `RATIO` above which the build fails (defaults to alert-threshold)"},
		&cli.BoolFlag{Name: "comment-always", Usage: "post the comparison as a commit comment on every run"},
		&cli.BoolFlag{Name: "comment-on-alert", Usage: "post an alert comment when a metric crosses the alert threshold"},
		&cli.BoolFlag{Name: "fail-on-alert", Usage: "exit non-zero when a metric crosses the fail threshold"},
		&cli.BoolFlag{Name: "auto-push", Usage: "push the data branch after committing"},
		&cli.BoolFlag{Name: "skip-fetch", Usage: "skip fetching/pulling the data branch before writing"},
		&cli.BoolFlag{Name: "save-data-file", Usage: "write the external data file (local-file backend)"},
		&cli.BoolFlag{Name: "compare-with-best", Usage: "compare against the best recorded run instead of the previous one"},
		&cli.IntFlag{Name: "max-items", Usage: "maximum `COUNT` of runs retained per suite (0 keeps everything)"},
		&cli.IntFlag{Name: "max-retries", Usage: "attempt `BUDGET` for the push retry loop"},
		&cli.StringFlag{Name: "branch", Usage: "`NAME` of the shared data branch"},
		&cli.StringFlag{Name: "data-path", Usage: "`PATH` of the data file on the branch, relative to the repo root"},
		&cli.StringFlag{Name: "external-data-file", Usage: "local JSON `FILE` to use instead of the shared branch"},
		&cli.StringSliceFlag{Name: "alert-cc", Usage: "`ACCOUNT` to mention in alert comments (repeatable)"},
		&cli.StringFlag{Name: "footer", Usage: "`TEXT` appended to every report body"},
		&cli.StringFlag{Name: "token", Usage: "GitHub `TOKEN` (or set GITHUB_TOKEN)"},
		&cli.StringFlag{Name: "repo-dir", Value: ".", Usage: "`DIR` of the local repository clone"},
		&cli.StringFlag{Name: "influx-endpoint", Usage: "InfluxDB `URL` to mirror results to"},
		&cli.StringFlag{Name: "influx-database", Usage: "InfluxDB `DATABASE` name"},
	},
	Action: recordCommand,
}

// overridesFromFlags forwards only the flags the user actually set, so the
// config file and the defaults keep their say for the rest.
func overridesFromFlags(c *cli.Context) map[string]interface{} {
	overrides := make(map[string]interface{})
	set := func(flag, key string, v interface{}) {
		if c.IsSet(flag) {
			overrides[key] = v
		}
	}

	set("name", "name", c.String("name"))
	set("tool", "tool", c.String("tool"))
	set("input", "input", c.StringSlice("input"))
	set("alert-threshold", "alert_threshold", c.Float64("alert-threshold"))
	set("fail-threshold", "fail_threshold", c.Float64("fail-threshold"))
	set("comment-always", "comment_always", c.Bool("comment-always"))
	set("comment-on-alert", "comment_on_alert", c.Bool("comment-on-alert"))
	set("fail-on-alert", "fail_on_alert", c.Bool("fail-on-alert"))
	set("auto-push", "auto_push", c.Bool("auto-push"))
	set("skip-fetch", "skip_fetch", c.Bool("skip-fetch"))
	set("save-data-file", "save_data_file", c.Bool("save-data-file"))
	set("compare-with-best", "compare_with_best", c.Bool("compare-with-best"))
	set("max-items", "max_items", c.Int("max-items"))
	set("max-retries", "max_retries", c.Int("max-retries"))
	set("branch", "branch", c.String("branch"))
	set("data-path", "data_path", c.String("data-path"))
	set("external-data-file", "external_data_file", c.String("external-data-file"))
	set("alert-cc", "alert_cc", c.StringSlice("alert-cc"))
	set("footer", "footer", c.String("footer"))
	set("token", "github_token", c.String("token"))

	influx := make(map[string]interface{})
	if c.IsSet("influx-endpoint") {
		influx["endpoint"] = c.String("influx-endpoint")
	}
	if c.IsSet("influx-database") {
		influx["database"] = c.String("influx-database")
	}
	if len(influx) > 0 {
		overrides["influx"] = influx
	}
	return overrides
}

func recordCommand(c *cli.Context) error {
	log := logging.S().With("invocation", xid.New().String())

	cfg, err := config.Load(c.String("repo-dir"), overridesFromFlags(c))
	if err != nil {
		return err
	}
	if len(cfg.Input) == 0 {
		return errors.New("no benchmark output given; pass --input")
	}

	git, err := vcs.Open(c.String("repo-dir"), vcs.Options{Token: cfg.GitHubToken})
	if err != nil {
		return err
	}
	remote, err := git.RemoteURL()
	if err != nil {
		return err
	}
	repo, err := config.ResolveRepository(remote)
	if err != nil {
		return err
	}

	commit, err := git.Head()
	if err != nil {
		return err
	}
	commit.URL = repo.CommitURL(commit.ID)

	benches, err := extract.Files(cfg.BenchTool(), cfg.Input)
	if err != nil {
		return err
	}
	run := bench.Run{
		Commit:  commit,
		Tool:    cfg.BenchTool(),
		Date:    time.Now().UnixMilli(),
		Benches: benches,
	}
	log.Infow("benchmark run assembled", "suite", cfg.Name, "tool", cfg.Tool,
		"commit", commit.ID, "benches", len(benches))

	var writer persist.Writer
	if cfg.UseLocalFile() {
		writer = &persist.LocalFile{
			Path:     cfg.ExternalDataFile,
			Save:     cfg.SaveDataFile,
			MaxItems: cfg.MaxItems,
			RepoURL:  repo.URL,
		}
	} else {
		writer = &persist.Branch{
			Git:        git,
			Name:       cfg.Branch,
			DataPath:   cfg.DataPath,
			MaxItems:   cfg.MaxItems,
			RepoURL:    repo.URL,
			SkipFetch:  cfg.SkipFetch,
			AutoPush:   cfg.AutoPush,
			MaxRetries: cfg.MaxRetries,
		}
	}

	// The durable write comes first: a failed push aborts alerting too, so
	// no comment can reference data that was never stored.
	res, err := writer.Write(c.Context, cfg.Name, run)
	if err != nil {
		return err
	}

	// Alerts are only computed when something consumes them.
	var alerts, failing []detect.Alert
	if cfg.CommentOnAlert || cfg.FailOnAlert {
		alerts = detect.FindAlerts(run, res, detect.Options{
			AlertThreshold:  cfg.AlertThreshold,
			FailThreshold:   cfg.FailThreshold,
			CompareWithBest: cfg.CompareWithBest,
		})
		failing = detect.Failing(alerts, cfg.FailThreshold)
	}

	in := report.Input{
		Suite:           cfg.Name,
		Run:             run,
		Result:          res,
		CompareWithBest: cfg.CompareWithBest,
		AlertThreshold:  cfg.AlertThreshold,
		Mentions:        cfg.AlertCC,
		Footer:          cfg.Footer,
	}
	body := report.Comparison(in)

	report.NewPrinter(os.Getenv("NO_COLOR") == "").Summary(c.App.Writer, in, alerts, failing)
	writeStepSummary(body, log)

	if cfg.CommentAlways || (cfg.CommentOnAlert && len(alerts) > 0) {
		notifier, err := notify.NewGitHub(c.Context, cfg.GitHubToken, repo.Owner, repo.Name)
		if err != nil {
			return err
		}
		if cfg.CommentAlways {
			if err := post(c, notifier, run.Commit.ID, body, log); err != nil {
				return err
			}
		}
		if cfg.CommentOnAlert && len(alerts) > 0 {
			if err := post(c, notifier, run.Commit.ID, report.AlertBody(in, alerts), log); err != nil {
				return err
			}
		}
	}

	if cfg.Influx.Endpoint != "" {
		mirrorToInflux(cfg, run, log)
	}

	if cfg.FailOnAlert && len(failing) > 0 {
		// The failure message carries the comparison so the build log
		// documents the evidence on its own.
		return errors.Errorf("%s\n\n%s", report.FailureSummary(failing, cfg.FailThreshold), body)
	}
	return nil
}

func post(c *cli.Context, n notify.Notifier, commitID, body string, log *zap.SugaredLogger) error {
	comment, err := n.PostComment(c.Context, commitID, body)
	if err != nil {
		return err
	}
	log.Infow("comment posted", "url", comment.URL)
	return nil
}

// writeStepSummary appends the comparison body to the CI job summary file
// when the runner exposes one.
func writeStepSummary(body string, log *zap.SugaredLogger) {
	path := os.Getenv("GITHUB_STEP_SUMMARY")
	if path == "" {
		return
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		log.Warnw("unable to open step summary file", "path", path, "err", err)
		return
	}
	defer f.Close()
	fmt.Fprintln(f, body)
}

// mirrorToInflux is best-effort: the history write already succeeded, so a
// metrics outage only costs the mirror.
func mirrorToInflux(cfg *config.Config, run bench.Run, log *zap.SugaredLogger) {
	sink, err := metrics.NewSink(cfg.Influx.Endpoint, cfg.Influx.Database)
	if err != nil {
		log.Warnw("influxdb mirror unavailable", "err", err)
		return
	}
	defer sink.Close()
	if err := sink.RecordRun(cfg.Name, run); err != nil {
		log.Warnw("unable to mirror benchmark points", "err", err)
	}
}
