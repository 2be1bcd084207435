package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"time"

	"github.com/GiGurra/boa/pkg/boa"
	"github.com/gigurra/coach-timeline/internal"
	"github.com/rs/zerolog"
)

type Params struct {
	Report     string `descr:"Report to print" positional:"true" alts:"timeline,gaps,expiries,birthdays,reconcile" strict:"true"`
	File       string `descr:"Snapshot or roster file, optionally prefixed with its format (e.g. roster-xlsx:clients.xlsx)" positional:"true" optional:"true"`
	Source     string `descr:"Input format (detected from the file extension when empty)" alts:"dashboard-json,roster-xlsx" optional:"true"`
	Config     string `descr:"Path to config file (default: ~/.coach-timeline/config.yaml)" optional:"true"`
	Output     string `descr:"Output format" alts:"table,json,csv,xlsx" strict:"true" default:"table"`
	Out        string `descr:"Write output to this file instead of stdout" optional:"true"`
	Today      string `descr:"Reference day for the report (default: the current day)" optional:"true"`
	Date       string `descr:"Day to reconcile (reconcile report)" optional:"true"`
	Client     string `descr:"Client ID whose day is reconciled (reconcile report)" optional:"true"`
	APIURL     string `descr:"Dashboard API base URL, overrides api.base_url from config" name:"api-url" optional:"true"`
	Watch      bool   `descr:"Re-run the report whenever the input file changes" optional:"true"`
	Verbose    bool   `descr:"Enable debug logging" optional:"true"`
	InitConfig bool   `descr:"Write a config template with all clients to the config path and exit" optional:"true"`
}

func main() {
	boa.NewCmdT[Params]("coach-timeline").
		WithShort("Timeline, gap, expiry and birthday reports for a coaching dashboard").
		WithLong("Resolves subscription and plan timelines, finds days without recorded plan content, "+
			"aggregates client expiries, projects upcoming birthdays and reconciles a client's daily "+
			"nutrition log with local edits. Reads a dashboard snapshot, an Excel roster or the live API.").
		WithRunFunc(func(params *Params) {
			log := newLogger(params.Verbose)

			cfg, err := loadConfig(params.Config, params.InitConfig)
			if err != nil {
				fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
				os.Exit(1)
			}
			defer useTimezone(cfg)()

			ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
			defer stop()

			app := &app{params: params, cfg: cfg, log: log}

			if params.InitConfig {
				if err := app.initConfig(ctx); err != nil {
					fmt.Fprintf(os.Stderr, "Error: %v\n", err)
					os.Exit(1)
				}
				return
			}

			if params.Watch {
				err = app.watch(ctx)
			} else {
				err = app.run(ctx)
			}
			if err != nil && !errors.Is(err, context.Canceled) {
				fmt.Fprintf(os.Stderr, "Error: %v\n", err)
				os.Exit(1)
			}
		}).
		Run()
}

func newLogger(verbose bool) zerolog.Logger {
	level := zerolog.WarnLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.TimeOnly}).
		Level(level).
		With().Timestamp().Logger()
}

// loadConfig reads the config file. A missing default file means defaults; a
// missing explicit file is an error unless it is about to be generated.
func loadConfig(path string, allowMissing bool) (*internal.Config, error) {
	explicit := path != ""
	if !explicit {
		path = internal.DefaultConfigPath()
	}
	if path == "" {
		return internal.NewDefaultConfig(), nil
	}
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) && (!explicit || allowMissing) {
		return internal.NewDefaultConfig(), nil
	}
	return internal.LoadConfig(path)
}

// useTimezone makes the configured zone the one canonical days are cut in.
// The engine works on local midnights, so the zone is installed as time.Local
// for the duration of the command only; the returned func restores it.
func useTimezone(cfg *internal.Config) (restore func()) {
	if cfg == nil || cfg.Timezone == "" {
		return func() {}
	}
	prev := time.Local
	time.Local = cfg.Location()
	return func() { time.Local = prev }
}

type app struct {
	params *Params
	cfg    *internal.Config
	log    zerolog.Logger
	dir    *internal.ClientDirectory
}

func (a *app) apiURL() string {
	if a.params.APIURL != "" {
		return a.params.APIURL
	}
	return a.cfg.API.BaseURL
}

func (a *app) apiClient() *internal.APIClient {
	return internal.NewAPIClient(a.apiURL(), a.cfg.API.Token, a.cfg.APITimeout(), a.log)
}

// inputPath returns the file argument without its format prefix
func (a *app) inputPath() (format, path string) {
	format, path = internal.ParseFileArg(a.params.File)
	if format == "" {
		format = a.params.Source
	}
	if format == "" && path != "" {
		format = internal.DetectSource(path)
	}
	return format, path
}

// loadDataset reads the input file, or the live API when no file is given.
func (a *app) loadDataset(ctx context.Context) (*internal.Dataset, error) {
	format, path := a.inputPath()
	if path == "" {
		if a.apiURL() == "" {
			return nil, fmt.Errorf("no input: pass a file or --api-url")
		}
		client := a.apiClient()
		if a.dir == nil {
			a.dir = internal.NewClientDirectory(client, a.cfg.ClientTTL())
		}
		return client.LoadDataset(ctx, a.dir)
	}

	parser, err := internal.GetParser(format)
	if err != nil {
		return nil, err
	}
	ds, err := parser.Parse(path)
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	a.log.Debug().
		Str("source", format).
		Int("clients", len(ds.Clients)).
		Int("plans", len(ds.Plans)).
		Int("subscriptions", len(ds.Subscriptions)).
		Msg("loaded input")
	return ds, nil
}

func (a *app) today() (time.Time, error) {
	if a.params.Today == "" {
		return internal.Today(), nil
	}
	d, ok := internal.NormalizeString(a.params.Today)
	if !ok {
		return time.Time{}, fmt.Errorf("invalid --today %q", a.params.Today)
	}
	return d, nil
}

// output opens the report destination. The returned close func flushes files.
func (a *app) output() (io.Writer, func() error, error) {
	if a.params.Out == "" {
		if a.params.Output == internal.FormatXLSX {
			return nil, nil, fmt.Errorf("xlsx output needs --out")
		}
		return os.Stdout, func() error { return nil }, nil
	}
	f, err := os.Create(a.params.Out)
	if err != nil {
		return nil, nil, fmt.Errorf("creating output file: %w", err)
	}
	return f, f.Close, nil
}

func (a *app) run(ctx context.Context) error {
	today, err := a.today()
	if err != nil {
		return err
	}
	ds, err := a.loadDataset(ctx)
	if err != nil {
		return err
	}

	w, closeOut, err := a.output()
	if err != nil {
		return err
	}

	opts := internal.OutputOptions{
		Format:  a.params.Output,
		Sheet:   a.params.Report,
		Numbers: internal.DetectNumberFormat(),
	}
	nf := opts.Numbers

	switch a.params.Report {
	case internal.ReportTimeline:
		rows := internal.BuildTimelineRows(ds, a.cfg, today)
		internal.SortTimelineRows(rows)
		opts.Title = fmt.Sprintf("Timelines as of %s", internal.FormatDisplay(today))
		err = internal.Emit(w, opts, internal.TimelineColumns(nf), rows, internal.TimelineJSON(rows))
	case internal.ReportGaps:
		rows := internal.BuildGapRows(ds, a.cfg, today)
		opts.Title = "Plan days without recorded content"
		err = internal.Emit(w, opts, internal.GapColumns(nf), rows, internal.GapJSON(rows))
	case internal.ReportExpiries:
		rows := internal.BuildExpiryRows(ds, a.cfg, today)
		opts.Title = fmt.Sprintf("Client expiries (%s)", tieBreakLabel(a.cfg.ExpiryTieBreak))
		err = internal.Emit(w, opts, internal.ExpiryColumns(nf, a.cfg, today), rows, internal.ExpiryJSON(rows, a.cfg, today))
	case internal.ReportBirthdays:
		rows := internal.BuildBirthdayRows(ds, a.cfg, today)
		opts.Title = "Upcoming birthdays"
		err = internal.Emit(w, opts, internal.BirthdayColumns(nf, a.cfg), rows, internal.BirthdayJSON(rows, a.cfg))
	case internal.ReportReconcile:
		err = a.reconcile(ctx, w, opts, ds)
	default:
		err = fmt.Errorf("unknown report %q", a.params.Report)
	}

	if cerr := closeOut(); err == nil && cerr != nil {
		err = fmt.Errorf("closing output: %w", cerr)
	}
	return err
}

func tieBreakLabel(name string) string {
	if name == "" {
		return "soonest"
	}
	return name
}

// reconcile loads one client day through a DaySession and replays recorded edits on it.
func (a *app) reconcile(ctx context.Context, w io.Writer, opts internal.OutputOptions, ds *internal.Dataset) error {
	if a.params.Date == "" {
		return fmt.Errorf("reconcile needs --date")
	}
	day, ok := internal.NormalizeString(a.params.Date)
	if !ok {
		return fmt.Errorf("invalid --date %q", a.params.Date)
	}

	var source internal.AnalysisSource
	if _, path := a.inputPath(); path == "" {
		source = a.apiClient()
	} else {
		source = internal.NewSnapshotSource(ds)
	}

	session := internal.NewDaySession(source, a.params.Client, internal.WithLogger(a.log))
	if err := session.SelectDate(ctx, day); err != nil {
		return err
	}
	applied, err := session.Replay(ctx, ds.Edits)
	if err != nil {
		return fmt.Errorf("replaying edits: %w", err)
	}
	a.log.Debug().Int("applied", applied).Str("date", internal.DayKey(day)).Msg("replayed edits")

	view := session.View()
	switch opts.Format {
	case "", internal.FormatTable:
		internal.PrintDayTable(w, view, opts.Numbers)
		return nil
	case internal.FormatJSON:
		return internal.PrintJSON(w, internal.DayJSON(view))
	default:
		return internal.Emit(w, opts, internal.HistoryColumns(opts.Numbers), view.History, nil)
	}
}

// initConfig writes a config template listing every known client
func (a *app) initConfig(ctx context.Context) error {
	path := a.params.Config
	if path == "" {
		path = internal.DefaultConfigPath()
	}
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists: %s", path)
	}

	var clients []internal.Client
	if a.params.File != "" || a.apiURL() != "" {
		ds, err := a.loadDataset(ctx)
		if err != nil {
			return err
		}
		clients = ds.Clients
	}

	if err := internal.GenerateConfigTemplate(clients).Save(path); err != nil {
		return err
	}
	fmt.Printf("Config template written to %s (%d clients)\n", path, len(clients))
	return nil
}
