package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/papaganelli/guestbook/internal/config"
	"github.com/papaganelli/guestbook/internal/logging"
	"github.com/papaganelli/guestbook/internal/version"
	"github.com/papaganelli/guestbook/pkg/detector"
	"github.com/papaganelli/guestbook/pkg/geoip"
	"github.com/papaganelli/guestbook/pkg/registry"
	"github.com/papaganelli/guestbook/pkg/report"
	"github.com/papaganelli/guestbook/pkg/tailer"
	"github.com/papaganelli/guestbook/ui"
)

// options is the validated command line.
type options struct {
	logPath     string
	configPath  string
	agents      string
	times       string
	target      string
	activity    string
	geo         string
	geoDB       string
	cutoff      int
	cutoffSet   bool
	bucket      time.Duration
	popular     bool
	track       bool
	breakdown   bool
	summary     bool
	follow      bool
	live        bool
	color       bool
	colorSet    bool
	verbose     bool
	showVersion bool
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	code := run(ctx, os.Args[1:], os.Stdout, os.Stderr)
	stop()
	os.Exit(code)
}

func parseFlags(args []string, stderr io.Writer) (options, error) {
	var opts options

	fs := flag.NewFlagSet("guestbook", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.Usage = func() {
		fmt.Fprintf(stderr, "usage: guestbook [flags] [access.log]\n\n")
		fs.PrintDefaults()
	}

	fs.StringVar(&opts.logPath, "log", "", "path to access log (positional argument also accepted; auto-detect if not specified)")
	fs.StringVar(&opts.configPath, "config", "", "path to YAML config file")
	fs.StringVar(&opts.agents, "agents", "", "show user agents for a given IP")
	fs.StringVar(&opts.times, "times", "", "show page visits with timestamps for a given IP")
	fs.StringVar(&opts.target, "target", "", "only show the page breakdown for this IP")
	fs.StringVar(&opts.activity, "activity", "", "show visits per time bucket for a given IP")
	fs.StringVar(&opts.geo, "geo", "", "geolocation provider: http, embedded or maxmind")
	fs.StringVar(&opts.geoDB, "geoip-db", "", "path to MaxMind GeoIP2/GeoLite2 City database")
	fs.IntVar(&opts.cutoff, "cutoff", 0, "minimum visit count when showing popular visitors")
	fs.DurationVar(&opts.bucket, "bucket", time.Hour, "bucket size for -activity")
	fs.BoolVar(&opts.popular, "popular", false, "show IP addresses with the most visits")
	fs.BoolVar(&opts.track, "track", false, "enrich results with IP geolocation")
	fs.BoolVar(&opts.breakdown, "breakdown", false, "show page visit breakdown for each IP")
	fs.BoolVar(&opts.summary, "summary", false, "show ingestion and visitor totals")
	fs.BoolVar(&opts.follow, "follow", false, "keep reading appended lines until interrupted, then report")
	fs.BoolVar(&opts.live, "live", false, "show a live dashboard while following the log")
	fs.BoolVar(&opts.color, "color", true, "enable colored output")
	fs.BoolVar(&opts.verbose, "verbose", false, "enable debug logging")
	fs.BoolVar(&opts.showVersion, "version", false, "show version information and exit")

	if err := fs.Parse(args); err != nil {
		return opts, err
	}
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "cutoff":
			opts.cutoffSet = true
		case "color":
			opts.colorSet = true
		}
	})

	switch rest := fs.Args(); {
	case len(rest) > 1:
		return opts, fmt.Errorf("expected at most one log file, got %d", len(rest))
	case len(rest) == 1 && opts.logPath != "" && opts.logPath != rest[0]:
		return opts, errors.New("log file given both as -log and as argument")
	case len(rest) == 1:
		opts.logPath = rest[0]
	}

	if opts.cutoff < 0 {
		return opts, fmt.Errorf("cutoff must not be negative, got %d", opts.cutoff)
	}
	if opts.follow && opts.live {
		return opts, errors.New("-follow and -live cannot be combined")
	}
	return opts, nil
}

func run(ctx context.Context, args []string, stdout, stderr io.Writer) int {
	opts, err := parseFlags(args, stderr)
	if err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return 0
		}
		fmt.Fprintf(stderr, "Error: %v\n", err)
		return 2
	}

	// Handle version flag
	if opts.showVersion {
		fmt.Fprintln(stdout, version.Info())
		return 0
	}

	logger := logging.New(opts.verbose)
	defer func() { _ = logger.Sync() }()

	cfg, err := config.Load(opts.configPath, logger.Debugf)
	if err != nil {
		logger.Errorw("Invalid configuration", "error", err)
		return 1
	}
	applyFlags(&cfg, opts)
	if err := cfg.Validate(); err != nil {
		logger.Errorw("Invalid configuration", "error", err)
		return 1
	}

	logPath, err := resolveLogPath(cfg.LogPath, logger)
	if err != nil {
		logger.Errorw("No access log to read", "error", err)
		return 1
	}

	reg := registry.New()

	if opts.live {
		lines, err := tailer.TailLines(ctx, logPath, tailer.Options{})
		if err != nil {
			logger.Errorw("Cannot read access log", "file", logPath, "error", err)
			return 1
		}
		if err := ui.NewApp(lines, reg, logPath, cfg.Cutoff).Run(); err != nil {
			logger.Errorw("Dashboard failed", "error", err)
			return 1
		}
		return 0
	}

	if err := ingestFile(ctx, reg, logPath, opts.follow, logger); err != nil {
		logger.Errorw("Cannot read access log", "file", logPath, "error", err)
		return 1
	}

	engineOpts, closeLocator := engineOptions(cfg, opts.track, logger)
	defer closeLocator()
	engine := report.New(reg, engineOpts...)
	printReports(ctx, ui.NewPrinter(stdout, cfg.Color), engine, cfg, opts)
	return 0
}

// applyFlags lets explicit flags override the file and environment config.
func applyFlags(cfg *config.Config, opts options) {
	if opts.logPath != "" {
		cfg.LogPath = opts.logPath
	}
	if opts.geo != "" {
		cfg.GeoProvider = opts.geo
	}
	if opts.geoDB != "" {
		cfg.GeoDatabase = opts.geoDB
		if opts.geo == "" {
			cfg.GeoProvider = config.ProviderMaxMind
		}
	}
	if opts.cutoffSet {
		cfg.Cutoff = opts.cutoff
	}
	if opts.colorSet {
		cfg.Color = opts.color
	}
}

// resolveLogPath returns path, or the best auto-detected access log when path is empty.
func resolveLogPath(path string, logger *zap.SugaredLogger) (string, error) {
	if path != "" {
		return path, nil
	}
	logs, err := detector.Default().Detect()
	if err != nil {
		return "", fmt.Errorf("%w: specify one as an argument or with -log", err)
	}
	best := detector.Best(logs)
	logger.Infow("Auto-detected access log", "file", best.Path, "candidates", len(logs))
	for _, l := range logs {
		logger.Debugw("Access log candidate", "file", l.Path, "server", l.ServerName, "size", l.Size)
	}
	return best.Path, nil
}

// ingestFile reads path into reg. With follow it then keeps reading appended
// lines until ctx is cancelled.
func ingestFile(ctx context.Context, reg *registry.Registry, path string, follow bool, logger *zap.SugaredLogger) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return err
	}
	if info.IsDir() {
		return fmt.Errorf("%s is a directory, not a file", path)
	}

	stats, err := reg.IngestReader(f)
	if err != nil {
		// Whatever was read before the failure is still reported
		logger.Warnw("Stopped reading access log early", "file", path, "error", err)
		follow = false
	}
	logger.Infow("Ingested access log", "file", path, "seen", stats.Seen, "parsed", stats.Parsed, "skipped", stats.Skipped())

	if !follow {
		return nil
	}

	offset, err := f.Seek(0, io.SeekCurrent)
	if err != nil {
		return err
	}
	lines, err := tailer.TailLines(ctx, path, tailer.Options{Offset: offset})
	if err != nil {
		return err
	}
	logger.Infow("Following access log, interrupt to print the report", "file", path)
	more := reg.IngestLines(ctx, lines)
	logger.Infow("Stopped following", "seen", more.Seen, "parsed", more.Parsed, "skipped", more.Skipped())
	return nil
}

// engineOptions configures enrichment. A locator that cannot be built only
// disables enrichment; reports still run. The returned func releases the locator.
func engineOptions(cfg config.Config, track bool, logger *zap.SugaredLogger) ([]report.Option, func()) {
	noop := func() {}
	timeout, _ := cfg.Timeout()
	opts := []report.Option{
		report.WithLookupTimeout(timeout),
		report.WithConcurrency(cfg.GeoConcurrency),
	}
	if !track {
		return opts, noop
	}

	var locator geoip.Locator
	release := noop
	switch cfg.GeoProvider {
	case config.ProviderEmbedded:
		locator = geoip.NewEmbeddedLocator()
	case config.ProviderMaxMind:
		mm, err := geoip.OpenMaxMind(cfg.GeoDatabase)
		if err != nil {
			logger.Warnw("Geolocation disabled", "error", err)
			return opts, noop
		}
		locator = mm
		release = func() { _ = mm.Close() }
	default:
		locator = geoip.NewHTTPLocator(cfg.GeoEndpoint,
			geoip.WithTimeout(timeout),
			geoip.WithUserAgent(version.UserAgent()),
		)
	}
	logger.Debugw("Geolocation enabled", "provider", cfg.GeoProvider)
	return append(opts, report.WithLocator(geoip.NewCachingLocator(locator))), release
}

// printReports runs the selected reports in a fixed order: agents, times,
// popular, breakdown, activity, summary. With none selected it shows popular.
func printReports(ctx context.Context, p *ui.Printer, engine *report.Engine, cfg config.Config, opts options) {
	if opts.agents == "" && opts.times == "" && !opts.popular && !opts.breakdown && opts.activity == "" && !opts.summary {
		opts.popular = true
	}

	if opts.agents != "" {
		if agents, err := engine.UserAgents(opts.agents); err != nil {
			p.NotFound(opts.agents)
		} else {
			p.Agents(opts.agents, agents)
		}
	}

	if opts.times != "" {
		if timeline, err := engine.VisitTimeline(opts.times); err != nil {
			p.NotFound(opts.times)
		} else {
			if engine.Enabled() {
				p.Location(engine.Locate(ctx, opts.times))
			}
			p.Timeline(opts.times, timeline)
		}
	}

	if opts.popular {
		ranked := engine.RankedByVisitCount(cfg.Cutoff)
		var geos []report.Geo
		if engine.Enabled() {
			addresses := make([]string, 0, len(ranked))
			for _, v := range ranked {
				addresses = append(addresses, v.Address())
			}
			geos = engine.LocateAll(ctx, addresses)
		}
		p.Ranked(ranked, geos)
	}

	if opts.breakdown {
		if opts.target != "" {
			if pages, err := engine.PageBreakdown(opts.target); err != nil {
				p.NotFound(opts.target)
			} else {
				if engine.Enabled() {
					p.Location(engine.Locate(ctx, opts.target))
				}
				p.Pages(opts.target, pages)
			}
		} else {
			p.PagesAll(engine.PageBreakdownAll())
		}
	}

	if opts.activity != "" {
		if h, err := engine.Activity(opts.activity, opts.bucket); err != nil {
			p.NotFound(opts.activity)
		} else {
			p.Activity(opts.activity, h)
		}
	}

	if opts.summary {
		p.Summary(engine.Summary())
	}
}
