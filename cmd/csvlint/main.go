package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/urfave/cli"
	"golang.org/x/sync/errgroup"

	"github.com/JonMunkholm/csvlint/internal/config"
	"github.com/JonMunkholm/csvlint/internal/core"
	"github.com/JonMunkholm/csvlint/internal/dialect"
	"github.com/JonMunkholm/csvlint/internal/fetch"
	"github.com/JonMunkholm/csvlint/internal/logging"
	"github.com/JonMunkholm/csvlint/internal/report"
	"github.com/JonMunkholm/csvlint/internal/validator"
)

const (
	exitInvalid = 1
	exitUsage   = 2
)

type options struct {
	header         string
	delimiter      string
	quoteChar      string
	lineTerminator string
	skipBlanks     bool
	dialectFile    string
	format         string
	concurrency    int
	recursive      bool
	data           bool
	formats        bool
	logLevel       string
}

func main() {
	// .env values never override the environment for the CLI
	_ = godotenv.Load()

	var opts options

	app := cli.NewApp()
	app.Name = "csvlint"
	app.Usage = "Validate CSV files, URLs and s3:// objects"
	app.ArgsUsage = "SOURCE..."
	app.Flags = []cli.Flag{
		cli.StringFlag{
			Name:        "header",
			Usage:       "Whether the first row is a header (true or false); without it, files lacking a header=present|absent Content-Type report no_header",
			Destination: &opts.header,
		},
		cli.StringFlag{
			Name:        "delimiter, d",
			Usage:       "Field delimiter",
			Destination: &opts.delimiter,
		},
		cli.StringFlag{
			Name:        "quote-char, q",
			Usage:       "Quote character",
			Destination: &opts.quoteChar,
		},
		cli.StringFlag{
			Name:        "line-terminator",
			Usage:       "Line terminator (auto-detected when omitted)",
			Destination: &opts.lineTerminator,
		},
		cli.BoolFlag{
			Name:        "skip-blanks",
			Usage:       "Ignore blank rows",
			Destination: &opts.skipBlanks,
		},
		cli.StringFlag{
			Name:        "dialect",
			Usage:       "CSV-DDF dialect file (JSON or YAML)",
			Destination: &opts.dialectFile,
		},
		cli.StringFlag{
			Name:        "format, f",
			Usage:       "Output format: text, json or html",
			Value:       "text",
			Destination: &opts.format,
		},
		cli.IntFlag{
			Name:        "concurrency, c",
			Usage:       "Number of sources validated at once",
			Value:       4,
			EnvVar:      "CSVLINT_CONCURRENCY",
			Destination: &opts.concurrency,
		},
		cli.BoolFlag{
			Name:        "recursive, r",
			Usage:       "Descend into subdirectories of directory arguments",
			Destination: &opts.recursive,
		},
		cli.BoolFlag{
			Name:        "data",
			Usage:       "Include parsed rows in JSON output",
			Destination: &opts.data,
		},
		cli.BoolFlag{
			Name:        "formats",
			Usage:       "Include per-column format history",
			Destination: &opts.formats,
		},
		cli.StringFlag{
			Name:        "log-level",
			Usage:       "Log level for stderr: debug, info, warn or error",
			Value:       "warn",
			EnvVar:      "LOG_LEVEL",
			Destination: &opts.logLevel,
		},
	}

	app.Action = func(c *cli.Context) error {
		return run(c, opts)
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(exitUsage)
	}
}

func run(c *cli.Context, opts options) error {
	if c.NArg() == 0 {
		return errors.New("at least one SOURCE is required")
	}

	slog.SetDefault(logging.New(os.Stderr, opts.logLevel, "text"))

	format, err := report.ParseFormat(opts.format)
	if err != nil {
		return err
	}

	valOpts, err := buildOptions(opts, c.IsSet("skip-blanks"))
	if err != nil {
		return err
	}

	var ddf map[string]any
	if opts.dialectFile != "" {
		ddf, err = dialect.LoadDDFFile(opts.dialectFile)
		if err != nil {
			return errors.Wrapf(err, "error loading dialect %s", opts.dialectFile)
		}
	}

	sources, err := expandSources(c.Args(), opts.recursive)
	if err != nil {
		return err
	}
	if len(sources) == 0 {
		return errors.New("no CSV files found")
	}

	cfg, err := config.Load()
	if err != nil {
		return errors.Wrap(err, "error loading configuration")
	}
	fetcher, err := newFetcher(cfg)
	if err != nil {
		return errors.Wrap(err, "error configuring object storage")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	reports, err := validateAll(ctx, fetcher, sources, valOpts, ddf, opts.concurrency)
	if err != nil {
		return err
	}

	if err := report.Write(ctx, os.Stdout, format, reports); err != nil {
		return errors.Wrap(err, "error writing report")
	}

	for _, r := range reports {
		if !r.Valid {
			return cli.NewExitError("", exitInvalid)
		}
	}
	return nil
}

// buildOptions maps flags onto engine options. Unset tri-state flags stay nil
// so the dialect or the engine defaults apply.
func buildOptions(opts options, skipBlanksSet bool) (validator.Options, error) {
	out := validator.Options{
		Delimiter:      opts.delimiter,
		QuoteChar:      opts.quoteChar,
		LineTerminator: unescape(opts.lineTerminator),
		KeepData:       opts.data,
		RecordFormats:  opts.formats,
	}
	if opts.header != "" {
		b, err := strconv.ParseBool(opts.header)
		if err != nil {
			return validator.Options{}, errors.Errorf("--header must be true or false, got %q", opts.header)
		}
		out.Header = &b
	}
	if skipBlanksSet {
		b := opts.skipBlanks
		out.SkipBlanks = &b
	}
	return out, nil
}

// unescape lets shells pass "\r\n" literally.
func unescape(s string) string {
	if s == "" {
		return s
	}
	if u, err := strconv.Unquote(`"` + s + `"`); err == nil {
		return u
	}
	return s
}

// validateAll runs every source with at most limit in flight. Reports come
// back in source order.
func validateAll(ctx context.Context, fetcher validator.Fetcher, sources []fetch.Source, opts validator.Options, ddf map[string]any, limit int) ([]*core.Report, error) {
	if limit <= 0 {
		limit = 1
	}

	service := core.NewService(fetcher, nil, core.ServiceConfig{
		MaxConcurrent: limit,
		MaxWait:       time.Hour,
		Timeout:       core.DefaultValidationTimeout,
	})

	reports := make([]*core.Report, len(sources))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(limit)
	for i, src := range sources {
		g.Go(func() error {
			r, err := service.Validate(gctx, core.Request{
				Source:  src,
				Options: opts,
				Dialect: ddf,
			})
			if err != nil {
				return err
			}
			reports[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return reports, nil
}

// newFetcher builds the retrieval layer from the FETCH_* and S3_* settings.
func newFetcher(cfg *config.Config) (*fetch.Fetcher, error) {
	fcfg := fetch.Config{
		Timeout:        cfg.Fetch.Timeout,
		MaxRedirects:   cfg.Fetch.MaxRedirects,
		MaxFileSize:    cfg.Fetch.MaxFileSize,
		MaxRetries:     cfg.Fetch.MaxRetries,
		RetryBackoff:   cfg.Fetch.RetryBackoff,
		RateLimit:      cfg.Fetch.RateLimit,
		RateBurst:      cfg.Fetch.RateBurst,
		AllowDowngrade: cfg.Fetch.AllowDowngrade,
		UserAgent:      cfg.Fetch.UserAgent,
	}

	fopts := []fetch.Option{fetch.WithLogger(slog.Default())}
	if cfg.Storage.Enabled() {
		objects, err := fetch.NewS3Store(fetch.S3Config{
			EndpointURL:     cfg.Storage.Endpoint,
			AccessKeyID:     cfg.Storage.AccessKey,
			SecretAccessKey: cfg.Storage.SecretKey,
			Region:          cfg.Storage.Region,
			UseSSL:          cfg.Storage.UseSSL,
		})
		if err != nil {
			return nil, err
		}
		fopts = append(fopts, fetch.WithObjectStore(objects))
	}
	return fetch.New(fcfg, fopts...), nil
}
