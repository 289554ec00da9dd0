// Command reportfetch downloads a list of documents into a local directory.
//
//	reportfetch [flags] [url ...]
//	reportfetch -manifest reports.txt -json > result.json
//	reportfetch -serve            # POST /batch, /metrics, /healthz
//
// Inside AWS Lambda it serves invocations instead of reading arguments.
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

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"reportfetch/internal/batch"
	"reportfetch/internal/config"
	"reportfetch/internal/domain/model"
	"reportfetch/internal/fetcher"
	"reportfetch/internal/manifest"
	"reportfetch/internal/observability"
	"reportfetch/internal/runtime"
)

type cliFlags struct {
	manifest    string
	format      string
	jsonOut     bool
	serve       bool
	showVersion bool
	args        []string
}

func main() {
	os.Exit(run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr))
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) int {
	cfg, flags, err := loadConfiguration(args, stderr)
	if errors.Is(err, flag.ErrHelp) {
		return runtime.ExitOK
	}
	if err != nil {
		fmt.Fprintln(stderr, err)
		return runtime.ExitUsage
	}
	if flags.showVersion {
		fmt.Fprintf(stdout, "%s %s\n", cfg.ServiceName, cfg.Version)
		return runtime.ExitOK
	}

	registry := newRegistry()
	provider := initializeObservability(cfg, registry, stderr)
	defer provider.Close()
	log := provider.Logger("main")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	log.Info(ctx, "Starting reportfetch", observability.Fields{
		"version":     cfg.Version,
		"environment": cfg.Environment,
		"mode":        cfg.Batch.PauseMode,
		"destination": cfg.Batch.DownloadDir,
	})

	if config.IsLambda() {
		return startLambda(ctx, cfg, provider)
	}
	if flags.serve {
		return startServer(ctx, cfg, provider, registry)
	}

	requests, err := readRequests(flags, stdin)
	if err != nil {
		log.Error(ctx, "Could not read requests", err, nil)
		return runtime.ExitUsage
	}

	if cfg.MetricsAddr != "" {
		metricsServer := runtime.NewServer(cfg.MetricsAddr, nil, registry, provider.Logger("http"))
		go metricsServer.Start(ctx)
	}

	var appOpts []runtime.AppOption
	if cfg.Batch.PauseMode == config.PauseModePaced {
		pacer := batch.NewChannelPacer(runtime.LineSignals(ctx, stdin))
		pacer.Prompt = runtime.PromptWriter(stderr)
		appOpts = append(appOpts, runtime.WithPacer(pacer))
	}
	progressLog := provider.Logger("progress")
	appOpts = append(appOpts, runtime.WithProgress(func(e fetcher.ProgressEvent) {
		progressLog.Debug(ctx, "Download progress", observability.Fields{
			"url":     e.SourceURL,
			"percent": e.Percent,
			"bytes":   e.Bytes,
			"total":   e.Total,
		})
	}))

	app, err := runtime.NewApp(ctx, cfg, provider, appOpts...)
	if err != nil {
		log.Error(ctx, "Failed to initialize", err, nil)
		return runtime.ExitAborted
	}

	cli := runtime.NewCLI(app.Scheduler, log)
	if flags.jsonOut {
		cli.JSON = stdout
	}
	_, code := cli.Run(ctx, requests)
	return code
}

// loadConfiguration layers env files, environment and flags, in that order.
func loadConfiguration(args []string, stderr io.Writer) (*config.Config, cliFlags, error) {
	var flags cliFlags

	provider := config.GetProvider()
	if err := provider.Load(); err != nil {
		return nil, flags, err
	}
	cfg, err := provider.Get()
	if err != nil {
		return nil, flags, err
	}

	fs := newFlagSet(cfg, &flags, stderr)
	if err := fs.Parse(args); err != nil {
		return nil, flags, err
	}
	flags.args = fs.Args()
	if err := cfg.Validate(); err != nil {
		return nil, flags, config.ErrValidateConfig(err)
	}
	// Paced mode reads operator signals from stdin, so the manifest cannot.
	if cfg.Batch.PauseMode == config.PauseModePaced && flags.manifest == manifest.StdinPath && !flags.serve {
		return nil, flags, errPacedStdin
	}
	return cfg, flags, nil
}

func newFlagSet(cfg *config.Config, flags *cliFlags, stderr io.Writer) *flag.FlagSet {
	fs := flag.NewFlagSet("reportfetch", flag.ContinueOnError)
	fs.SetOutput(stderr)

	fs.StringVar(&flags.manifest, "manifest", "", "read requests from `file` (\"-\" for stdin)")
	fs.StringVar(&flags.format, "format", string(manifest.FormatAuto), "manifest format: auto, text or json")
	fs.BoolVar(&flags.jsonOut, "json", false, "write the batch result as JSON to stdout")
	fs.BoolVar(&flags.serve, "serve", false, "serve POST /batch and /metrics on -metrics-addr")
	fs.BoolVar(&flags.showVersion, "version", false, "print the version and exit")

	fs.StringVar(&cfg.Batch.DownloadDir, "dir", cfg.Batch.DownloadDir, "destination directory")
	fs.IntVar(&cfg.Batch.Concurrency, "concurrency", cfg.Batch.Concurrency, "items per window")
	fs.IntVar(&cfg.Batch.RetryCount, "retries", cfg.Batch.RetryCount, "retries per item")
	fs.DurationVar(&cfg.Batch.RetryBaseDelay, "retry-delay", cfg.Batch.RetryBaseDelay, "backoff unit")
	fs.DurationVar(&cfg.Batch.InterBatchDelay, "window-delay", cfg.Batch.InterBatchDelay, "pause between windows")
	fs.StringVar(&cfg.Batch.PauseMode, "mode", cfg.Batch.PauseMode, "window or paced")
	fs.BoolVar(&cfg.Batch.SkipPermanent, "skip-permanent", cfg.Batch.SkipPermanent, "do not retry permanent errors")
	fs.DurationVar(&cfg.HTTP.Timeout, "timeout", cfg.HTTP.Timeout, "per-attempt timeout")
	fs.IntVar(&cfg.HTTP.MaxRedirects, "max-redirects", cfg.HTTP.MaxRedirects, "redirect hop limit")
	fs.BoolVar(&cfg.Fetch.UniqueNames, "unique-names", cfg.Fetch.UniqueNames, "append a uniqueness token to file names")
	fs.StringVar(&cfg.Mirror.Adapter, "mirror", cfg.Mirror.Adapter, "mirror adapter: none, filesystem or s3")
	fs.StringVar(&cfg.Mirror.BucketOrPath, "mirror-target", cfg.Mirror.BucketOrPath, "bucket or archive directory")
	fs.StringVar(&cfg.MetricsAddr, "metrics-addr", cfg.MetricsAddr, "serve /metrics on this address")
	fs.StringVar(&cfg.LogLevel, "log-level", cfg.LogLevel, "debug, info, warn or error")
	return fs
}

var errPacedStdin = errors.New("-manifest - cannot be combined with -mode paced: stdin carries the continue signals")

func readRequests(flags cliFlags, stdin io.Reader) ([]model.DownloadRequest, error) {
	if flags.manifest != "" {
		return manifest.ParseFile(flags.manifest, stdin, manifest.Format(flags.format))
	}
	reqs := manifest.FromArgs(flags.args)
	if len(reqs) == 0 {
		return nil, fmt.Errorf("no URLs given: pass URLs as arguments or use -manifest")
	}
	return reqs, nil
}

// newRegistry returns a registry with the Go runtime and process collectors.
func newRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return reg
}

func initializeObservability(cfg *config.Config, reg prometheus.Registerer, stderr io.Writer) observability.Provider {
	return observability.NewProvider(&observability.Config{
		ServiceName: cfg.ServiceName,
		Environment: cfg.Environment,
		LogLevel:    cfg.LogLevel,
		LogOutput:   stderr,
		Registerer:  reg,
		AdditionalFields: observability.Fields{
			"version": cfg.Version,
		},
	})
}

func startLambda(ctx context.Context, cfg *config.Config, provider observability.Provider) int {
	// /tmp is the only writable path in Lambda and there is no terminal to pace.
	cfg.Batch.PauseMode = config.PauseModeWindow
	if cfg.Batch.DownloadDir == config.DefaultBatchConfig().DownloadDir {
		cfg.Batch.DownloadDir = "/tmp/downloads"
	}

	app, err := runtime.NewApp(ctx, cfg, provider)
	if err != nil {
		provider.Logger("main").Error(ctx, "Failed to initialize", err, nil)
		return runtime.ExitAborted
	}
	h := runtime.NewHandler(app.Scheduler)
	h.Use(runtime.DefaultMiddleware(provider)...)

	runtime.NewLambdaAdapter(h, provider.Logger("lambda")).Start()
	return runtime.ExitOK
}

func startServer(ctx context.Context, cfg *config.Config, provider observability.Provider, registry *prometheus.Registry) int {
	log := provider.Logger("main")
	cfg.Batch.PauseMode = config.PauseModeWindow
	addr := cfg.MetricsAddr
	if addr == "" {
		addr = ":8080"
	}

	app, err := runtime.NewApp(ctx, cfg, provider)
	if err != nil {
		log.Error(ctx, "Failed to initialize", err, nil)
		return runtime.ExitAborted
	}
	h := runtime.NewHandler(app.Scheduler)
	h.Use(runtime.DefaultMiddleware(provider)...)
	h.Use(runtime.TimeoutMiddleware(15 * time.Minute))

	if err := runtime.NewServer(addr, h, registry, provider.Logger("http")).Start(ctx); err != nil {
		log.Error(ctx, "HTTP server failed", err, nil)
		return runtime.ExitAborted
	}
	return runtime.ExitOK
}
