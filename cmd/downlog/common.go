package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	_ "gocloud.dev/blob/gcsblob"
	_ "gocloud.dev/blob/memblob"
	_ "gocloud.dev/blob/s3blob"

	"github.com/AntonyPalsh/downlog/internal/archive"
	"github.com/AntonyPalsh/downlog/internal/config"
	"github.com/AntonyPalsh/downlog/internal/downloader"
	slhttp "github.com/AntonyPalsh/downlog/internal/http"
	"github.com/AntonyPalsh/downlog/internal/job"
	"github.com/AntonyPalsh/downlog/internal/notify"
	"github.com/AntonyPalsh/downlog/internal/progress"
)

// commonFlags are accepted by every command.
type commonFlags struct {
	config  *string
	output  *string
	timeout *time.Duration
	label   *string
	verbose *bool
}

func addCommonFlags(fs *flag.FlagSet) *commonFlags {
	return &commonFlags{
		config:  fs.String("config", "", "Path to a YAML config file"),
		output:  fs.String("output", "", "Output directory or bucket URL (default ./downloads)"),
		timeout: fs.Duration("timeout", 0, "Deadline shared by all node calls (default 10m)"),
		label:   fs.String("label", "", "Label prefixed to saved file names (default preprod)"),
		verbose: fs.Bool("v", false, "Enable debug logging"),
	}
}

// loadConfig builds the effective configuration: defaults, then the config
// file, then DOWNLOG_* variables (.env included), then flags.
func (f *commonFlags) loadConfig() (config.Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return config.Config{}, fmt.Errorf("load .env: %w", err)
	}

	cfg := config.Default()
	if *f.config != "" {
		var err error
		cfg, err = config.LoadFromFile(*f.config)
		if err != nil {
			return config.Config{}, err
		}
	}
	if err := cfg.LoadFromEnv(); err != nil {
		return config.Config{}, err
	}

	cfg = cfg.Merge(config.Config{
		Label:   *f.label,
		Timeout: *f.timeout,
		Output:  *f.output,
	})
	if err := cfg.Validate(); err != nil {
		return config.Config{}, err
	}
	return cfg, nil
}

func (f *commonFlags) logger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(os.Stderr)
	logger.SetFormatter(&logrus.TextFormatter{
		FullTimestamp: true,
	})
	logger.SetLevel(logrus.WarnLevel)
	if *f.verbose {
		logger.SetLevel(logrus.DebugLevel)
	}
	return logger
}

// signalContext returns a context cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case <-sigCh:
			fmt.Fprintln(os.Stderr, "\n[downlog] Received interrupt, shutting down...")
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigCh)
	}()

	return ctx, cancel
}

// jobRunner holds everything one job command needs.
type jobRunner struct {
	cfg      config.Config
	logger   *logrus.Logger
	store    *archive.Store
	notifier *notify.Notifier
	closers  []func()
}

func newJobRunner(ctx context.Context, flags *commonFlags) (*jobRunner, int) {
	cfg, err := flags.loadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: configuration: %v\n", err)
		return nil, ExitConfigError
	}
	logger := flags.logger()

	store, err := archive.Open(ctx, cfg.Output, cfg.MaxArchiveSize)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error opening output: %v\n", err)
		return nil, ExitStorageError
	}
	r := &jobRunner{cfg: cfg, logger: logger, store: store}
	r.closers = append(r.closers, func() { store.Close() })

	if cfg.NATS.URL != "" {
		n, closeFn, err := notify.Connect(cfg.NATS.URL, cfg.NATS.Subject, logger)
		if err != nil {
			// Events are best effort; the job still runs.
			logger.WithError(err).Warn("Outcome events disabled")
		} else {
			r.notifier = n
			r.closers = append(r.closers, closeFn)
		}
	}
	return r, ExitSuccess
}

func (r *jobRunner) Close() {
	for i := len(r.closers) - 1; i >= 0; i-- {
		r.closers[i]()
	}
}

// control is shared by every job run in this process.
var control downloader.Control

// Per-node progress display.
var (
	progressOutput   io.Writer = os.Stderr
	progressInterval           = 5 * time.Second
)

// run sends j to nodes, described by targets, and reports the outcome.
func (r *jobRunner) run(ctx context.Context, targets []config.Node, nodes []string, j job.Job) int {
	reporter := progress.NewReporter(progress.Options{
		Job:            j.Name(),
		TotalNodes:     len(nodes),
		Output:         progressOutput,
		UpdateInterval: progressInterval,
	})
	reporter.Start()
	defer reporter.Stop()

	httpOpts := slhttp.DefaultOptions()
	httpOpts.SnippetLength = r.cfg.SnippetLength

	o := downloader.New(downloader.Options{
		Nodes:              targets,
		Label:              r.cfg.Label,
		Timeout:            r.cfg.Timeout,
		RequireArchiveType: r.cfg.RequireArchiveType,
		RejectEmpty:        r.cfg.RejectEmpty,
		Store:              r.store,
		Progress:           reporter,
		Logger:             r.logger,
		HTTPOptions:        httpOpts,
	})

	var out *downloader.Outcome
	err := control.Do(func() error {
		var err error
		out, err = o.Run(ctx, nodes, j)
		return err
	})
	if errors.Is(err, downloader.ErrBusy) {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return ExitGeneralError
	}

	if perr := r.notifier.PublishOutcome(out, err); perr != nil {
		r.logger.WithError(perr).Warn("Outcome event not delivered")
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %s\n", describe(err))
		if len(out.Files) > 0 {
			fmt.Fprintf(os.Stderr, "[downlog] Saved before the failure: %s\n", strings.Join(out.Filenames(), ", "))
		}
		return exitCode(err)
	}

	for _, f := range out.Files {
		fmt.Printf("%s\t%s\n", f.Filename, progress.FormatBytes(f.Size))
	}
	return ExitSuccess
}

// describe turns an error into an operator-facing message with hints for the
// most common causes.
func describe(err error) string {
	msg := err.Error()

	var se *slhttp.StatusError
	switch downloader.Classify(err) {
	case downloader.KindTimeout:
		if errors.Is(err, context.Canceled) && !errors.Is(err, downloader.ErrTimeout) {
			return "cancelled: " + msg
		}
		return "timeout waiting for response: " + msg
	case downloader.KindNetwork:
		return "network error: " + msg + "\n  no connection to the node; check that it is up and reachable"
	case downloader.KindProtocol:
		switch {
		case errors.Is(err, downloader.ErrUnexpectedContentType):
			return "backend did not return a ZIP archive: " + msg + "\n  check the endpoint and that the server returns a ZIP"
		case errors.As(err, &se):
			return msg + "\n  400/422: invalid request parameters\n  500/502: backend error\n  503: node overloaded"
		}
		return msg
	case downloader.KindConfig:
		return "configuration: " + msg + "\n  check the nodes setting"
	case downloader.KindValidation:
		return msg
	}
	return msg
}

// exitCode maps a run error to the exit code table.
func exitCode(err error) int {
	switch downloader.Classify(err) {
	case "":
		return ExitSuccess
	case downloader.KindTimeout:
		return ExitTimeout
	case downloader.KindValidation:
		return ExitMissingInput
	case downloader.KindConfig:
		return ExitConfigError
	case downloader.KindNetwork, downloader.KindProtocol, downloader.KindStorage:
		return ExitJobFailed
	default:
		return ExitGeneralError
	}
}

// selectNodes returns the nodes named in list, a comma-separated string, in
// order and without repeats. An empty list selects all configured nodes.
// Names that are not configured are kept so the run reports them as unknown.
func selectNodes(cfg config.Config, list string) []string {
	if strings.TrimSpace(list) == "" {
		return cfg.NodeNames()
	}
	var names []string
	seen := make(map[string]bool)
	for _, name := range strings.Split(list, ",") {
		name = strings.TrimSpace(name)
		if name == "" || seen[name] {
			continue
		}
		seen[name] = true
		names = append(names, name)
	}
	return names
}
