package main

import (
	"context"
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/danmuck/mkvroute/internal/config"
	"github.com/danmuck/mkvroute/internal/dispatch"
	"github.com/danmuck/mkvroute/internal/logging"
	"github.com/danmuck/mkvroute/internal/observability"
	"github.com/danmuck/mkvroute/internal/probe"
)

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "mkvprobe: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("mkvprobe", flag.ContinueOnError)
	configPath := fs.String("config", "", "TOML config path (optional)")
	file := fs.String("file", "", "matroska or webm file to probe ('-' for stdin)")
	asJSON := fs.Bool("json", false, "print the report as JSON")
	metricsAddr := fs.String("metrics-addr", "", "serve /health, /metrics and /report on this address after probing")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if *file == "" && fs.NArg() > 0 {
		*file = fs.Arg(0)
	}
	if *file == "" {
		return errors.New("missing -file")
	}

	cfg := config.DefaultProbeConfig()
	if *configPath != "" {
		loaded, err := config.LoadProbeConfig(*configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}
	if *asJSON {
		cfg.ReportJSON = true
	}
	if *metricsAddr != "" {
		cfg.MetricsAddr = *metricsAddr
	}

	logging.ConfigureRuntime(cfg.LogLevel)
	logger := observability.InitLogger("mkvprobe")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	table, err := probe.NewTable(dispatch.WithObserver(observability.NewDispatchObserver("matroska")))
	if err != nil {
		return fmt.Errorf("build dispatch table: %w", err)
	}
	logger.Debug().Int("entries", table.Len()).Msg("dispatch table ready")

	in, closeIn, err := openInput(*file)
	if err != nil {
		return err
	}
	defer closeIn()

	opts := probe.DefaultOptions()
	opts.Limits = cfg.Limits()
	opts.SkipUnknownMasters = cfg.SkipUnknownMasters

	start := time.Now()
	session, probeErr := probe.New(table, opts, logger).Probe(ctx, in)
	elapsed := time.Since(start)
	observability.RecordProbe(elapsed, session.Elements, probeErr == nil)
	if probeErr != nil {
		return probeErr
	}
	logger.Info().
		Str("file", *file).
		Int("elements", session.Elements).
		Dur("elapsed", elapsed).
		Msg("probe finished")

	summary := session.Summary()
	if err := writeReport(stdout, summary, cfg.ReportJSON); err != nil {
		return err
	}

	if cfg.MetricsAddr == "" {
		return nil
	}
	srv := observability.NewServer("mkvprobe", cfg.MetricsAddr, cfg.CorsOrigins)
	srv.SetReport(summary)
	return srv.Run(ctx)
}

func openInput(path string) (io.Reader, func(), error) {
	if path == "-" {
		return os.Stdin, func() {}, nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open input: %w", err)
	}
	return f, func() { _ = f.Close() }, nil
}

func writeReport(w io.Writer, summary probe.Summary, asJSON bool) error {
	if !asJSON {
		return summary.WriteText(w)
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(summary)
}
