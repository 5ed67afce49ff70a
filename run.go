package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/nvr-ai/fishcount/config"
	"github.com/nvr-ai/fishcount/mask"
	"github.com/nvr-ai/fishcount/metrics"
	"github.com/nvr-ai/fishcount/pipeline"
	"github.com/nvr-ai/fishcount/results"
)

// runOutcome carries the pipeline's return values across the goroutine.
type runOutcome struct {
	res *pipeline.Result
	err error
}

func runCmd(cfg *config.Config, logger *logrus.Logger, args []string) int {
	fs := flag.NewFlagSet("run", flag.ContinueOnError)
	var (
		video     = fs.String("video", "", "Path to the video to process")
		maskName  = fs.String("mask", "", "Name of a saved mask (empty for full-frame scoring)")
		debug     = fs.Bool("debug", false, "Enable debug logging")
		minArea   = fs.Int("min-area", cfg.MinArea, "Minimum region area in pixels, 100..2000")
		threshold = fs.Float64("threshold", float64(cfg.DiffThreshold), "Per-pixel change threshold, 0..255")
	)
	fs.StringVar(&cfg.MaskDir, "mask-dir", cfg.MaskDir, "Directory of saved masks")
	fs.StringVar(&cfg.OutputDir, "output-dir", cfg.OutputDir, "Directory for annotated videos")
	fs.StringVar(&cfg.ResultsFile, "results", cfg.ResultsFile, "CSV file receiving run records")
	fs.StringVar(&cfg.Codec, "codec", cfg.Codec, "FourCC of the output video")
	fs.StringVar(&cfg.Extension, "ext", cfg.Extension, "Extension of the output video")
	fs.StringVar(&cfg.MetricsAddr, "metrics-addr", cfg.MetricsAddr, "Serve Prometheus metrics on this address while running")
	fs.BoolVar(&cfg.Show, "show", cfg.Show, "Show annotated frames in a window; press q to stop")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	if *video == "" {
		fmt.Fprintln(os.Stderr, "run: -video is required")
		fs.Usage()
		return 2
	}
	if *debug {
		logger.SetLevel(logrus.DebugLevel)
	}
	cfg.MinArea = *minArea
	cfg.DiffThreshold = float32(*threshold)

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "run: %v\n", err)
		return 2
	}
	if _, err := os.Stat(*video); err != nil {
		fmt.Fprintf(os.Stderr, "run: %v\n", err)
		return 1
	}

	store, err := mask.NewStore(cfg.MaskDir, logger)
	if err != nil {
		logger.WithError(err).Error("Failed to open mask store")
		return 1
	}
	runLog, err := results.NewCSVLog(cfg.ResultsFile, logger)
	if err != nil {
		logger.WithError(err).Error("Failed to open results log")
		return 1
	}

	deps := pipeline.Dependencies{
		Masks:  store,
		RunLog: runLog,
		Logger: logger,
	}
	if cfg.Show {
		window := pipeline.NewWindow("fishcount")
		defer window.Close()
		deps.Display = window
	}

	p, err := pipeline.New(cfg.Pipeline(*video, *maskName), deps)
	if err != nil {
		fmt.Fprintf(os.Stderr, "run: %v\n", err)
		return 2
	}

	if cfg.MetricsAddr != "" {
		srv := metrics.StartServer(cfg.MetricsAddr, logger)
		defer func() {
			ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			if err := srv.Shutdown(ctx); err != nil {
				logger.WithError(err).Warn("metrics server shutdown")
			}
		}()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	done := make(chan runOutcome, 1)
	go func() {
		res, err := p.Run(ctx)
		done <- runOutcome{res: res, err: err}
	}()

	out := <-done
	if out.res != nil {
		printResult(out.res)
	}
	if out.err != nil {
		logger.WithError(out.err).Error("Processing failed")
		return 1
	}
	return 0
}

func printResult(res *pipeline.Result) {
	fmt.Printf("Fish counted:    %d\n", res.Tally)
	fmt.Printf("Frames:          %d\n", res.FramesWritten)
	fmt.Printf("Processed video: %s\n", res.OutputPath)
	fmt.Printf("Elapsed:         %s\n", res.Duration.Truncate(time.Millisecond))
}
