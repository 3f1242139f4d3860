// Package main implements the main entry point for a GSIWin engine script translation tool
package main

import (
	"context"
	"errors"
	"flag"

	"github.com/retroenv/mestool/internal/cli"
	"github.com/retroenv/mestool/internal/config"
	"github.com/retroenv/mestool/internal/fileprocessor"
	"github.com/retroenv/mestool/internal/options"
	"github.com/retroenv/mestool/internal/pipeline"
	"github.com/retroenv/retrogolib/app"
	"github.com/retroenv/retrogolib/log"
	"github.com/tebeka/atexit"
)

var (
	version = "dev"
	commit  = ""
	date    = ""
)

func main() {
	ctx := app.Context()

	opts, err := cli.ParseFlags()
	if err != nil {
		logger := config.CreateLogger(opts.Flags)
		var usageErr *cli.UsageError
		if errors.As(err, &usageErr) {
			fileprocessor.PrintBanner(logger, opts, version, commit, date)
			if errors.Is(err, flag.ErrHelp) {
				usageErr.ShowUsage()
				atexit.Exit(0)
			}
			if msg := usageErr.Error(); msg != "" {
				logger.Error(msg)
			}
			usageErr.ShowUsage()
		} else {
			logger.Error(err.Error())
		}
		atexit.Exit(1)
	}

	logger := config.CreateLogger(opts.Flags)
	fileprocessor.PrintBanner(logger, opts, version, commit, date)

	transcoder, err := loadTranscoder(opts)
	if err != nil {
		logger.Error("Loading settings failed", log.Err(err))
		atexit.Exit(1)
	}

	files, err := fileprocessor.GetFilesToProcess(opts, transcoder)
	if err != nil {
		logger.Error(err.Error())
		atexit.Exit(1)
	}

	p := pipeline.New(logger, transcoder)
	for _, file := range files {
		if err := fileprocessor.ProcessFile(ctx, p, opts, transcoder, file); err != nil {
			// Handle context cancellation (Ctrl+C) gracefully
			if errors.Is(err, context.Canceled) {
				logger.Info("Operation cancelled")
				break
			}
			logger.Error("Processing failed", log.String("file", file), log.Err(err))
		}
	}

	atexit.Exit(0)
}

func loadTranscoder(opts options.Program) (options.Transcoder, error) {
	settings, err := config.LoadSettings(opts.Config)
	if err != nil {
		return options.Transcoder{}, err
	}
	return settings.Transcoder()
}
