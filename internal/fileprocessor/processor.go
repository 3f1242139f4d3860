// Package fileprocessor handles file enumeration and processing operations
package fileprocessor

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/retroenv/mestool/internal/options"
	"github.com/retroenv/mestool/internal/pipeline"
	"github.com/retroenv/retrogolib/log"
)

// ErrNoFiles is returned when a directory does not contain any script files.
var ErrNoFiles = errors.New("no script files found")

// ProcessFile runs the selected mode for a single script file.
func ProcessFile(ctx context.Context, p *pipeline.Pipeline, opts options.Program,
	transcoder options.Transcoder, input string) error {

	job := NewJob(opts, transcoder, input)
	if _, err := p.Execute(ctx, job); err != nil {
		return err
	}
	return nil
}

// NewJob returns the job for a script file with all file names derived from the input name.
func NewJob(opts options.Program, transcoder options.Transcoder, input string) pipeline.Job {
	job := pipeline.Job{
		Mode:       opts.Mode(),
		Input:      input,
		Transcript: GenerateOutputFilename(input, transcoder.TextExtension),
		Verify:     opts.Verify,
	}

	switch job.Mode {
	case options.ModeRebuild:
		job.Output = GenerateOutputFilename(input, transcoder.OutputExtension)
	case options.ModeDump:
		job.Output = GenerateOutputFilename(input, transcoder.DumpExtension)
	}
	return job
}

// GetFilesToProcess returns list of files to process based on options.
// A directory input returns all files in it that have the script extension, compared case
// insensitively.
func GetFilesToProcess(opts options.Program, transcoder options.Transcoder) ([]string, error) {
	info, err := os.Stat(opts.Input)
	if err != nil {
		return nil, fmt.Errorf("reading input: %w", err)
	}
	if !info.IsDir() {
		return []string{opts.Input}, nil
	}

	entries, err := os.ReadDir(opts.Input)
	if err != nil {
		return nil, fmt.Errorf("reading directory: %w", err)
	}

	var files []string
	for _, entry := range entries {
		if !entry.Type().IsRegular() {
			continue
		}
		if !strings.EqualFold(filepath.Ext(entry.Name()), transcoder.ScriptExtension) {
			continue
		}
		files = append(files, filepath.Join(opts.Input, entry.Name()))
	}

	if len(files) == 0 {
		return nil, fmt.Errorf("%w in directory %s with extension %s", ErrNoFiles, opts.Input, transcoder.ScriptExtension)
	}
	return files, nil
}

// GenerateOutputFilename generates output filename for a given input file
func GenerateOutputFilename(inputFile, extension string) string {
	ext := filepath.Ext(inputFile)
	return inputFile[:len(inputFile)-len(ext)] + extension
}

// PrintBanner prints application version information
func PrintBanner(logger *log.Logger, opts options.Program, version, commit, date string) {
	if opts.Quiet {
		return
	}

	versionString := version
	if commit != "" {
		if len(commit) > 7 {
			commit = commit[:7]
		}
		versionString += fmt.Sprintf(" (%s)", commit)
	}

	logger.Info("mestool", log.String("version", versionString))

	if date != "" && !strings.Contains(date, "unknown") {
		logger.Info("Build", log.String("date", date))
	}
}
