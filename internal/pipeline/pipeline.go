// Package pipeline orchestrates the processing workflow of a single script file.
package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/retroenv/mestool/internal/dump"
	"github.com/retroenv/mestool/internal/loader"
	"github.com/retroenv/mestool/internal/options"
	"github.com/retroenv/mestool/internal/script"
	"github.com/retroenv/mestool/internal/strtable"
	"github.com/retroenv/mestool/internal/verification"
	"github.com/retroenv/mestool/internal/writer"
	"github.com/retroenv/retrogolib/log"
)

// Job describes the processing of a single script file.
type Job struct {
	Mode       options.Mode
	Input      string // script file
	Transcript string // transcript file, written by exports and read by rebuilds
	Output     string // rebuilt script or dump file
	Verify     bool
}

// Result contains statistics of a processed job.
type Result struct {
	Instructions int
	Strings      int   // exported or imported strings
	Replaced     []int // rebuilt strings with replaced characters
}

// Pipeline orchestrates the complete processing workflow.
type Pipeline struct {
	logger *log.Logger
	loader *loader.Loader
	opts   options.Transcoder
}

// New creates a new processing pipeline.
func New(logger *log.Logger, opts options.Transcoder) *Pipeline {
	return &Pipeline{
		logger: logger,
		loader: loader.New(),
		opts:   opts,
	}
}

// Execute runs the workflow of the job mode.
func (p *Pipeline) Execute(ctx context.Context, job Job) (Result, error) {
	file, err := p.loader.Load(job.Input)
	if err != nil {
		return Result{}, fmt.Errorf("loading script: %w", err)
	}
	p.printInfo(job, file)

	if err := ctx.Err(); err != nil {
		return Result{}, err
	}

	switch job.Mode {
	case options.ModeExport, options.ModeExportAll:
		return p.export(ctx, job, file)
	case options.ModeRebuild:
		return p.rebuild(ctx, job, file)
	case options.ModeDump:
		return p.dump(ctx, job, file)
	default:
		return Result{}, fmt.Errorf("unsupported mode '%s'", job.Mode)
	}
}

// export writes the strings of the script to the transcript file.
func (p *Pipeline) export(ctx context.Context, job Job, file *loader.File) (Result, error) {
	result := Result{Instructions: len(file.Script.Instructions)}

	entries, err := strtable.Extract(file.Script, p.opts.Codec)
	if err != nil {
		return result, fmt.Errorf("extracting strings: %w", err)
	}

	exportAll := job.Mode == options.ModeExportAll
	var buf bytes.Buffer
	result.Strings, err = strtable.Export(&buf, entries, exportAll)
	if err != nil {
		return result, fmt.Errorf("exporting strings: %w", err)
	}

	if job.Verify {
		if err := p.verifyExport(file, buf.Bytes(), entries, exportAll); err != nil {
			return result, err
		}
	}

	if err := ctx.Err(); err != nil {
		return result, err
	}
	if err := writer.WriteBytes(job.Transcript, buf.Bytes()); err != nil {
		return result, fmt.Errorf("writing transcript: %w", err)
	}

	p.logger.Info("Exported strings",
		log.String("transcript", job.Transcript),
		log.Int("strings", result.Strings),
		log.Int("total", len(entries)))
	return result, nil
}

func (p *Pipeline) verifyExport(file *loader.File, transcript []byte, entries []strtable.Entry, exportAll bool) error {
	if err := verification.RoundTrip(p.logger, file.Data); err != nil {
		return fmt.Errorf("verification failed: %w", err)
	}

	var exported []strtable.Entry
	for _, entry := range entries {
		if exportAll || strtable.IsNarrative(entry.Text) {
			exported = append(exported, entry)
		}
	}
	if err := verification.Transcript(transcript, exported); err != nil {
		return fmt.Errorf("verification failed: %w", err)
	}

	p.logger.Info("Verification successful")
	return nil
}

// rebuild applies the transcript to the script and writes the rebuilt script.
func (p *Pipeline) rebuild(ctx context.Context, job Job, file *loader.File) (Result, error) {
	result := Result{Instructions: len(file.Script.Instructions)}

	transcript, err := p.loader.OpenTranscript(job.Transcript)
	if err != nil {
		return result, err
	}
	defer func() {
		_ = transcript.Close()
	}()

	imported, err := strtable.Import(transcript, file.Script, p.opts.Codec)
	if err != nil {
		return result, fmt.Errorf("importing transcript %s: %w", job.Transcript, err)
	}
	result.Strings = imported.Applied
	result.Replaced = imported.Replaced
	for _, index := range imported.Replaced {
		p.logger.Warn("Replaced characters not supported by the target encoding",
			log.String("file", job.Input),
			log.Int("index", index))
	}

	asm, err := script.Encode(file.Script)
	if err != nil {
		return result, fmt.Errorf("encoding script: %w", err)
	}
	data := asm.Bytes()
	p.logger.Debug("Rebuilt offset table",
		log.Int("entries", len(asm.Table)),
		log.Int("code_size", len(asm.Code)))

	if job.Verify {
		if err := verification.Rebuild(p.logger, file.Script, data); err != nil {
			return result, fmt.Errorf("verification failed: %w", err)
		}
		p.logger.Info("Verification successful")
	}

	if err := ctx.Err(); err != nil {
		return result, err
	}
	if err := writer.WriteBytes(job.Output, data); err != nil {
		return result, fmt.Errorf("writing script: %w", err)
	}

	p.logger.Info("Rebuilt script",
		log.String("output", job.Output),
		log.Int("strings", result.Strings),
		log.Int("size", len(data)))
	return result, nil
}

// dump writes the CBOR instruction listing of the script.
func (p *Pipeline) dump(ctx context.Context, job Job, file *loader.File) (Result, error) {
	result := Result{Instructions: len(file.Script.Instructions)}

	listing, err := dump.Build(file.Script, p.opts.Codec)
	if err != nil {
		return result, fmt.Errorf("building dump: %w", err)
	}

	if job.Verify {
		if err := p.verifyDump(file, listing); err != nil {
			return result, err
		}
	}

	if err := ctx.Err(); err != nil {
		return result, err
	}
	if err := writer.WriteFile(job.Output, func(w io.Writer) error {
		return dump.Write(w, listing)
	}); err != nil {
		return result, fmt.Errorf("writing dump: %w", err)
	}

	p.logger.Info("Dumped instructions",
		log.String("output", job.Output),
		log.Int("instructions", result.Instructions))
	return result, nil
}

func (p *Pipeline) verifyDump(file *loader.File, listing *dump.Listing) error {
	if err := verification.RoundTrip(p.logger, file.Data); err != nil {
		return fmt.Errorf("verification failed: %w", err)
	}

	var buf bytes.Buffer
	if err := dump.Write(&buf, listing); err != nil {
		return err
	}
	if err := verification.Dump(p.logger, buf.Bytes(), listing); err != nil {
		return fmt.Errorf("verification failed: %w", err)
	}

	p.logger.Info("Verification successful")
	return nil
}

// printInfo prints information about the script being processed.
func (p *Pipeline) printInfo(job Job, file *loader.File) {
	p.logger.Info("Processing script",
		log.String("file", job.Input),
		log.Stringer("mode", job.Mode),
	)
	p.logger.Debug("Decoded script",
		log.Int("instructions", len(file.Script.Instructions)),
		log.Int("table_entries", len(file.Script.Table)))
}
