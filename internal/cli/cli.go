// Package cli handles command line interface logic
package cli

import (
	"errors"
	"flag"
	"fmt"
	"io"
	"os"

	"github.com/retroenv/mestool/internal/options"
)

// ParseFlags parses command line flags and returns the program options.
func ParseFlags() (options.Program, error) {
	flags := flag.NewFlagSet(os.Args[0], flag.ContinueOnError)
	flags.SetOutput(io.Discard)

	var opts options.Program
	readOptionFlags(flags, &opts)

	if err := flags.Parse(os.Args[1:]); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return opts, &UsageError{flags: flags, err: err}
		}
		return opts, &UsageError{flags: flags, msg: err.Error()}
	}
	args := flags.Args()
	if len(args) == 0 {
		return opts, &UsageError{flags: flags}
	}

	if usageErr := validateArgs(args); usageErr != nil {
		usageErr.flags = flags
		return opts, usageErr
	}

	if opts.Mode() == options.ModeNone {
		return opts, &UsageError{
			flags: flags,
			msg:   "exactly one of the mode flags -e, -a, -b or -d has to be passed",
		}
	}

	opts.Input = args[0]
	return opts, nil
}

// UsageError represents an error that should show usage information
type UsageError struct {
	flags *flag.FlagSet
	msg   string
	err   error
}

func (e *UsageError) Error() string {
	return e.msg
}

func (e *UsageError) Unwrap() error {
	return e.err
}

func (e *UsageError) ShowUsage() {
	fmt.Printf("usage: mestool [options] -e|-a|-b|-d <script file or directory>\n\n")
	if e.flags != nil {
		e.flags.SetOutput(os.Stdout)
		e.flags.PrintDefaults()
	}
	fmt.Println()
}

// validateArgs checks if arguments are in correct order
func validateArgs(args []string) *UsageError {
	if len(args) > 1 {
		for _, arg := range args[1:] {
			if len(arg) > 0 && arg[0] == '-' {
				return &UsageError{
					msg: fmt.Sprintf("Potential argument %s found after file to process, please pass the file or directory as last argument", arg),
				}
			}
		}
		return &UsageError{
			msg: fmt.Sprintf("only one file or directory can be processed, got %d", len(args)),
		}
	}
	return nil
}

func readOptionFlags(flags *flag.FlagSet, opts *options.Program) {
	flags.BoolVar(&opts.ExportStrings, "e", false, "export narrative strings of the script to a .txt transcript")
	flags.BoolVar(&opts.ExportAll, "a", false, "export all strings of the script to a .txt transcript")
	flags.BoolVar(&opts.Rebuild, "b", false, "rebuild the script using the edited .txt transcript, written to a .new file")
	flags.BoolVar(&opts.Dump, "d", false, "write a CBOR dump of all decoded instructions")
	flags.StringVar(&opts.Config, "c", "", "name of the TOML settings file")
	flags.BoolVar(&opts.Verify, "verify", false, "verify the output by decoding it again and comparing it to the input")
	flags.BoolVar(&opts.Debug, "debug", false, "enable debugging options for extended logging")
	flags.BoolVar(&opts.Quiet, "q", false, "perform operations quietly")
}
