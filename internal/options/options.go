// Package options contains the program options.
package options

import (
	"github.com/retroenv/mestool/internal/codec"
)

// Mode selects the operation that is performed for every input file.
type Mode int

// Supported modes.
const (
	ModeNone      Mode = iota
	ModeExport         // export narrative strings
	ModeExportAll      // export all strings
	ModeRebuild        // rebuild the script from the edited transcript
	ModeDump           // write an instruction dump
)

func (m Mode) String() string {
	switch m {
	case ModeExport:
		return "export"
	case ModeExportAll:
		return "export-all"
	case ModeRebuild:
		return "rebuild"
	case ModeDump:
		return "dump"
	default:
		return "none"
	}
}

// Parameters contains file path options.
type Parameters struct {
	Input  string // script file or directory of scripts
	Config string // optional TOML settings file
}

// Flags contains behavior options.
type Flags struct {
	ExportStrings bool
	ExportAll     bool
	Rebuild       bool
	Dump          bool

	Verify bool
	Debug  bool
	Quiet  bool
}

// Program options of the tool.
type Program struct {
	Parameters
	Flags
}

// Mode returns the selected mode, ModeNone if no or more than one mode flag is set.
func (p Program) Mode() Mode {
	mode := ModeNone
	for _, m := range []struct {
		set  bool
		mode Mode
	}{
		{p.ExportStrings, ModeExport},
		{p.ExportAll, ModeExportAll},
		{p.Rebuild, ModeRebuild},
		{p.Dump, ModeDump},
	} {
		if !m.set {
			continue
		}
		if mode != ModeNone {
			return ModeNone
		}
		mode = m.mode
	}
	return mode
}

// Transcoder defines options that control the processing of a single script.
type Transcoder struct {
	ScriptExtension string // extension of script files when processing a directory
	TextExtension   string // extension of the transcript next to the script
	OutputExtension string // extension of the rebuilt script
	DumpExtension   string // extension of the instruction dump

	Codec *codec.Codec
}

// NewTranscoder returns a new options instance with default options.
func NewTranscoder() Transcoder {
	return Transcoder{
		ScriptExtension: ".MES",
		TextExtension:   ".txt",
		OutputExtension: ".new",
		DumpExtension:   ".cbor",
		Codec:           codec.Default(),
	}
}
