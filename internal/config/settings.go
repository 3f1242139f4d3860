package config

import (
	"fmt"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/retroenv/mestool/internal/codec"
	"github.com/retroenv/mestool/internal/options"
)

// Settings represents the optional TOML settings file.
type Settings struct {
	Script ScriptSettings `toml:"script"`
	Text   TextSettings   `toml:"text"`
	Output OutputSettings `toml:"output"`
}

// ScriptSettings configures the script files to process.
type ScriptSettings struct {
	Extension string `toml:"extension"`
}

// TextSettings configures the transcript files and text encodings.
type TextSettings struct {
	Extension      string `toml:"extension"`
	SourceEncoding string `toml:"source_encoding"`
	TargetEncoding string `toml:"target_encoding"`
	StrictEncoding bool   `toml:"strict_encoding"` // fail on characters missing in the target encoding
}

// OutputSettings configures the names of generated files.
type OutputSettings struct {
	Extension     string `toml:"extension"`
	DumpExtension string `toml:"dump_extension"`
}

// LoadSettings parses the settings file. An empty path returns the default settings.
func LoadSettings(path string) (Settings, error) {
	settings := DefaultSettings()
	if path == "" {
		return settings, nil
	}

	md, err := toml.DecodeFile(path, &settings)
	if err != nil {
		return Settings{}, fmt.Errorf("parsing settings file %s: %w", path, err)
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, key := range undecoded {
			keys[i] = key.String()
		}
		return Settings{}, fmt.Errorf("unknown keys in settings file %s: %s", path, strings.Join(keys, ", "))
	}
	return settings, nil
}

// DefaultSettings returns the settings for Shift_JIS scripts that are rebuilt as GBK.
func DefaultSettings() Settings {
	return Settings{
		Script: ScriptSettings{Extension: ".MES"},
		Text: TextSettings{
			Extension:      ".txt",
			SourceEncoding: "shift_jis",
			TargetEncoding: "gbk",
		},
		Output: OutputSettings{
			Extension:     ".new",
			DumpExtension: ".cbor",
		},
	}
}

// Transcoder converts the settings to transcoder options.
func (s Settings) Transcoder() (options.Transcoder, error) {
	var codecOpts []codec.Option
	if s.Text.StrictEncoding {
		codecOpts = append(codecOpts, codec.WithStrictEncoding())
	}
	c, err := codec.FromNames(s.Text.SourceEncoding, s.Text.TargetEncoding, codecOpts...)
	if err != nil {
		return options.Transcoder{}, err
	}

	opts := options.NewTranscoder()
	opts.Codec = c
	for _, ext := range []struct {
		value  string
		target *string
	}{
		{s.Script.Extension, &opts.ScriptExtension},
		{s.Text.Extension, &opts.TextExtension},
		{s.Output.Extension, &opts.OutputExtension},
		{s.Output.DumpExtension, &opts.DumpExtension},
	} {
		if ext.value == "" {
			continue
		}
		if !strings.HasPrefix(ext.value, ".") {
			return options.Transcoder{}, fmt.Errorf("extension '%s' has to start with a dot", ext.value)
		}
		*ext.target = ext.value
	}

	if strings.EqualFold(opts.OutputExtension, opts.ScriptExtension) {
		return options.Transcoder{}, fmt.Errorf("output extension '%s' would overwrite the input scripts", opts.OutputExtension)
	}
	return opts, nil
}
