package pipeline

import (
	"context"
	"encoding/binary"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/retroenv/mestool/internal/dump"
	"github.com/retroenv/mestool/internal/options"
	"github.com/retroenv/mestool/internal/script"
	"github.com/retroenv/mestool/internal/strtable"
	"github.com/retroenv/retrogolib/assert"
	"github.com/retroenv/retrogolib/log"
)

// scriptData returns a script with the following code:
//
//	00000000 TABLE
//	00000005 STR "bg.bmp"
//	0000000D PUSHSTR "あ"
//	00000011 JMP 00000000
func scriptData() []byte {
	data := []byte{0x01, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00, 0x00}
	data = append(data, byte(script.Table), 0x00, 0x00, 0x00, 0x00)
	data = append(data, byte(script.Str))
	data = append(data, "bg.bmp\x00"...)
	data = append(data, byte(script.PushStr), 0x82, 0xA0, 0x00)
	data = append(data, byte(script.Jmp))
	data = binary.LittleEndian.AppendUint32(data, script.Reverse32(0))
	return data
}

type testFiles struct {
	dir        string
	script     string
	transcript string
	output     string
}

func setupFiles(t *testing.T) testFiles {
	t.Helper()

	dir := t.TempDir()
	files := testFiles{
		dir:        dir,
		script:     filepath.Join(dir, "START.MES"),
		transcript: filepath.Join(dir, "START.txt"),
		output:     filepath.Join(dir, "START.new"),
	}
	if err := os.WriteFile(files.script, scriptData(), 0600); err != nil {
		t.Fatalf("Failed to create script file: %v", err)
	}
	return files
}

func (f testFiles) job(mode options.Mode) Job {
	return Job{
		Mode:       mode,
		Input:      f.script,
		Transcript: f.transcript,
		Output:     f.output,
		Verify:     true,
	}
}

func TestNew(t *testing.T) {
	logger := log.NewTestLogger(t)
	p := New(logger, options.NewTranscoder())

	assert.NotNil(t, p)
	assert.NotNil(t, p.logger)
	assert.NotNil(t, p.loader)
}

func TestExecuteExport(t *testing.T) {
	logger := log.NewTestLogger(t)
	p := New(logger, options.NewTranscoder())

	t.Run("narrative strings", func(t *testing.T) {
		files := setupFiles(t)

		result, err := p.Execute(context.Background(), files.job(options.ModeExport))
		assert.NoError(t, err)
		assert.Equal(t, 4, result.Instructions)
		assert.Equal(t, 1, result.Strings)

		data, err := os.ReadFile(files.transcript)
		assert.NoError(t, err)
		assert.Equal(t, "◇00000002◇あ\n◆00000002◆あ\n\n", string(data))
	})

	t.Run("all strings", func(t *testing.T) {
		files := setupFiles(t)

		result, err := p.Execute(context.Background(), files.job(options.ModeExportAll))
		assert.NoError(t, err)
		assert.Equal(t, 2, result.Strings)

		data, err := os.ReadFile(files.transcript)
		assert.NoError(t, err)
		assert.Contains(t, string(data), "◆00000001◆bg.bmp\n")
	})
}

func TestExecuteRebuild(t *testing.T) {
	logger := log.NewTestLogger(t)
	p := New(logger, options.NewTranscoder())
	files := setupFiles(t)

	transcript := "◇00000001◇bg.bmp\n◆00000001◆bg2.bmp\n\n◆00000002◆你好\n"
	assert.NoError(t, os.WriteFile(files.transcript, []byte(transcript), 0600))

	result, err := p.Execute(context.Background(), files.job(options.ModeRebuild))
	assert.NoError(t, err)
	assert.Equal(t, 2, result.Strings)

	data, err := os.ReadFile(files.output)
	assert.NoError(t, err)
	rebuilt, err := script.Decode(data)
	assert.NoError(t, err)
	assert.Len(t, rebuilt.Instructions, 4)
	assert.Equal(t, []byte("bg2.bmp\x00"), rebuilt.Instructions[1].Operand)
	assert.Equal(t, []byte{0xC4, 0xE3, 0xBA, 0xC3, 0x00}, rebuilt.Instructions[2].Operand)
	assert.Equal(t, uint32(0x0E), rebuilt.Instructions[2].Address)

	target, ok := rebuilt.Instructions[3].Target()
	assert.True(t, ok)
	assert.Equal(t, uint32(0), target)
}

func TestExecuteRebuildReplacesUnsupportedCharacters(t *testing.T) {
	logger := log.NewTestLogger(t)
	p := New(logger, options.NewTranscoder())
	files := setupFiles(t)

	data := []byte{0x00, 0x00, 0x00, 0x00}
	data = append(data, byte(script.Str), 0x82, 0xA0, 0x81, 0x45, 0x00) // "あ・"
	data = append(data, byte(script.PushStr), 0x81, 0xF4, 0x00)         // "♪"
	assert.NoError(t, os.WriteFile(files.script, data, 0600))
	assert.NoError(t, os.WriteFile(files.transcript, []byte("◆00000001◆好\n"), 0600))

	result, err := p.Execute(context.Background(), files.job(options.ModeRebuild))
	assert.NoError(t, err)
	assert.Equal(t, 1, result.Strings)
	assert.Equal(t, []int{0}, result.Replaced)

	output, err := os.ReadFile(files.output)
	assert.NoError(t, err)
	rebuilt, err := script.Decode(output)
	assert.NoError(t, err)
	assert.Len(t, rebuilt.Instructions, 2)
	assert.Equal(t, []byte{0xA4, 0xA2}, rebuilt.Instructions[0].Operand[:2])
	assert.Equal(t, []byte{0xBA, 0xC3, 0x00}, rebuilt.Instructions[1].Operand)
}

func TestExecuteRebuildErrors(t *testing.T) {
	logger := log.NewTestLogger(t)
	p := New(logger, options.NewTranscoder())

	tests := []struct {
		name       string
		transcript string
		wantErr    error
	}{
		{"unknown index", "◆00000003◆text\n", strtable.ErrIndexNotFound},
		{"bad format", "◆00000001 text\n", strtable.ErrBadFormat},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			files := setupFiles(t)
			assert.NoError(t, os.WriteFile(files.transcript, []byte(tt.transcript), 0600))

			_, err := p.Execute(context.Background(), files.job(options.ModeRebuild))
			assert.True(t, errors.Is(err, tt.wantErr))

			_, err = os.Stat(files.output)
			assert.True(t, os.IsNotExist(err))
		})
	}

	t.Run("missing transcript", func(t *testing.T) {
		files := setupFiles(t)

		_, err := p.Execute(context.Background(), files.job(options.ModeRebuild))
		assert.ErrorContains(t, err, "opening transcript")
	})
}

func TestExecuteDump(t *testing.T) {
	logger := log.NewTestLogger(t)
	p := New(logger, options.NewTranscoder())
	files := setupFiles(t)

	result, err := p.Execute(context.Background(), files.job(options.ModeDump))
	assert.NoError(t, err)
	assert.Equal(t, 4, result.Instructions)

	data, err := os.ReadFile(files.output)
	assert.NoError(t, err)
	listing, err := dump.Unmarshal(data)
	assert.NoError(t, err)
	assert.Len(t, listing.Instructions, 4)
	assert.Equal(t, "あ", *listing.Instructions[2].Text)
	assert.Equal(t, 0, *listing.Instructions[3].Target)
}

func TestExecuteErrors(t *testing.T) {
	logger := log.NewTestLogger(t)
	p := New(logger, options.NewTranscoder())

	t.Run("non-existent file", func(t *testing.T) {
		_, err := p.Execute(context.Background(), Job{
			Mode:  options.ModeExport,
			Input: "/nonexistent/file.MES",
		})
		assert.ErrorContains(t, err, "loading script")
	})

	t.Run("unsupported mode", func(t *testing.T) {
		files := setupFiles(t)

		_, err := p.Execute(context.Background(), files.job(options.ModeNone))
		assert.ErrorContains(t, err, "unsupported mode 'none'")
	})

	t.Run("canceled context", func(t *testing.T) {
		files := setupFiles(t)
		ctx, cancel := context.WithCancel(context.Background())
		cancel()

		_, err := p.Execute(ctx, files.job(options.ModeExport))
		assert.True(t, errors.Is(err, context.Canceled))

		_, err = os.Stat(files.transcript)
		assert.True(t, os.IsNotExist(err))
	})
}
