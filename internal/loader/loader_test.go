package loader

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/retroenv/mestool/internal/script"
	"github.com/retroenv/retrogolib/assert"
)

// minimalScript contains a table marker at address 0 followed by a LOAD and a STR "a".
var minimalScript = []byte{
	0x01, 0x00, 0x00, 0x00, // table size
	0x00, 0x00, 0x00, 0x00, // marker address
	0x19, 0x00, 0x00, 0x00, 0x00,
	0x02,
	0x0B, 'a', 0x00,
}

func TestLoad(t *testing.T) {
	t.Run("load script file", func(t *testing.T) {
		tmpFile := createTempFile(t, minimalScript)

		file, err := New().Load(tmpFile)
		assert.NoError(t, err)
		assert.Equal(t, tmpFile, file.Path)
		assert.Equal(t, minimalScript, file.Data)
		assert.Len(t, file.Script.Instructions, 3)
		assert.Equal(t, []uint32{0}, file.Script.Table)
	})

	t.Run("error on non-existent file", func(t *testing.T) {
		_, err := New().Load("/nonexistent/file.MES")
		assert.Error(t, err)
	})

	t.Run("error on invalid script", func(t *testing.T) {
		tmpFile := createTempFile(t, []byte{0x00, 0x00, 0x00, 0x00, 0x16})

		_, err := New().Load(tmpFile)
		assert.True(t, errors.Is(err, script.ErrUnknownOpcode))
		assert.ErrorContains(t, err, tmpFile)
	})
}

func TestLoadFromBytes(t *testing.T) {
	tests := []struct {
		name    string
		data    []byte
		wantErr error
	}{
		{"valid script", minimalScript, nil},
		{"empty code section", []byte{0x00, 0x00, 0x00, 0x00}, nil},
		{"truncated header", []byte{0x01, 0x00}, script.ErrTruncated},
		{"marker missing in table", []byte{0x00, 0x00, 0x00, 0x00, 0x19, 0x00, 0x00, 0x00, 0x00}, script.ErrAddressNotInTable},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			file, err := New().LoadFromBytes("test.MES", tt.data)
			if tt.wantErr != nil {
				assert.True(t, errors.Is(err, tt.wantErr))
				return
			}
			assert.NoError(t, err)
			assert.NotNil(t, file.Script)
		})
	}
}

func TestOpenTranscript(t *testing.T) {
	tmpFile := createTempFile(t, []byte("◆00000000◆text\n"))

	file, err := New().OpenTranscript(tmpFile)
	assert.NoError(t, err)
	_ = file.Close()

	_, err = New().OpenTranscript(filepath.Join(t.TempDir(), "missing.txt"))
	assert.Error(t, err)
}

func createTempFile(t *testing.T, data []byte) string {
	t.Helper()
	tmpDir := t.TempDir()
	tmpFile := filepath.Join(tmpDir, "test.MES")
	if err := os.WriteFile(tmpFile, data, 0600); err != nil {
		t.Fatalf("Failed to create temp file: %v", err)
	}
	return tmpFile
}
