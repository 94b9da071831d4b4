package storage_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/rezonia/ubl-pdf/internal/storage"
)

func TestLocalFileStorage_Save(t *testing.T) {
	dir := t.TempDir()
	s := storage.NewLocalFileStorage(filepath.Join(dir, "out"), zap.NewNop())

	path, err := s.Save("invoice_INV-1_generated.pdf", []byte("%PDF-1.4"))
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "out", "invoice_INV-1_generated.pdf"), path)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, []byte("%PDF-1.4"), data)
}

func TestLocalFileStorage_Overwrites(t *testing.T) {
	s := storage.NewLocalFileStorage(t.TempDir(), nil)

	path, err := s.Save("a.pdf", []byte("first"))
	require.NoError(t, err)
	_, err = s.Save("a.pdf", []byte("second"))
	require.NoError(t, err)

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, "second", string(data))
}

func TestLocalFileStorage_ValidatePath(t *testing.T) {
	base := t.TempDir()
	s := storage.NewLocalFileStorage(base, nil)

	tests := []struct {
		name    string
		path    string
		wantErr bool
	}{
		{"inside", filepath.Join(base, "a.pdf"), false},
		{"nested", filepath.Join(base, "x", "a.pdf"), false},
		{"base itself", base, true},
		{"parent traversal", filepath.Join(base, "..", "a.pdf"), true},
		{"sibling with shared prefix", base + "-other/a.pdf", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := s.ValidatePath(tt.path)
			if tt.wantErr {
				require.Error(t, err)
				assert.Contains(t, err.Error(), "escapes base directory")
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestLocalFileStorage_SaveRejectsTraversal(t *testing.T) {
	base := t.TempDir()
	s := storage.NewLocalFileStorage(filepath.Join(base, "out"), nil)

	_, err := s.Save("../escape.pdf", []byte("x"))
	require.Error(t, err)

	_, statErr := os.Stat(filepath.Join(base, "escape.pdf"))
	assert.True(t, os.IsNotExist(statErr))
}
