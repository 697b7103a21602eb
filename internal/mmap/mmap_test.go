package mmap

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewMmapFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "disk.d64")

	data := make([]byte, 4096)
	for i := range data {
		data[i] = byte(i)
	}
	require.NoError(t, os.WriteFile(path, data, 0644))

	m, err := NewMmapFile(path)
	require.NoError(t, err)
	require.Equal(t, len(data), m.FileSize)
	require.Equal(t, data, m.Data)

	require.NoError(t, m.Close())
	require.Nil(t, m.Data)
}

func TestNewMmapFileEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.d64")
	require.NoError(t, os.WriteFile(path, nil, 0644))

	_, err := NewMmapFile(path)
	require.Error(t, err)
}
