//go:build !unix

package mmap

import (
	"fmt"
	"os"
)

// MmapFile holds the file contents. Platforms without mmap read the whole
// file instead, which is cheap for floppy images.
type MmapFile struct {
	Data     []byte
	File     *os.File
	FileSize int
}

func NewMmapFile(filePath string) (*MmapFile, error) {
	data, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read file %q: %w", filePath, err)
	}
	if len(data) == 0 {
		return nil, fmt.Errorf("file %q is empty", filePath)
	}
	return &MmapFile{Data: data, FileSize: len(data)}, nil
}

func (mr *MmapFile) Close() error {
	mr.Data = nil
	return nil
}
