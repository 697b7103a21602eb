package capture

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/Sam36502/disekt/internal/disk"
	"github.com/stretchr/testify/require"
)

func newRecord(pos disk.Position, seed byte) Record {
	rec := Record{Position: pos, Present: true, DiskError: 1}
	copy(rec.Data[:], pattern(seed))
	rec.Checksum = disk.Checksum(rec.Data[:])
	return rec
}

func TestStoreEmpty(t *testing.T) {
	path := filepath.Join(t.TempDir(), "capture.d64r")

	s, err := OpenStore(path)
	require.NoError(t, err)
	defer s.Close()

	_, found, err := s.Lookup(0)
	require.NoError(t, err)
	require.False(t, found)

	_, err = s.ReadRecord(0)
	require.ErrorIs(t, err, ErrRecordOutOfRange)

	_, err = s.ReadRecord(disk.TotalSectors)
	require.ErrorIs(t, err, ErrRecordOutOfRange)

	_, _, err = s.Lookup(-1)
	require.ErrorIs(t, err, ErrRecordOutOfRange)

	info, err := os.Stat(path)
	require.NoError(t, err)
	require.Zero(t, info.Size())
}

func TestStorePutLookup(t *testing.T) {
	path := filepath.Join(t.TempDir(), "capture.d64r")

	s, err := OpenStore(path)
	require.NoError(t, err)

	pos := disk.Position{Track: 18, Sector: 1}
	index, _ := pos.Index()

	ok, err := s.Put(newRecord(pos, 5))
	require.NoError(t, err)
	require.True(t, ok)
	require.NoError(t, s.SetLogOffset(1234))
	require.NoError(t, s.Close())

	info, err := os.Stat(path)
	require.NoError(t, err)
	require.Equal(t, int64(HeaderSize+(index+1)*RecordSize), info.Size())

	s, err = OpenStore(path)
	require.NoError(t, err)
	defer s.Close()

	require.Equal(t, int64(1234), s.LogOffset())

	rec, found, err := s.Lookup(index)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, pos, rec.Position)
	require.Equal(t, pattern(5), rec.Data[:])
	require.True(t, rec.Clean())

	// Sectors before the written one are gaps of the sparse file.
	_, found, err = s.Lookup(index - 1)
	require.NoError(t, err)
	require.False(t, found)

	// Sectors after it lie beyond the end of the file.
	_, found, err = s.Lookup(index + 1)
	require.NoError(t, err)
	require.False(t, found)

	n, err := s.Count()
	require.NoError(t, err)
	require.Equal(t, 1, n)
}

func TestStoreKeepsCleanRecord(t *testing.T) {
	s, err := OpenStore(filepath.Join(t.TempDir(), "capture.d64r"))
	require.NoError(t, err)
	defer s.Close()

	pos := disk.Position{Track: 1, Sector: 0}

	ok, err := s.Put(newRecord(pos, 1))
	require.NoError(t, err)
	require.True(t, ok)

	dirty := newRecord(pos, 2)
	dirty.ParseError = ParseShortBlock
	ok, err = s.Put(dirty)
	require.NoError(t, err)
	require.False(t, ok)

	rec, found, err := s.Lookup(0)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, pattern(1), rec.Data[:])

	ok, err = s.Put(newRecord(pos, 3))
	require.NoError(t, err)
	require.True(t, ok)

	rec, _, err = s.Lookup(0)
	require.NoError(t, err)
	require.Equal(t, pattern(3), rec.Data[:])
}

func TestStoreParseErrorRoundTrip(t *testing.T) {
	s, err := OpenStore(filepath.Join(t.TempDir(), "capture.d64r"))
	require.NoError(t, err)
	defer s.Close()

	rec := newRecord(disk.Position{Track: 35, Sector: 16}, 4)
	rec.ParseError = ParseBadHex

	_, err = s.Put(rec)
	require.NoError(t, err)

	got, found, err := s.Lookup(disk.TotalSectors - 1)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, ParseBadHex, got.ParseError)
	require.False(t, got.Clean())
}

func TestStoreRejectsInvalidPosition(t *testing.T) {
	s, err := OpenStore(filepath.Join(t.TempDir(), "capture.d64r"))
	require.NoError(t, err)
	defer s.Close()

	_, err = s.Put(Record{Position: disk.Position{Track: 36}})
	require.ErrorIs(t, err, ErrInvalidRecord)
}

func TestStoreBadMagic(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bogus")
	require.NoError(t, os.WriteFile(path, []byte("NOPE0000000000000000"), 0o644))

	_, err := OpenStore(path)
	require.ErrorIs(t, err, ErrBadMagic)

	require.NoError(t, os.WriteFile(path, []byte("D64"), 0o644))
	_, err = OpenStore(path)
	require.ErrorIs(t, err, ErrBadMagic)
}

func TestChain(t *testing.T) {
	s, err := OpenStore(filepath.Join(t.TempDir(), "capture.d64r"))
	require.NoError(t, err)
	defer s.Close()

	log := NewLog()

	first := disk.Position{Track: 1, Sector: 0}
	second := disk.Position{Track: 1, Sector: 1}

	_, err = s.Put(newRecord(first, 1))
	require.NoError(t, err)
	_, err = log.Add(newRecord(first, 2))
	require.NoError(t, err)
	_, err = log.Add(newRecord(second, 3))
	require.NoError(t, err)

	chain := Chain{s, log}

	rec, found, err := chain.Lookup(0)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, pattern(1), rec.Data[:])

	rec, found, err = chain.Lookup(1)
	require.NoError(t, err)
	require.True(t, found)
	require.Equal(t, pattern(3), rec.Data[:])

	_, found, err = chain.Lookup(2)
	require.NoError(t, err)
	require.False(t, found)
}

func TestChainPrefersCleanCapture(t *testing.T) {
	first := NewLog()
	second := NewLog()

	pos := disk.Position{Track: 2, Sector: 3}
	index, _ := pos.Index()

	dirty := newRecord(pos, 1)
	dirty.DiskError = 23
	_, err := first.Add(dirty)
	require.NoError(t, err)
	_, err = second.Add(newRecord(pos, 2))
	require.NoError(t, err)

	rec, found, err := Chain{first, second}.Lookup(index)
	require.NoError(t, err)
	require.True(t, found)
	require.True(t, rec.Clean())
	require.Equal(t, pattern(2), rec.Data[:])

	rec, _, err = Chain{first}.Lookup(index)
	require.NoError(t, err)
	require.False(t, rec.Clean())
}
