package reader

import (
	"bytes"
	"crypto/rand"
	"io"
	mrand "math/rand"
	"testing"

	"github.com/stretchr/testify/require"
)

// testReadSeeker checks random seek+read pairs against the data the reader
// was built from.
func testReadSeeker(t *testing.T, newReader func([]byte) io.ReadSeeker) {
	const trials = 1000

	data := make([]byte, 10*1024)
	_, err := rand.Read(data)
	require.NoError(t, err)

	rs := newReader(data)

	var buf [64]byte
	for i := 0; i < trials; i++ {
		offset := mrand.Intn(len(data))
		readLen := max(min(mrand.Intn(len(buf)), len(data)-offset), 1)

		_, err := rs.Seek(int64(offset), io.SeekStart)
		require.NoError(t, err, "trial %d", i)

		n, err := rs.Read(buf[:readLen])
		if err != io.EOF {
			require.NoError(t, err, "trial %d", i)
		}
		require.Equal(t, data[offset:offset+readLen], buf[:n], "trial %d: offset %d", i, offset)
	}
}

func TestMultiReadSeekerRandomSeek(t *testing.T) {
	testReadSeeker(t, func(data []byte) io.ReadSeeker {
		n := len(data)

		var (
			readers []io.ReadSeeker
			sizes   []int64
		)

		size := 0
		for size < n {
			sz := min(
				mrand.Intn(1024)+1,
				n-size,
			)

			chunk := data[size : size+sz]
			readers = append(readers, bytes.NewReader(chunk))

			sizes = append(sizes, int64(sz))
			size += sz
		}
		return NewMultiReadSeeker(readers, sizes)
	})
}

func TestBufferedSeeker(t *testing.T) {
	testReadSeeker(t, func(data []byte) io.ReadSeeker {
		return NewBufferedReadSeeker(bytes.NewReader(data), 4096)
	})
}

func TestBufferedReadLine(t *testing.T) {
	data := []byte("first\nsecond\r\n\nlast")

	// A tiny buffer forces lines to span refills.
	r := NewBufferedReadSeeker(bytes.NewReader(data), 4)

	var lines []string
	var offsets []int64
	for {
		line, err := r.ReadLine()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		lines = append(lines, string(line))
		offsets = append(offsets, r.Offset())
	}

	require.Equal(t, []string{"first", "second", "", "last"}, lines)
	require.Equal(t, []int64{6, 14, 15, 19}, offsets)
}

func TestBufferedReadLineAfterSeek(t *testing.T) {
	data := []byte("aaa\nbbb\nccc\n")
	r := NewBufferedReadSeeker(bytes.NewReader(data), 64)

	_, err := r.Seek(4, io.SeekStart)
	require.NoError(t, err)

	line, err := r.ReadLine()
	require.NoError(t, err)
	require.Equal(t, "bbb", string(line))
	require.Equal(t, int64(8), r.Offset())
}

func TestBufferedPeek(t *testing.T) {
	r := NewBufferedReadSeeker(bytes.NewReader([]byte("abcdef\nxy")), 8)

	head, err := r.Peek(3)
	require.NoError(t, err)
	require.Equal(t, "abc", string(head))
	require.Equal(t, int64(0), r.Offset())

	line, err := r.ReadLine()
	require.NoError(t, err)
	require.Equal(t, "abcdef", string(line))

	head, err = r.Peek(4)
	require.ErrorIs(t, err, io.EOF)
	require.Equal(t, "xy", string(head))

	_, err = r.Peek(9)
	require.Error(t, err)
}

func TestMultiReadLineAcrossReaders(t *testing.T) {
	parts := [][]byte{[]byte("one\ntw"), []byte("o\nthree\n")}
	readers := []io.ReadSeeker{bytes.NewReader(parts[0]), bytes.NewReader(parts[1])}
	sizes := []int64{int64(len(parts[0])), int64(len(parts[1]))}

	r := NewBufferedReadSeeker(NewMultiReadSeeker(readers, sizes), 16)
	_, err := r.Seek(0, io.SeekStart)
	require.NoError(t, err)

	var lines []string
	for {
		line, err := r.ReadLine()
		if err == io.EOF {
			break
		}
		require.NoError(t, err)
		lines = append(lines, string(line))
	}
	require.Equal(t, []string{"one", "two", "three"}, lines)
}

func TestMultiReadSeekerLocate(t *testing.T) {
	readers := []io.ReadSeeker{
		bytes.NewReader(make([]byte, 10)),
		bytes.NewReader(nil),
		bytes.NewReader(make([]byte, 5)),
	}
	r := NewMultiReadSeeker(readers, []int64{10, 0, 5})
	require.Equal(t, int64(15), r.Size())

	i, off := r.Locate(3)
	require.Equal(t, 0, i)
	require.Equal(t, int64(3), off)

	i, off = r.Locate(10)
	require.Equal(t, 2, i)
	require.Equal(t, int64(0), off)

	i, off = r.Locate(15)
	require.Equal(t, 2, i)
	require.Equal(t, int64(5), off)
}

func TestMultiReadSeekerSeekEnd(t *testing.T) {
	r := NewMultiReadSeeker(
		[]io.ReadSeeker{bytes.NewReader([]byte("ab")), bytes.NewReader([]byte("cd"))},
		[]int64{2, 2},
	)

	off, err := r.Seek(-1, io.SeekEnd)
	require.NoError(t, err)
	require.Equal(t, int64(3), off)

	buf := make([]byte, 4)
	n, err := r.Read(buf)
	require.Equal(t, io.EOF, err)
	require.Equal(t, "d", string(buf[:n]))

	_, err = r.Seek(0, io.SeekEnd)
	require.NoError(t, err)
	n, err = r.Read(buf)
	require.Equal(t, 0, n)
	require.Equal(t, io.EOF, err)
}
