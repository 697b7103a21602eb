// Copyright (c) 2025 Stefano Scafiti
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in
// all copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN
// THE SOFTWARE.
package reader

import (
	"errors"
	"fmt"
	"io"
	"sort"
)

var errNoReaders = errors.New("MultiReadSeeker: no readers")

// MultiReadSeeker presents a sequence of readers, such as the successive
// files of a capture session, as one seekable stream.
type MultiReadSeeker struct {
	readers []io.ReadSeeker
	ends    []int64 // end offset of each reader within the stream

	curr int   // reader serving the next Read, -1 before the first one
	off  int64 // stream offset
}

// NewMultiReadSeeker concatenates readers. sizes[i] must be the length of
// readers[i].
func NewMultiReadSeeker(readers []io.ReadSeeker, sizes []int64) *MultiReadSeeker {
	ends := make([]int64, len(sizes))

	var end int64
	for i, s := range sizes {
		end += s
		ends[i] = end
	}

	return &MultiReadSeeker{
		readers: readers,
		ends:    ends,
		curr:    -1,
	}
}

// Size returns the total length of the stream.
func (r *MultiReadSeeker) Size() int64 {
	if len(r.ends) == 0 {
		return 0
	}
	return r.ends[len(r.ends)-1]
}

// Locate maps a stream offset to the index of the reader holding it and
// the offset within that reader. Offsets at or past the end of the stream
// map past the end of the last reader.
func (r *MultiReadSeeker) Locate(offset int64) (int, int64) {
	if len(r.ends) == 0 {
		return 0, offset
	}

	i := sort.Search(len(r.ends), func(i int) bool {
		return r.ends[i] > offset
	})
	if i == len(r.ends) {
		i--
	}
	return i, offset - r.start(i)
}

func (r *MultiReadSeeker) start(i int) int64 {
	if i == 0 {
		return 0
	}
	return r.ends[i-1]
}

func (r *MultiReadSeeker) Read(buf []byte) (int, error) {
	if len(r.readers) == 0 {
		return 0, errNoReaders
	}

	if r.curr < 0 {
		if err := r.advance(); err != nil {
			return 0, err
		}
	}

	n := 0
	for n < len(buf) && r.curr < len(r.readers) {
		m, err := r.readers[r.curr].Read(buf[n:])
		n += m
		r.off += int64(m)

		if err == io.EOF {
			if r.curr+1 == len(r.readers) {
				break
			}
			if err := r.advance(); err != nil {
				return n, err
			}
			continue
		}
		if err != nil {
			return n, err
		}
	}

	if n < len(buf) {
		return n, io.EOF
	}
	return n, nil
}

func (r *MultiReadSeeker) Seek(offset int64, whence int) (int64, error) {
	switch whence {
	case io.SeekStart:
	case io.SeekCurrent:
		offset += r.off
	case io.SeekEnd:
		offset += r.Size()
	default:
		return -1, fmt.Errorf("MultiReadSeeker.Seek: invalid whence (%d)", whence)
	}

	if offset < 0 {
		return -1, fmt.Errorf("MultiReadSeeker.Seek: negative position")
	}

	if offset >= r.Size() {
		r.off = offset
		r.curr = len(r.readers)
		return offset, nil
	}

	i, local := r.Locate(offset)
	if _, err := r.readers[i].Seek(local, io.SeekStart); err != nil {
		return -1, err
	}

	r.curr = i
	r.off = offset
	return offset, nil
}

func (r *MultiReadSeeker) advance() error {
	i := r.curr + 1

	if _, err := r.readers[i].Seek(0, io.SeekStart); err != nil {
		return err
	}
	r.curr = i
	return nil
}
