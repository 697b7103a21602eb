//go:build linux
// +build linux

package fuse

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"bazil.org/fuse"
	"bazil.org/fuse/fs"
)

// SectorFS is a read-only view of an analysed disk:
//
//	/sectors/<track>/<sector>.bin		the 256 bytes of every sector
//	/chains/<name>/<n>_<track>_<sector>.bin	the blocks of every directory entry
type SectorFS struct {
	root *Dir
}

func sectorFile(s Sector) *File {
	return &File{
		r:    bytes.NewReader(s.Data),
		size: uint64(len(s.Data)),
	}
}

// NewFS builds the tree served by SectorFS.
func NewFS(sectors []Sector, chains []Chain) *SectorFS {
	sectorsDir := newDir()
	for _, s := range sectors {
		name := trackDirName(s.Track)

		track, ok := sectorsDir.children[name].(*Dir)
		if !ok {
			track = newDir()
			sectorsDir.add(name, track)
		}
		track.add(sectorFileName(s.Sector), sectorFile(s))
	}

	chainsDir := newDir()
	for _, c := range chains {
		d := newDir()
		for n, b := range c.Blocks {
			d.add(blockFileName(n, b), sectorFile(b))
		}
		chainsDir.add(uniqueName(chainsDir, sanitizeName(c.Name)), d)
	}

	root := newDir()
	root.add("sectors", sectorsDir)
	root.add("chains", chainsDir)
	return &SectorFS{root: root}
}

func (sfs *SectorFS) Root() (fs.Node, error) {
	return sfs.root, nil
}

// sanitizeName makes a CBM file name usable as a path component.
func sanitizeName(name string) string {
	name = strings.ReplaceAll(name, "/", "_")
	if name == "" || name == "." || name == ".." {
		name = "_" + name
	}
	return name
}

// uniqueName appends a counter to names already present in d.
func uniqueName(d *Dir, name string) string {
	if _, ok := d.children[name]; !ok {
		return name
	}
	for i := 1; ; i++ {
		candidate := fmt.Sprintf("%s~%d", name, i)
		if _, ok := d.children[candidate]; !ok {
			return candidate
		}
	}
}

// Dir implements both fs.Node and fs.HandleReadDirAller
type Dir struct {
	children map[string]fs.Node
}

func newDir() *Dir {
	return &Dir{children: make(map[string]fs.Node)}
}

func (d *Dir) add(name string, n fs.Node) {
	d.children[name] = n
}

func (*Dir) Attr(ctx context.Context, a *fuse.Attr) error {
	a.Mode = os.ModeDir | 0555
	return nil
}

func (d *Dir) Lookup(ctx context.Context, name string) (fs.Node, error) {
	if n, ok := d.children[name]; ok {
		return n, nil
	}
	return nil, fuse.ENOENT
}

func (d *Dir) ReadDirAll(ctx context.Context) ([]fuse.Dirent, error) {
	dirEntries := make([]fuse.Dirent, 0, len(d.children))
	for name, n := range d.children {
		typ := fuse.DT_File
		if _, ok := n.(*Dir); ok {
			typ = fuse.DT_Dir
		}
		dirEntries = append(dirEntries, fuse.Dirent{Name: name, Type: typ})
	}
	sort.Slice(dirEntries, func(i, j int) bool {
		return dirEntries[i].Name < dirEntries[j].Name
	})
	for i := range dirEntries {
		dirEntries[i].Inode = uint64(i + 1)
	}
	return dirEntries, nil
}

// File implements both fs.Node and fs.HandleReader
type File struct {
	r    io.ReaderAt
	size uint64
}

func (f *File) Attr(ctx context.Context, a *fuse.Attr) error {
	a.Mode = 0444
	a.Size = f.size
	a.Mtime = time.Now()
	return nil
}

func (f *File) Read(ctx context.Context, req *fuse.ReadRequest, resp *fuse.ReadResponse) error {
	size := int(req.Size)
	offset := req.Offset

	if offset >= int64(f.size) {
		// Trying to read past EOF
		resp.Data = []byte{}
		return nil
	}

	// Clamp size if reading near EOF
	if offset+int64(size) > int64(f.size) {
		size = int(int64(f.size) - offset)
	}

	buf := make([]byte, size)

	n, err := f.r.ReadAt(buf, offset)
	if err != nil && err != io.EOF {
		return err
	}

	resp.Data = buf[:n]
	return nil
}
