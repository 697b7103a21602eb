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
package cmd

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/Sam36502/disekt/internal/analysis"
	"github.com/Sam36502/disekt/internal/disk"
	"github.com/Sam36502/disekt/internal/fuse"
	"github.com/Sam36502/disekt/internal/inspect"
	"github.com/Sam36502/disekt/pkg/dfxml"
	"github.com/spf13/cobra"
)

func DefineMountCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mount <image> [mountpoint]",
		Short: "Mount the analysed sectors of a disk image",
		Long: `The 'mount' command exposes a read-only view of an analysed disk image.
Every sector appears as sectors/<track>/<sector>.bin. Every directory entry
gets a directory under chains/ holding the raw sectors of its block chain,
in chain order. Captured sectors replace the content of the image. When a
report file is given, the chains are taken from it instead of the directory.`,
		Args:         cobra.RangeArgs(1, 2),
		SilenceUsage: true,
		RunE:         RunMount,
	}

	addSessionFlags(cmd, false)
	cmd.Flags().StringP("report", "r", "", "DFXML report listing the chains to expose")
	return cmd
}

func RunMount(cmd *cobra.Command, args []string) error {
	console := newConsole(cmd)

	s, err := inspect.Open(args[0], parseOptions(cmd), console)
	if err != nil {
		return err
	}
	defer s.Close()

	objects := inspect.FileObjects(s.Analysis)

	if report, _ := cmd.Flags().GetString("report"); report != "" {
		rep, err := readReport(report)
		if err != nil {
			return err
		}
		if rep.Source.DiskName != s.Directory.Name() {
			console.Warnf("Report %s was written for disk %q, not %q", report, rep.Source.DiskName, s.Directory.Name())
		}
		objects = rep.FileObjects
	}

	chains, err := fileObjectsToChains(s.Analysis, objects)
	if err != nil {
		return err
	}

	mountpoint := getMountpoint(args[0])
	if len(args) > 1 {
		mountpoint = args[1]
	}

	console.Infof("Mountpoint: \t%s", mountpoint)

	return fuse.Mount(mountpoint, mountSectors(s.Analysis), chains)
}

func readReport(path string) (*dfxml.Report, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return dfxml.ReadReport(bufio.NewReader(f))
}

// getMountpoint generates a mountpoint name from an image file name by stripping the extension.
// If the extension is empty, "_mnt" is added.
func getMountpoint(imageName string) string {
	baseName := filepath.Base(imageName)
	ext := filepath.Ext(baseName)
	baseName = strings.TrimSuffix(baseName, ext)
	mountpoint := baseName
	if ext == "" {
		mountpoint += "_mnt"
	}
	return mountpoint
}

func mountSectors(res *analysis.DiskAnalysis) []fuse.Sector {
	img := inspect.RecoveredImage(res)

	sectors := make([]fuse.Sector, len(res.Sectors))
	for i := range res.Sectors {
		pos := res.Sectors[i].Position
		sectors[i] = fuse.Sector{
			Track:  pos.Track,
			Sector: pos.Sector,
			Data:   img[i*disk.BlockSize : (i+1)*disk.BlockSize],
		}
	}
	return sectors
}

// fileObjectsToChains resolves the byte runs of each file object to the
// analysed sectors they were read from.
func fileObjectsToChains(res *analysis.DiskAnalysis, objs []dfxml.FileObject) ([]fuse.Chain, error) {
	chains := make([]fuse.Chain, len(objs))
	for i, o := range objs {
		if o.Filename == "" {
			return nil, fmt.Errorf("invalid report file: file object %d has no name", i)
		}

		name := o.Filename
		if o.NameType != "" {
			name += "." + strings.ToLower(o.NameType)
		}

		blocks := make([]fuse.Sector, len(o.ByteRuns.Runs))
		for j, r := range o.ByteRuns.Runs {
			info, err := res.Get(disk.Position{Track: r.Track, Sector: r.Sector})
			if err != nil {
				return nil, fmt.Errorf("invalid report file: %s block %d: %w", name, j, err)
			}
			blocks[j] = fuse.Sector{Track: r.Track, Sector: r.Sector, Data: info.Data[:]}
		}
		chains[i] = fuse.Chain{Name: name, Blocks: blocks}
	}
	return chains, nil
}
