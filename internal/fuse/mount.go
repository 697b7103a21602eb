//go:build !linux
// +build !linux

package fuse

import "errors"

var ErrUnsupported = errors.New("mounting is only supported on Linux")

func Mount(mountpoint string, sectors []Sector, chains []Chain) error {
	return ErrUnsupported
}
