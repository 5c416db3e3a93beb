//go:build linux

package memlib

import "golang.org/x/sys/unix"

func detectPageSize() uintptr {
	return uintptr(unix.Getpagesize())
}
