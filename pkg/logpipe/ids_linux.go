//go:build linux

package logpipe

import "golang.org/x/sys/unix"

func gettid() int {
	return unix.Gettid()
}
