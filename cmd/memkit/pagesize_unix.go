//go:build unix

package main

import "golang.org/x/sys/unix"

func pageSize() int {
	return unix.Getpagesize()
}
