//go:build !unix

package main

const defaultPageSize = 4096

func pageSize() int {
	return defaultPageSize
}
