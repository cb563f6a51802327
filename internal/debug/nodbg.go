//go:build !debug

package debug

// Enabled is false in non-debug builds.
const Enabled = false

func Log([]any, string, string, ...any) {}
func Assert(bool, string, ...any)       {}
