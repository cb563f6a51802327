//go:build debug

// Package debug includes debugging helpers shared by the arena and pool
// allocators. Building with -tags debug turns on verbose allocation tracing
// and internal invariant assertions; without the tag both are compiled out.
package debug

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"runtime"
	"strings"

	"github.com/timandy/routine"

	"github.com/flier/memkit/internal/xflag"
)

// Enabled is true if the package is being built with the debug tag.
const Enabled = true

var (
	debugPattern = xflag.Func("filter", "regexp to filter debug logs by", regexp.Compile)
	nocapture    = flag.Bool("nocapture", false, "disables capturing debug logs as test logs")
)

// Log prints debugging information to stderr.
//
// context is optional args for fmt.Printf that are printed before operation,
// useful for identifying which handle a group of related log lines belongs
// to.
func Log(context []any, operation string, format string, args ...any) {
	skip := 1
again:
	pc, file, line, _ := runtime.Caller(skip)

	fn := runtime.FuncForPC(pc)
	name := fn.Name()
	name = name[strings.LastIndex(name, ".")+1:]
	if strings.HasPrefix(name, "log") || strings.Contains(name, "Log") {
		skip++
		goto again
	}

	pkg := fn.Name()
	pkg = strings.TrimPrefix(pkg, "github.com/flier/memkit/")
	pkg = strings.TrimPrefix(pkg, "pkg/")
	if i := strings.Index(pkg, "."); i >= 0 {
		pkg = pkg[:i]
	}

	file = filepath.Base(file)

	buf := new(strings.Builder)

	_, _ = fmt.Fprintf(buf, "%s/%s:%d [g%04d", pkg, file, line, routine.Goid())
	if len(context) >= 1 {
		_, _ = fmt.Fprintf(buf, ", "+context[0].(string), context[1:]...)
	}
	_, _ = fmt.Fprintf(buf, "] %s: ", operation)
	_, _ = fmt.Fprintf(buf, format, args...)

	if *debugPattern != nil &&
		!(*debugPattern).MatchString(buf.String()) {
		return
	}

	t := tls.Get()
	if !*nocapture && t != nil {
		t.Log(buf.String())
		return
	}

	_, _ = buf.Write([]byte{'\n'})
	_, _ = os.Stderr.WriteString(buf.String())
	_ = os.Stderr.Sync()
}

// Assert panics if cond is false.
//
// Use this for breaches of internal invariants (free-list corruption, a
// pointer out of range where the caller has no legitimate way to produce
// one) — not for ordinary, expected failure modes like capacity exhaustion,
// which should be surfaced as a nil/false sentinel instead.
func Assert(cond bool, format string, args ...any) {
	if !cond {
		panic(fmt.Errorf("memkit: internal assertion failed: "+format, args...))
	}
}
