// Command memkit drives Arena and Pool allocators from the command line for
// ad hoc experimentation and benchmarking.
package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"
	"k8s.io/klog/v2"

	"github.com/flier/memkit/internal/debug"
)

func main() {
	configPath := flag.String("config", "", "path to a YAML config profile")
	mode := flag.String("mode", "arena", "allocator to exercise: arena or pool")
	rounds := flag.Int("rounds", 1000, "number of alloc/free rounds to run")
	allocSize := flag.Int("size", 64, "bytes requested per allocation")

	klog.InitFlags(nil)
	flag.Parse()
	defer klog.Flush()

	runID := uuid.New()
	klog.V(1).InfoS("starting run", "id", runID, "mode", *mode, "rounds", *rounds)

	cfg, err := loadConfig(*configPath)
	if err != nil {
		klog.ErrorS(err, "failed to load config")
		os.Exit(1)
	}

	var report *Report
	switch *mode {
	case "arena":
		report, err = runArena(cfg, *rounds, *allocSize)
	case "pool":
		report, err = runPool(cfg, *rounds, *allocSize)
	default:
		err = errors.Errorf("unknown mode %q", *mode)
	}
	if err != nil {
		klog.ErrorS(err, "run failed", "id", runID)
		os.Exit(1)
	}

	report.RunID = runID.String()
	fmt.Println(renderReport(report))
}

// Report captures the outcome of one benchmark run.
type Report struct {
	RunID    string
	Mode     string
	Rounds   int
	Failures int
	Elapsed  time.Duration
	Size     int
	SizeUsed int
	Nodes    int
	MaxNodes int
}

func init() {
	if debug.Enabled {
		klog.V(2).InfoS("built with internal assertions and logging enabled")
	}
}
