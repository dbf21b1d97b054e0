// Command cachesim drives a trace through a multi-level cache
// hierarchy under every supported replacement policy and reports
// miss rate, cycle count, and AMAT rankings.
package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	flag "github.com/spf13/pflag"

	"github.com/sarchlab/cachesim/driver"
	"github.com/sarchlab/cachesim/trace"
)

func main() {
	var (
		configPath  = flag.String("config", "", "path to a JSON level-config file (omit to configure interactively)")
		jsonPath    = flag.String("json", "", "path to write the sweep report as JSON")
		metricsAddr = flag.String("metrics-addr", "", "address to serve Prometheus metrics on (e.g. :9400); omit to disable")
		verbose     = flag.BoolP("verbose", "v", false, "print per-level detail while configuring interactively")
	)
	flag.Parse()

	if err := run(*configPath, *jsonPath, *metricsAddr, *verbose, flag.Args()); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run(configPath, jsonPath, metricsAddr string, verbose bool, args []string) error {
	if len(args) < 1 {
		return fmt.Errorf("cachesim: usage: cachesim [flags] <trace-file>")
	}
	tracePath := args[0]

	specs, err := loadSpecs(configPath, verbose)
	if err != nil {
		return err
	}

	traceFile, err := os.Open(tracePath)
	if err != nil {
		return fmt.Errorf("cachesim: failed to open trace file: %w", err)
	}
	defer traceFile.Close()

	records, err := trace.Parse(traceFile)
	if err != nil {
		var malformed *trace.MalformedLineError
		if !errors.As(err, &malformed) {
			return fmt.Errorf("cachesim: failed to parse trace file: %w", err)
		}
		// A malformed line ends the trace like end of file does: the
		// sweep runs over the records read before it.
		fmt.Fprintf(os.Stderr, "cachesim: %v; continuing with %d records\n", err, len(records))
	}

	reports, err := driver.RunPolicySweep(specs, driver.DefaultBypassMask, records)
	if err != nil {
		return fmt.Errorf("cachesim: sweep failed: %w", err)
	}

	driver.PrintReport(os.Stdout, reports)

	if jsonPath != "" {
		if err := driver.WriteReportJSON(jsonPath, reports); err != nil {
			return err
		}
	}

	if metricsAddr != "" {
		m := driver.NewMetrics()
		for _, r := range reports {
			m.Observe(r)
		}
		fmt.Fprintf(os.Stderr, "serving metrics on %s/metrics\n", metricsAddr)
		if err := driver.ServeMetrics(metricsAddr, m); err != nil {
			return fmt.Errorf("cachesim: metrics server failed: %w", err)
		}
	}

	return nil
}

func loadSpecs(configPath string, verbose bool) ([]driver.LevelSpec, error) {
	if configPath != "" {
		return driver.LoadLevelSpecs(configPath)
	}

	var w io.Writer
	if verbose {
		w = os.Stdout
	}
	return driver.ReadInteractive(os.Stdin, w)
}
