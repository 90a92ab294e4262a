package main

import (
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/AntonyPalsh/downlog/internal/config"
	"github.com/AntonyPalsh/downlog/internal/job"
)

func runCatalina(args []string) int {
	return runDatedJob("catalina", job.NewCatalina, args)
}

func runUniverse(args []string) int {
	return runDatedJob("universe", job.NewUniverse, args)
}

// runDatedJob runs one of the jobs keyed by a calendar date.
func runDatedJob(name string, newJob func(date string) (job.Job, error), args []string) int {
	fs := flag.NewFlagSet(name, flag.ContinueOnError)

	date := fs.String("date", "", "Date of the logs, YYYY-MM-DD (required)")
	nodes := fs.String("nodes", "", "Comma-separated node names (default all configured nodes)")
	common := addCommonFlags(fs)

	fs.Usage = func() {
		fmt.Fprintf(os.Stderr, `Usage: downlog %s [options]

Ask every node to build the %s log archive for a date, then save
each archive as <label>-<node>-<name>.zip. All nodes share one deadline.
If any node fails the command fails, but archives from the other nodes
stay saved.

Options:
`, name, name)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return ExitSuccess
		}
		return ExitInvalidArgs
	}

	// Input is validated before any configuration or network work.
	j, err := newJob(*date)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return ExitMissingInput
	}

	ctx, cancel := signalContext()
	defer cancel()

	r, code := newJobRunner(ctx, common)
	if r == nil {
		return code
	}
	defer r.Close()

	return r.run(ctx, r.cfg.Nodes, selectNodes(r.cfg, *nodes), j)
}

func runScaners(args []string) int {
	fs := flag.NewFlagSet("scaners", flag.ContinueOnError)

	scanID := fs.String("scanid", "", "Scan identifier (required)")
	common := addCommonFlags(fs)

	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, `Usage: downlog scaners [options]

Ask the scan node to build the archive for one scan and save it.

Options:`)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return ExitSuccess
		}
		return ExitInvalidArgs
	}

	j, err := job.NewScaners(*scanID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return ExitMissingInput
	}

	ctx, cancel := signalContext()
	defer cancel()

	r, code := newJobRunner(ctx, common)
	if r == nil {
		return code
	}
	defer r.Close()

	scan := r.cfg.Scaners
	return r.run(ctx, []config.Node{scan}, []string{scan.Name}, j)
}

func runFetch(args []string) int {
	fs := flag.NewFlagSet("fetch", flag.ContinueOnError)

	endpoint := fs.String("endpoint", "", "API path on the node, e.g. /api/alltomcat (required)")
	nodes := fs.String("nodes", "", "Comma-separated node names (default all configured nodes)")
	body := fs.String("body", "", "JSON object to post (default {})")
	common := addCommonFlags(fs)

	fs.Usage = func() {
		fmt.Fprintln(os.Stderr, `Usage: downlog fetch [options]

Post a JSON body to an endpoint on the selected nodes and save the archives
they return, with the same rules as the catalina and universe commands.

Options:`)
		fs.PrintDefaults()
	}

	if err := fs.Parse(args); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			return ExitSuccess
		}
		return ExitInvalidArgs
	}

	j, err := job.NewCustom(*endpoint, []byte(*body))
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		fs.Usage()
		return ExitMissingInput
	}

	ctx, cancel := signalContext()
	defer cancel()

	r, code := newJobRunner(ctx, common)
	if r == nil {
		return code
	}
	defer r.Close()

	return r.run(ctx, r.cfg.Nodes, selectNodes(r.cfg, *nodes), j)
}
