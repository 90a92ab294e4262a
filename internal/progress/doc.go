// Package progress provides the status indicator and progress reporting for
// archive jobs.
//
// A job moves through idle → loading → success|error. Every status change is
// printed; per-node counters are printed periodically while the job runs.
//
// # Usage
//
//	reporter := progress.NewReporter(Options{
//	    Job:        "catalina",
//	    TotalNodes: 2,
//	    Output:     os.Stderr,
//	})
//
//	reporter.Start()
//	defer reporter.Stop()
//
//	reporter.SetStatus(progress.StatusLoading, "building archives...")
//
// # Output Format
//
//	[downlog] catalina: building archives...
//	[downlog] Nodes: 1 completed | 0 failed | 1 in-progress | 0 pending | 12.40 MB | 3s
//	[downlog] catalina: archives saved: preprod-node1-catalina.zip, preprod-node2-catalina.zip
package progress
