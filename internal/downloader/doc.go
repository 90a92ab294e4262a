// Package downloader fans an archive job out to backend nodes and saves the
// archives they return.
//
// # Usage
//
//	o := downloader.New(downloader.Options{
//	    Nodes:              cfg.Nodes,
//	    Label:              cfg.Label,
//	    Timeout:            cfg.Timeout,
//	    RequireArchiveType: true,
//	    RejectEmpty:        true,
//	    Store:              store,
//	    Progress:           reporter,
//	})
//
//	out, err := o.Run(ctx, []string{"node1", "node2"}, j)
//
// # Fan-out
//
// Run issues one POST per node concurrently and waits for every call to
// settle. There is no first-failure short circuit and no retry. One deadline
// covers the whole run; when it fires every call still in flight is aborted
// and reported as a timeout.
//
// # Outcome
//
// If all calls succeed, Outcome.Files holds one entry per node in
// submission order. If any call fails, Run returns a *FanoutError whose
// message joins every node's failure with "; ". Archives that other nodes
// already saved are not removed and stay listed in Outcome.Files.
//
// # File names
//
// The saved name is <label>-<node>-<base>.zip, where base comes from the
// response's Content-Disposition filename with archive extensions stripped,
// or "files" when the header has none.
//
// # Errors
//
// Use [Classify] to map any error to a [Kind]: config, network, protocol,
// timeout, validation or storage.
package downloader
