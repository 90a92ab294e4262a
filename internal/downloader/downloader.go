package downloader

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/AntonyPalsh/downlog/internal/archive"
	"github.com/AntonyPalsh/downlog/internal/config"
	slhttp "github.com/AntonyPalsh/downlog/internal/http"
	"github.com/AntonyPalsh/downlog/internal/job"
	"github.com/AntonyPalsh/downlog/internal/progress"
)

// DefaultTimeout is the shared deadline of a run when Options.Timeout is zero.
const DefaultTimeout = 10 * time.Minute

// Options configures the orchestrator.
type Options struct {
	// Nodes maps node names to base URLs. Only listed nodes can be targeted.
	Nodes []config.Node

	// Label namespaces saved file names. May be empty.
	Label string

	// Timeout is the single deadline shared by every call of one run.
	// Default: 10m
	Timeout time.Duration

	// RequireArchiveType rejects responses whose Content-Type is not a ZIP
	// or binary type.
	RequireArchiveType bool

	// RejectEmpty rejects responses with an empty body.
	RejectEmpty bool

	// Store receives the archives. Run fails with ErrNoStore without it.
	Store *archive.Store

	// Progress is an optional status and progress reporter.
	Progress *progress.Reporter

	// Logger defaults to logrus.StandardLogger().
	Logger logrus.FieldLogger

	// HTTPOptions configures the HTTP client. SnippetLength there bounds the
	// error body kept in failure messages.
	HTTPOptions slhttp.Options
}

// Result describes one archive saved for one node.
type Result struct {
	Node     string
	Filename string
	Size     int64
}

// Outcome is the result of one run. Files lists the archives that were
// saved, in the order the nodes were submitted; it can be non-empty even
// when the run failed.
type Outcome struct {
	RunID       uuid.UUID
	Job         job.Job
	Nodes       []string
	Files       []Result
	Failed      []*NodeError
	StartedAt   time.Time
	CompletedAt time.Time
}

// Succeeded reports whether every node's call succeeded.
func (o *Outcome) Succeeded() bool {
	return len(o.Failed) == 0 && len(o.Files) == len(o.Nodes) && len(o.Nodes) > 0
}

// Filenames returns the saved file names in submission order.
func (o *Outcome) Filenames() []string {
	names := make([]string, len(o.Files))
	for i, f := range o.Files {
		names[i] = f.Filename
	}
	return names
}

// Orchestrator sends archive jobs to nodes and saves what they return.
// It holds no per-run state and can be used for concurrent runs.
type Orchestrator struct {
	opts   Options
	nodes  map[string]string
	client *slhttp.Client
	logger logrus.FieldLogger
}

// New creates an orchestrator.
func New(opts Options) *Orchestrator {
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultTimeout
	}
	if opts.HTTPOptions.MaxIdleConnsPerHost == 0 {
		snippet := opts.HTTPOptions.SnippetLength
		opts.HTTPOptions = slhttp.DefaultOptions()
		if snippet > 0 {
			opts.HTTPOptions.SnippetLength = snippet
		}
	}
	logger := opts.Logger
	if logger == nil {
		logger = logrus.StandardLogger()
	}

	nodes := make(map[string]string, len(opts.Nodes))
	for _, n := range opts.Nodes {
		nodes[n.Name] = strings.TrimRight(n.URL, "/")
	}

	return &Orchestrator{
		opts:   opts,
		nodes:  nodes,
		client: slhttp.NewClient(opts.HTTPOptions),
		logger: logger,
	}
}

// Run posts j to every node in parallel, saves each successful response and
// waits for all calls to settle before reporting.
//
// All calls share one deadline (Options.Timeout); when it fires every call
// still in flight is aborted. If any call fails, Run returns a *FanoutError
// carrying every node's failure. Archives saved by the other nodes are kept
// and listed in Outcome.Files. A node named twice fails the run with
// ErrDuplicateNode before any request. The returned Outcome is never nil.
func (o *Orchestrator) Run(ctx context.Context, nodes []string, j job.Job) (*Outcome, error) {
	out := &Outcome{
		RunID:     uuid.New(),
		Job:       j,
		Nodes:     append([]string(nil), nodes...),
		StartedAt: time.Now().UTC(),
	}
	log := o.logger.WithFields(logrus.Fields{
		"run_id":   out.RunID.String(),
		"job":      j.Name(),
		"endpoint": j.Endpoint,
	})
	reporter := o.opts.Progress

	finish := func(err error) (*Outcome, error) {
		out.CompletedAt = time.Now().UTC()
		if reporter != nil {
			if err != nil {
				reporter.SetStatus(progress.StatusError, err.Error())
			} else {
				reporter.SetStatus(progress.StatusSuccess, "archives saved: "+strings.Join(out.Filenames(), ", "))
			}
		}
		return out, err
	}

	if len(nodes) == 0 {
		return finish(ErrNoNodes)
	}
	seen := make(map[string]bool, len(nodes))
	for _, n := range nodes {
		if seen[n] {
			return finish(fmt.Errorf("%w: %s", ErrDuplicateNode, n))
		}
		seen[n] = true
	}
	if o.opts.Store == nil {
		return finish(ErrNoStore)
	}

	payload, err := json.Marshal(j.Body)
	if err != nil {
		return finish(fmt.Errorf("%w: encode body: %v", job.ErrInvalidInput, err))
	}

	if reporter != nil {
		reporter.SetStatus(progress.StatusLoading, "building archives...")
	}
	log.WithField("nodes", strings.Join(nodes, ",")).Info("Submitting job")

	runCtx, cancel := context.WithTimeoutCause(ctx, o.opts.Timeout, ErrTimeout)
	defer cancel()

	type nodeResult struct {
		res Result
		err *NodeError
	}
	results := make([]nodeResult, len(nodes))

	var wg sync.WaitGroup
	for i, node := range nodes {
		wg.Add(1)
		go func(i int, node string) {
			defer wg.Done()
			res, err := o.fetchNode(runCtx, node, j, payload, log.WithField("node", node))
			results[i] = nodeResult{res: res, err: err}
		}(i, node)
	}
	wg.Wait()

	for _, r := range results {
		if r.err != nil {
			out.Failed = append(out.Failed, r.err)
			continue
		}
		out.Files = append(out.Files, r.res)
	}

	if len(out.Failed) > 0 {
		ferr := &FanoutError{Errors: out.Failed}
		log.WithFields(logrus.Fields{
			"failed": len(out.Failed),
			"saved":  len(out.Files),
		}).WithError(ferr).Error("Job failed")
		return finish(ferr)
	}

	log.WithField("files", strings.Join(out.Filenames(), ",")).Info("Job completed")
	return finish(nil)
}

// RunSingle sends j to one node. It follows the same rules as Run.
func (o *Orchestrator) RunSingle(ctx context.Context, node string, j job.Job) (*Outcome, error) {
	return o.Run(ctx, []string{node}, j)
}

// fetchNode performs one node's call and saves the archive it returns.
func (o *Orchestrator) fetchNode(ctx context.Context, node string, j job.Job, payload []byte, log logrus.FieldLogger) (Result, *NodeError) {
	base, ok := o.nodes[node]
	if !ok {
		log.Warn("Node is not configured")
		return Result{}, &NodeError{Node: node, Kind: KindConfig, Err: ErrUnknownNode}
	}

	reporter := o.opts.Progress
	if reporter != nil {
		reporter.NodeStarted()
	}

	res, err := o.download(ctx, node, base+j.Endpoint, payload)
	if err != nil {
		nerr := o.nodeError(ctx, node, err)
		if reporter != nil {
			reporter.NodeFailed()
		}
		log.WithField("kind", nerr.Kind).WithError(nerr.Err).Warn("Node failed")
		return Result{}, nerr
	}

	if reporter != nil {
		reporter.NodeCompleted()
	}
	log.WithFields(logrus.Fields{
		"file":  res.Filename,
		"bytes": res.Size,
	}).Info("Archive saved")
	return res, nil
}

func (o *Orchestrator) download(ctx context.Context, node, url string, payload []byte) (Result, error) {
	resp, err := o.client.PostJSON(ctx, url, json.RawMessage(payload))
	if err != nil {
		return Result{}, err
	}
	defer resp.Body.Close()

	if o.opts.RequireArchiveType && !slhttp.IsArchiveType(resp.ContentType) {
		return Result{}, fmt.Errorf("%w (%q)", ErrUnexpectedContentType, resp.ContentType)
	}

	body := bufio.NewReader(resp.Body)
	if o.opts.RejectEmpty {
		if _, err := body.Peek(1); err != nil {
			if errors.Is(err, io.EOF) {
				return Result{}, ErrEmptyBody
			}
			return Result{}, fmt.Errorf("%w: read body: %w", slhttp.ErrNetwork, err)
		}
	}

	filename := ComposeName(o.opts.Label, node, BaseNameFromDisposition(resp.ContentDisposition))

	var src io.Reader = body
	if o.opts.Progress != nil {
		src = &countingReader{r: body, reporter: o.opts.Progress}
	}

	n, err := o.opts.Store.Save(ctx, filename, src)
	if err != nil {
		return Result{}, err
	}

	return Result{Node: node, Filename: filename, Size: n}, nil
}

// nodeError classifies err. Any failure after the shared context is done is
// reported as a timeout, whatever layer noticed it first.
func (o *Orchestrator) nodeError(ctx context.Context, node string, err error) *NodeError {
	if ctx.Err() != nil {
		return &NodeError{Node: node, Kind: KindTimeout, Err: context.Cause(ctx)}
	}
	return &NodeError{Node: node, Kind: Classify(err), Err: err}
}

// countingReader reports bytes as they are saved.
type countingReader struct {
	r        io.Reader
	reporter *progress.Reporter
}

func (c *countingReader) Read(p []byte) (int, error) {
	n, err := c.r.Read(p)
	if n > 0 {
		c.reporter.BytesWritten(int64(n))
	}
	return n, err
}
