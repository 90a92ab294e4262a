package downloader

import (
	"context"
	"errors"
	"strings"

	"github.com/AntonyPalsh/downlog/internal/archive"
	slhttp "github.com/AntonyPalsh/downlog/internal/http"
	"github.com/AntonyPalsh/downlog/internal/job"
)

// Kind classifies a failure for display.
type Kind string

const (
	KindConfig     Kind = "config"     // unknown or unconfigured node
	KindNetwork    Kind = "network"    // no response received
	KindProtocol   Kind = "protocol"   // bad status, content type, empty or oversized body
	KindTimeout    Kind = "timeout"    // shared deadline fired or the run was cancelled
	KindValidation Kind = "validation" // bad input, detected before any request
	KindStorage    Kind = "storage"    // the archive could not be saved
)

var (
	// ErrUnknownNode is returned for a node with no configured base URL.
	ErrUnknownNode = errors.New("unknown node")

	// ErrNoNodes is returned when a job is submitted to an empty node list.
	ErrNoNodes = errors.New("no nodes to send the job to")

	// ErrDuplicateNode is returned when a node is named twice in one run.
	ErrDuplicateNode = errors.New("node listed more than once")

	// ErrNoStore is returned by Run when Options.Store is nil.
	ErrNoStore = errors.New("no archive store configured")

	// ErrUnexpectedContentType is returned when a node answers with something
	// other than a ZIP or binary payload.
	ErrUnexpectedContentType = errors.New("unexpected content type")

	// ErrEmptyBody is returned when a node answers with an empty archive.
	ErrEmptyBody = errors.New("empty response")

	// ErrTimeout is the cause recorded when the shared deadline fires.
	ErrTimeout = errors.New("timeout waiting for response")

	// ErrBusy is returned by Control.Do while the control is disabled.
	ErrBusy = errors.New("job already running")
)

// NodeError is the failure of a single node's call.
type NodeError struct {
	Node string
	Kind Kind
	Err  error
}

func (e *NodeError) Error() string {
	return e.Node + ": " + e.Err.Error()
}

func (e *NodeError) Unwrap() error {
	return e.Err
}

// FanoutError aggregates the node failures of one run. Its message joins
// every node's message with "; ".
type FanoutError struct {
	Errors []*NodeError
}

func (e *FanoutError) Error() string {
	msgs := make([]string, len(e.Errors))
	for i, ne := range e.Errors {
		msgs[i] = ne.Error()
	}
	return strings.Join(msgs, "; ")
}

func (e *FanoutError) Unwrap() []error {
	errs := make([]error, len(e.Errors))
	for i, ne := range e.Errors {
		errs[i] = ne
	}
	return errs
}

// Kind returns the kind that best describes the whole run: timeout if any
// node timed out, since the deadline is shared, otherwise the first node's.
func (e *FanoutError) Kind() Kind {
	for _, ne := range e.Errors {
		if ne.Kind == KindTimeout {
			return KindTimeout
		}
	}
	if len(e.Errors) > 0 {
		return e.Errors[0].Kind
	}
	return ""
}

// Classify returns the kind of err, or "" for nil.
func Classify(err error) Kind {
	if err == nil {
		return ""
	}

	var fe *FanoutError
	if errors.As(err, &fe) {
		return fe.Kind()
	}
	var ne *NodeError
	if errors.As(err, &ne) {
		return ne.Kind
	}

	var se *slhttp.StatusError
	switch {
	case errors.Is(err, ErrTimeout),
		errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, context.Canceled):
		return KindTimeout
	case errors.Is(err, ErrUnknownNode),
		errors.Is(err, ErrNoStore):
		return KindConfig
	case errors.Is(err, ErrNoNodes),
		errors.Is(err, ErrDuplicateNode),
		errors.Is(err, job.ErrMissingInput),
		errors.Is(err, job.ErrInvalidInput):
		return KindValidation
	case errors.As(err, &se),
		errors.Is(err, ErrUnexpectedContentType),
		errors.Is(err, ErrEmptyBody),
		errors.Is(err, archive.ErrTooLarge):
		return KindProtocol
	case errors.Is(err, slhttp.ErrNetwork):
		return KindNetwork
	default:
		return KindStorage
	}
}
