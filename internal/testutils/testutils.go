// Package testutils provides shared test infrastructure: fake archive nodes
// and ZIP fixtures.
package testutils

import (
	"archive/zip"
	"bytes"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

// MakeZip builds a ZIP archive holding the given files.
func MakeZip(t *testing.T, files map[string]string) []byte {
	t.Helper()

	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	sort.Strings(names)

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, name := range names {
		w, err := zw.Create(name)
		if err != nil {
			t.Fatalf("zip create %s: %v", name, err)
		}
		if _, err := io.WriteString(w, files[name]); err != nil {
			t.Fatalf("zip write %s: %v", name, err)
		}
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("zip close: %v", err)
	}
	return buf.Bytes()
}

// NodeResponse describes how a fake archive node answers.
type NodeResponse struct {
	// Status defaults to 200.
	Status int

	// ContentType defaults to application/zip. Set to "-" to omit it.
	ContentType string

	// Disposition is sent as Content-Disposition when non-empty.
	Disposition string

	Body []byte

	// Delay holds the response back. The node stops waiting when the
	// client goes away.
	Delay time.Duration
}

// Request is a request received by a fake node.
type Request struct {
	Method      string
	Path        string
	ContentType string
	Body        []byte
}

// ArchiveNode is a fake backend node that produces archives.
type ArchiveNode struct {
	*httptest.Server

	resp     NodeResponse
	hits     atomic.Int32
	mu       sync.Mutex
	requests []Request
}

// StartArchiveNode starts a fake node answering every request with resp.
// The server is closed when the test ends.
func StartArchiveNode(t *testing.T, resp NodeResponse) *ArchiveNode {
	t.Helper()

	n := &ArchiveNode{resp: resp}
	n.Server = httptest.NewServer(http.HandlerFunc(n.serve))
	t.Cleanup(n.Server.Close)
	return n
}

func (n *ArchiveNode) serve(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	n.hits.Add(1)
	n.mu.Lock()
	n.requests = append(n.requests, Request{
		Method:      r.Method,
		Path:        r.URL.Path,
		ContentType: r.Header.Get("Content-Type"),
		Body:        body,
	})
	n.mu.Unlock()

	if n.resp.Delay > 0 {
		select {
		case <-time.After(n.resp.Delay):
		case <-r.Context().Done():
			return
		}
	}

	switch n.resp.ContentType {
	case "":
		w.Header().Set("Content-Type", "application/zip")
	case "-":
		w.Header()["Content-Type"] = nil
	default:
		w.Header().Set("Content-Type", n.resp.ContentType)
	}
	if n.resp.Disposition != "" {
		w.Header().Set("Content-Disposition", n.resp.Disposition)
	}

	status := n.resp.Status
	if status == 0 {
		status = http.StatusOK
	}
	w.WriteHeader(status)
	w.Write(n.resp.Body)
}

// Hits returns the number of requests the node received.
func (n *ArchiveNode) Hits() int {
	return int(n.hits.Load())
}

// Requests returns a copy of the requests the node received.
func (n *ArchiveNode) Requests() []Request {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]Request(nil), n.requests...)
}
