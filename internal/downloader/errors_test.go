package downloader

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/AntonyPalsh/downlog/internal/archive"
	slhttp "github.com/AntonyPalsh/downlog/internal/http"
	"github.com/AntonyPalsh/downlog/internal/job"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want Kind
	}{
		{"nil", nil, ""},
		{"unknown node", ErrUnknownNode, KindConfig},
		{"no nodes", ErrNoNodes, KindValidation},
		{"duplicate node", ErrDuplicateNode, KindValidation},
		{"no store", ErrNoStore, KindConfig},
		{"missing input", fmt.Errorf("date: %w", job.ErrMissingInput), KindValidation},
		{"invalid input", job.ErrInvalidInput, KindValidation},
		{"status", &slhttp.StatusError{Code: 503}, KindProtocol},
		{"content type", ErrUnexpectedContentType, KindProtocol},
		{"empty", ErrEmptyBody, KindProtocol},
		{"too large", archive.ErrTooLarge, KindProtocol},
		{"network", fmt.Errorf("%w: refused", slhttp.ErrNetwork), KindNetwork},
		{"timeout", ErrTimeout, KindTimeout},
		{"deadline", context.DeadlineExceeded, KindTimeout},
		{"canceled", context.Canceled, KindTimeout},
		{"other", errors.New("disk quota exceeded"), KindStorage},
		{"node error", &NodeError{Node: "n", Kind: KindNetwork, Err: errors.New("x")}, KindNetwork},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Classify(tt.err); got != tt.want {
				t.Errorf("Classify(%v) = %q, want %q", tt.err, got, tt.want)
			}
		})
	}
}

func TestFanoutErrorKind(t *testing.T) {
	ferr := &FanoutError{Errors: []*NodeError{
		{Node: "node1", Kind: KindProtocol, Err: errors.New("HTTP 502")},
		{Node: "node2", Kind: KindTimeout, Err: ErrTimeout},
	}}
	if ferr.Kind() != KindTimeout {
		t.Errorf("expected timeout to dominate, got %s", ferr.Kind())
	}
	if ferr.Error() != "node1: HTTP 502; node2: timeout waiting for response" {
		t.Errorf("unexpected message %q", ferr.Error())
	}
	if !errors.Is(ferr, ErrTimeout) {
		t.Error("expected errors.Is to reach node errors")
	}

	wrapped := fmt.Errorf("catalina: %w", ferr)
	if Classify(wrapped) != KindTimeout {
		t.Errorf("expected wrapped fanout error to classify as timeout, got %s", Classify(wrapped))
	}
}
