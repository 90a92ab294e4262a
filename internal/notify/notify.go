// Package notify publishes run outcomes as JSON events.
package notify

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/sirupsen/logrus"

	"github.com/AntonyPalsh/downlog/internal/downloader"
)

// Event statuses.
const (
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

// DefaultSubject is used when no subject is configured.
const DefaultSubject = "downlog.outcomes"

// Publisher sends raw messages. *nats.Conn satisfies it.
type Publisher interface {
	Publish(subject string, data []byte) error
}

// Event is the message published for one run.
type Event struct {
	RunID       string   `json:"run_id"`
	Job         string   `json:"job"`
	Endpoint    string   `json:"endpoint"`
	Status      string   `json:"status"`
	Nodes       []string `json:"nodes"`
	Files       []string `json:"files"`
	Error       *string  `json:"error,omitempty"`
	Kind        string   `json:"kind,omitempty"`
	CompletedAt int64    `json:"completed_at"`
}

// NewEvent builds the event for an outcome and the error Run returned.
func NewEvent(out *downloader.Outcome, err error) Event {
	ev := Event{
		RunID:    out.RunID.String(),
		Job:      out.Job.Name(),
		Endpoint: out.Job.Endpoint,
		Status:   StatusCompleted,
		Nodes:    out.Nodes,
		Files:    out.Filenames(),
	}
	if ev.Nodes == nil {
		ev.Nodes = []string{}
	}

	completed := out.CompletedAt
	if completed.IsZero() {
		completed = time.Now()
	}
	ev.CompletedAt = completed.Unix()

	if err != nil {
		msg := err.Error()
		ev.Status = StatusFailed
		ev.Error = &msg
		ev.Kind = string(downloader.Classify(err))
	}
	return ev
}

// Notifier publishes events to one subject.
type Notifier struct {
	pub     Publisher
	subject string
	logger  logrus.FieldLogger
}

// New creates a notifier. An empty subject means DefaultSubject.
func New(pub Publisher, subject string, logger logrus.FieldLogger) *Notifier {
	if subject == "" {
		subject = DefaultSubject
	}
	if logger == nil {
		logger = logrus.StandardLogger()
	}
	return &Notifier{pub: pub, subject: subject, logger: logger}
}

// Publish sends ev. A nil notifier does nothing.
func (n *Notifier) Publish(ev Event) error {
	if n == nil {
		return nil
	}

	data, err := json.Marshal(ev)
	if err != nil {
		return fmt.Errorf("encode event: %w", err)
	}

	log := n.logger.WithFields(logrus.Fields{
		"run_id":  ev.RunID,
		"subject": n.subject,
	})
	if err := n.pub.Publish(n.subject, data); err != nil {
		log.WithError(err).Error("Failed to publish outcome")
		return fmt.Errorf("publish to %s: %w", n.subject, err)
	}
	log.WithField("status", ev.Status).Debug("Published outcome")
	return nil
}

// PublishOutcome builds the event for out and publishes it.
func (n *Notifier) PublishOutcome(out *downloader.Outcome, runErr error) error {
	if n == nil || out == nil {
		return nil
	}
	return n.Publish(NewEvent(out, runErr))
}

// Connect dials the NATS server at url and returns a notifier for subject.
// The returned close function flushes pending messages and closes the
// connection.
func Connect(url, subject string, logger logrus.FieldLogger) (*Notifier, func(), error) {
	nc, err := nats.Connect(url, nats.Name("downlog"))
	if err != nil {
		return nil, nil, fmt.Errorf("connect to nats at %s: %w", url, err)
	}

	closeFn := func() {
		if err := nc.Flush(); err != nil && logger != nil {
			logger.WithError(err).Warn("Failed to flush outcome events")
		}
		nc.Close()
	}
	return New(nc, subject, logger), closeFn, nil
}
