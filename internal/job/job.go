// Package job defines the archive jobs an operator can submit and the request
// bodies sent for them.
package job

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Kind identifies a job type.
type Kind string

const (
	Catalina Kind = "catalina"
	Universe Kind = "universe"
	Scaners  Kind = "scaners"
	Custom   Kind = "custom"
)

// Endpoints of the node API, relative to a node's base URL.
const (
	CatalinaEndpoint = "/api/catalina"
	UniverseEndpoint = "/api/universe"
	ScanersEndpoint  = "/api/scaners"
)

// Input errors are detected before any request is sent.
var (
	ErrMissingInput = errors.New("missing required input")
	ErrInvalidInput = errors.New("invalid input")
)

// dateLayout is the form a date is entered in.
const dateLayout = "2006-01-02"

// wireLayout is RFC 3339 with millisecond precision; UTC renders as "Z".
const wireLayout = "2006-01-02T15:04:05.000Z07:00"

// Job is one logical unit of work: an endpoint and the body posted to it.
// The same body is sent to every node.
type Job struct {
	Kind     Kind
	Endpoint string
	Body     any
}

// TimestampBody is the request body of catalina and universe jobs.
type TimestampBody struct {
	Timestamp string `json:"timestamp"`
}

// ScanBody is the request body of scaners jobs.
type ScanBody struct {
	ScanID string `json:"scanid"`
}

// ToRFC3339DateOnly converts a YYYY-MM-DD date to midnight UTC on that day,
// e.g. "2024-03-05" becomes "2024-03-05T00:00:00.000Z".
func ToRFC3339DateOnly(date string) (string, error) {
	date = strings.TrimSpace(date)
	if date == "" {
		return "", fmt.Errorf("%w: date", ErrMissingInput)
	}
	t, err := time.ParseInLocation(dateLayout, date, time.UTC)
	if err != nil {
		return "", fmt.Errorf("%w: date %q must be YYYY-MM-DD", ErrInvalidInput, date)
	}
	return t.Format(wireLayout), nil
}

// NewCatalina returns a catalina log job for the given date.
func NewCatalina(date string) (Job, error) {
	return newDated(Catalina, CatalinaEndpoint, date)
}

// NewUniverse returns a universe log job for the given date.
func NewUniverse(date string) (Job, error) {
	return newDated(Universe, UniverseEndpoint, date)
}

func newDated(kind Kind, endpoint, date string) (Job, error) {
	ts, err := ToRFC3339DateOnly(date)
	if err != nil {
		return Job{}, err
	}
	return Job{
		Kind:     kind,
		Endpoint: endpoint,
		Body:     TimestampBody{Timestamp: ts},
	}, nil
}

// NewScaners returns a scanner log job for the given scan ID.
func NewScaners(scanID string) (Job, error) {
	scanID = strings.TrimSpace(scanID)
	if scanID == "" {
		return Job{}, fmt.Errorf("%w: scan ID", ErrMissingInput)
	}
	return Job{
		Kind:     Scaners,
		Endpoint: ScanersEndpoint,
		Body:     ScanBody{ScanID: scanID},
	}, nil
}

// NewCustom returns a job for an arbitrary endpoint. body must be a JSON
// object; an empty body is sent as {}.
func NewCustom(endpoint string, body []byte) (Job, error) {
	endpoint = strings.TrimSpace(endpoint)
	if endpoint == "" {
		return Job{}, fmt.Errorf("%w: endpoint", ErrMissingInput)
	}
	if !strings.HasPrefix(endpoint, "/") {
		endpoint = "/" + endpoint
	}

	if len(strings.TrimSpace(string(body))) == 0 {
		body = []byte("{}")
	}
	var obj map[string]any
	if err := json.Unmarshal(body, &obj); err != nil {
		return Job{}, fmt.Errorf("%w: body must be a JSON object: %v", ErrInvalidInput, err)
	}
	if obj == nil {
		// null decodes into a nil map without error.
		return Job{}, fmt.Errorf("%w: body must be a JSON object, got null", ErrInvalidInput)
	}

	return Job{
		Kind:     Custom,
		Endpoint: endpoint,
		Body:     json.RawMessage(body),
	}, nil
}

// Name returns the job name used in saved file names and logs.
func (j Job) Name() string {
	if j.Kind != "" && j.Kind != Custom {
		return string(j.Kind)
	}
	return strings.Trim(strings.ReplaceAll(j.Endpoint, "/", "-"), "-")
}
