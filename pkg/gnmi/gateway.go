// Package gnmi is the telemetry gateway: path-addressed get/set against a
// network device over gNMI, with responses rendered as JSON documents.
package gnmi

import (
	"context"
	"time"
)

// Response is a raw get result rendered as a JSON document of the form
//
//	{"notification":[{"timestamp":...,"update":[{"path":"...","val":...}]}]}
type Response []byte

// Getter reads device state.
type Getter interface {
	Get(ctx context.Context, path string) (Response, error)
}

// Setter applies a single path/value configuration update.
type Setter interface {
	Set(ctx context.Context, path string, update map[string]any) (Ack, error)
}

// Gateway combines read and write access to one device.
type Gateway interface {
	Getter
	Setter
}

// Outcome classifies a configuration mutation.
type Outcome string

const (
	// OutcomeApplied means the device acknowledged the update.
	OutcomeApplied Outcome = "applied"
	// OutcomeRejected means the device answered and refused the update.
	OutcomeRejected Outcome = "rejected"
	// OutcomeUnknown means no answer was received (timeout, transport loss);
	// the update may or may not have been applied.
	OutcomeUnknown Outcome = "unknown"
)

// Ack is the explicit result of a Set.
type Ack struct {
	Path      string         `json:"path"`
	Update    map[string]any `json:"update"`
	Outcome   Outcome        `json:"outcome"`
	Timestamp time.Time      `json:"timestamp"`
	Message   string         `json:"message,omitempty"`
}

// Applied reports whether the device acknowledged the update.
func (a Ack) Applied() bool {
	return a.Outcome == OutcomeApplied
}
