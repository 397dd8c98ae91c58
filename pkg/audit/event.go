// Package audit records every configuration change made to a device during
// the upgrade workflow.
package audit

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Operation names the kind of device mutation
type Operation string

const (
	OpMaintenanceEnter Operation = "maintenance.enter"
	OpMaintenanceExit  Operation = "maintenance.exit"
	OpPortDisable      Operation = "port.disable"
	OpPortEnable       Operation = "port.enable"
)

// Event represents one auditable device mutation
type Event struct {
	ID        string         `json:"id"`
	Timestamp time.Time      `json:"timestamp"`
	User      string         `json:"user"`
	Device    string         `json:"device"`
	Phase     string         `json:"phase"`
	Operation Operation      `json:"operation"`
	Interface string         `json:"interface,omitempty"`
	Path      string         `json:"path"`
	Update    map[string]any `json:"update,omitempty"`
	Outcome   string         `json:"outcome"`
	Success   bool           `json:"success"`
	Error     string         `json:"error,omitempty"`
	Duration  time.Duration  `json:"duration"`
}

// Filter defines criteria for querying audit events
type Filter struct {
	Device      string
	User        string
	Phase       string
	Operation   Operation
	Interface   string
	StartTime   time.Time
	EndTime     time.Time
	SuccessOnly bool
	FailureOnly bool
	Limit       int
	Offset      int
}

// Match reports whether event satisfies every set criterion.
func (f Filter) Match(event *Event) bool {
	switch {
	case f.Device != "" && event.Device != f.Device,
		f.User != "" && event.User != f.User,
		f.Phase != "" && event.Phase != f.Phase,
		f.Operation != "" && event.Operation != f.Operation,
		f.Interface != "" && event.Interface != f.Interface,
		!f.StartTime.IsZero() && event.Timestamp.Before(f.StartTime),
		!f.EndTime.IsZero() && event.Timestamp.After(f.EndTime),
		f.SuccessOnly && !event.Success,
		f.FailureOnly && event.Success:
		return false
	}
	return true
}

// page applies Offset and Limit to matched events.
func (f Filter) page(events []*Event) []*Event {
	if f.Offset > 0 {
		if f.Offset >= len(events) {
			return []*Event{}
		}
		events = events[f.Offset:]
	}
	if f.Limit > 0 && f.Limit < len(events) {
		events = events[:f.Limit]
	}
	return events
}

// ParseOperation validates an operation name.
func ParseOperation(s string) (Operation, error) {
	switch op := Operation(s); op {
	case OpMaintenanceEnter, OpMaintenanceExit, OpPortDisable, OpPortEnable:
		return op, nil
	}
	return "", fmt.Errorf("unknown operation %q (valid: %s, %s, %s, %s)",
		s, OpMaintenanceEnter, OpMaintenanceExit, OpPortDisable, OpPortEnable)
}

// NewEvent creates a new audit event
func NewEvent(user, device, phase string, op Operation) *Event {
	return &Event{
		ID:        uuid.NewString(),
		Timestamp: time.Now(),
		User:      user,
		Device:    device,
		Phase:     phase,
		Operation: op,
	}
}

// WithInterface sets the interface name
func (e *Event) WithInterface(iface string) *Event {
	e.Interface = iface
	return e
}

// WithRequest records the path and update body that were sent
func (e *Event) WithRequest(path string, update map[string]any) *Event {
	e.Path = path
	e.Update = update
	return e
}

// WithOutcome records the device's answer. Only "applied" counts as success.
func (e *Event) WithOutcome(outcome string, err error) *Event {
	e.Outcome = outcome
	e.Success = outcome == "applied" && err == nil
	if err != nil {
		e.Error = err.Error()
	}
	return e
}

// WithDuration sets the operation duration
func (e *Event) WithDuration(d time.Duration) *Event {
	e.Duration = d
	return e
}
