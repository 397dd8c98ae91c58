// Package upgrade drives the operator-gated drain and restore sequence
// around a switch software upgrade.
//
// Three independent entry points share one device connection and one
// snapshot store:
//
//	Precheck   capture state, probe ports, save, enter maintenance, shut access ports
//	Postcheck  capture state, probe ports, save, diff against precheck
//	Restore    exit maintenance, re-enable the ports shut during precheck
package upgrade

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/newtron-network/newtgrade/pkg/audit"
	"github.com/newtron-network/newtgrade/pkg/gnmi"
	"github.com/newtron-network/newtgrade/pkg/store"
	"github.com/newtron-network/newtgrade/pkg/util"
)

// Confirmer asks the operator to approve a mutating step.
type Confirmer interface {
	Confirm(prompt string) (bool, error)
}

// ConfirmFunc adapts a function to Confirmer.
type ConfirmFunc func(prompt string) (bool, error)

// Confirm calls f.
func (f ConfirmFunc) Confirm(prompt string) (bool, error) { return f(prompt) }

// Options tunes one orchestrator run.
type Options struct {
	Host             string
	User             string
	SettleInterval   time.Duration
	Parallelism      int
	MaintenanceGroup string

	// Overwrite lets Precheck replace a saved precheck for the host.
	Overwrite bool
}

// Orchestrator runs the upgrade phases against one device.
type Orchestrator struct {
	Gateway   gnmi.Gateway
	Store     *store.Store
	Confirmer Confirmer
	Auditor   audit.Logger
	Options   Options

	now func() time.Time
}

// New creates an orchestrator. A nil auditor discards audit events.
func New(gw gnmi.Gateway, st *store.Store, confirm Confirmer, auditor audit.Logger, opts Options) *Orchestrator {
	if auditor == nil {
		auditor = audit.Discard
	}
	if opts.MaintenanceGroup == "" {
		opts.MaintenanceGroup = gnmi.DefaultMaintenanceGroup
	}
	if opts.Parallelism < 1 {
		opts.Parallelism = 1
	}
	return &Orchestrator{
		Gateway:   gw,
		Store:     st,
		Confirmer: confirm,
		Auditor:   auditor,
		Options:   opts,
		now:       time.Now,
	}
}

func (o *Orchestrator) log(phase string) *logrus.Entry {
	return util.WithPhase(o.Options.Host, phase)
}

// gate asks for confirmation. A declined gate is logged and reported as
// false; an error from the confirmer aborts the phase.
func (o *Orchestrator) gate(phase, prompt string) (bool, error) {
	ok, err := o.Confirmer.Confirm(prompt)
	if err != nil {
		return false, fmt.Errorf("confirmation: %w", err)
	}
	if !ok {
		o.log(phase).Warnf("Declined: %s", prompt)
	}
	return ok, nil
}

// mutate sends one configuration update and records it in the audit log.
// The returned error is non-nil whenever the device did not apply the
// update.
func (o *Orchestrator) mutate(ctx context.Context, phase string, op audit.Operation, iface, path string, update map[string]any) (gnmi.Ack, error) {
	start := time.Now()
	ack, err := o.Gateway.Set(ctx, path, update)
	if ack.Path == "" {
		ack = gnmi.Ack{Path: path, Update: update, Outcome: gnmi.OutcomeUnknown, Timestamp: start}
	}
	if err == nil && !ack.Applied() {
		err = util.NewGatewayError("set", path, fmt.Errorf("%s: %s", ack.Outcome, ack.Message))
	}

	event := audit.NewEvent(o.Options.User, o.Options.Host, phase, op).
		WithInterface(iface).
		WithRequest(path, update).
		WithOutcome(string(ack.Outcome), err).
		WithDuration(time.Since(start))
	if lerr := o.Auditor.Log(event); lerr != nil {
		o.log(phase).Warnf("audit log: %v", lerr)
	}

	log := o.log(phase).WithField("path", path)
	if err != nil {
		log.WithField("outcome", ack.Outcome).Errorf("Set failed: %v", err)
		return ack, err
	}
	log.Infof("Set %v", update)
	return ack, nil
}
