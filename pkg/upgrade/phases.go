package upgrade

import (
	"context"
	"fmt"
	"strings"

	"github.com/newtron-network/newtgrade/pkg/audit"
	"github.com/newtron-network/newtgrade/pkg/diff"
	"github.com/newtron-network/newtgrade/pkg/gnmi"
	"github.com/newtron-network/newtgrade/pkg/health"
	"github.com/newtron-network/newtgrade/pkg/model"
	"github.com/newtron-network/newtgrade/pkg/store"
	"github.com/newtron-network/newtgrade/pkg/uplink"
	"github.com/newtron-network/newtgrade/pkg/util"
)

// PhaseRestore labels restore steps in logs and audit events.
const PhaseRestore = "restore"

// Gate names reported in Declined.
const (
	GateMaintenanceEnter = "maintenance-enter"
	GatePortShutdown     = "port-shutdown"
	GateMaintenanceExit  = "maintenance-exit"
)

// PrecheckResult is everything a precheck observed and changed.
type PrecheckResult struct {
	Snapshot    *model.Snapshot
	Health      *health.Report
	Plan        *model.ShutdownPlan
	Maintenance *gnmi.Ack
	Shutdown    []gnmi.Ack
	Declined    []string
}

// PostcheckResult is the captured postcheck state and its comparison with
// the precheck snapshot.
type PostcheckResult struct {
	Snapshot *model.Snapshot
	Health   *health.Report
	Reports  []*diff.Report
}

// RestoreResult lists the mutations made while restoring.
type RestoreResult struct {
	Plan        *model.ShutdownPlan
	Maintenance *gnmi.Ack
	Enabled     []gnmi.Ack
	Declined    []string
}

// Precheck captures and saves the pre-upgrade state, then offers to drain
// the device: enter BGP maintenance mode and shut down the access ports.
// Nothing is changed on the device until the snapshot and plan are saved.
//
// A saved precheck is never replaced unless Options.Overwrite is set. When
// it is, ports from the earlier plan are carried into the new one so that
// Restore still re-enables ports the earlier run shut down.
func (o *Orchestrator) Precheck(ctx context.Context) (*PrecheckResult, error) {
	phase := string(model.PhasePrecheck)
	previous, err := o.Store.LoadPlan(ctx, o.Options.Host)
	switch {
	case err == nil && !o.Options.Overwrite:
		return nil, util.NewPreconditionError(phase, o.Options.Host, "no saved precheck",
			"a precheck is already saved; overwrite it explicitly to recapture")
	case err != nil && !store.IsNotFound(err):
		return nil, err
	}

	c, err := o.capture(ctx, model.PhasePrecheck, gnmi.PathDefaultInstanceInterfaces)
	if err != nil {
		return nil, err
	}

	plan := uplink.Classify(o.Options.Host, c.snapshot.Interfaces, c.defaults)
	if previous != nil {
		plan.Ports = mergePorts(previous.Ports, plan.Ports)
		o.log(phase).Warnf("Overwriting saved precheck; keeping %d previously planned ports", len(previous.Ports))
	}
	res := &PrecheckResult{
		Snapshot: c.snapshot,
		Health:   c.health,
		Plan:     plan,
	}
	if err := o.Store.SaveSnapshot(ctx, c.snapshot, res.Plan); err != nil {
		return res, err
	}

	group := o.Options.MaintenanceGroup
	ok, err := o.gate(phase, fmt.Sprintf("Put %s into BGP maintenance mode (group %s)?", o.Options.Host, group))
	if err != nil {
		return res, err
	}
	if ok {
		ack, err := o.mutate(ctx, phase, audit.OpMaintenanceEnter, "", gnmi.MaintenanceModePath(group), gnmi.AdminState(true))
		res.Maintenance = &ack
		if err != nil {
			return res, err
		}
	} else {
		res.Declined = append(res.Declined, GateMaintenanceEnter)
	}

	if len(res.Plan.Ports) == 0 {
		o.log(phase).Info("No access ports to shut down")
		return res, nil
	}
	ok, err = o.gate(phase, fmt.Sprintf("Shut down %d access ports on %s (%s)?",
		len(res.Plan.Ports), o.Options.Host, strings.Join(res.Plan.Ports, ", ")))
	if err != nil {
		return res, err
	}
	if !ok {
		res.Declined = append(res.Declined, GatePortShutdown)
		o.log(phase).Info("Data has been saved for the upgrade; ports left up")
		return res, nil
	}
	for _, port := range res.Plan.Ports {
		ack, err := o.mutate(ctx, phase, audit.OpPortDisable, port, gnmi.InterfacePath(port), gnmi.AdminState(false))
		res.Shutdown = append(res.Shutdown, ack)
		if err != nil {
			return res, err
		}
	}
	return res, nil
}

// Postcheck captures and saves the post-upgrade state and compares it with
// the precheck snapshot.
func (o *Orchestrator) Postcheck(ctx context.Context) (*PostcheckResult, error) {
	c, err := o.capture(ctx, model.PhasePostcheck)
	if err != nil {
		return nil, err
	}
	res := &PostcheckResult{Snapshot: c.snapshot, Health: c.health}
	if err := o.Store.SaveSnapshot(ctx, c.snapshot, nil); err != nil {
		return res, err
	}

	before, err := o.Store.LoadSnapshot(ctx, o.Options.Host, model.PhasePrecheck)
	if err != nil {
		return res, o.precondition(string(model.PhasePostcheck), "precheck snapshot exists", err)
	}
	res.Reports = diff.CompareSnapshots(before, c.snapshot)
	return res, nil
}

// Restore brings the device back into service: exit BGP maintenance mode
// and re-enable every port the precheck shut down. The saved plan is read
// before anything is changed.
func (o *Orchestrator) Restore(ctx context.Context) (*RestoreResult, error) {
	plan, err := o.Store.LoadPlan(ctx, o.Options.Host)
	if err != nil {
		return nil, o.precondition(PhaseRestore, "precheck shutdown plan exists", err)
	}
	res := &RestoreResult{Plan: plan}

	group := o.Options.MaintenanceGroup
	ok, err := o.gate(PhaseRestore, fmt.Sprintf("Take %s out of BGP maintenance mode (group %s)?", o.Options.Host, group))
	if err != nil {
		return res, err
	}
	if ok {
		ack, err := o.mutate(ctx, PhaseRestore, audit.OpMaintenanceExit, "", gnmi.MaintenanceModePath(group), gnmi.AdminState(false))
		res.Maintenance = &ack
		if err != nil {
			return res, err
		}
	} else {
		res.Declined = append(res.Declined, GateMaintenanceExit)
	}

	o.log(PhaseRestore).Infof("Re-enabling %d ports saved before the upgrade", len(plan.Ports))
	for _, port := range plan.Ports {
		ack, err := o.mutate(ctx, PhaseRestore, audit.OpPortEnable, port, gnmi.InterfacePath(port), gnmi.AdminState(true))
		res.Enabled = append(res.Enabled, ack)
		if err != nil {
			return res, err
		}
	}
	return res, nil
}

// precondition turns a store miss into a PreconditionError telling the
// operator to run precheck first. Other store errors pass through.
func (o *Orchestrator) precondition(phase, what string, err error) error {
	if !store.IsNotFound(err) {
		return err
	}
	return util.NewPreconditionError(phase, o.Options.Host, what, "run precheck first: "+err.Error())
}

// mergePorts returns a followed by the ports of b not already in a.
func mergePorts(a, b []string) []string {
	out := append([]string{}, a...)
	seen := make(map[string]bool, len(a))
	for _, p := range a {
		seen[p] = true
	}
	for _, p := range b {
		if !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}
	return out
}
