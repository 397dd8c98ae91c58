package upgrade

import (
	"context"
	"errors"
	"fmt"

	"github.com/sourcegraph/conc/pool"
	"github.com/tidwall/gjson"

	"github.com/newtron-network/newtgrade/pkg/gnmi"
	"github.com/newtron-network/newtgrade/pkg/health"
	"github.com/newtron-network/newtgrade/pkg/model"
	"github.com/newtron-network/newtgrade/pkg/normalize"
	"github.com/newtron-network/newtgrade/pkg/util"
)

// snapshotPaths are queried for every capture, in this order.
var snapshotPaths = []string{
	gnmi.PathVersion,
	gnmi.PathBGPNeighbors,
	gnmi.PathApplications,
	gnmi.PathNetworkInstances,
	gnmi.PathInterfaces,
	gnmi.PathFans,
	gnmi.PathPowerSupplies,
	gnmi.PathControlCards,
	gnmi.PathLinecards,
	gnmi.PathTunnels,
}

// capture is the normalized state of one phase.
type capture struct {
	snapshot *model.Snapshot
	health   *health.Report
	// defaults holds the default-instance subinterfaces; only fetched
	// when extra includes that path.
	defaults []string
}

// fetch gets every path through a bounded pool. The first gateway failure
// cancels the remaining requests and is returned.
func (o *Orchestrator) fetch(ctx context.Context, paths []string) (map[string]gjson.Result, error) {
	raw := make([]gnmi.Response, len(paths))
	p := pool.New().
		WithMaxGoroutines(o.Options.Parallelism).
		WithContext(ctx).
		WithCancelOnError().
		WithFirstError()
	for i, path := range paths {
		p.Go(func(ctx context.Context) error {
			r, err := o.Gateway.Get(ctx, path)
			if err != nil {
				return err
			}
			raw[i] = r
			return nil
		})
	}
	if err := p.Wait(); err != nil {
		return nil, err
	}

	payloads := make(map[string]gjson.Result, len(paths))
	for i, path := range paths {
		util.WithField("path", path).Debugf("raw response: %s", raw[i])
		payload, ok := normalize.Unwrap(raw[i])
		if !ok {
			util.WithField("path", path).Debug("response carried no data")
		}
		payloads[path] = payload
	}
	return payloads, nil
}

// capture fetches, normalizes and probes the device. Categories without
// data are marked missing on the snapshot; any gateway failure aborts.
func (o *Orchestrator) capture(ctx context.Context, phase model.Phase, extra ...string) (*capture, error) {
	log := o.log(string(phase))
	log.Info("Collecting device state")

	paths := append(append([]string{}, snapshotPaths...), extra...)
	payloads, err := o.fetch(ctx, paths)
	if err != nil {
		return nil, err
	}

	snap := model.NewSnapshot(o.Options.Host, phase, o.now())
	missing := func(c model.Category, err error) bool {
		if err == nil {
			return false
		}
		snap.MarkMissing(c)
		log.WithField("category", string(c)).Warnf("Recording empty: %v", err)
		return true
	}

	if v, err := normalize.Version(payloads[gnmi.PathVersion]); !missing(model.CategoryVersion, err) {
		snap.Version = v
	}
	encoding := normalize.EncodingForVersion(snap.Version)
	log.Debugf("Using %s BGP encoding for %q", encoding, snap.Version)
	if r, err := encoding.Peers(payloads[gnmi.PathBGPNeighbors]); !missing(model.CategoryBGP, err) {
		snap.BGP = r
	}
	if r, err := normalize.Applications(payloads[gnmi.PathApplications]); !missing(model.CategoryApplications, err) {
		snap.Applications = r
	}
	if r, err := normalize.NetworkInstances(payloads[gnmi.PathNetworkInstances]); !missing(model.CategoryNetworkInstances, err) {
		snap.NetworkInstances = r
	}
	if r, err := normalize.Interfaces(payloads[gnmi.PathInterfaces]); !missing(model.CategoryInterfaces, err) {
		snap.Interfaces = r
	}
	if r, err := normalize.Fans(payloads[gnmi.PathFans]); !missing(model.CategoryFans, err) {
		snap.Fans = r
	}
	if r, err := normalize.PowerSupplies(payloads[gnmi.PathPowerSupplies]); !missing(model.CategoryPower, err) {
		snap.Power = r
	}
	if r, err := normalize.ControlCards(payloads[gnmi.PathControlCards]); !missing(model.CategoryControl, err) {
		snap.Control = r
	}
	if r, err := normalize.Linecards(payloads[gnmi.PathLinecards]); !missing(model.CategoryLinecards, err) {
		snap.Linecards = r
	}
	if r, err := normalize.ARP(payloads[gnmi.PathInterfaces]); !missing(model.CategoryARP, err) {
		snap.ARP = r
	}
	if r, err := normalize.MAC(payloads[gnmi.PathNetworkInstances]); !missing(model.CategoryMAC, err) {
		snap.MAC = r
	}
	snap.Tunnels = normalize.Tunnels(payloads[gnmi.PathTunnels])

	c := &capture{snapshot: snap}
	for _, path := range extra {
		if path != gnmi.PathDefaultInstanceInterfaces {
			continue
		}
		if c.defaults, err = normalize.DefaultInstanceInterfaces(payloads[path]); err != nil {
			return nil, util.NewPreconditionError(string(phase), o.Options.Host,
				"default network-instance interfaces are readable",
				fmt.Sprintf("cannot tell uplinks from access ports: %v", err))
		}
	}

	prober := health.NewProber(o.Gateway, o.Options.Host)
	if o.Options.SettleInterval > 0 {
		prober.Interval = o.Options.SettleInterval
	}
	log.Info("Checking ports for flaps and incrementing errors")
	report, err := prober.Probe(ctx)
	switch {
	case errors.Is(err, util.ErrMissingData):
		missing(model.CategoryPorts, err)
		return c, nil
	case err != nil:
		return nil, fmt.Errorf("port probe: %w", err)
	}
	c.health = report
	snap.Ports = report.Verdicts()
	if unstable := report.Unstable(); len(unstable) > 0 {
		for _, port := range unstable {
			log.WithField("interface", port).Warn("Port is flapping or errors are incrementing")
		}
	} else {
		log.Info("No issues found with port errors or flaps")
	}
	return c, nil
}
