// Package uplink decides which access ports are drained before an upgrade.
package uplink

import (
	"github.com/newtron-network/newtgrade/pkg/model"
	"github.com/newtron-network/newtgrade/pkg/util"
)

// NonAccess lists name fragments of interfaces that are never shut down.
var NonAccess = []string{"irb", "lo", "system", "mgmt"}

// Classify builds the shutdown plan for host. A port is an uplink when its
// name equals the base name of any interface in the default network
// instance. Every other port that is up and not an irb, loopback, system or
// management interface is scheduled for shutdown, in interface order.
func Classify(host string, interfaces *model.InterfaceStatus, defaultInstanceInterfaces []string) *model.ShutdownPlan {
	uplinks := make(map[string]bool, len(defaultInstanceInterfaces))
	for _, name := range defaultInstanceInterfaces {
		uplinks[util.BaseInterfaceName(name)] = true
	}

	plan := &model.ShutdownPlan{Host: host, Ports: []string{}}
	interfaces.Each(func(name string, st model.InterfaceState) bool {
		switch {
		case st.OperState != "up":
		case uplinks[name]:
			util.WithField("interface", name).Debug("Uplink, keeping in service")
		case util.ContainsAny(name, NonAccess...):
		default:
			plan.Ports = append(plan.Ports, name)
		}
		return true
	})
	return plan
}
