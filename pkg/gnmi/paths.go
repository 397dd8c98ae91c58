package gnmi

import "fmt"

// SR Linux state paths queried for a snapshot.
const (
	PathVersion                   = "/system/information/version"
	PathApplications              = "/system/app-management/application"
	PathNetworkInstances          = "/network-instance"
	PathBGPNeighbors              = "/network-instance[name=default]/protocols/bgp/neighbor"
	PathInterfaces                = "/interface"
	PathFans                      = "/platform/fan-tray"
	PathPowerSupplies             = "/platform/power-supply"
	PathControlCards              = "/platform/control"
	PathLinecards                 = "/platform/linecard"
	PathTunnels                   = "/tunnel"
	PathDefaultInstanceInterfaces = "/network-instance[name=default]/interface"
)

// DefaultMaintenanceGroup is the maintenance group toggled around the upgrade.
const DefaultMaintenanceGroup = "ebgp-ipv4-maintenance"

// InterfacePath addresses one interface for configuration.
func InterfacePath(name string) string {
	return fmt.Sprintf("/interface[name=%s]", name)
}

// MaintenanceModePath addresses the maintenance-mode container of a group.
func MaintenanceModePath(group string) string {
	return fmt.Sprintf("/system/maintenance/group[name=%s]/maintenance-mode", group)
}

// AdminState builds the update body that enables or disables an object.
func AdminState(enable bool) map[string]any {
	if enable {
		return map[string]any{"admin-state": "enable"}
	}
	return map[string]any{"admin-state": "disable"}
}
