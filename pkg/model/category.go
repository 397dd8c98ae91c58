// Package model defines the canonical, schema-independent records captured
// from a device before and after an upgrade.
package model

import "fmt"

// Phase identifies when a snapshot was taken relative to the upgrade.
type Phase string

const (
	PhasePrecheck  Phase = "precheck"
	PhasePostcheck Phase = "postcheck"
)

// ParsePhase validates a phase name.
func ParsePhase(s string) (Phase, error) {
	switch Phase(s) {
	case PhasePrecheck, PhasePostcheck:
		return Phase(s), nil
	}
	return "", fmt.Errorf("unknown phase %q (want precheck or postcheck)", s)
}

// Category names one record set within a snapshot.
type Category string

const (
	CategoryVersion          Category = "version"
	CategoryBGP              Category = "bgp"
	CategoryApplications     Category = "applications"
	CategoryNetworkInstances Category = "network-instances"
	CategoryInterfaces       Category = "interfaces"
	CategoryFans             Category = "fans"
	CategoryPower            Category = "power"
	CategoryControl          Category = "control"
	CategoryLinecards        Category = "linecards"
	CategoryARP              Category = "arp"
	CategoryMAC              Category = "mac"
	CategoryTunnels          Category = "tunnels"
	CategoryPorts            Category = "ports"
)

// Categories is the fixed, total category set in report order. Every
// snapshot carries all of them.
var Categories = []Category{
	CategoryVersion,
	CategoryBGP,
	CategoryApplications,
	CategoryNetworkInstances,
	CategoryInterfaces,
	CategoryFans,
	CategoryPower,
	CategoryControl,
	CategoryLinecards,
	CategoryARP,
	CategoryMAC,
	CategoryTunnels,
	CategoryPorts,
}

// Diffable reports whether a category takes part in the before/after
// comparison. Port health verdicts are stored for reference only; physical
// port state is already compared through the interfaces category.
func (c Category) Diffable() bool {
	return c != CategoryPorts
}

// Title is the human label used in reports.
func (c Category) Title() string {
	switch c {
	case CategoryVersion:
		return "software version"
	case CategoryBGP:
		return "BGP peer status"
	case CategoryApplications:
		return "app status"
	case CategoryNetworkInstances:
		return "network instance status"
	case CategoryInterfaces:
		return "port status"
	case CategoryFans:
		return "fan status"
	case CategoryPower:
		return "power status"
	case CategoryControl:
		return "control card status"
	case CategoryLinecards:
		return "linecard status"
	case CategoryARP:
		return "dynamic ARP entries"
	case CategoryMAC:
		return "dynamic MAC entries"
	case CategoryTunnels:
		return "VXLAN tunnel entries"
	case CategoryPorts:
		return "port health"
	}
	return string(c)
}

// ParseCategory validates a category name.
func ParseCategory(s string) (Category, error) {
	for _, c := range Categories {
		if string(c) == s {
			return c, nil
		}
	}
	return "", fmt.Errorf("unknown category %q", s)
}
