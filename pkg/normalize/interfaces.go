package normalize

import (
	"github.com/tidwall/gjson"

	"github.com/newtron-network/newtgrade/pkg/model"
	"github.com/newtron-network/newtgrade/pkg/util"
)

// ManagementSubinterface never contributes ARP entries.
const ManagementSubinterface = "mgmt0.0"

// Interfaces maps interface name to description and oper-state, in the
// order the device reported them.
func Interfaces(payload gjson.Result) (*model.InterfaceStatus, error) {
	items, err := list(model.CategoryInterfaces, payload)
	if err != nil {
		return nil, err
	}
	status := model.NewOrderedMap[model.InterfaceState]()
	for _, it := range items {
		st := model.InterfaceState{OperState: enum(child(it, "oper-state"))}
		if d := child(it, "description"); d.Exists() {
			st.Description = d.String()
		}
		status.Set(child(it, "name").String(), st)
	}
	return status, nil
}

// ARP collects dynamic IPv4 neighbors per subinterface from the /interface
// response. Only subinterfaces with an ARP neighbor list get an entry.
func ARP(payload gjson.Result) (*model.ArpTable, error) {
	items, err := list(model.CategoryARP, payload)
	if err != nil {
		return nil, err
	}
	table := model.NewOrderedMap[[]model.Pair]()
	for _, it := range items {
		for _, sub := range elements(child(it, "subinterface")) {
			name := child(sub, "name").String()
			if name == ManagementSubinterface {
				continue
			}
			neighbors := elements(child(child(child(sub, "ipv4"), "arp"), "neighbor"))
			if len(neighbors) == 0 {
				continue
			}
			pairs := []model.Pair{}
			for _, n := range neighbors {
				if enum(child(n, "origin")) != "dynamic" {
					continue
				}
				pairs = append(pairs, model.Pair{
					Key:   child(n, "ipv4-address").String(),
					Value: child(n, "link-layer-address").String(),
				})
			}
			table.Set(name, pairs)
		}
	}
	return table, nil
}

// DefaultInstanceInterfaces returns the subinterface names bound to the
// default network instance.
func DefaultInstanceInterfaces(payload gjson.Result) ([]string, error) {
	items, err := list(model.CategoryNetworkInstances, payload)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(items))
	for _, it := range items {
		if n := child(it, "name").String(); n != "" {
			names = append(names, n)
		}
	}
	return names, nil
}

// MAC collects learnt MAC entries for every mac-vrf holding at least one.
func MAC(payload gjson.Result) (*model.MacTable, error) {
	items, err := list(model.CategoryMAC, payload)
	if err != nil {
		return nil, err
	}
	table := model.NewOrderedMap[[]model.Pair]()
	for _, svc := range items {
		if enum(child(svc, "type")) != "mac-vrf" {
			continue
		}
		learnt := child(child(child(svc, "bridge-table"), "mac-learning"), "learnt-entries")
		macs := elements(child(learnt, "mac"))
		if len(macs) == 0 {
			continue
		}
		pairs := make([]model.Pair, 0, len(macs))
		for _, m := range macs {
			pairs = append(pairs, model.Pair{
				Key:   child(m, "address").String(),
				Value: child(m, "destination").String(),
			})
		}
		table.Set(child(svc, "name").String(), pairs)
	}
	return table, nil
}

// Tunnels returns the VTEP addresses. Nodes without VTEPs (spines, leaves
// without EVPN) produce an empty list.
func Tunnels(payload gjson.Result) model.TunnelEndpoints {
	eps := model.TunnelEndpoints{}
	vteps := child(payload, "vtep")
	if !vteps.Exists() {
		vteps = child(child(payload, "vxlan-tunnel"), "vtep")
	}
	for _, v := range elements(vteps) {
		if a := child(v, "address").String(); a != "" {
			eps = append(eps, a)
		}
	}
	if len(eps) == 0 {
		util.WithCategory(string(model.CategoryTunnels)).Info("No VTEPs found; expected on spines and non-EVPN leaves")
	}
	return eps
}
