package model

// BgpPeer is the canonical per-peer BGP record. The three received-route
// counters are always populated; a family absent on the device reads as 0.
type BgpPeer struct {
	SessionState string `json:"session-state"`
	EvpnReceived int64  `json:"evpn-received-routes"`
	IPv4Received int64  `json:"ipv4-received-routes"`
	IPv6Received int64  `json:"ipv6-received-routes"`
}

// InterfaceState is the canonical per-interface record.
type InterfaceState struct {
	Description string `json:"description,omitempty"`
	OperState   string `json:"oper-state"`
}

// CardState describes a control card or linecard slot.
type CardState struct {
	CardType  string `json:"card-type"`
	OperState string `json:"oper-state"`
}

// PortCounters is one port's entry in a health sample.
type PortCounters struct {
	StateChange string `json:"state-change"`
	InErrors    uint64 `json:"in-errors"`
	OutErrors   uint64 `json:"out-errors"`
}

// PortVerdict is one port's stability result, stored with the counters from
// the first sample.
type PortVerdict struct {
	PortCounters
	Unstable bool `json:"unstable"`
}

type (
	// VersionInfo is the opaque software version string.
	VersionInfo string

	// BgpPeerStatus maps peer address to its session record.
	BgpPeerStatus = OrderedMap[BgpPeer]

	// InterfaceStatus maps interface name to its state, in device order.
	InterfaceStatus = OrderedMap[InterfaceState]

	// ArpTable maps subinterface name to its dynamic {ipv4: mac} pairs.
	ArpTable = OrderedMap[[]Pair]

	// MacTable maps mac-vrf name to its learnt {mac: destination} pairs.
	MacTable = OrderedMap[[]Pair]

	// StateTable maps an id or name to an operational state. Used for fans,
	// power supplies, applications and network instances.
	StateTable = OrderedMap[string]

	// CardTable maps a slot to its card record.
	CardTable = OrderedMap[CardState]

	// PortHealthSample maps port name to counters captured at one instant.
	PortHealthSample = OrderedMap[PortCounters]

	// PortHealthVerdict maps port name to its stability verdict.
	PortHealthVerdict = OrderedMap[PortVerdict]
)

// TunnelEndpoints lists VTEP addresses. It is never nil once normalized so
// that a role without VTEPs serialises as [] rather than null.
type TunnelEndpoints []string

// ShutdownPlan is the ordered list of access ports to quiesce before the
// upgrade and re-enable afterwards.
type ShutdownPlan struct {
	Host  string
	Ports []string
}
