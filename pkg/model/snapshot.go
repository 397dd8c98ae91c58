package model

import (
	"encoding/json"
	"fmt"
	"time"
)

// Document names used alongside the category documents of a snapshot.
const (
	MetaDocument = "snapshot"
	PlanDocument = "shutdown-plan"
)

// Snapshot is the complete set of canonical records for one host at one
// phase. Every category is always present; a category whose telemetry came
// back empty is listed in Missing and holds an empty record.
type Snapshot struct {
	Host       string
	Phase      Phase
	CapturedAt time.Time
	Missing    []Category

	Version          VersionInfo
	BGP              *BgpPeerStatus
	Applications     *StateTable
	NetworkInstances *StateTable
	Interfaces       *InterfaceStatus
	Fans             *StateTable
	Power            *StateTable
	Control          *CardTable
	Linecards        *CardTable
	ARP              *ArpTable
	MAC              *MacTable
	Tunnels          TunnelEndpoints
	Ports            *PortHealthVerdict
}

// snapshotMeta is the self-describing header persisted with each snapshot.
type snapshotMeta struct {
	Host       string     `json:"hostname"`
	Phase      Phase      `json:"phase"`
	CapturedAt time.Time  `json:"captured-at"`
	Missing    []Category `json:"missing,omitempty"`
}

// NewSnapshot returns a snapshot with every category initialised empty.
func NewSnapshot(host string, phase Phase, at time.Time) *Snapshot {
	return &Snapshot{
		Host:             host,
		Phase:            phase,
		CapturedAt:       at,
		BGP:              NewOrderedMap[BgpPeer](),
		Applications:     NewOrderedMap[string](),
		NetworkInstances: NewOrderedMap[string](),
		Interfaces:       NewOrderedMap[InterfaceState](),
		Fans:             NewOrderedMap[string](),
		Power:            NewOrderedMap[string](),
		Control:          NewOrderedMap[CardState](),
		Linecards:        NewOrderedMap[CardState](),
		ARP:              NewOrderedMap[[]Pair](),
		MAC:              NewOrderedMap[[]Pair](),
		Tunnels:          TunnelEndpoints{},
		Ports:            NewOrderedMap[PortVerdict](),
	}
}

// MarkMissing records that a category had no data.
func (s *Snapshot) MarkMissing(c Category) {
	if !s.IsMissing(c) {
		s.Missing = append(s.Missing, c)
	}
}

// IsMissing reports whether a category had no data when captured.
func (s *Snapshot) IsMissing(c Category) bool {
	for _, m := range s.Missing {
		if m == c {
			return true
		}
	}
	return false
}

// record returns a pointer to the field holding category c. The pointer is
// used both to marshal and to decode in place.
func (s *Snapshot) record(c Category) (any, error) {
	switch c {
	case CategoryVersion:
		return &s.Version, nil
	case CategoryBGP:
		return s.BGP, nil
	case CategoryApplications:
		return s.Applications, nil
	case CategoryNetworkInstances:
		return s.NetworkInstances, nil
	case CategoryInterfaces:
		return s.Interfaces, nil
	case CategoryFans:
		return s.Fans, nil
	case CategoryPower:
		return s.Power, nil
	case CategoryControl:
		return s.Control, nil
	case CategoryLinecards:
		return s.Linecards, nil
	case CategoryARP:
		return s.ARP, nil
	case CategoryMAC:
		return s.MAC, nil
	case CategoryTunnels:
		return &s.Tunnels, nil
	case CategoryPorts:
		return s.Ports, nil
	}
	return nil, fmt.Errorf("unknown category %q", c)
}

// Document returns category c as a host-keyed JSON document,
// e.g. {"leaf1": {"app-a": "running"}}.
func (s *Snapshot) Document(c Category) ([]byte, error) {
	rec, err := s.record(c)
	if err != nil {
		return nil, err
	}
	return HostDocument(s.Host, rec)
}

// Documents returns every category document plus the snapshot header,
// keyed by document name.
func (s *Snapshot) Documents() (map[string][]byte, error) {
	docs := make(map[string][]byte, len(Categories)+1)
	for _, c := range Categories {
		data, err := s.Document(c)
		if err != nil {
			return nil, fmt.Errorf("encoding %s: %w", c, err)
		}
		docs[string(c)] = data
	}
	meta, err := json.MarshalIndent(snapshotMeta{
		Host:       s.Host,
		Phase:      s.Phase,
		CapturedAt: s.CapturedAt,
		Missing:    s.Missing,
	}, "", "  ")
	if err != nil {
		return nil, err
	}
	docs[MetaDocument] = meta
	return docs, nil
}

// DecodeSnapshot rebuilds a snapshot from its persisted documents. read is
// called once per document name and should return the store's not-found
// error for absent documents.
func DecodeSnapshot(host string, phase Phase, read func(name string) ([]byte, error)) (*Snapshot, error) {
	metaData, err := read(MetaDocument)
	if err != nil {
		return nil, err
	}
	var meta snapshotMeta
	if err := json.Unmarshal(metaData, &meta); err != nil {
		return nil, fmt.Errorf("decoding snapshot header: %w", err)
	}
	if meta.Host != host || meta.Phase != phase {
		return nil, fmt.Errorf("snapshot header is for %s/%s, want %s/%s", meta.Host, meta.Phase, host, phase)
	}

	s := NewSnapshot(host, phase, meta.CapturedAt)
	s.Missing = meta.Missing
	for _, c := range Categories {
		data, err := read(string(c))
		if err != nil {
			return nil, fmt.Errorf("reading %s: %w", c, err)
		}
		rec, _ := s.record(c)
		if err := DecodeHostDocument(host, data, rec); err != nil {
			return nil, fmt.Errorf("decoding %s: %w", c, err)
		}
	}
	if s.Tunnels == nil {
		s.Tunnels = TunnelEndpoints{}
	}
	return s, nil
}

// HostDocument wraps v as {"<host>": v}.
func HostDocument(host string, v any) ([]byte, error) {
	body, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return json.Marshal(map[string]json.RawMessage{host: body})
}

// DecodeHostDocument extracts the host entry of a host-keyed document into v.
func DecodeHostDocument(host string, data []byte, v any) error {
	var doc map[string]json.RawMessage
	if err := json.Unmarshal(data, &doc); err != nil {
		return err
	}
	body, ok := doc[host]
	if !ok {
		return fmt.Errorf("document has no entry for %s", host)
	}
	return json.Unmarshal(body, v)
}

// EncodePlan returns the plan as {"<host>": ["ethernet1/5", ...]}.
func EncodePlan(p *ShutdownPlan) ([]byte, error) {
	ports := p.Ports
	if ports == nil {
		ports = []string{}
	}
	return HostDocument(p.Host, ports)
}

// DecodePlan reads a plan document for host.
func DecodePlan(host string, data []byte) (*ShutdownPlan, error) {
	p := &ShutdownPlan{Host: host}
	if err := DecodeHostDocument(host, data, &p.Ports); err != nil {
		return nil, fmt.Errorf("decoding shutdown plan: %w", err)
	}
	return p, nil
}
