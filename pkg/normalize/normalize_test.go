package normalize

import (
	"encoding/json"
	"errors"
	"reflect"
	"testing"

	"github.com/tidwall/gjson"

	"github.com/newtron-network/newtgrade/pkg/model"
	"github.com/newtron-network/newtgrade/pkg/util"
)

// response wraps val the way the gateway encodes a get response.
func response(val string) []byte {
	return []byte(`{"notification":[{"timestamp":1,"update":[{"path":"x","val":` + val + `}]}]}`)
}

func payload(t *testing.T, val string) gjson.Result {
	t.Helper()
	p, ok := Unwrap(response(val))
	if !ok {
		t.Fatalf("Unwrap(%s) reported no data", val)
	}
	return p
}

func mustJSON(t *testing.T, v any) string {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return string(b)
}

func TestUnwrap(t *testing.T) {
	tests := []struct {
		name   string
		raw    []byte
		wantOK bool
		want   string
	}{
		{"single key mapping", response(`{"srl_nokia-interfaces:interface":[{"name":"ethernet1/1"}]}`), true, `[{"name":"ethernet1/1"}]`},
		{"string", response(`"v23.10.1"`), true, `v23.10.1`},
		{"empty string", response(`""`), false, ""},
		{"empty mapping", response(`{}`), false, ""},
		{"two keys", response(`{"a":1,"b":2}`), false, ""},
		{"number", response(`7`), false, ""},
		{"no update", []byte(`{"notification":[{"timestamp":1}]}`), false, ""},
		{"no notification", []byte(`{}`), false, ""},
		{"invalid json", []byte(`{"notification":`), false, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := Unwrap(tt.raw)
			if ok != tt.wantOK {
				t.Fatalf("ok = %v, want %v", ok, tt.wantOK)
			}
			if ok && got.String() != tt.want {
				t.Errorf("payload = %s, want %s", got.String(), tt.want)
			}
		})
	}
}

func TestEncodingForVersion(t *testing.T) {
	tests := []struct {
		name    string
		version string
		want    BGPEncoding
	}{
		{"v22 marker", "v22.11.2-184-g6a2e5a2e9d", EncodingLegacy},
		{"v22 short", "v22.6.4", EncodingLegacy},
		{"v21 predates afi-safi list", "v21.11.3-153-gf5e8a7c1b2", EncodingLegacy},
		{"bare 21", "21.11.3", EncodingLegacy},
		{"v23", "v23.10.1-218-ga3fc1bea5a", EncodingCurrent},
		{"v24", "v24.3.2", EncodingCurrent},
		{"unparseable", "unparseable", EncodingCurrent},
		{"empty", "", EncodingCurrent},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := EncodingForVersion(model.VersionInfo(tt.version)); got != tt.want {
				t.Errorf("EncodingForVersion(%q) = %v, want %v", tt.version, got, tt.want)
			}
		})
	}
}

const legacyNeighbor = `{"srl_nokia-bgp:neighbor":[{
	"peer-address":"10.0.0.1","session-state":"established",
	"evpn":{"received-routes":5},
	"ipv4-unicast":{"received-routes":10},
	"ipv6-unicast":{"received-routes":0}}]}`

const currentNeighbor = `{"srl_nokia-bgp:neighbor":[{
	"peer-address":"10.0.0.1","session-state":"established",
	"afi-safi":[
		{"afi-safi-name":"srl_nokia-common:evpn","received-routes":5},
		{"afi-safi-name":"srl_nokia-common:ipv4-unicast","received-routes":"10"}]}]}`

func TestPeers_SchemaConvergence(t *testing.T) {
	legacy, err := EncodingLegacy.Peers(payload(t, legacyNeighbor))
	if err != nil {
		t.Fatalf("legacy: %v", err)
	}
	current, err := EncodingCurrent.Peers(payload(t, currentNeighbor))
	if err != nil {
		t.Fatalf("current: %v", err)
	}

	want := model.BgpPeer{SessionState: "established", EvpnReceived: 5, IPv4Received: 10, IPv6Received: 0}
	for name, got := range map[string]*model.BgpPeerStatus{"legacy": legacy, "current": current} {
		p, ok := got.Get("10.0.0.1")
		if !ok {
			t.Fatalf("%s: peer missing", name)
		}
		if p != want {
			t.Errorf("%s: peer = %+v, want %+v", name, p, want)
		}
	}
	if mustJSON(t, legacy) != mustJSON(t, current) {
		t.Errorf("encodings diverge:\n%s\n%s", mustJSON(t, legacy), mustJSON(t, current))
	}
}

func TestPeers_MissingFamiliesReadZero(t *testing.T) {
	got, err := EncodingLegacy.Peers(payload(t, `{"neighbor":[{"peer-address":"fd00::1","session-state":"active"}]}`))
	if err != nil {
		t.Fatal(err)
	}
	p, _ := got.Get("fd00::1")
	if p != (model.BgpPeer{SessionState: "active"}) {
		t.Errorf("peer = %+v", p)
	}
}

func TestBuilders_MissingData(t *testing.T) {
	none := gjson.Result{}
	builders := map[string]func() error{
		"version":      func() error { _, err := Version(none); return err },
		"bgp":          func() error { _, err := EncodingCurrent.Peers(none); return err },
		"applications": func() error { _, err := Applications(none); return err },
		"interfaces":   func() error { _, err := Interfaces(none); return err },
		"arp":          func() error { _, err := ARP(none); return err },
		"mac":          func() error { _, err := MAC(none); return err },
		"fans":         func() error { _, err := Fans(none); return err },
		"linecards":    func() error { _, err := Linecards(none); return err },
		"ports":        func() error { _, _, err := PortHealth(none); return err },
	}
	for name, build := range builders {
		err := build()
		if !errors.Is(err, util.ErrMissingData) {
			t.Errorf("%s: err = %v, want ErrMissingData", name, err)
		}
		var mde *util.MissingDataError
		if errors.As(err, &mde) && mde.Category != name {
			t.Errorf("%s: error scoped to %q", name, mde.Category)
		}
	}
}

const interfacesPayload = `{"srl_nokia-interfaces:interface":[
	{"name":"ethernet1/1","description":"to spine1","admin-state":"enable","oper-state":"up",
	 "last-change":"2024-01-01T00:00:00.000Z",
	 "statistics":{"in-error-packets":"0","out-error-packets":"2"},
	 "subinterface":[{"name":"ethernet1/1.0","ipv4":{"srl_nokia-interfaces-nbr:arp":{"neighbor":[
		{"ipv4-address":"10.1.1.2","link-layer-address":"1A:2B:00:00:00:01","origin":"dynamic"},
		{"ipv4-address":"10.1.1.3","link-layer-address":"1A:2B:00:00:00:02","origin":"srl_nokia-interfaces-nbr:static"}]}}}]},
	{"name":"ethernet1/5","admin-state":"enable","oper-state":"up"},
	{"name":"ethernet1/9","admin-state":"disable","oper-state":"down"},
	{"name":"irb0","admin-state":"enable","oper-state":"up",
	 "subinterface":[{"name":"irb0.1","ipv4":{"srl_nokia-interfaces-nbr:arp":{"neighbor":[
		{"ipv4-address":"192.168.1.10","link-layer-address":"AA:BB:CC:00:00:01","origin":"evpn"}]}}}]},
	{"name":"mgmt0","admin-state":"enable","oper-state":"up",
	 "last-change":"2024-01-01T00:00:00.000Z","statistics":{"in-error-packets":"0","out-error-packets":"0"},
	 "subinterface":[{"name":"mgmt0.0","ipv4":{"srl_nokia-interfaces-nbr:arp":{"neighbor":[
		{"ipv4-address":"172.20.0.1","link-layer-address":"02:42:00:00:00:01","origin":"dynamic"}]}}}]}]}`

func TestInterfaces(t *testing.T) {
	got, err := Interfaces(payload(t, interfacesPayload))
	if err != nil {
		t.Fatal(err)
	}
	wantKeys := []string{"ethernet1/1", "ethernet1/5", "ethernet1/9", "irb0", "mgmt0"}
	if !reflect.DeepEqual(got.Keys(), wantKeys) {
		t.Errorf("keys = %v, want %v", got.Keys(), wantKeys)
	}
	if st, _ := got.Get("ethernet1/1"); st != (model.InterfaceState{Description: "to spine1", OperState: "up"}) {
		t.Errorf("ethernet1/1 = %+v", st)
	}
	if st, _ := got.Get("ethernet1/5"); st.Description != "" || st.OperState != "up" {
		t.Errorf("ethernet1/5 = %+v", st)
	}
}

func TestARP(t *testing.T) {
	got, err := ARP(payload(t, interfacesPayload))
	if err != nil {
		t.Fatal(err)
	}
	if got.Has("mgmt0.0") {
		t.Error("mgmt0.0 should be excluded")
	}
	eth, ok := got.Get("ethernet1/1.0")
	if !ok {
		t.Fatal("ethernet1/1.0 missing")
	}
	if want := []model.Pair{{Key: "10.1.1.2", Value: "1A:2B:00:00:00:01"}}; !reflect.DeepEqual(eth, want) {
		t.Errorf("ethernet1/1.0 = %v, want %v", eth, want)
	}
	irb, ok := got.Get("irb0.1")
	if !ok {
		t.Fatal("irb0.1 missing: a subinterface with neighbors gets a key")
	}
	if len(irb) != 0 {
		t.Errorf("irb0.1 = %v, want no dynamic entries", irb)
	}
	if mustJSON(t, irb) != "[]" {
		t.Errorf("irb0.1 encodes as %s", mustJSON(t, irb))
	}
}

func TestPortHealth(t *testing.T) {
	sample, skipped, err := PortHealth(payload(t, interfacesPayload))
	if err != nil {
		t.Fatal(err)
	}
	if want := []string{"ethernet1/1", "mgmt0"}; !reflect.DeepEqual(sample.Keys(), want) {
		t.Errorf("sampled = %v, want %v", sample.Keys(), want)
	}
	if want := []string{"ethernet1/5"}; !reflect.DeepEqual(skipped, want) {
		t.Errorf("skipped = %v, want %v", skipped, want)
	}
	c, _ := sample.Get("ethernet1/1")
	if c != (model.PortCounters{StateChange: "2024-01-01T00:00:00.000Z", InErrors: 0, OutErrors: 2}) {
		t.Errorf("ethernet1/1 = %+v", c)
	}
}

const networkInstancePayload = `{"srl_nokia-network-instance:network-instance":[
	{"name":"default","type":"srl_nokia-network-instance:default","oper-state":"up"},
	{"name":"mac-vrf-1","type":"srl_nokia-network-instance:mac-vrf","oper-state":"up",
	 "bridge-table":{"mac-learning":{"srl_nokia-bridge-table-mac-learning-entries:learnt-entries":{"mac":[
		{"address":"00:00:00:00:00:01","destination":"ethernet-1/1.0"},
		{"address":"00:00:00:00:00:02","destination":"vxlan-interface:vxlan1.1 vtep:10.0.0.2 vni:1"}]}}}},
	{"name":"mac-vrf-2","type":"mac-vrf","oper-state":"down",
	 "bridge-table":{"mac-learning":{"srl_nokia-bridge-table-mac-learning-entries:learnt-entries":{}}}}]}`

func TestNetworkInstancesAndMAC(t *testing.T) {
	ni, err := NetworkInstances(payload(t, networkInstancePayload))
	if err != nil {
		t.Fatal(err)
	}
	if got := mustJSON(t, ni); got != `{"default":"up","mac-vrf-1":"up","mac-vrf-2":"down"}` {
		t.Errorf("network instances = %s", got)
	}

	mac, err := MAC(payload(t, networkInstancePayload))
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(mac.Keys(), []string{"mac-vrf-1"}) {
		t.Errorf("mac-vrfs = %v, want only the one with learnt entries", mac.Keys())
	}
	entries, _ := mac.Get("mac-vrf-1")
	if len(entries) != 2 || entries[1].Value != "vxlan-interface:vxlan1.1 vtep:10.0.0.2 vni:1" {
		t.Errorf("entries = %v", entries)
	}
}

func TestPlatform(t *testing.T) {
	fans, err := Fans(payload(t, `{"srl_nokia-platform-fan:fan-tray":[{"id":1,"oper-state":"up"},{"id":2,"oper-state":"down"}]}`))
	if err != nil {
		t.Fatal(err)
	}
	if got := mustJSON(t, fans); got != `{"1":"up","2":"down"}` {
		t.Errorf("fans = %s", got)
	}

	cards, err := ControlCards(payload(t, `{"srl_nokia-platform-control:control":[{"slot":"A","type":"imm32-100g-qsfp28","oper-state":"up"}]}`))
	if err != nil {
		t.Fatal(err)
	}
	if got := mustJSON(t, cards); got != `{"A":{"card-type":"imm32-100g-qsfp28","oper-state":"up"}}` {
		t.Errorf("control = %s", got)
	}
}

func TestVersion(t *testing.T) {
	v, err := Version(payload(t, `"v23.10.1-218-ga3fc1bea5a"`))
	if err != nil || v != "v23.10.1-218-ga3fc1bea5a" {
		t.Errorf("Version = %q, %v", v, err)
	}
}

func TestTunnels(t *testing.T) {
	tests := []struct {
		name string
		val  gjson.Result
		want string
	}{
		{"flat", payload(t, `{"srl_nokia-tunnel:tunnel":{"vtep":[{"address":"10.0.0.2"},{"address":"10.0.0.3"}]}}`), `["10.0.0.2","10.0.0.3"]`},
		{"nested", payload(t, `{"tunnel":{"srl_nokia-tunnel:vxlan-tunnel":{"vtep":[{"address":"10.0.0.2"}]}}}`), `["10.0.0.2"]`},
		{"no vteps", payload(t, `{"tunnel":{"vxlan-tunnel":{}}}`), `[]`},
		{"no data", gjson.Result{}, `[]`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := mustJSON(t, Tunnels(tt.val)); got != tt.want {
				t.Errorf("Tunnels = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestDefaultInstanceInterfaces(t *testing.T) {
	got, err := DefaultInstanceInterfaces(payload(t, `{"srl_nokia-network-instance:interface":[{"name":"ethernet1/1.0"},{"name":"system0.0"}]}`))
	if err != nil {
		t.Fatal(err)
	}
	if want := []string{"ethernet1/1.0", "system0.0"}; !reflect.DeepEqual(got, want) {
		t.Errorf("got %v, want %v", got, want)
	}
}

func TestBuilders_Idempotent(t *testing.T) {
	p := payload(t, interfacesPayload)
	a, _ := Interfaces(p)
	b, _ := Interfaces(p)
	if mustJSON(t, a) != mustJSON(t, b) {
		t.Error("Interfaces not idempotent")
	}
	x, _ := ARP(p)
	y, _ := ARP(p)
	if mustJSON(t, x) != mustJSON(t, y) {
		t.Error("ARP not idempotent")
	}
	n := payload(t, networkInstancePayload)
	m1, _ := MAC(n)
	m2, _ := MAC(n)
	if mustJSON(t, m1) != mustJSON(t, m2) {
		t.Error("MAC not idempotent")
	}
}
