package health

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/newtron-network/newtgrade/pkg/gnmi"
	"github.com/newtron-network/newtgrade/pkg/model"
	"github.com/newtron-network/newtgrade/pkg/util"
)

func TestStatusConstants(t *testing.T) {
	tests := []struct {
		status   Status
		expected string
	}{
		{StatusOK, "ok"},
		{StatusWarning, "warning"},
		{StatusCritical, "critical"},
	}

	for _, tt := range tests {
		if string(tt.status) != tt.expected {
			t.Errorf("Status %v = %q, want %q", tt.status, string(tt.status), tt.expected)
		}
	}
}

func sample(entries map[string]model.PortCounters, order ...string) *model.PortHealthSample {
	s := model.NewOrderedMap[model.PortCounters]()
	for _, name := range order {
		s.Set(name, entries[name])
	}
	return s
}

func TestEvaluate(t *testing.T) {
	c1 := model.PortCounters{StateChange: "2024-01-01T00:00:00Z", InErrors: 0, OutErrors: 0}
	c3 := model.PortCounters{StateChange: "2024-01-01T00:00:00Z", InErrors: 4, OutErrors: 1}
	c3moved := c3
	c3moved.StateChange = "2024-01-01T00:00:09Z"
	c4 := model.PortCounters{StateChange: "2024-01-01T00:00:00Z", InErrors: 7}
	c4moved := c4
	c4moved.InErrors = 8

	first := sample(map[string]model.PortCounters{"ethernet1/1": c1, "ethernet1/3": c3, "ethernet1/4": c4}, "ethernet1/1", "ethernet1/3", "ethernet1/4")
	second := sample(map[string]model.PortCounters{"ethernet1/1": c1, "ethernet1/3": c3moved, "ethernet1/4": c4moved}, "ethernet1/1", "ethernet1/3", "ethernet1/4")

	report := Evaluate("leaf1", first, second, []string{"ethernet1/7"})

	want := map[string]PortStatus{
		"ethernet1/1": PortStable,
		"ethernet1/3": PortUnstable,
		"ethernet1/4": PortUnstable,
		"ethernet1/7": PortSkipped,
	}
	if len(report.Results) != len(want) {
		t.Fatalf("Results count = %d, want %d", len(report.Results), len(want))
	}
	for _, r := range report.Results {
		if r.Status != want[r.Port] {
			t.Errorf("%s status = %q, want %q", r.Port, r.Status, want[r.Port])
		}
	}
	if report.Overall != StatusCritical {
		t.Errorf("Overall = %q, want critical", report.Overall)
	}
	if got := report.Unstable(); !reflect.DeepEqual(got, []string{"ethernet1/3", "ethernet1/4"}) {
		t.Errorf("Unstable() = %v", got)
	}
	if report.Err() != nil {
		t.Errorf("Err() = %v, want nil", report.Err())
	}

	verdicts := report.Verdicts()
	if verdicts.Has("ethernet1/7") {
		t.Error("skipped port should not have a verdict")
	}
	v, _ := verdicts.Get("ethernet1/3")
	if !v.Unstable || v.PortCounters != c3 {
		t.Errorf("ethernet1/3 verdict = %+v, want first-sample counters and unstable", v)
	}
	if v, _ := verdicts.Get("ethernet1/1"); v.Unstable {
		t.Error("ethernet1/1 should be stable")
	}
}

func TestEvaluate_AllStable(t *testing.T) {
	c := model.PortCounters{StateChange: "t0"}
	s := sample(map[string]model.PortCounters{"ethernet1/1": c}, "ethernet1/1")
	report := Evaluate("leaf1", s, s, nil)
	if report.Overall != StatusOK {
		t.Errorf("Overall = %q, want ok", report.Overall)
	}
	if len(report.Unstable()) != 0 {
		t.Errorf("Unstable() = %v", report.Unstable())
	}
}

func TestEvaluate_OneSidedPort(t *testing.T) {
	c := model.PortCounters{StateChange: "t0"}
	first := sample(map[string]model.PortCounters{"ethernet1/1": c, "ethernet1/2": c}, "ethernet1/1", "ethernet1/2")
	second := sample(map[string]model.PortCounters{"ethernet1/1": c, "ethernet1/8": c}, "ethernet1/1", "ethernet1/8")

	report := Evaluate("leaf1", first, second, nil)

	if report.Overall != StatusWarning {
		t.Errorf("Overall = %q, want warning", report.Overall)
	}
	err := report.Err()
	if !errors.Is(err, util.ErrSampleMismatch) {
		t.Fatalf("Err() = %v, want ErrSampleMismatch", err)
	}
	var sm *util.SampleMismatchError
	if !errors.As(err, &sm) {
		t.Fatal("Err() is not a SampleMismatchError")
	}
	if !reflect.DeepEqual(sm.OnlyFirst, []string{"ethernet1/2"}) || !reflect.DeepEqual(sm.OnlySecond, []string{"ethernet1/8"}) {
		t.Errorf("mismatch = %+v", sm)
	}
	for _, r := range report.Results {
		if r.Port != "ethernet1/1" && r.Status != PortInconsistent {
			t.Errorf("%s status = %q, want inconsistent", r.Port, r.Status)
		}
	}
	if report.Verdicts().Len() != 3 {
		t.Errorf("verdicts = %d, want 3", report.Verdicts().Len())
	}
}

// scriptedGetter returns canned interface responses in order.
type scriptedGetter struct {
	responses []string
	calls     int
	err       error
}

func (g *scriptedGetter) Get(_ context.Context, path string) (gnmi.Response, error) {
	if g.err != nil {
		return nil, g.err
	}
	if path != gnmi.PathInterfaces {
		return nil, errors.New("unexpected path " + path)
	}
	r := g.responses[g.calls]
	g.calls++
	return gnmi.Response(`{"notification":[{"timestamp":1,"update":[{"path":"interface","val":{"srl_nokia-interfaces:interface":` + r + `}}]}]}`), nil
}

func TestProbe(t *testing.T) {
	gw := &scriptedGetter{responses: []string{
		`[{"name":"ethernet1/1","admin-state":"enable","last-change":"t0","statistics":{"in-error-packets":"0","out-error-packets":"0"}},
		  {"name":"ethernet1/3","admin-state":"enable","last-change":"t0","statistics":{"in-error-packets":"0","out-error-packets":"0"}},
		  {"name":"ethernet1/5","admin-state":"enable"}]`,
		`[{"name":"ethernet1/1","admin-state":"enable","last-change":"t0","statistics":{"in-error-packets":"0","out-error-packets":"0"}},
		  {"name":"ethernet1/3","admin-state":"enable","last-change":"t1","statistics":{"in-error-packets":"0","out-error-packets":"0"}},
		  {"name":"ethernet1/5","admin-state":"enable"}]`,
	}}

	var waited time.Duration
	p := NewProber(gw, "leaf1")
	p.Interval = 3 * time.Second
	p.wait = func(_ context.Context, d time.Duration) error {
		waited = d
		return nil
	}

	report, err := p.Probe(context.Background())
	if err != nil {
		t.Fatalf("Probe() error = %v", err)
	}
	if gw.calls != 2 {
		t.Errorf("samples taken = %d, want 2", gw.calls)
	}
	if waited != 3*time.Second {
		t.Errorf("waited %v, want 3s", waited)
	}
	if got := report.Unstable(); !reflect.DeepEqual(got, []string{"ethernet1/3"}) {
		t.Errorf("Unstable() = %v", got)
	}
	if report.Device != "leaf1" {
		t.Errorf("Device = %q", report.Device)
	}
	var skipped bool
	for _, r := range report.Results {
		if r.Port == "ethernet1/5" && r.Status == PortSkipped {
			skipped = true
		}
	}
	if !skipped {
		t.Error("ethernet1/5 should be skipped")
	}
}

func TestProbe_GatewayFailure(t *testing.T) {
	gw := &scriptedGetter{err: util.NewGatewayError("get", gnmi.PathInterfaces, errors.New("connection refused"))}
	p := NewProber(gw, "leaf1")
	p.wait = func(context.Context, time.Duration) error { return nil }
	if _, err := p.Probe(context.Background()); !errors.Is(err, util.ErrGateway) {
		t.Errorf("Probe() error = %v, want ErrGateway", err)
	}
}

func TestProbe_Cancelled(t *testing.T) {
	gw := &scriptedGetter{responses: []string{`[]`, `[]`}}
	p := NewProber(gw, "leaf1")
	p.Interval = time.Hour

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := p.Probe(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Probe() error = %v, want context.Canceled", err)
	}
}
