// Package health detects ports that are flapping or accumulating errors
// by comparing two interface samples taken a short interval apart.
package health

import (
	"context"
	"fmt"
	"time"

	"github.com/newtron-network/newtgrade/pkg/gnmi"
	"github.com/newtron-network/newtgrade/pkg/model"
	"github.com/newtron-network/newtgrade/pkg/normalize"
	"github.com/newtron-network/newtgrade/pkg/util"
)

// DefaultSettleInterval is the wait between the two samples.
const DefaultSettleInterval = 10 * time.Second

// Status represents the overall health of the probed ports
type Status string

const (
	StatusOK       Status = "ok"
	StatusWarning  Status = "warning"
	StatusCritical Status = "critical"
)

// PortStatus is the verdict for one port.
type PortStatus string

const (
	PortStable       PortStatus = "stable"
	PortUnstable     PortStatus = "unstable"
	PortSkipped      PortStatus = "skipped"
	PortInconsistent PortStatus = "inconsistent"
)

// Result is the outcome for one port
type Result struct {
	Port    string              `json:"port"`
	Status  PortStatus          `json:"status"`
	Message string              `json:"message,omitempty"`
	First   *model.PortCounters `json:"first,omitempty"`
	Second  *model.PortCounters `json:"second,omitempty"`
}

// Report contains the per-port results of one probe
type Report struct {
	Device    string                    `json:"device"`
	Timestamp time.Time                 `json:"timestamp"`
	Overall   Status                    `json:"overall"`
	Results   []Result                  `json:"results"`
	Mismatch  *util.SampleMismatchError `json:"-"`
	Duration  time.Duration             `json:"duration"`
}

// Prober samples interface counters twice and compares them.
type Prober struct {
	Gateway  gnmi.Getter
	Device   string
	Interval time.Duration

	// wait blocks for the settle interval; replaced in tests.
	wait func(ctx context.Context, d time.Duration) error
}

// NewProber creates a prober with the default settle interval
func NewProber(gw gnmi.Getter, device string) *Prober {
	return &Prober{Gateway: gw, Device: device, Interval: DefaultSettleInterval}
}

// Probe takes a sample, waits once for the settle interval, takes a second
// sample and evaluates them. A gateway failure aborts the probe.
func (p *Prober) Probe(ctx context.Context) (*Report, error) {
	start := time.Now()
	log := util.WithDevice(p.Device)

	first, skipped, err := p.sample(ctx)
	if err != nil {
		return nil, err
	}

	interval := p.Interval
	if interval <= 0 {
		interval = DefaultSettleInterval
	}
	log.Infof("Sleeping %s to check for port flaps", interval)
	wait := p.wait
	if wait == nil {
		wait = sleep
	}
	if err := wait(ctx, interval); err != nil {
		return nil, err
	}

	second, skippedAgain, err := p.sample(ctx)
	if err != nil {
		return nil, err
	}

	report := Evaluate(p.Device, first, second, union(skipped, skippedAgain))
	report.Timestamp = start
	report.Duration = time.Since(start)
	if report.Mismatch != nil {
		log.Warn(report.Mismatch.Error())
	}
	return report, nil
}

func (p *Prober) sample(ctx context.Context) (*model.PortHealthSample, []string, error) {
	raw, err := p.Gateway.Get(ctx, gnmi.PathInterfaces)
	if err != nil {
		return nil, nil, err
	}
	payload, _ := normalize.Unwrap(raw)
	sample, skipped, err := normalize.PortHealth(payload)
	if err != nil {
		return nil, nil, fmt.Errorf("port sample: %w", err)
	}
	return sample, skipped, nil
}

// Evaluate compares two samples. A port is unstable when its last-change
// timestamp or either error counter moved. A port seen in only one sample
// is inconsistent and recorded in the report's Mismatch.
func Evaluate(device string, first, second *model.PortHealthSample, skipped []string) *Report {
	report := &Report{
		Device:    device,
		Timestamp: time.Now(),
		Overall:   StatusOK,
	}

	var mismatch util.SampleMismatchError
	first.Each(func(port string, a model.PortCounters) bool {
		b, ok := second.Get(port)
		if !ok {
			mismatch.OnlyFirst = append(mismatch.OnlyFirst, port)
			report.add(Result{Port: port, Status: PortInconsistent, Message: "missing from second sample", First: &a})
			return true
		}
		r := Result{Port: port, Status: PortStable, First: &a, Second: &b}
		if a != b {
			r.Status = PortUnstable
			r.Message = describe(a, b)
		}
		report.add(r)
		return true
	})
	second.Each(func(port string, b model.PortCounters) bool {
		if !first.Has(port) {
			mismatch.OnlySecond = append(mismatch.OnlySecond, port)
			report.add(Result{Port: port, Status: PortInconsistent, Message: "missing from first sample", Second: &b})
		}
		return true
	})
	for _, port := range skipped {
		if first.Has(port) || second.Has(port) {
			continue
		}
		report.add(Result{Port: port, Status: PortSkipped, Message: "no statistics"})
	}

	if len(mismatch.OnlyFirst) > 0 || len(mismatch.OnlySecond) > 0 {
		report.Mismatch = &mismatch
	}
	return report
}

// add appends a result and updates the overall status (worst wins).
func (r *Report) add(res Result) {
	r.Results = append(r.Results, res)
	switch res.Status {
	case PortUnstable:
		r.Overall = StatusCritical
	case PortInconsistent:
		if r.Overall != StatusCritical {
			r.Overall = StatusWarning
		}
	}
}

// Verdicts returns the persisted form of the report: every compared port
// with its first-sample counters and unstable flag. Skipped ports carry no
// counters and are omitted.
func (r *Report) Verdicts() *model.PortHealthVerdict {
	v := model.NewOrderedMap[model.PortVerdict]()
	for _, res := range r.Results {
		c := res.First
		if c == nil {
			c = res.Second
		}
		if c == nil {
			continue
		}
		v.Set(res.Port, model.PortVerdict{PortCounters: *c, Unstable: res.Status == PortUnstable})
	}
	return v
}

// Unstable lists the ports that flapped or accumulated errors.
func (r *Report) Unstable() []string {
	var ports []string
	for _, res := range r.Results {
		if res.Status == PortUnstable {
			ports = append(ports, res.Port)
		}
	}
	return ports
}

// Err returns the sample mismatch, if any.
func (r *Report) Err() error {
	if r.Mismatch == nil {
		return nil
	}
	return r.Mismatch
}

func describe(a, b model.PortCounters) string {
	switch {
	case a.StateChange != b.StateChange:
		return fmt.Sprintf("state changed at %s", b.StateChange)
	case a.InErrors != b.InErrors:
		return fmt.Sprintf("in-errors %d -> %d", a.InErrors, b.InErrors)
	default:
		return fmt.Sprintf("out-errors %d -> %d", a.OutErrors, b.OutErrors)
	}
}

func union(a, b []string) []string {
	seen := make(map[string]bool, len(a)+len(b))
	var out []string
	for _, s := range append(append([]string{}, a...), b...) {
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
