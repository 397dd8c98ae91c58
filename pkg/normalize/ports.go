package normalize

import (
	"github.com/tidwall/gjson"

	"github.com/newtron-network/newtgrade/pkg/model"
	"github.com/newtron-network/newtgrade/pkg/util"
)

// ProbeExcluded lists name fragments of interfaces that carry no port
// statistics and are never probed.
var ProbeExcluded = []string{"irb", "lo", "system"}

// PortHealth builds one stability sample from the /interface response.
// Admin-disabled and excluded interfaces are left out; ports without
// statistics are returned in skipped.
func PortHealth(payload gjson.Result) (sample *model.PortHealthSample, skipped []string, err error) {
	items, err := list(model.CategoryPorts, payload)
	if err != nil {
		return nil, nil, err
	}
	sample = model.NewOrderedMap[model.PortCounters]()
	for _, it := range items {
		name := child(it, "name").String()
		if enum(child(it, "admin-state")) == "disable" || util.ContainsAny(name, ProbeExcluded...) {
			continue
		}
		stats := child(it, "statistics")
		lastChange := child(it, "last-change")
		in, out := child(stats, "in-error-packets"), child(stats, "out-error-packets")
		if !lastChange.Exists() || !in.Exists() || !out.Exists() {
			util.WithField("interface", name).Info("No statistics, port is likely up but has never passed traffic")
			skipped = append(skipped, name)
			continue
		}
		sample.Set(name, model.PortCounters{
			StateChange: lastChange.String(),
			InErrors:    in.Uint(),
			OutErrors:   out.Uint(),
		})
	}
	return sample, skipped, nil
}
