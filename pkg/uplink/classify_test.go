package uplink

import (
	"reflect"
	"testing"

	"github.com/newtron-network/newtgrade/pkg/model"
)

func status(entries ...any) *model.InterfaceStatus {
	s := model.NewOrderedMap[model.InterfaceState]()
	for i := 0; i < len(entries); i += 2 {
		s.Set(entries[i].(string), model.InterfaceState{OperState: entries[i+1].(string)})
	}
	return s
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name       string
		interfaces *model.InterfaceStatus
		defaults   []string
		want       []string
	}{
		{
			name:       "uplink and non-access excluded",
			interfaces: status("ethernet1/1", "up", "ethernet1/5", "up", "irb0", "up", "mgmt0/0", "up"),
			defaults:   []string{"ethernet1/1.0"},
			want:       []string{"ethernet1/5"},
		},
		{
			name:       "down ports are not planned",
			interfaces: status("ethernet1/2", "down", "ethernet1/3", "up"),
			want:       []string{"ethernet1/3"},
		},
		{
			name:       "interface order preserved",
			interfaces: status("ethernet1/9", "up", "ethernet1/3", "up", "ethernet1/10", "up"),
			defaults:   []string{"system0.0"},
			want:       []string{"ethernet1/9", "ethernet1/3", "ethernet1/10"},
		},
		{
			name:       "loopback and system excluded",
			interfaces: status("lo0", "up", "system0", "up"),
			want:       []string{},
		},
		{
			name:       "base name must match exactly",
			interfaces: status("ethernet1/1", "up", "ethernet1/10", "up"),
			defaults:   []string{"ethernet1/1.0"},
			want:       []string{"ethernet1/10"},
		},
		{
			name:       "empty",
			interfaces: status(),
			want:       []string{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan := Classify("leaf1", tt.interfaces, tt.defaults)
			if plan.Host != "leaf1" {
				t.Errorf("Host = %q", plan.Host)
			}
			if !reflect.DeepEqual(plan.Ports, tt.want) {
				t.Errorf("Ports = %v, want %v", plan.Ports, tt.want)
			}
		})
	}
}

func TestClassify_SameInputSamePlan(t *testing.T) {
	in := status("ethernet1/1", "up", "ethernet1/5", "up", "ethernet1/6", "up")
	a := Classify("leaf1", in, []string{"ethernet1/1.0"})
	b := Classify("leaf1", in, []string{"ethernet1/1.0"})
	if !reflect.DeepEqual(a, b) {
		t.Errorf("plans differ: %v vs %v", a, b)
	}
}
