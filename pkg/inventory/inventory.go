// Package inventory loads the device inventory: per-switch connection
// settings keyed by hostname.
package inventory

import (
	"fmt"
	"net"
	"os"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/newtron-network/newtgrade/pkg/gnmi"
	"github.com/newtron-network/newtgrade/pkg/util"
)

// DefaultPort is the gNMI port used when a device does not name one.
const DefaultPort = 57400

// Device is one switch entry.
type Device struct {
	Target           string `yaml:"target"`
	Port             int    `yaml:"port,omitempty"`
	Username         string `yaml:"username,omitempty"`
	Password         string `yaml:"password,omitempty"`
	Insecure         bool   `yaml:"insecure,omitempty"`
	SkipVerify       bool   `yaml:"skip_verify,omitempty"`
	SSHUser          string `yaml:"ssh_user,omitempty"`
	SSHPass          string `yaml:"ssh_pass,omitempty"`
	SSHPort          int    `yaml:"ssh_port,omitempty"`
	MaintenanceGroup string `yaml:"maintenance_group,omitempty"`
}

// Inventory is the parsed inventory file.
type Inventory struct {
	Defaults Device             `yaml:"defaults,omitempty"`
	Devices  map[string]*Device `yaml:"devices"`
}

// Load parses an inventory YAML file and validates it.
func Load(path string) (*Inventory, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading inventory file: %w", err)
	}
	return Parse(data)
}

// Parse decodes inventory YAML and validates it.
func Parse(data []byte) (*Inventory, error) {
	var inv Inventory
	if err := yaml.Unmarshal(data, &inv); err != nil {
		return nil, fmt.Errorf("parsing inventory YAML: %w", err)
	}
	if err := validate(&inv); err != nil {
		return nil, fmt.Errorf("validating inventory: %w", err)
	}
	return &inv, nil
}

func validate(inv *Inventory) error {
	v := &util.ValidationBuilder{}
	v.Add(len(inv.Devices) > 0, "at least one device is required")
	for _, name := range inv.Hosts() {
		d := inv.Devices[name]
		if d == nil {
			v.AddErrorf("device %s: empty entry", name)
			continue
		}
		v.Add(d.Target != "", fmt.Sprintf("device %s: target is required", name))
		if strings.Contains(d.Target, ":") && net.ParseIP(d.Target) == nil {
			v.AddErrorf("device %s: target %q must not carry a port; use port", name, d.Target)
		}
		if d.Port < 0 || d.Port > 65535 {
			v.AddErrorf("device %s: invalid port %d", name, d.Port)
		}
		if d.Insecure && d.SkipVerify {
			v.AddErrorf("device %s: insecure and skip_verify are mutually exclusive", name)
		}
	}
	return v.Build()
}

// Hosts returns the device hostnames, sorted.
func (inv *Inventory) Hosts() []string {
	hosts := make([]string, 0, len(inv.Devices))
	for h := range inv.Devices {
		hosts = append(hosts, h)
	}
	sort.Strings(hosts)
	return hosts
}

// Lookup returns the entry for host with defaults applied.
func (inv *Inventory) Lookup(host string) (Device, error) {
	d, ok := inv.Devices[host]
	if !ok || d == nil {
		return Device{}, fmt.Errorf("device %s: %w", host, util.ErrNotFound)
	}
	out := *d
	def := inv.Defaults
	if out.Port == 0 {
		out.Port = def.Port
	}
	if out.Port == 0 {
		out.Port = DefaultPort
	}
	if out.Username == "" {
		out.Username = def.Username
	}
	if out.Password == "" {
		out.Password = def.Password
	}
	if out.SSHUser == "" {
		out.SSHUser = def.SSHUser
	}
	if out.SSHPass == "" {
		out.SSHPass = def.SSHPass
	}
	if out.SSHPort == 0 {
		out.SSHPort = def.SSHPort
	}
	if out.MaintenanceGroup == "" {
		out.MaintenanceGroup = def.MaintenanceGroup
	}
	out.Insecure = out.Insecure || def.Insecure
	out.SkipVerify = out.SkipVerify || def.SkipVerify
	return out, nil
}

// Config converts the entry into gateway connection settings for host.
func (d Device) Config(host string) gnmi.Config {
	return gnmi.Config{
		Target:     d.Target,
		Port:       d.Port,
		Username:   d.Username,
		Password:   d.Password,
		Hostname:   host,
		Insecure:   d.Insecure,
		SkipVerify: d.SkipVerify,
		SSHUser:    d.SSHUser,
		SSHPass:    d.SSHPass,
		SSHPort:    d.SSHPort,
	}
}
