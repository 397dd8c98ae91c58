package util

import "strings"

// BaseInterfaceName strips a subinterface suffix: "ethernet1/1.0" -> "ethernet1/1".
func BaseInterfaceName(name string) string {
	if i := strings.IndexByte(name, '.'); i >= 0 {
		return name[:i]
	}
	return name
}

// ContainsAny reports whether name contains any of the given substrings.
func ContainsAny(name string, subs ...string) bool {
	for _, s := range subs {
		if strings.Contains(name, s) {
			return true
		}
	}
	return false
}

// StripModule removes a YANG module prefix from a JSON-IETF member name:
// "srl_nokia-common:evpn" -> "evpn".
func StripModule(name string) string {
	if i := strings.LastIndexByte(name, ':'); i >= 0 {
		return name[i+1:]
	}
	return name
}
