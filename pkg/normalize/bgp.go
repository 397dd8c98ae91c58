package normalize

import (
	"strings"

	"github.com/blang/semver/v4"
	"github.com/tidwall/gjson"

	"github.com/newtron-network/newtgrade/pkg/model"
)

// BGPEncoding selects how per-family neighbor counters are laid out in the
// raw BGP neighbor response.
type BGPEncoding int

const (
	// EncodingCurrent carries counters in an afi-safi list keyed by family name.
	EncodingCurrent BGPEncoding = iota
	// EncodingLegacy carries counters as flat per-family containers
	// (ipv4-unicast, ipv6-unicast, evpn) directly under the neighbor.
	EncodingLegacy
)

// LegacyMarker identifies release trains that use the legacy encoding.
const LegacyMarker = "v22"

func (e BGPEncoding) String() string {
	if e == EncodingLegacy {
		return "legacy"
	}
	return "current"
}

// EncodingForVersion resolves the BGP encoding once from the normalized
// version string, e.g. "v22.11.2-184-g6a2e5a2e9d" is legacy. Any release
// whose major version is 22 or lower is legacy too: the afi-safi list only
// appeared in release 23, so an older v21 device reports flat family
// containers. Versions that do not parse fall back to current.
func EncodingForVersion(v model.VersionInfo) BGPEncoding {
	s := strings.TrimSpace(string(v))
	if strings.Contains(s, LegacyMarker) {
		return EncodingLegacy
	}
	if sv, err := semver.ParseTolerant(s); err == nil && sv.Major > 0 && sv.Major <= 22 {
		return EncodingLegacy
	}
	return EncodingCurrent
}

// Peers normalizes a BGP neighbor list in this encoding.
func (e BGPEncoding) Peers(payload gjson.Result) (*model.BgpPeerStatus, error) {
	items, err := list(model.CategoryBGP, payload)
	if err != nil {
		return nil, err
	}

	peers := model.NewOrderedMap[model.BgpPeer]()
	for _, n := range items {
		peer := model.BgpPeer{SessionState: child(n, "session-state").String()}
		if e == EncodingLegacy {
			peer.EvpnReceived = receivedRoutes(child(n, "evpn"))
			peer.IPv4Received = receivedRoutes(child(n, "ipv4-unicast"))
			peer.IPv6Received = receivedRoutes(child(n, "ipv6-unicast"))
		} else {
			for _, fam := range elements(child(n, "afi-safi")) {
				switch enum(child(fam, "afi-safi-name")) {
				case "evpn":
					peer.EvpnReceived = receivedRoutes(fam)
				case "ipv4-unicast":
					peer.IPv4Received = receivedRoutes(fam)
				case "ipv6-unicast":
					peer.IPv6Received = receivedRoutes(fam)
				}
			}
		}
		peers.Set(child(n, "peer-address").String(), peer)
	}
	return peers, nil
}

// receivedRoutes reads the received-routes counter of a family container.
// An absent family reads as zero.
func receivedRoutes(fam gjson.Result) int64 {
	return child(fam, "received-routes").Int()
}
