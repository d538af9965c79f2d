// Package network checks client addresses against configured subnets.
package network

import (
	"net"
	"strings"

	"github.com/Laisky/errors/v2"
)

// ParseSubnets parses a comma separated CIDR list. Blank entries are ignored.
func ParseSubnets(subnets string) ([]*net.IPNet, error) {
	var nets []*net.IPNet
	for _, raw := range strings.Split(subnets, ",") {
		raw = strings.TrimSpace(raw)
		if raw == "" {
			continue
		}
		_, ipNet, err := net.ParseCIDR(raw)
		if err != nil {
			return nil, errors.Wrapf(err, "invalid subnet %q", raw)
		}
		nets = append(nets, ipNet)
	}
	return nets, nil
}

// ContainsIP reports whether ip falls into any of nets.
func ContainsIP(nets []*net.IPNet, ip string) bool {
	parsed := net.ParseIP(strings.TrimSpace(ip))
	if parsed == nil {
		return false
	}
	for _, n := range nets {
		if n.Contains(parsed) {
			return true
		}
	}
	return false
}
