package utils

import (
	"net"
	"net/url"
	"strings"
)

// The app is meant to run on a home LAN: browsers on localhost, private
// IPs, mDNS names and single-label hostnames are trusted, the public
// internet is not.
var privateNetworks = func() []*net.IPNet {
	cidrs := []string{
		"10.0.0.0/8",
		"172.16.0.0/12",
		"192.168.0.0/16",
		"127.0.0.0/8",
		"169.254.0.0/16", // link-local IPv4
		"::1/128",
		"fe80::/10", // link-local IPv6
		"fc00::/7",  // unique local IPv6
	}
	nets := make([]*net.IPNet, 0, len(cidrs))
	for _, c := range cidrs {
		_, network, err := net.ParseCIDR(c)
		if err != nil {
			panic(err)
		}
		nets = append(nets, network)
	}
	return nets
}()

// IsAllowedOrigin reports whether an Origin header value should be trusted
// for CORS purposes.
func IsAllowedOrigin(origin string) bool {
	if origin == "" {
		return false
	}

	parsed, err := url.Parse(origin)
	if err != nil || parsed.Host == "" {
		return false
	}

	hostname := parsed.Hostname()
	switch {
	case hostname == "localhost":
		return true
	case strings.HasSuffix(hostname, ".local"):
		return true
	case !strings.Contains(hostname, "."):
		// Single-label LAN hostname.
		return true
	}

	if ip := net.ParseIP(hostname); ip != nil {
		for _, network := range privateNetworks {
			if network.Contains(ip) {
				return true
			}
		}
	}
	return false
}
