package httputil

import (
	"fmt"
	"net"
)

// lookupIP is swapped out by tests.
var lookupIP = net.LookupIP

// ValidateIP checks if an IP address is allowed as a redirect target.
// Returns an error if the IP is:
//   - Private (RFC 1918: 10.0.0.0/8, 172.16.0.0/12, 192.168.0.0/16)
//   - Loopback (127.0.0.0/8, ::1)
//   - Link-local unicast (169.254.0.0/16, fe80::/10)
//   - Multicast, including link-local multicast
//   - Unspecified (0.0.0.0, ::)
//
// The host parameter is included in error messages for debugging.
func ValidateIP(ip net.IP, host string) error {
	switch {
	case ip.IsPrivate():
		return fmt.Errorf("refusing redirect to private IP: %s (%s)", host, ip)
	case ip.IsLoopback():
		return fmt.Errorf("refusing redirect to loopback IP: %s (%s)", host, ip)
	case ip.IsLinkLocalUnicast():
		return fmt.Errorf("refusing redirect to link-local IP: %s (%s)", host, ip)
	case ip.IsLinkLocalMulticast():
		return fmt.Errorf("refusing redirect to link-local multicast: %s (%s)", host, ip)
	case ip.IsMulticast():
		return fmt.Errorf("refusing redirect to multicast IP: %s (%s)", host, ip)
	case ip.IsUnspecified():
		return fmt.Errorf("refusing redirect to unspecified IP: %s (%s)", host, ip)
	}
	return nil
}

// ValidateHost checks a redirect host. Literal IPs are checked directly;
// names are resolved and every resulting address must pass ValidateIP, so a
// public name cannot rebind to an internal address.
func ValidateHost(host string) error {
	if ip := net.ParseIP(host); ip != nil {
		return ValidateIP(ip, host)
	}

	ips, err := lookupIP(host)
	if err != nil {
		return fmt.Errorf("failed to resolve redirect host %s: %w", host, err)
	}
	for _, ip := range ips {
		if err := ValidateIP(ip, host); err != nil {
			return fmt.Errorf("refusing redirect: %s resolves to blocked IP %s", host, ip)
		}
	}
	return nil
}
