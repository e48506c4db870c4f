// Package privacy reduces personal data before it reaches logs.
package privacy

import "net/netip"

// AnonymizeIP truncates an address to its network portion for logging.
// IPv4 keeps the /24 ("192.168.1.47" -> "192.168.1.0"), IPv6 keeps the /48.
// The full address is still stored on session records; only log lines use this.
//
// Returns "unknown" for empty input and "invalid" for unparseable input.
func AnonymizeIP(ip string) string {
	if ip == "" || ip == "unknown" || ip == "Unknown" {
		return "unknown"
	}

	addr, err := netip.ParseAddr(ip)
	if err != nil {
		return "invalid"
	}
	addr = addr.Unmap()

	bits := 48
	if addr.Is4() {
		bits = 24
	}
	prefix, err := addr.Prefix(bits)
	if err != nil {
		return "invalid"
	}
	return prefix.Addr().String()
}
