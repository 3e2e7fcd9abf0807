package util

import (
	"fmt"
	"net/netip"
	"strconv"
	"strings"
)

// HostAddr normalizes "addr[/plen]" to "addr/plen", using defaultPlen when
// the prefix length is missing.
func HostAddr(ip string, defaultPlen int) (string, error) {
	addrPart, plenPart, hasPlen := strings.Cut(strings.TrimSpace(ip), "/")

	addr, err := netip.ParseAddr(addrPart)
	if err != nil {
		return "", fmt.Errorf("invalid IP address %q: %w", ip, err)
	}

	plen := defaultPlen
	if hasPlen {
		plen, err = strconv.Atoi(plenPart)
		if err != nil {
			return "", fmt.Errorf("invalid prefix length in %q: %w", ip, err)
		}
	}
	if plen < 0 || plen > addr.BitLen() {
		return "", fmt.Errorf("prefix length %d out of range for %s", plen, addr)
	}
	return fmt.Sprintf("%s/%d", addr, plen), nil
}
