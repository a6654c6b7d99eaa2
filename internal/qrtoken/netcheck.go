package qrtoken

import "strings"

// isLocal classifies an address by prefix. Deliberately coarse: "172."
// matches all of 172.0.0.0/8, not just the private /12. The heuristic only
// needs to separate campus LAN addresses from public ones.
func isLocal(ip string) bool {
	return strings.HasPrefix(ip, "192.168.") ||
		strings.HasPrefix(ip, "10.") ||
		strings.HasPrefix(ip, "172.")
}

// SameLocalNetwork reports whether two addresses look like they sit on the
// same campus subnet. When both are local their first three dotted
// components must match; when either is non-local the check passes, since
// public addresses carry no subnet information we can compare.
func SameLocalNetwork(a, b string) bool {
	if !isLocal(a) || !isLocal(b) {
		return true
	}
	pa := strings.Split(a, ".")
	pb := strings.Split(b, ".")
	if len(pa) < 3 || len(pb) < 3 {
		return false
	}
	return pa[0] == pb[0] && pa[1] == pb[1] && pa[2] == pb[2]
}
