package tenancy

import (
	"net"
	"strings"
)

// SubdomainFromHost returns the left-most label of host. When baseDomain
// is set, host must be a direct child of it. The bare base domain, IP
// addresses and single-label hosts yield "".
func SubdomainFromHost(host, baseDomain string) string {
	host = strings.ToLower(strings.TrimSpace(host))
	if h, _, err := net.SplitHostPort(host); err == nil {
		host = h
	}
	host = strings.TrimSuffix(host, ".")
	if host == "" || net.ParseIP(host) != nil {
		return ""
	}

	baseDomain = strings.Trim(strings.ToLower(baseDomain), ".")
	if baseDomain != "" {
		rest, ok := strings.CutSuffix(host, "."+baseDomain)
		if !ok || rest == "" || strings.Contains(rest, ".") {
			return ""
		}
		return rest
	}

	label, _, found := strings.Cut(host, ".")
	if !found {
		return ""
	}
	return label
}
