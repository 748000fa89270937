package service

import (
	"fmt"
	"strings"

	"docstore/internal/model"
)

// ResolveLocalHost picks the ServerHost describing this machine. hostName is matched
// case-insensitively against NameDNS and FQDN; a fully qualified hostName also matches
// a NameDNS equal to its first label.
func ResolveLocalHost(hosts []model.ServerHost, hostName string) (*model.ServerHost, error) {
	name := strings.TrimSuffix(strings.TrimSpace(hostName), ".")
	if name == "" {
		return nil, fmt.Errorf("%w: empty host name", ErrNoLocalHost)
	}
	short, _, _ := strings.Cut(name, ".")

	var fallback *model.ServerHost
	for i := range hosts {
		h := &hosts[i]
		if strings.EqualFold(h.FQDN, name) || strings.EqualFold(h.NameDNS, name) {
			return h, nil
		}
		if fallback == nil && short != name && strings.EqualFold(h.NameDNS, short) {
			fallback = h
		}
	}
	if fallback != nil {
		return fallback, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrNoLocalHost, name)
}
