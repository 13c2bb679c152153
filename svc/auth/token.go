package auth

import (
	"crypto/subtle"
	"net"

	"gitpaste/pkg/domain"
)

// VerifyToken checks the shared-secret token. An empty expected token
// disables the check entirely.
func VerifyToken(expected, provided string) error {
	if expected == "" {
		return nil
	}
	if subtle.ConstantTimeCompare([]byte(expected), []byte(provided)) != 1 {
		return domain.ErrUnauthorized
	}
	return nil
}

// CheckCIDR gates the write path on a client-IP allowlist. An empty
// allowlist admits everyone.
func CheckCIDR(allow []*net.IPNet, ip string) error {
	if len(allow) == 0 {
		return nil
	}
	addr := net.ParseIP(ip)
	if addr == nil {
		return domain.ErrIPNotAllowed
	}
	for _, n := range allow {
		if n.Contains(addr) {
			return nil
		}
	}
	return domain.ErrIPNotAllowed
}
