package resolve

import (
	"errors"
	"net"
	"syscall"
)

// IsConnectFailure reports whether err means the remote endpoint could not
// be reached at all, as opposed to the endpoint answering with a failure.
// Only connect failures justify a forced re-resolution.
func IsConnectFailure(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, syscall.ECONNREFUSED) || errors.Is(err, syscall.EHOSTUNREACH) {
		return true
	}
	var op *net.OpError
	if errors.As(err, &op) {
		return op.Op == "dial"
	}
	var dns *net.DNSError
	return errors.As(err, &dns)
}
