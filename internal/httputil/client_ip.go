package httputil

import (
	"net"
	"net/http"
)

// ClientIP returns the client IP address for rate limiting and audit rows.
//
// Only the transport-level remote address is used. X-Forwarded-For is
// deliberately ignored: trusting it would let an attacker reset their rate
// limit by cycling fake header values. A deployment behind a proxy should
// have the proxy rewrite the remote address instead.
func ClientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		// RemoteAddr without a port, e.g. in tests.
		return r.RemoteAddr
	}
	return host
}
