package captcha

import (
	"fmt"
	"net/http"
	"net/netip"
	"strings"
)

const TokenHeader = "X-CAPTCHA-KEY"

// VerificationRequest is the siteverify payload. It lives for one request only.
type VerificationRequest struct {
	Token    string
	Secret   string
	SiteKey  string
	ClientIP netip.Addr
}

// ConnInfo is the connection metadata the verifier needs.
type ConnInfo struct {
	RemoteAddr string
}

func ExtractToken(header http.Header) (string, error) {
	token := strings.TrimSpace(header.Get(TokenHeader))
	if token == "" {
		return "", &Error{Cause: Missing}
	}
	return token, nil
}

// ResolveClientAddr returns the real client address string. Proxy headers
// (Forwarded, then X-Forwarded-For) are honoured only when the peer is inside
// one of the trusted prefixes; otherwise the peer address is used as is.
func ResolveClientAddr(header http.Header, conn ConnInfo, trusted []netip.Prefix) (string, bool) {
	peer := strings.TrimSpace(conn.RemoteAddr)
	if peer == "" {
		return "", false
	}
	if !peerTrusted(peer, trusted) {
		return peer, true
	}
	if v, ok := forwardedFor(header.Get("Forwarded")); ok {
		return v, true
	}
	if xff := header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if first = strings.TrimSpace(first); first != "" {
			return first, true
		}
	}
	return peer, true
}

// ParseClientIP disambiguates the address family. A colon never appears in an
// IPv4 literal, so a string with one is read as a socket address ("ip:port" or
// "[v6]:port"); anything else must be a bare IPv4 address.
func ParseClientIP(s string) (netip.Addr, error) {
	if strings.Contains(s, ":") {
		ap, err := netip.ParseAddrPort(s)
		if err != nil {
			return netip.Addr{}, &Error{Cause: InsufficientInformation, Err: err}
		}
		return ap.Addr(), nil
	}
	addr, err := netip.ParseAddr(s)
	if err != nil {
		return netip.Addr{}, &Error{Cause: InsufficientInformation, Err: err}
	}
	if !addr.Is4() {
		return netip.Addr{}, &Error{Cause: InsufficientInformation, Err: fmt.Errorf("%q is not an IPv4 address", s)}
	}
	return addr, nil
}

func peerTrusted(peer string, trusted []netip.Prefix) bool {
	if len(trusted) == 0 {
		return false
	}
	var addr netip.Addr
	if ap, err := netip.ParseAddrPort(peer); err == nil {
		addr = ap.Addr()
	} else if a, err := netip.ParseAddr(peer); err == nil {
		addr = a
	} else {
		return false
	}
	addr = addr.Unmap()
	for _, p := range trusted {
		if p.Contains(addr) {
			return true
		}
	}
	return false
}

// forwardedFor returns the first for= value of an RFC 7239 Forwarded header.
func forwardedFor(v string) (string, bool) {
	if v == "" {
		return "", false
	}
	first, _, _ := strings.Cut(v, ",")
	for _, pair := range strings.Split(first, ";") {
		name, value, ok := strings.Cut(strings.TrimSpace(pair), "=")
		if !ok || !strings.EqualFold(name, "for") {
			continue
		}
		value = strings.Trim(strings.TrimSpace(value), `"`)
		if value == "" {
			return "", false
		}
		return value, true
	}
	return "", false
}
