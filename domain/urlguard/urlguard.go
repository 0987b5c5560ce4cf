package urlguard

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"regexp"
	"strconv"
	"strings"
)

// Guard errors.
var (
	ErrInvalidURL   = errors.New("invalid URL")
	ErrSchemeDenied = errors.New("URL scheme not allowed")
	ErrHostDenied   = errors.New("URL host not allowed")
)

var ipv4Literal = regexp.MustCompile(`^(\d{1,3}\.){3}\d{1,3}$`)

// Hostnames that must never be fetched, regardless of resolution.
var deniedHosts = map[string]bool{
	"169.254.169.254":          true,
	"metadata.google.internal": true,
}

const deniedHostSuffix = ".metadata.google.internal"

// Validate applies the outbound-URL policy: https only, metadata hostnames
// denied, and literal private/reserved IPs rejected. DNS resolution is not
// performed; the guard defends against literal-IP abuse only.
func Validate(rawURL string) error {
	u, err := url.Parse(rawURL)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidURL, err)
	}

	if u.Scheme != "https" {
		return fmt.Errorf("%w: %q", ErrSchemeDenied, u.Scheme)
	}

	host := strings.ToLower(u.Hostname())
	if host == "" {
		return fmt.Errorf("%w: empty host", ErrInvalidURL)
	}

	if deniedHosts[host] || strings.HasSuffix(host, deniedHostSuffix) {
		return fmt.Errorf("%w: %q", ErrHostDenied, host)
	}

	if ipv4Literal.MatchString(host) {
		return validateIPv4(host)
	}

	if strings.Contains(host, ":") {
		return validateIPv6(host)
	}

	return nil
}

func validateIPv4(host string) error {
	parts := strings.Split(host, ".")
	octets := make([]int, 4)
	for i, p := range parts {
		n, err := strconv.Atoi(p)
		if err != nil || n > 255 {
			return fmt.Errorf("%w: %q", ErrInvalidURL, host)
		}
		octets[i] = n
	}

	a, b := octets[0], octets[1]
	switch {
	case a == 0: // 0.0.0.0/8
	case a == 10: // 10.0.0.0/8
	case a == 127: // 127.0.0.0/8
	case a == 169 && b == 254: // 169.254.0.0/16
	case a == 172 && b >= 16 && b <= 31: // 172.16.0.0/12
	case a == 192 && b == 168: // 192.168.0.0/16
	case a >= 224 && a <= 239: // 224.0.0.0/4
	case a >= 240: // 240.0.0.0/4
	default:
		return nil
	}
	return fmt.Errorf("%w: %q is a reserved address", ErrHostDenied, host)
}

func validateIPv6(host string) error {
	ip := net.ParseIP(host)
	if ip == nil {
		return fmt.Errorf("%w: %q", ErrInvalidURL, host)
	}

	// ::ffff:a.b.c.d carries an embedded IPv4 address; apply the IPv4 rules
	// to it.
	if v4 := ip.To4(); v4 != nil {
		return validateIPv4(v4.String())
	}

	switch {
	case ip.Equal(net.IPv6loopback): // ::1
	case ip[0]&0xfe == 0xfc: // fc00::/7
	case ip[0] == 0xfe && ip[1]&0xc0 == 0x80: // fe80::/10
	case ip[0] == 0xff: // ff00::/8
	default:
		return nil
	}
	return fmt.Errorf("%w: %q is a reserved address", ErrHostDenied, host)
}
