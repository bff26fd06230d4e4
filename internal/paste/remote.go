package paste

import (
	"context"
	"io"
	"math"
	"net"
	"net/http"
	"net/netip"
	"net/url"
	"path/filepath"
	"strings"

	"github.com/pkg/errors"

	"github.com/zeybek/gopaste/internal/config"
)

// Address ranges a mirror target must not resolve to. Loopback, private,
// link-local, multicast and unspecified addresses are checked through
// netip's own predicates.
var blockedPrefixes = []netip.Prefix{
	netip.MustParsePrefix("100.64.0.0/10"),      // carrier-grade NAT
	netip.MustParsePrefix("192.0.0.0/24"),       // IETF protocol assignments
	netip.MustParsePrefix("192.0.2.0/24"),       // documentation (TEST-NET-1)
	netip.MustParsePrefix("198.51.100.0/24"),    // documentation (TEST-NET-2)
	netip.MustParsePrefix("203.0.113.0/24"),     // documentation (TEST-NET-3)
	netip.MustParsePrefix("198.18.0.0/15"),      // benchmarking
	netip.MustParsePrefix("240.0.0.0/4"),        // reserved for future use
	netip.MustParsePrefix("255.255.255.255/32"), // broadcast
	netip.MustParsePrefix("fc00::/7"),           // unique local
	netip.MustParsePrefix("2001:db8::/32"),      // documentation
}

// AddrBlocked reports whether addr is off-limits for the remote mirror.
// IPv4-mapped IPv6 addresses are judged by their IPv4 rules.
func AddrBlocked(addr netip.Addr) bool {
	addr = addr.Unmap()
	if addr.IsLoopback() || addr.IsPrivate() || addr.IsUnspecified() ||
		addr.IsLinkLocalUnicast() || addr.IsLinkLocalMulticast() || addr.IsMulticast() {
		return true
	}
	for _, prefix := range blockedPrefixes {
		if prefix.Contains(addr) {
			return true
		}
	}
	return false
}

// CheckHost rejects mirror targets pointing at localhost or resolving to a
// blocked address. Every resolved address must be routable.
func CheckHost(ctx context.Context, host string) error {
	lowered := strings.ToLower(host)
	if lowered == "localhost" || strings.HasSuffix(lowered, ".localhost") {
		return ErrAddressBlocked
	}
	if addr, err := netip.ParseAddr(host); err == nil {
		if AddrBlocked(addr) {
			return ErrAddressBlocked
		}
		return nil
	}
	addrs, err := net.DefaultResolver.LookupNetIP(ctx, "ip", host)
	if err != nil {
		return errors.Wrap(err, "resolve host")
	}
	if len(addrs) == 0 {
		return ErrAddressBlocked
	}
	for _, addr := range addrs {
		if AddrBlocked(addr) {
			return ErrAddressBlocked
		}
	}
	return nil
}

// NewClient builds the shared HTTP client for mirroring. It follows no
// redirects, closing the door on redirect-based guard bypasses.
func NewClient(timeout config.Duration) *http.Client {
	return &http.Client{
		Timeout: timeout.Duration,
		CheckRedirect: func(*http.Request, []*http.Request) error {
			return http.ErrUseLastResponse
		},
	}
}

// StoreRemote downloads urlData and stores the body as a RemoteFile paste,
// returning the served name. The download is capped at max_content_length.
func StoreRemote(ctx context.Context, urlData []byte, expiryMillis *int64, client *http.Client, cfg *config.Config) (string, error) {
	target, err := ParseURL(urlData)
	if err != nil {
		return "", err
	}
	if err := CheckHost(ctx, target.Hostname()); err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.String(), nil)
	if err != nil {
		return "", errors.Wrap(err, "build request")
	}
	resp, err := client.Do(req)
	if err != nil {
		return "", errors.Wrap(err, "download file")
	}
	defer resp.Body.Close()

	maxLength := int64(cfg.Server.MaxContentLength)
	if maxLength <= 0 {
		maxLength = math.MaxInt64 - 1
	}
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxLength+1))
	if err != nil {
		return "", errors.Wrap(err, "read remote body")
	}
	if int64(len(body)) > maxLength {
		return "", ErrUploadLimit
	}

	if !cfg.Paste.AllowDuplicates() && expiryMillis == nil {
		if existing, ok := FindDuplicate(body, cfg.Server.UploadPath); ok {
			return filepath.Base(existing), nil
		}
	}

	paste := Paste{Data: body, Kind: RemoteFile}
	return paste.StoreFile(remoteFileName(target), expiryMillis, "", cfg)
}

// remoteFileName derives a candidate name from the URL's last non-empty
// path segment.
func remoteFileName(target *url.URL) string {
	for _, segment := range reverse(strings.Split(target.Path, "/")) {
		if segment != "" {
			return segment
		}
	}
	return "file"
}

func reverse(segments []string) []string {
	for i, j := 0, len(segments)-1; i < j; i, j = i+1, j-1 {
		segments[i], segments[j] = segments[j], segments[i]
	}
	return segments
}
