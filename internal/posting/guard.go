package posting

import (
	"errors"
	"fmt"
	"net"
	"net/http"
	"net/netip"
	"strings"
	"syscall"
	"time"
)

const maxRedirects = 5

var errPrivateAddress = errors.New("destination address is not public")

// sharedAddressSpace is carrier-grade NAT space, not covered by IsPrivate.
var sharedAddressSpace = netip.MustParsePrefix("100.64.0.0/10")

// newClient builds the fetch client. Unless allowPrivate is set, every dial
// is checked against the resolved address and every redirect is
// re-validated, so DNS names and redirects cannot reach internal hosts.
func newClient(timeout time.Duration, allowPrivate bool) *http.Client {
	dialer := &net.Dialer{
		Timeout:   timeout,
		KeepAlive: 30 * time.Second,
	}
	if !allowPrivate {
		dialer.Control = checkDialAddr
	}

	tr := http.DefaultTransport.(*http.Transport).Clone()
	// direct connections only, so the dial check sees the real target
	tr.Proxy = nil
	tr.DialContext = dialer.DialContext

	return &http.Client{
		Timeout:   timeout,
		Transport: tr,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			return checkRedirect(req, via, allowPrivate)
		},
	}
}

func checkRedirect(req *http.Request, via []*http.Request, allowPrivate bool) error {
	if len(via) >= maxRedirects {
		return fmt.Errorf("stopped after %d redirects", maxRedirects)
	}
	if req.URL.Scheme != "http" && req.URL.Scheme != "https" {
		return fmt.Errorf("redirect to unsupported scheme %q", req.URL.Scheme)
	}
	if !allowPrivate && !publicHost(req.URL.Hostname()) {
		return fmt.Errorf("redirect to %s: %w", req.URL.Hostname(), errPrivateAddress)
	}
	return nil
}

func checkDialAddr(network, address string, _ syscall.RawConn) error {
	ap, err := netip.ParseAddrPort(address)
	if err != nil {
		return fmt.Errorf("dial %s: %w", address, err)
	}
	if !publicAddr(ap.Addr()) {
		return fmt.Errorf("dial %s: %w", address, errPrivateAddress)
	}
	return nil
}

// publicHost rejects names and literal addresses that are internal. Other
// DNS names pass here and are checked again at dial time.
func publicHost(host string) bool {
	h := strings.TrimSuffix(strings.ToLower(host), ".")
	if h == "" || h == "localhost" || strings.HasSuffix(h, ".localhost") {
		return false
	}
	if addr, err := netip.ParseAddr(h); err == nil {
		return publicAddr(addr)
	}
	return true
}

func publicAddr(addr netip.Addr) bool {
	addr = addr.Unmap()
	return addr.IsGlobalUnicast() && !addr.IsPrivate() && !sharedAddressSpace.Contains(addr)
}
