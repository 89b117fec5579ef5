// Package dnsbind implements the §4.J DNS bindings: hostname → list of
// (family, address) via the OS resolver (Lookup, LookupAsync), plus a
// separate synchronous protocol-level client (ResolveViaServer) for
// callers that need explicit control over which resolver answers the
// query. Lookup never falls back to ResolveViaServer.
//
// Domain-stack wiring: github.com/miekg/dns (used by bassosimone-nop for
// protocol-level DNS work in the retrieval pack) backs the explicit-
// resolver path; net.DefaultResolver backs the common OS-resolver path
// that spec.md's dns.lookup describes.
package dnsbind

import (
	"context"
	"net"
	"os"
	"time"

	"github.com/miekg/dns"

	"jsrt/internal/core"
	"jsrt/internal/ioqueue"
)

// Answer is one resolved (family, address) pair.
type Answer struct {
	Family int // 4 or 6
	Address string
}

// Lookup resolves hostname via the OS resolver (net.DefaultResolver),
// blocking until it completes or ctx is cancelled.
func Lookup(ctx context.Context, hostname string) ([]Answer, error) {
	addrs, err := net.DefaultResolver.LookupIPAddr(ctx, hostname)
	if err != nil {
		return nil, classify(err, hostname)
	}
	out := make([]Answer, 0, len(addrs))
	for _, a := range addrs {
		family := 6
		if a.IP.To4() != nil {
			family = 4
		}
		out = append(out, Answer{Family: family, Address: a.IP.String()})
	}
	return out, nil
}

// LookupAsync registers a DNS-request handle so it counts as keep-alive
// while pending (§3.1), resolves hostname on its own background goroutine
// with a timeout, and posts the result to completions under that handle's
// ID, which it returns.
func LookupAsync(registry *core.Registry, completions *ioqueue.Queue, hostname string, timeout time.Duration) int64 {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	rec := &core.DNSRequestRecord{Hostname: hostname, Cancel: cancel}
	id := registry.Register(rec)

	go func() {
		defer cancel()
		answers, err := Lookup(ctx, hostname)
		registry.Unregister(id)
		completions.Post(ioqueue.Completion{HandleID: id, Result: answers, Err: err})
	}()
	return id
}

// ResolveViaServer performs a protocol-level query against a specific DNS
// server using miekg/dns, for callers needing explicit resolver control
// beyond what the OS stub resolver exposes. rrtype is e.g. dns.TypeA.
func ResolveViaServer(server, hostname string, rrtype uint16, timeout time.Duration) ([]Answer, error) {
	m := new(dns.Msg)
	m.SetQuestion(dns.Fqdn(hostname), rrtype)
	m.RecursionDesired = true

	c := new(dns.Client)
	c.Timeout = timeout

	resp, _, err := c.Exchange(m, net.JoinHostPort(server, "53"))
	if err != nil {
		return nil, classify(err, hostname)
	}
	if resp.Rcode != dns.RcodeSuccess {
		return nil, core.NewError(core.ErrResource, "EAI_FAIL", "DNS query failed with rcode "+dns.RcodeToString[resp.Rcode])
	}

	var out []Answer
	for _, rr := range resp.Answer {
		switch rec := rr.(type) {
		case *dns.A:
			out = append(out, Answer{Family: 4, Address: rec.A.String()})
		case *dns.AAAA:
			out = append(out, Answer{Family: 6, Address: rec.AAAA.String()})
		}
	}
	return out, nil
}

// SystemResolvServers reads /etc/resolv.conf (via miekg/dns's ClientConfig
// helper) to find the default recursive resolvers the OS would use, for
// the fallback path in ResolveViaServer.
func SystemResolvServers() ([]string, error) {
	const resolvConf = "/etc/resolv.conf"
	if _, err := os.Stat(resolvConf); err != nil {
		return nil, core.Wrap(core.ErrResource, "", err)
	}
	cfg, err := dns.ClientConfigFromFile(resolvConf)
	if err != nil {
		return nil, core.Wrap(core.ErrResource, "", err)
	}
	return cfg.Servers, nil
}

func classify(err error, hostname string) error {
	if dnsErr, ok := err.(*net.DNSError); ok {
		if dnsErr.IsTimeout {
			return core.ErrTimedOut("dns lookup " + hostname)
		}
		if dnsErr.IsNotFound {
			return core.NewError(core.ErrResource, "ENOTFOUND", "DNS lookup failed: "+hostname)
		}
	}
	return core.Wrap(core.ErrResource, "ENOTFOUND", err)
}
