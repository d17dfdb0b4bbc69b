// SPDX-License-Identifier: GPL-3.0-or-later

package hushdns

import (
	"fmt"
	"slices"
)

// Provider describes a public resolver and its per-protocol endpoints.
//
// Providers are immutable: the registry is filled at package init and
// never mutated afterwards, so it is safe to share across goroutines
// without locking.
type Provider struct {
	// ID is the stable lowercase identifier used on the command line.
	ID string

	// Name is the display name.
	Name string

	// DoHURL is the DNS-over-HTTPS query endpoint.
	DoHURL string

	// DoTEndpoint is the host:port of the DNS-over-TLS endpoint.
	DoTEndpoint string

	// DoTServerName is the TLS server name for DoT verification.
	DoTServerName string

	// DoH3URL is the DNS-over-HTTP/3 query endpoint.
	DoH3URL string

	// protocols lists the protocols the provider supports.
	protocols []Protocol
}

// Supports reports whether the provider supports the given protocol.
func (p *Provider) Supports(proto Protocol) bool {
	return slices.Contains(p.protocols, proto)
}

// allProtocols is the full capability set.
var allProtocols = []Protocol{ProtocolDoH, ProtocolDoT, ProtocolDoH3}

// providers is the built-in registry in presentation order.
var providers = []*Provider{
	{
		ID:            "cloudflare",
		Name:          "Cloudflare",
		DoHURL:        "https://cloudflare-dns.com/dns-query",
		DoTEndpoint:   "1.1.1.1:853",
		DoTServerName: "cloudflare-dns.com",
		DoH3URL:       "https://cloudflare-dns.com/dns-query",
		protocols:     allProtocols,
	},
	{
		ID:            "google",
		Name:          "Google",
		DoHURL:        "https://dns.google/dns-query",
		DoTEndpoint:   "8.8.8.8:853",
		DoTServerName: "dns.google",
		DoH3URL:       "https://dns.google/dns-query",
		protocols:     allProtocols,
	},
	{
		ID:            "quad9",
		Name:          "Quad9",
		DoHURL:        "https://dns.quad9.net/dns-query",
		DoTEndpoint:   "9.9.9.9:853",
		DoTServerName: "dns.quad9.net",
		// Quad9 does not serve DNS over HTTP/3.
		protocols: []Protocol{ProtocolDoH, ProtocolDoT},
	},
	{
		ID:            "nextdns",
		Name:          "NextDNS",
		DoHURL:        "https://dns.nextdns.io/dns-query",
		DoTEndpoint:   "45.90.28.0:853",
		DoTServerName: "dns.nextdns.io",
		DoH3URL:       "https://dns.nextdns.io/dns-query",
		protocols:     allProtocols,
	},
}

// Providers returns all the built-in providers.
func Providers() []*Provider {
	return slices.Clone(providers)
}

// ProviderByID returns the provider with the given ID or an error
// wrapping [ErrNoSuchProvider].
func ProviderByID(id string) (*Provider, error) {
	for _, provider := range providers {
		if provider.ID == id {
			return provider, nil
		}
	}
	return nil, fmt.Errorf("%w: %q", ErrNoSuchProvider, id)
}

// ProvidersSupporting returns the providers supporting the given
// protocol, preserving registry order.
func ProvidersSupporting(proto Protocol) []*Provider {
	var out []*Provider
	for _, provider := range providers {
		if provider.Supports(proto) {
			out = append(out, provider)
		}
	}
	return out
}
