// SPDX-License-Identifier: GPL-3.0-or-later

package hushdns

import (
	"context"
	"crypto/tls"
	"net/http"

	"github.com/hushdns/hushdns/dnswire"
	"github.com/quic-go/quic-go/http3"
)

// DoH3Transport is a [Transport] using DNS over HTTPS carried by
// HTTP/3 over QUIC. Construct using [NewDoH3Transport].
//
// Apart from the HTTP version, the exchange is the same POST of
// "application/dns-message" performed by [*DoHTransport].
type DoH3Transport struct {
	// Client is the MANDATORY client used to perform HTTP requests.
	Client HTTPSClient

	// URL is the MANDATORY URL of the DoH3 server.
	URL string
}

var _ Transport = &DoH3Transport{}

// NewDoH3Transport constructs a [*DoH3Transport] using a dedicated
// HTTP/3 client and the given server URL.
func NewDoH3Transport(URL string) *DoH3Transport {
	return &DoH3Transport{Client: newHTTP3Client(), URL: URL}
}

// newHTTP3Client constructs an [*http.Client] speaking HTTP/3 over
// QUIC. The underlying transport pools QUIC connections, so repeated
// exchanges with the same server reuse a single connection.
func newHTTP3Client() *http.Client {
	return &http.Client{
		Transport: &http3.Transport{
			TLSClientConfig: &tls.Config{
				MinVersion: tls.VersionTLS13,
			},
		},
	}
}

// Exchange implements [Transport].
func (txp *DoH3Transport) Exchange(ctx context.Context, query *dnswire.Query) (*dnswire.Response, error) {
	return dohExchange(ctx, txp.Client, txp.URL, query)
}
