// SPDX-License-Identifier: GPL-3.0-or-later

package hushdns

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/hushdns/hushdns/dnswire"
)

// dohContentType is the media type for DNS messages over HTTPS.
const dohContentType = "application/dns-message"

// dohMaxResponseSize bounds the size of the response body we are
// willing to read from a DoH or DoH3 server.
const dohMaxResponseSize = 1 << 16

// HTTPSClient is the subset of [*http.Client] used to exchange
// DNS messages over HTTPS.
type HTTPSClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// DoHTransport is a [Transport] using DNS over HTTPS (RFC 8484)
// with HTTP/2. Construct using [NewDoHTransport].
type DoHTransport struct {
	// Client is the MANDATORY client used to perform HTTP requests.
	Client HTTPSClient

	// URL is the MANDATORY URL of the DoH server.
	URL string
}

var _ Transport = &DoHTransport{}

// NewDoHTransport constructs a [*DoHTransport] using a dedicated
// HTTP/2-capable client and the given server URL.
func NewDoHTransport(URL string) *DoHTransport {
	return &DoHTransport{Client: newHTTP2Client(), URL: URL}
}

// newHTTP2Client constructs an [*http.Client] negotiating HTTP/2
// over TLS and keeping connections alive across exchanges.
func newHTTP2Client() *http.Client {
	return &http.Client{
		Transport: &http.Transport{
			ForceAttemptHTTP2:   true,
			IdleConnTimeout:     90 * time.Second,
			MaxIdleConnsPerHost: 4,
			TLSClientConfig: &tls.Config{
				MinVersion: tls.VersionTLS12,
			},
		},
	}
}

// Exchange implements [Transport].
func (txp *DoHTransport) Exchange(ctx context.Context, query *dnswire.Query) (*dnswire.Response, error) {
	return dohExchange(ctx, txp.Client, txp.URL, query)
}

// dohExchange performs the POST exchange shared by [*DoHTransport]
// and [*DoH3Transport].
func dohExchange(ctx context.Context, client HTTPSClient,
	URL string, query *dnswire.Query) (*dnswire.Response, error) {
	// 1. clone the query and zero its ID as suggested by RFC 8484
	// to make the request body cache friendly
	query = query.Clone()
	query.ID = 0

	// 2. serialize the query to wire format
	rawQuery, err := query.Encode()
	if err != nil {
		return nil, err
	}

	// 3. prepare the HTTP request bound to the context
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, URL, bytes.NewReader(rawQuery))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", dohContentType)
	req.Header.Set("Accept", dohContentType)

	// 4. perform the round trip
	resp, err := client.Do(req)
	if err != nil {
		return nil, errors.Join(ErrTransport, err)
	}
	defer resp.Body.Close()

	// 5. ensure the server accepted the query and is speaking
	// the DNS-over-HTTPS media type
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: unexpected HTTP status %d", ErrTransport, resp.StatusCode)
	}
	if ctype := resp.Header.Get("Content-Type"); ctype != dohContentType {
		return nil, fmt.Errorf("%w: unexpected content type %q", ErrTransport, ctype)
	}

	// 6. read the response body enforcing a maximum size
	rawResp, err := io.ReadAll(io.LimitReader(resp.Body, dohMaxResponseSize))
	if err != nil {
		return nil, errors.Join(ErrTransport, err)
	}

	// 7. parse and validate the response
	msg, err := dnswire.ParseMessage(rawResp)
	if err != nil {
		return nil, err
	}
	return dnswire.ParseResponse(query, msg)
}
