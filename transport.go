// SPDX-License-Identifier: GPL-3.0-or-later

package hushdns

import (
	"context"
	"fmt"

	"github.com/hushdns/hushdns/dnswire"
)

// Transport performs a DNS messages exchange over one encrypted
// protocol with one provider endpoint.
//
// Exchange sends the query and returns the validated response. The
// whole exchange (connect, handshake, send, receive) honors the
// context deadline and cancellation. A structurally valid response
// with a failure RCODE yields a [*dnswire.ResponseError].
type Transport interface {
	Exchange(ctx context.Context, query *dnswire.Query) (*dnswire.Response, error)
}

// newTransport constructs the [Transport] reaching the given provider
// over the given protocol. A capability mismatch yields an error
// wrapping [ErrConfiguration] before any network activity.
func newTransport(provider *Provider, proto Protocol) (Transport, error) {
	if !provider.Supports(proto) {
		return nil, fmt.Errorf("%w: %s over %s", ErrProtocolNotSupported, provider.ID, proto)
	}
	switch proto {
	case ProtocolDoH:
		return NewDoHTransport(provider.DoHURL), nil
	case ProtocolDoT:
		return NewDoTTransport(provider.DoTEndpoint, provider.DoTServerName), nil
	case ProtocolDoH3:
		return NewDoH3Transport(provider.DoH3URL), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownProtocol, proto)
	}
}
