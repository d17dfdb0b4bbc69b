// SPDX-License-Identifier: GPL-3.0-or-later

package hushdns

import (
	"errors"
	"fmt"
	"strings"
)

// Protocol selects the encrypted transport used to reach a provider.
type Protocol string

// The protocols we implement.
const (
	// ProtocolDoH is DNS over HTTPS using HTTP/2.
	ProtocolDoH = Protocol("doh")

	// ProtocolDoT is DNS over TLS.
	ProtocolDoT = Protocol("dot")

	// ProtocolDoH3 is DNS over HTTPS using HTTP/3 over QUIC.
	ProtocolDoH3 = Protocol("doh3")
)

// ErrUnknownProtocol means the protocol name is not one of doh, dot,
// or doh3. Wraps [ErrConfiguration].
var ErrUnknownProtocol = errors.Join(ErrConfiguration, errors.New("unknown protocol"))

// ParseProtocol maps a protocol name to a [Protocol].
func ParseProtocol(name string) (Protocol, error) {
	switch proto := Protocol(strings.ToLower(name)); proto {
	case ProtocolDoH, ProtocolDoT, ProtocolDoH3:
		return proto, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownProtocol, name)
	}
}

// String implements fmt.Stringer.
func (p Protocol) String() string {
	switch p {
	case ProtocolDoH:
		return "DoH"
	case ProtocolDoT:
		return "DoT"
	case ProtocolDoH3:
		return "DoH3"
	default:
		return string(p)
	}
}
