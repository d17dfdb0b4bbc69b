// SPDX-License-Identifier: GPL-3.0-or-later

package hushdns

import "errors"

// ErrTransport is the root cause of every transport failure: connect
// and handshake errors, timeouts, HTTP failure statuses, and framing
// violations. Transport errors are scoped to a single attempt and
// drive fallback under [StrategyShuffle].
var ErrTransport = errors.New("transport failure")

// ErrConfiguration means the requested combination of provider,
// protocol, and strategy is invalid. It is detected before any
// network activity and aborts the whole invocation.
var ErrConfiguration = errors.New("invalid configuration")

// ErrNoSuchProvider means the given provider ID is not in the
// registry. Wraps [ErrConfiguration].
var ErrNoSuchProvider = errors.Join(ErrConfiguration, errors.New("no such provider"))

// ErrProtocolNotSupported means the selected provider does not
// support the selected protocol. Wraps [ErrConfiguration].
var ErrProtocolNotSupported = errors.Join(ErrConfiguration, errors.New("provider does not support protocol"))

// ErrNoCapableProvider means no registered provider supports the
// selected protocol. Wraps [ErrConfiguration].
var ErrNoCapableProvider = errors.Join(ErrConfiguration, errors.New("no provider supports protocol"))
