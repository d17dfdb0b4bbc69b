// SPDX-License-Identifier: GPL-3.0-or-later

// Package hushdns resolves DNS names exclusively over encrypted
// transports against a fixed set of public resolvers.
//
// The core high-level abstraction is the [*Resolver]. It maps a set of
// hostnames onto concurrent resolution attempts, selecting providers
// from the built-in registry according to a [Strategy]:
//
//  1. [StrategySingle]: every hostname uses one provider, no fallback;
//
//  2. [StrategyRace]: every hostname queries all capable providers
//     concurrently and the first success wins;
//
//  3. [StrategyShuffle]: every hostname tries the capable providers
//     one at a time in a randomized order until one succeeds.
//
// We implement the following DNS protocols:
//
//  1. DNS over HTTPS: implemented by [*DoHTransport] over HTTP/2
//
//  2. DNS over TLS: implemented by [*DoTTransport]
//
//  3. DNS over HTTP/3: implemented by [*DoH3Transport] over QUIC
//
// Query encoding and response decoding live in the
// [github.com/hushdns/hushdns/dnswire] package, and ECH configuration
// extraction from HTTPS/SVCB answers lives in
// [github.com/hushdns/hushdns/ech].
//
// For example, to resolve A and AAAA records for two domains racing
// all the providers over DNS over HTTPS:
//
//	reso := hushdns.NewResolver()
//	results, err := reso.Resolve(ctx, &hushdns.Request{
//		Hostnames: []string{"example.com", "example.org"},
//		Protocol:  hushdns.ProtocolDoH,
//		Strategy:  hushdns.StrategyRace,
//	})
//
// Results are returned in input order regardless of completion order,
// one [*Result] per input hostname.
package hushdns
