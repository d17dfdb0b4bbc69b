// SPDX-License-Identifier: GPL-3.0-or-later

// Package dnswire implements the DNS message wire format.
//
// It contains the query encoder and the message decoder shared by all
// the encrypted transports in this module:
//
//  1. [NewQuery] and [*Query.Encode] build queries;
//
//  2. [ParseMessage] decodes a raw response into a [*Message];
//
//  3. [ParseResponse] validates a decoded message against the query
//     that produced it and maps the RCODE to an error.
//
// The decoder is total: malformed input of any kind yields an error
// wrapping [ErrDecode], never a panic. Compressed names are followed
// only through pointers that point strictly backward in the buffer,
// which makes pointer loops impossible.
//
// SVCB and HTTPS rdata are decoded into [*SVCBData], including the
// service parameter list consumed by [github.com/hushdns/hushdns/ech].
package dnswire
