// SPDX-License-Identifier: GPL-3.0-or-later

package hushdns

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"math"
	"net"

	"github.com/bassosimone/runtimex"
	"github.com/hushdns/hushdns/dnswire"
)

// StreamDialer establishes the stream over which a [*DoTTransport]
// exchanges framed DNS messages. [*tls.Dialer] implements it.
type StreamDialer interface {
	DialContext(ctx context.Context, network, address string) (net.Conn, error)
}

// DoTTransport is a [Transport] using DNS over TLS (RFC 7858).
// Construct using [NewDoTTransport].
//
// Each exchange dials a fresh connection, sends the query using the
// two-byte, big-endian length framing shared with DNS over TCP, and
// reads back exactly one framed response.
type DoTTransport struct {
	// Dialer is the MANDATORY dialer establishing the TLS stream.
	Dialer StreamDialer

	// Endpoint is the MANDATORY "host:port" endpoint to dial.
	Endpoint string
}

var _ Transport = &DoTTransport{}

// NewDoTTransport constructs a [*DoTTransport] dialing the given
// endpoint and verifying the given TLS server name.
func NewDoTTransport(endpoint, serverName string) *DoTTransport {
	return &DoTTransport{
		Dialer: &tls.Dialer{
			NetDialer: &net.Dialer{},
			Config: &tls.Config{
				ServerName: serverName,
				NextProtos: []string{"dot"},
				MinVersion: tls.VersionTLS12,
			},
		},
		Endpoint: endpoint,
	}
}

// Exchange implements [Transport].
func (txp *DoTTransport) Exchange(ctx context.Context, query *dnswire.Query) (*dnswire.Response, error) {
	// 1. establish the TLS stream
	conn, err := txp.Dialer.DialContext(ctx, "tcp", txp.Endpoint)
	if err != nil {
		return nil, errors.Join(ErrTransport, err)
	}
	defer conn.Close()

	// 2. arrange for context cancellation to interrupt pending I/O
	// by closing the underlying connection
	watcherDone := make(chan struct{})
	defer close(watcherDone)
	go func() {
		defer conn.Close()
		select {
		case <-ctx.Done():
		case <-watcherDone:
		}
	}()

	// 3. honor a possible context deadline
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	// 4. serialize the query to wire format
	rawQuery, err := query.Encode()
	if err != nil {
		return nil, err
	}

	// 5. write the length-prefixed query
	if err := writeFrame(conn, rawQuery); err != nil {
		return nil, errors.Join(ErrTransport, maybeCtxError(ctx, err))
	}

	// 6. read back the length-prefixed response
	rawResp, err := readFrame(conn)
	if err != nil {
		return nil, errors.Join(ErrTransport, maybeCtxError(ctx, err))
	}

	// 7. parse and validate the response
	msg, err := dnswire.ParseMessage(rawResp)
	if err != nil {
		return nil, err
	}
	return dnswire.ParseResponse(query, msg)
}

// writeFrame writes a DNS message preceded by its two-byte,
// big-endian length.
func writeFrame(conn net.Conn, rawMsg []byte) error {
	// Invariant: the DNS message fits the two-byte framing length.
	runtimex.Assert(len(rawMsg) <= math.MaxUint16)
	frame := make([]byte, 0, 2+len(rawMsg))
	frame = append(frame, byte(len(rawMsg)>>8), byte(len(rawMsg)))
	frame = append(frame, rawMsg...)
	_, err := conn.Write(frame)
	return err
}

// errZeroLengthFrame means the server sent a frame declaring
// a zero-length DNS message.
var errZeroLengthFrame = errors.New("zero-length response frame")

// readFrame reads a single length-prefixed DNS message.
func readFrame(conn net.Conn) ([]byte, error) {
	header := make([]byte, 2)
	if _, err := io.ReadFull(conn, header); err != nil {
		return nil, err
	}
	length := int(header[0])<<8 | int(header[1])
	if length <= 0 {
		return nil, errZeroLengthFrame
	}
	rawMsg := make([]byte, length)
	if _, err := io.ReadFull(conn, rawMsg); err != nil {
		return nil, fmt.Errorf("truncated response frame: %w", err)
	}
	return rawMsg, nil
}

// maybeCtxError maps I/O errors caused by the watcher closing the
// connection back to the context error, which reads better than the
// resulting "use of closed network connection".
func maybeCtxError(ctx context.Context, err error) error {
	if ctxErr := ctx.Err(); ctxErr != nil {
		return ctxErr
	}
	return err
}
