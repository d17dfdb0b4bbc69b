// SPDX-License-Identifier: GPL-3.0-or-later

package dnswire

import (
	"errors"
	"math/rand/v2"
	"strings"

	"golang.org/x/net/idna"
)

// Encoding errors.
var (
	// ErrInvalidName means the query name cannot be encoded.
	ErrInvalidName = errors.New("invalid DNS name")
)

// Query is a DNS query.
//
// Construct using [NewQuery]. The query is not mutated by [*Query.Encode],
// so transports that need protocol-specific settings (e.g., the zero ID
// used over HTTPS) should [*Query.Clone] before adjusting fields.
type Query struct {
	// ID is the query ID. [NewQuery] randomizes it so that a response
	// for a different query cannot be confused with ours.
	ID uint16

	// Name is the domain name to query.
	Name string

	// Type is the query type.
	Type Type
}

// NewQuery constructs a new [*Query] with a random ID.
func NewQuery(name string, qtype Type) *Query {
	return &Query{
		ID:   uint16(rand.Uint32()),
		Name: name,
		Type: qtype,
	}
}

// Clone returns a copy of the query.
func (q *Query) Clone() *Query {
	return &Query{
		ID:   q.ID,
		Name: q.Name,
		Type: q.Type,
	}
}

// queryFlags is the flags word we send: RD set, everything else zero.
const queryFlags = uint16(0x0100)

// Encode serializes the query in wire format: a 12 byte header with
// QDCOUNT=1, followed by a single question for the IN class.
func (q *Query) Encode() ([]byte, error) {
	rawName, err := encodeName(q.Name)
	if err != nil {
		return nil, err
	}

	out := make([]byte, 0, 12+len(rawName)+4)
	out = appendUint16(out, q.ID)
	out = appendUint16(out, queryFlags)
	out = appendUint16(out, 1) // QDCOUNT
	out = appendUint16(out, 0) // ANCOUNT
	out = appendUint16(out, 0) // NSCOUNT
	out = appendUint16(out, 0) // ARCOUNT
	out = append(out, rawName...)
	out = appendUint16(out, uint16(q.Type))
	out = appendUint16(out, ClassIN)
	return out, nil
}

// encodeName converts a domain name to a sequence of length-prefixed
// labels terminated by the root label.
func encodeName(name string) ([]byte, error) {
	// IDNA-map the name so that non-ASCII input becomes punycode.
	punyName, err := idna.Lookup.ToASCII(name)
	if err != nil {
		return nil, errors.Join(ErrInvalidName, err)
	}

	// The root name encodes to just the terminator.
	punyName = strings.TrimSuffix(punyName, ".")
	if punyName == "" {
		return []byte{0}, nil
	}

	out := make([]byte, 0, len(punyName)+2)
	for label := range strings.SplitSeq(punyName, ".") {
		if len(label) < 1 || len(label) > maxLabelLength {
			return nil, ErrInvalidName
		}
		out = append(out, byte(len(label)))
		out = append(out, label...)
	}
	out = append(out, 0)

	if len(out) > maxNameLength {
		return nil, ErrInvalidName
	}
	return out, nil
}

// appendUint16 appends a big-endian 16-bit value.
func appendUint16(out []byte, v uint16) []byte {
	return append(out, byte(v>>8), byte(v))
}
