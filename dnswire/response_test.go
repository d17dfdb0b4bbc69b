// SPDX-License-Identifier: GPL-3.0-or-later

package dnswire

import (
	"net"
	"testing"

	"github.com/miekg/dns"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// parseReply builds a reply with an independent implementation and
// decodes it with ours.
func parseReply(t *testing.T, reply *dns.Msg) *Message {
	t.Helper()
	msg, err := ParseMessage(mustPack(t, reply))
	require.NoError(t, err)
	return msg
}

func TestParseResponseSuccess(t *testing.T) {
	query := NewQuery("www.example.com", TypeA)
	msg := parseReply(t, newReply(t, query.ID, "www.example.com", dns.TypeA,
		&dns.CNAME{
			Hdr:    rrHeader("www.example.com", dns.TypeCNAME),
			Target: "example.com.",
		},
		&dns.A{
			Hdr: rrHeader("example.com", dns.TypeA),
			A:   net.IPv4(93, 184, 216, 34).To4(),
		},
		&dns.A{
			Hdr: rrHeader("unrelated.example.org", dns.TypeA),
			A:   net.IPv4(10, 0, 0, 1).To4(),
		},
	))

	resp, err := ParseResponse(query, msg)
	require.NoError(t, err)

	// the CNAME and the A record it points to are pertinent, the
	// record for the unrelated name is not
	require.Len(t, resp.Answers, 2)
	assert.Equal(t, TypeCNAME, resp.Answers[0].Type)
	assert.Equal(t, TypeA, resp.Answers[1].Type)

	addrs, err := resp.RecordsA()
	require.NoError(t, err)
	assert.Equal(t, []string{"93.184.216.34"}, addrs)

	_, err = resp.RecordsAAAA()
	assert.ErrorIs(t, err, ErrNoData)
}

func TestParseResponseCaseInsensitiveQuestion(t *testing.T) {
	query := NewQuery("Example.COM", TypeA)
	msg := parseReply(t, newReply(t, query.ID, "example.com", dns.TypeA,
		&dns.A{
			Hdr: rrHeader("EXAMPLE.com", dns.TypeA),
			A:   net.IPv4(93, 184, 216, 34).To4(),
		},
	))

	resp, err := ParseResponse(query, msg)
	require.NoError(t, err)
	require.Len(t, resp.Answers, 1)
}

func TestParseResponseRcode(t *testing.T) {

	type testCase struct {
		// name is the subtest name.
		name string

		// rcode is the rcode set in the reply.
		rcode int

		// wantRcode is the rcode we expect reported.
		wantRcode Rcode
	}

	tests := []testCase{
		{
			name:      "NXDOMAIN",
			rcode:     dns.RcodeNameError,
			wantRcode: RcodeNXDomain,
		},

		{
			name:      "SERVFAIL",
			rcode:     dns.RcodeServerFailure,
			wantRcode: RcodeServFail,
		},

		{
			name:      "REFUSED",
			rcode:     dns.RcodeRefused,
			wantRcode: RcodeRefused,
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			query := NewQuery("example.com", TypeA)
			reply := newReply(t, query.ID, "example.com", dns.TypeA)
			reply.Rcode = tc.rcode
			msg := parseReply(t, reply)

			resp, err := ParseResponse(query, msg)
			require.Error(t, err)
			assert.Nil(t, resp)

			var respErr *ResponseError
			require.ErrorAs(t, err, &respErr)
			assert.Equal(t, tc.wantRcode, respErr.Rcode)
			assert.Contains(t, respErr.Error(), tc.wantRcode.String())
		})
	}
}

func TestParseResponseInvalid(t *testing.T) {

	type testCase struct {
		// name is the subtest name.
		name string

		// makeMsg builds the message to validate against the query.
		makeMsg func(t *testing.T, query *Query) *Message
	}

	tests := []testCase{
		{
			name: "ID mismatch",
			makeMsg: func(t *testing.T, query *Query) *Message {
				return parseReply(t, newReply(t, query.ID+1, "example.com", dns.TypeA))
			},
		},

		{
			name: "not a response",
			makeMsg: func(t *testing.T, query *Query) *Message {
				queryMsg := new(dns.Msg)
				queryMsg.SetQuestion("example.com.", dns.TypeA)
				queryMsg.Id = query.ID
				return parseReply(t, queryMsg)
			},
		},

		{
			name: "question name mismatch",
			makeMsg: func(t *testing.T, query *Query) *Message {
				return parseReply(t, newReply(t, query.ID, "other.example.com", dns.TypeA))
			},
		},

		{
			name: "question type mismatch",
			makeMsg: func(t *testing.T, query *Query) *Message {
				return parseReply(t, newReply(t, query.ID, "example.com", dns.TypeAAAA))
			},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			query := NewQuery("example.com", TypeA)
			resp, err := ParseResponse(query, tc.makeMsg(t, query))
			require.ErrorIs(t, err, ErrInvalidResponse)
			assert.Nil(t, resp)
		})
	}
}

func TestParseResponseNoData(t *testing.T) {
	query := NewQuery("example.com", TypeA)
	msg := parseReply(t, newReply(t, query.ID, "example.com", dns.TypeA))

	resp, err := ParseResponse(query, msg)
	require.ErrorIs(t, err, ErrNoData)
	assert.Nil(t, resp)
}

func TestResponseRecordsByType(t *testing.T) {
	query := NewQuery("example.com", TypeHTTPS)
	msg := parseReply(t, newReply(t, query.ID, "example.com", dns.TypeHTTPS,
		&dns.HTTPS{
			SVCB: dns.SVCB{
				Hdr:      rrHeader("example.com", dns.TypeHTTPS),
				Priority: 1,
				Target:   ".",
			},
		},
	))

	resp, err := ParseResponse(query, msg)
	require.NoError(t, err)
	assert.Len(t, resp.RecordsByType(TypeHTTPS), 1)
	assert.Empty(t, resp.RecordsByType(TypeA))
}
