// SPDX-License-Identifier: GPL-3.0-or-later

package dnswire

import (
	"errors"
	"strings"

	"golang.org/x/net/idna"
)

// Errors emitted by [ParseResponse]. The error strings use the same
// suffixes used by the Go standard library resolver.
var (
	// ErrInvalidResponse means that the message is not a response or
	// does not contain a single question matching the query.
	ErrInvalidResponse = errors.New("invalid DNS response")

	// ErrNoData indicates that there is no pertinent answer in the
	// response.
	ErrNoData = errors.New("no answer from DNS server")
)

// ResponseError is a structurally valid response whose RCODE signals a
// failure. It is scoped to the single resolution attempt that produced
// it: strategies treat it like a transport failure for fallback
// purposes while still reporting the specific RCODE to the user.
type ResponseError struct {
	// Rcode is the response code.
	Rcode Rcode
}

// Error implements error.
func (e *ResponseError) Error() string {
	return "server returned " + e.Rcode.String()
}

// Response is a validated DNS response.
//
// Construct using [ParseResponse].
type Response struct {
	// Query is the query that produced this response.
	Query *Query

	// Message is the decoded response message.
	Message *Message

	// Answers contains the answers valid for the query: records in
	// the IN class whose owner name is the query name or part of the
	// CNAME chain starting at the query name.
	Answers []Record
}

// ParseResponse validates msg against the query that produced it.
//
// It checks that msg is a response with a matching ID and question,
// maps a non-zero RCODE to a [*ResponseError], and filters the answer
// section down to the records pertinent to the query.
func ParseResponse(query *Query, msg *Message) (*Response, error) {
	// 1. make sure the message is a response matching the query ID
	if !msg.Header.Response() {
		return nil, ErrInvalidResponse
	}
	if msg.Header.ID != query.ID {
		return nil, ErrInvalidResponse
	}

	// 2. make sure the response echoes our question
	if len(msg.Questions) != 1 {
		return nil, ErrInvalidResponse
	}
	queryName, err := queryFQDN(query)
	if err != nil {
		return nil, err
	}
	question := msg.Questions[0]
	if !equalASCIIName(question.Name, queryName) {
		return nil, ErrInvalidResponse
	}
	if question.Class != ClassIN || question.Type != query.Type {
		return nil, ErrInvalidResponse
	}

	// 3. surface failure RCODEs with the specific code attached
	if rcode := msg.Header.Rcode(); rcode != RcodeNoError {
		return nil, &ResponseError{Rcode: rcode}
	}

	// 4. filter the answers through the CNAME chain
	answers := validAnswers(queryName, msg)
	if len(answers) < 1 {
		return nil, ErrNoData
	}

	return &Response{Query: query, Message: msg, Answers: answers}, nil
}

// validAnswers extracts the RRs pertinent to the query name. An RR is
// pertinent when its owner name is the query name or a name reached
// from it through CNAME records, per RFC 1034 Sect. 4.3.1.
func validAnswers(queryName string, msg *Message) []Record {
	validNames := map[string]bool{
		canonicalName(queryName): true,
	}
	currentName := canonicalName(queryName)
	for _, answer := range msg.Answers {
		if cname, ok := answer.Data.(*CNAMEData); ok {
			if canonicalName(answer.Name) == currentName && answer.Class == ClassIN {
				currentName = canonicalName(cname.Target)
				validNames[currentName] = true
			}
		}
	}

	var valid []Record
	for _, answer := range msg.Answers {
		if !validNames[canonicalName(answer.Name)] {
			continue
		}
		if answer.Class != ClassIN {
			continue
		}
		valid = append(valid, answer)
	}
	return valid
}

// RecordsA returns all the A record addresses in the response.
func (r *Response) RecordsA() ([]string, error) {
	return r.recordStrings(TypeA)
}

// RecordsAAAA returns all the AAAA record addresses in the response.
func (r *Response) RecordsAAAA() ([]string, error) {
	return r.recordStrings(TypeAAAA)
}

// RecordsByType returns the valid answers with the given type.
func (r *Response) RecordsByType(rtype Type) []Record {
	var out []Record
	for _, answer := range r.Answers {
		if answer.Type == rtype {
			out = append(out, answer)
		}
	}
	return out
}

// recordStrings renders the valid answers with the given type.
func (r *Response) recordStrings(rtype Type) ([]string, error) {
	records := r.RecordsByType(rtype)
	if len(records) < 1 {
		return nil, ErrNoData
	}
	out := make([]string, 0, len(records))
	for _, record := range records {
		out = append(out, record.String())
	}
	return out, nil
}

// queryFQDN returns the fully qualified ASCII name of the query.
func queryFQDN(query *Query) (string, error) {
	punyName, err := idna.Lookup.ToASCII(query.Name)
	if err != nil {
		return "", errors.Join(ErrInvalidName, err)
	}
	if !strings.HasSuffix(punyName, ".") {
		punyName += "."
	}
	return punyName, nil
}

// canonicalName lowercases an ASCII name for comparison.
func canonicalName(name string) string {
	return strings.ToLower(name)
}

// equalASCIIName compares two ASCII names case-insensitively.
func equalASCIIName(x, y string) bool {
	return canonicalName(x) == canonicalName(y)
}
