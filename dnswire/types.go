// SPDX-License-Identifier: GPL-3.0-or-later

package dnswire

import (
	"errors"
	"strconv"
	"strings"
)

// Type is a DNS resource record type.
type Type uint16

// Record types understood by this module. Anything else decodes to a
// record with [*UnknownData] rdata.
const (
	TypeA     = Type(1)
	TypeNS    = Type(2)
	TypeCNAME = Type(5)
	TypeMX    = Type(15)
	TypeTXT   = Type(16)
	TypeAAAA  = Type(28)
	TypeSVCB  = Type(64)
	TypeHTTPS = Type(65)
)

// typeNames maps a [Type] to its presentation name.
var typeNames = map[Type]string{
	TypeA:     "A",
	TypeNS:    "NS",
	TypeCNAME: "CNAME",
	TypeMX:    "MX",
	TypeTXT:   "TXT",
	TypeAAAA:  "AAAA",
	TypeSVCB:  "SVCB",
	TypeHTTPS: "HTTPS",
}

// String implements fmt.Stringer.
func (t Type) String() string {
	if name, ok := typeNames[t]; ok {
		return name
	}
	return "TYPE" + strconv.Itoa(int(t))
}

// ErrUnknownType means the given record type name is not known.
var ErrUnknownType = errors.New("unknown record type")

// ParseType maps a presentation name such as "AAAA" to a [Type].
func ParseType(name string) (Type, error) {
	needle := strings.ToUpper(name)
	for t, s := range typeNames {
		if s == needle {
			return t, nil
		}
	}
	return 0, ErrUnknownType
}

// ClassIN is the Internet class, the only class we ever query.
const ClassIN = uint16(1)

// Rcode is a DNS response code.
type Rcode uint8

// Response codes we report by name.
const (
	RcodeNoError  = Rcode(0)
	RcodeFormErr  = Rcode(1)
	RcodeServFail = Rcode(2)
	RcodeNXDomain = Rcode(3)
	RcodeNotImp   = Rcode(4)
	RcodeRefused  = Rcode(5)
)

// rcodeNames maps an [Rcode] to its presentation name.
var rcodeNames = map[Rcode]string{
	RcodeNoError:  "NOERROR",
	RcodeFormErr:  "FORMERR",
	RcodeServFail: "SERVFAIL",
	RcodeNXDomain: "NXDOMAIN",
	RcodeNotImp:   "NOTIMP",
	RcodeRefused:  "REFUSED",
}

// String implements fmt.Stringer.
func (rc Rcode) String() string {
	if name, ok := rcodeNames[rc]; ok {
		return name
	}
	return "RCODE" + strconv.Itoa(int(rc))
}
