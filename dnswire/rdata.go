// SPDX-License-Identifier: GPL-3.0-or-later

package dnswire

import (
	"encoding/hex"
	"net/netip"
	"strconv"
	"strings"
)

// RData is the decoded rdata of a [Record].
type RData interface {
	// String renders the rdata in presentation form.
	String() string
}

// AData is the rdata of an A record.
type AData struct {
	// Addr is the IPv4 address.
	Addr netip.Addr
}

// String implements [RData].
func (d *AData) String() string {
	return d.Addr.String()
}

// AAAAData is the rdata of an AAAA record.
type AAAAData struct {
	// Addr is the IPv6 address.
	Addr netip.Addr
}

// String implements [RData].
func (d *AAAAData) String() string {
	return d.Addr.String()
}

// CNAMEData is the rdata of a CNAME record.
type CNAMEData struct {
	// Target is the canonical name.
	Target string
}

// String implements [RData].
func (d *CNAMEData) String() string {
	return d.Target
}

// NSData is the rdata of an NS record.
type NSData struct {
	// Host is the name server host.
	Host string
}

// String implements [RData].
func (d *NSData) String() string {
	return d.Host
}

// MXData is the rdata of an MX record.
type MXData struct {
	// Preference is the exchange preference, lower is better.
	Preference uint16

	// Exchange is the mail exchange host.
	Exchange string
}

// String implements [RData].
func (d *MXData) String() string {
	return strconv.Itoa(int(d.Preference)) + " " + d.Exchange
}

// TXTData is the rdata of a TXT record. The character-string segment
// boundaries are preserved as they appear on the wire.
type TXTData struct {
	// Segments contains the character strings.
	Segments []string
}

// String implements [RData].
func (d *TXTData) String() string {
	quoted := make([]string, 0, len(d.Segments))
	for _, segment := range d.Segments {
		quoted = append(quoted, strconv.Quote(segment))
	}
	return strings.Join(quoted, " ")
}

// UnknownData is the rdata of a record type we do not parse. Keeping
// the raw bytes around means an exotic record never fails the decode
// of the whole message.
type UnknownData struct {
	// Raw contains the verbatim rdata bytes.
	Raw []byte
}

// String implements [RData].
func (d *UnknownData) String() string {
	return "\\# " + strconv.Itoa(len(d.Raw)) + " " + hex.EncodeToString(d.Raw)
}

// decodeRData dispatches rdata decoding on the record type. The rdata
// occupies buf[off:off+rdlength]; the caller has checked the bounds.
func decodeRData(rtype Type, buf []byte, off, rdlength int) (RData, error) {
	switch rtype {
	case TypeA:
		if rdlength != 4 {
			return nil, ErrBadRData
		}
		addr, _ := netip.AddrFromSlice(buf[off : off+4])
		return &AData{Addr: addr}, nil

	case TypeAAAA:
		if rdlength != 16 {
			return nil, ErrBadRData
		}
		addr, _ := netip.AddrFromSlice(buf[off : off+16])
		return &AAAAData{Addr: addr}, nil

	case TypeCNAME:
		name, err := decodeRDataName(buf, off, rdlength)
		if err != nil {
			return nil, err
		}
		return &CNAMEData{Target: name}, nil

	case TypeNS:
		name, err := decodeRDataName(buf, off, rdlength)
		if err != nil {
			return nil, err
		}
		return &NSData{Host: name}, nil

	case TypeMX:
		if rdlength < 3 {
			return nil, ErrBadRData
		}
		pref := readUint16(buf, off)
		name, err := decodeRDataName(buf, off+2, rdlength-2)
		if err != nil {
			return nil, err
		}
		return &MXData{Preference: pref, Exchange: name}, nil

	case TypeTXT:
		return decodeTXT(buf[off : off+rdlength])

	case TypeSVCB, TypeHTTPS:
		return decodeSVCB(buf, off, rdlength)

	default:
		raw := make([]byte, rdlength)
		copy(raw, buf[off:off+rdlength])
		return &UnknownData{Raw: raw}, nil
	}
}

// decodeRDataName decodes a name embedded in rdata. The name may use
// compression pointing into the enclosing message, but must not extend
// past the rdata boundary.
func decodeRDataName(buf []byte, off, rdlength int) (string, error) {
	name, nextOff, err := decodeName(buf, off)
	if err != nil {
		return "", err
	}
	if nextOff != off+rdlength {
		return "", ErrTrailingGarbage
	}
	return name, nil
}

// decodeTXT decodes a sequence of length-prefixed character strings.
func decodeTXT(raw []byte) (RData, error) {
	data := &TXTData{}
	for off := 0; off < len(raw); {
		length := int(raw[off])
		off++
		if off+length > len(raw) {
			return nil, ErrBadRData
		}
		data.Segments = append(data.Segments, string(raw[off:off+length]))
		off += length
	}
	if len(data.Segments) < 1 {
		return nil, ErrBadRData
	}
	return data, nil
}
