// SPDX-License-Identifier: GPL-3.0-or-later
//
// See https://datatracker.ietf.org/doc/rfc9460/

package dnswire

import (
	"encoding/hex"
	"strconv"
	"strings"
)

// SVCB service parameter keys from the IANA registry that we name in
// presentation output. Values are opaque bytes either way.
const (
	SVCBKeyALPN      = uint16(1)
	SVCBKeyPort      = uint16(3)
	SVCBKeyIPv4Hint  = uint16(4)
	SVCBKeyECHConfig = uint16(5)
	SVCBKeyIPv6Hint  = uint16(6)
)

// svcbKeyNames maps known parameter keys to registry names.
var svcbKeyNames = map[uint16]string{
	SVCBKeyALPN:      "alpn",
	SVCBKeyPort:      "port",
	SVCBKeyIPv4Hint:  "ipv4hint",
	SVCBKeyECHConfig: "ech",
	SVCBKeyIPv6Hint:  "ipv6hint",
}

// SVCBParam is a single service parameter.
type SVCBParam struct {
	// Key is the 16-bit parameter key.
	Key uint16

	// Value contains the opaque parameter bytes.
	Value []byte
}

// SVCBData is the rdata of an SVCB or HTTPS record.
type SVCBData struct {
	// Priority selects between AliasMode (0) and ServiceMode.
	Priority uint16

	// Target is the target name; empty in AliasMode.
	Target string

	// Params contains the service parameters in wire order. Keys are
	// unique; use [*SVCBData.Param] for lookup.
	Params []SVCBParam
}

// Param returns the value bytes of the parameter with the given key
// and whether the parameter is present.
func (d *SVCBData) Param(key uint16) ([]byte, bool) {
	for _, param := range d.Params {
		if param.Key == key {
			return param.Value, true
		}
	}
	return nil, false
}

// AliasMode reports whether the record is in AliasMode.
func (d *SVCBData) AliasMode() bool {
	return d.Priority == 0
}

// String implements [RData].
func (d *SVCBData) String() string {
	parts := []string{strconv.Itoa(int(d.Priority)), d.Target}
	for _, param := range d.Params {
		name, ok := svcbKeyNames[param.Key]
		if !ok {
			name = "key" + strconv.Itoa(int(param.Key))
		}
		parts = append(parts, name+"="+hex.EncodeToString(param.Value))
	}
	return strings.Join(parts, " ")
}

// decodeSVCB decodes SVCB/HTTPS rdata: priority, target name, then a
// parameter list that must consume the rdata exactly.
func decodeSVCB(buf []byte, off, rdlength int) (RData, error) {
	if rdlength < 2 {
		return nil, ErrBadRData
	}
	end := off + rdlength
	data := &SVCBData{Priority: readUint16(buf, off)}
	off += 2

	// In AliasMode the target is present on the wire (usually the
	// root name) but is ignored per RFC 9460 Sect. 2.4.2.
	target, off, err := decodeName(buf, off)
	if err != nil {
		return nil, err
	}
	if off > end {
		return nil, ErrBadRData
	}
	if !data.AliasMode() {
		data.Target = target
	}

	seen := make(map[uint16]bool)
	for off < end {
		if off+4 > end {
			return nil, ErrBadRData
		}
		key := readUint16(buf, off)
		length := int(readUint16(buf, off+2))
		off += 4
		if off+length > end {
			return nil, ErrBadRData
		}
		if seen[key] {
			return nil, ErrBadRData
		}
		seen[key] = true
		value := make([]byte, length)
		copy(value, buf[off:off+length])
		data.Params = append(data.Params, SVCBParam{Key: key, Value: value})
		off += length
	}
	return data, nil
}
