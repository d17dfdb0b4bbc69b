// SPDX-License-Identifier: GPL-3.0-or-later
//
// See https://datatracker.ietf.org/doc/draft-ietf-tls-esni/

// Package ech extracts Encrypted Client Hello configurations from
// decoded SVCB/HTTPS records.
//
// The extractor only decodes each ECHConfig far enough to expose its
// version, length, and a few identifying fields; validating cipher
// suite support is the job of a TLS stack, not ours.
package ech

import (
	"encoding/base64"
	"errors"

	"github.com/hushdns/hushdns/dnswire"
)

// ErrNoConfig means the record carries no ECH configuration. This is
// the common case for most domains and is not a failure.
var ErrNoConfig = errors.New("no ECH configuration available")

// Draft ECH versions whose contents we know how to decode.
const (
	versionDraft13 = uint16(0xfe0d)
	versionDraft14 = uint16(0xfe0e)
)

// Config is a single ECHConfig entry.
type Config struct {
	// Version is the 16-bit ECH version.
	Version uint16

	// Raw contains the verbatim entry bytes including version and
	// length, suitable for feeding to a TLS stack.
	Raw []byte

	// ConfigID identifies the config within the list. Only set for
	// draft versions we can decode.
	ConfigID uint8

	// KEMID is the HPKE KEM identifier. Only set for draft versions
	// we can decode.
	KEMID uint16

	// PublicName is the outer SNI to use. Only set for draft versions
	// we can decode.
	PublicName string
}

// Base64 renders the raw entry bytes in base64 for display.
func (c *Config) Base64() string {
	return base64.StdEncoding.EncodeToString(c.Raw)
}

// ConfigList is a decoded ECHConfigList.
type ConfigList struct {
	// Configs contains the entries in encoding order.
	Configs []*Config

	// Truncated is true when the list declared more bytes than the
	// buffer contained. The entries parsed before the truncation
	// point are still present in Configs.
	Truncated bool
}

// ExtractList pulls the ECH configuration list out of a decoded
// SVCB/HTTPS record. A record without the ECH parameter yields
// [ErrNoConfig]. A list whose tail is malformed yields the entries
// parsed so far with the Truncated flag set rather than an error.
func ExtractList(record *dnswire.Record) (*ConfigList, error) {
	data, ok := record.Data.(*dnswire.SVCBData)
	if !ok {
		return nil, ErrNoConfig
	}
	value, ok := data.Param(dnswire.SVCBKeyECHConfig)
	if !ok {
		return nil, ErrNoConfig
	}
	return parseConfigList(value), nil
}

// parseConfigList decodes a serialized ECHConfigList: a 16-bit list
// length followed by ECHConfig entries, each {version, length,
// contents}. Entries are parsed greedily; the first entry whose
// declared length overruns the buffer stops the parse.
func parseConfigList(raw []byte) *ConfigList {
	list := &ConfigList{}
	if len(raw) < 2 {
		list.Truncated = len(raw) > 0
		return list
	}

	listLen := int(raw[0])<<8 | int(raw[1])
	body := raw[2:]
	if listLen > len(body) {
		list.Truncated = true
	} else {
		body = body[:listLen]
	}

	for off := 0; off < len(body); {
		if off+4 > len(body) {
			list.Truncated = true
			break
		}
		version := uint16(body[off])<<8 | uint16(body[off+1])
		length := int(body[off+2])<<8 | int(body[off+3])
		if off+4+length > len(body) {
			list.Truncated = true
			break
		}

		entry := &Config{
			Version: version,
			Raw:     append([]byte{}, body[off:off+4+length]...),
		}
		fillConfigContents(entry, body[off+4:off+4+length])
		list.Configs = append(list.Configs, entry)
		off += 4 + length
	}
	return list
}

// fillConfigContents decodes the ECHConfigContents of draft versions
// we understand. Decoding failures leave the optional fields zeroed;
// the raw bytes are already retained by the caller.
func fillConfigContents(entry *Config, contents []byte) {
	if entry.Version != versionDraft13 && entry.Version != versionDraft14 {
		return
	}

	// HpkeKeyConfig: config_id(1) kem_id(2) public_key<2..>
	if len(contents) < 5 {
		return
	}
	configID := contents[0]
	kemID := uint16(contents[1])<<8 | uint16(contents[2])
	pkLen := int(contents[3])<<8 | int(contents[4])
	off := 5 + pkLen
	if off+2 > len(contents) {
		return
	}

	// cipher_suites<4..>
	csLen := int(contents[off])<<8 | int(contents[off+1])
	off += 2 + csLen

	// maximum_name_length(1) public_name<1..255>
	if off+2 > len(contents) {
		return
	}
	off++ // maximum_name_length
	nameLen := int(contents[off])
	off++
	if off+nameLen > len(contents) {
		return
	}

	entry.ConfigID = configID
	entry.KEMID = kemID
	entry.PublicName = string(contents[off : off+nameLen])
}
