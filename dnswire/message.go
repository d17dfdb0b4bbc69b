// SPDX-License-Identifier: GPL-3.0-or-later

package dnswire

import "errors"

// Header is the fixed 12 byte DNS message header.
type Header struct {
	// ID is the message ID.
	ID uint16

	// Flags is the raw flags word (QR, opcode, AA, TC, RD, RA, RCODE).
	Flags uint16

	// QDCount, ANCount, NSCount, and ARCount are the section counts.
	QDCount uint16
	ANCount uint16
	NSCount uint16
	ARCount uint16
}

// Response reports whether the QR bit is set.
func (h *Header) Response() bool {
	return h.Flags&0x8000 != 0
}

// Rcode extracts the response code from the flags word.
func (h *Header) Rcode() Rcode {
	return Rcode(h.Flags & 0x000f)
}

// Question is an entry in the question section.
type Question struct {
	// Name is the question name in presentation form with trailing dot.
	Name string

	// Type is the question type.
	Type Type

	// Class is the question class.
	Class uint16
}

// Record is a decoded resource record.
type Record struct {
	// Name is the owner name in presentation form with trailing dot.
	Name string

	// Type is the record type.
	Type Type

	// Class is the record class.
	Class uint16

	// TTL is the time to live in seconds.
	TTL uint32

	// Data is the decoded rdata, one of the concrete types in this
	// package keyed by Type, or [*UnknownData] for types we do not
	// parse specially.
	Data RData
}

// String renders the record rdata in presentation form.
func (r *Record) String() string {
	return r.Data.String()
}

// Message is a decoded DNS message.
type Message struct {
	// Header is the decoded header.
	Header Header

	// Questions contains QDCOUNT questions.
	Questions []Question

	// Answers, Authority, and Additional contain the decoded
	// resource record sections.
	Answers    []Record
	Authority  []Record
	Additional []Record
}

// ParseMessage decodes a DNS message. The header section counts must
// match the number of entries actually present, otherwise the whole
// message is rejected with an error wrapping [ErrDecode].
func ParseMessage(buf []byte) (*Message, error) {
	if len(buf) < 12 {
		return nil, ErrShortMessage
	}

	msg := &Message{
		Header: Header{
			ID:      readUint16(buf, 0),
			Flags:   readUint16(buf, 2),
			QDCount: readUint16(buf, 4),
			ANCount: readUint16(buf, 6),
			NSCount: readUint16(buf, 8),
			ARCount: readUint16(buf, 10),
		},
	}
	off := 12

	for range msg.Header.QDCount {
		question, nextOff, err := decodeQuestion(buf, off)
		if err != nil {
			if errors.Is(err, ErrShortMessage) {
				// Fewer questions than QDCOUNT promised.
				return nil, ErrCountMismatch
			}
			return nil, err
		}
		msg.Questions = append(msg.Questions, question)
		off = nextOff
	}

	sections := []struct {
		count uint16
		out   *[]Record
	}{
		{msg.Header.ANCount, &msg.Answers},
		{msg.Header.NSCount, &msg.Authority},
		{msg.Header.ARCount, &msg.Additional},
	}
	for _, section := range sections {
		for range section.count {
			record, nextOff, err := decodeRecord(buf, off)
			if err != nil {
				if errors.Is(err, ErrShortMessage) {
					return nil, ErrCountMismatch
				}
				return nil, err
			}
			*section.out = append(*section.out, record)
			off = nextOff
		}
	}

	return msg, nil
}

// decodeQuestion decodes a single question entry.
func decodeQuestion(buf []byte, off int) (Question, int, error) {
	name, off, err := decodeName(buf, off)
	if err != nil {
		return Question{}, 0, err
	}
	if off+4 > len(buf) {
		return Question{}, 0, ErrShortMessage
	}
	question := Question{
		Name:  name,
		Type:  Type(readUint16(buf, off)),
		Class: readUint16(buf, off+2),
	}
	return question, off + 4, nil
}

// decodeRecord decodes a single resource record including its rdata.
func decodeRecord(buf []byte, off int) (Record, int, error) {
	name, off, err := decodeName(buf, off)
	if err != nil {
		return Record{}, 0, err
	}
	if off+10 > len(buf) {
		return Record{}, 0, ErrShortMessage
	}
	record := Record{
		Name:  name,
		Type:  Type(readUint16(buf, off)),
		Class: readUint16(buf, off+2),
		TTL:   readUint32(buf, off+4),
	}
	rdlength := int(readUint16(buf, off+8))
	off += 10
	if off+rdlength > len(buf) {
		return Record{}, 0, ErrShortMessage
	}

	record.Data, err = decodeRData(record.Type, buf, off, rdlength)
	if err != nil {
		return Record{}, 0, err
	}
	return record, off + rdlength, nil
}

// readUint16 reads a big-endian 16-bit value. The caller must have
// already checked the buffer bounds.
func readUint16(buf []byte, off int) uint16 {
	return uint16(buf[off])<<8 | uint16(buf[off+1])
}

// readUint32 reads a big-endian 32-bit value. The caller must have
// already checked the buffer bounds.
func readUint32(buf []byte, off int) uint32 {
	return uint32(buf[off])<<24 | uint32(buf[off+1])<<16 |
		uint32(buf[off+2])<<8 | uint32(buf[off+3])
}
