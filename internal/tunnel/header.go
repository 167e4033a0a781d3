package tunnel

import "encoding/binary"

// Packet types (regular header, offset 8).
const (
	PacketUConnect byte = 0x83
	PacketData     byte = 0x16
	PacketUAlive   byte = 0x82
)

// Header flags (regular header, offset 11).
const (
	FlagResponse  byte = 0x01
	FlagException byte = 0x02
	FlagTag       byte = 0x40
	FlagNsiCo     byte = 0x80
)

const protocolVersion byte = 0x02

// HeaderSize is the length of the regular 16-byte header.
const HeaderSize = 16

// Header is the regular (non-discovery) frame header described in
// spec.md section 4.1.
type Header struct {
	ClientID uint32
	ServerID uint32
	Type     byte
	Flags    byte
	SeqID    uint16
	// Length is the total frame length, including this header and,
	// for DATA frames, the trailing checksum.
	Length uint16
}

// BuildHeader serializes h into a fresh 16-byte buffer. Version is always
// 0x02; the retransmit/reserved byte is always 0.
func BuildHeader(h Header) []byte {
	buf := make([]byte, HeaderSize)
	binary.BigEndian.PutUint32(buf[0:4], h.ClientID)
	binary.BigEndian.PutUint32(buf[4:8], h.ServerID)
	buf[8] = h.Type
	buf[9] = protocolVersion
	buf[10] = 0
	buf[11] = h.Flags
	binary.BigEndian.PutUint16(buf[12:14], h.SeqID)
	binary.BigEndian.PutUint16(buf[14:16], h.Length)
	return buf
}

// ParseHeader reads a 16-byte regular header from the front of buf.
func ParseHeader(buf []byte) (Header, error) {
	if len(buf) < HeaderSize {
		return Header{}, NewProtocolError("short header: %d bytes", len(buf))
	}
	return Header{
		ClientID: binary.BigEndian.Uint32(buf[0:4]),
		ServerID: binary.BigEndian.Uint32(buf[4:8]),
		Type:     buf[8],
		Flags:    buf[11],
		SeqID:    binary.BigEndian.Uint16(buf[12:14]),
		Length:   binary.BigEndian.Uint16(buf[14:16]),
	}, nil
}
