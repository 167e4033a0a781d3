package tunnel

import "encoding/binary"

// frameControlTag is the 2-byte marker inserted between the header and
// the first payload on keep-alive TAG-flagged frames.
var frameControlTag = []byte{0x00, 0x03}

// connectResponseMinLength is the minimum length (per the header's own
// length field) of a valid U_CONNECT response.
const connectResponseMinLength = 28

// connectStatusOK is the only status value that establishes a session.
const connectStatusOK uint32 = 0x00000001

// BuildConnectPacket builds the U_CONNECT handshake frame: a regular
// header (serverID=0, flags=0, seq=0) followed by the IPX payload and the
// CP_ID payload carrying email. No checksum is appended.
func BuildConnectPacket(clientID uint32, email string) []byte {
	ipx := buildIPXPayload()
	cpID := buildCPIDPayload(email)

	length := HeaderSize + len(ipx) + len(cpID)
	hdr := BuildHeader(Header{
		ClientID: clientID,
		ServerID: 0,
		Type:     PacketUConnect,
		Flags:    0,
		SeqID:    0,
		Length:   uint16(length),
	})

	frame := make([]byte, 0, length)
	frame = append(frame, hdr...)
	frame = append(frame, ipx...)
	frame = append(frame, cpID...)
	return frame
}

// ConnectResponse is the parsed result of a U_CONNECT response.
type ConnectResponse struct {
	ServerID uint32
}

// ParseConnectResponse validates and parses a U_CONNECT response frame.
// The session is only considered established when this succeeds.
func ParseConnectResponse(buf []byte) (ConnectResponse, error) {
	hdr, err := ParseHeader(buf)
	if err != nil {
		return ConnectResponse{}, err
	}
	if hdr.Type != PacketUConnect {
		return ConnectResponse{}, NewProtocolError("connect response: unexpected type 0x%02x", hdr.Type)
	}
	if hdr.Flags&FlagResponse == 0 {
		return ConnectResponse{}, NewProtocolError("connect response: RESPONSE flag not set")
	}
	if hdr.Length < connectResponseMinLength {
		return ConnectResponse{}, NewProtocolError("connect response: length %d < %d", hdr.Length, connectResponseMinLength)
	}
	if len(buf) < connectResponseMinLength {
		return ConnectResponse{}, NewProtocolError("connect response: short buffer %d bytes", len(buf))
	}
	status := binary.BigEndian.Uint32(buf[20:24])
	if status != connectStatusOK {
		return ConnectResponse{}, NewProtocolError("connect response: status 0x%08x", status)
	}
	serverID := binary.BigEndian.Uint32(buf[24:28])
	return ConnectResponse{ServerID: serverID}, nil
}

// BuildDataPacket builds a DATA frame carrying command wrapped in a CRYPT
// payload, terminated by a checksum. When tag is true, the keep-alive
// frame-control tag is inserted between the header and the CRYPT payload
// and the TAG flag is set.
func BuildDataPacket(clientID, serverID uint32, seqID uint16, command []byte, tag bool) []byte {
	crypt := buildCryptPayload(command)

	flags := byte(0)
	extra := 0
	if tag {
		flags |= FlagTag
		extra = len(frameControlTag)
	}

	length := HeaderSize + extra + len(crypt) + 2 // +2 for trailing checksum
	hdr := BuildHeader(Header{
		ClientID: clientID,
		ServerID: serverID,
		Type:     PacketData,
		Flags:    flags,
		SeqID:    seqID,
		Length:   uint16(length),
	})

	frame := make([]byte, 0, length)
	frame = append(frame, hdr...)
	if tag {
		frame = append(frame, frameControlTag...)
	}
	frame = append(frame, crypt...)
	return appendChecksum(frame)
}

// ParseDataResponse locates the CRYPT payload in a DATA frame and
// returns the sequence id and the command bytes carried inside it. The
// declared payload length may overrun the real command buffer (it
// includes trailing protocol bytes); callers that need an exact count
// read it from a length-prefixed field at the front of commandBytes
// rather than relying on len(commandBytes).
func ParseDataResponse(buf []byte) (seqID uint16, commandBytes []byte, err error) {
	hdr, err := ParseHeader(buf)
	if err != nil {
		return 0, nil, err
	}
	if hdr.Type != PacketData {
		return 0, nil, NewProtocolError("data response: unexpected type 0x%02x", hdr.Type)
	}

	offset := HeaderSize
	if hdr.Flags&FlagTag != 0 {
		offset += len(frameControlTag)
	}

	if len(buf) < offset+payloadHeaderSize {
		return 0, nil, NewProtocolError("data response: short buffer %d bytes", len(buf))
	}
	payloadType := buf[offset]
	if payloadType != PayloadCrypt {
		return 0, nil, NewProtocolError("data response: expected CRYPT payload, got 0x%02x", payloadType)
	}
	payloadLen := int(binary.BigEndian.Uint16(buf[offset+2 : offset+4]))

	if len(buf) < offset+6 {
		return 0, nil, NewProtocolError("data response: short buffer for crypto code %d bytes", len(buf))
	}
	cryptoCode := binary.BigEndian.Uint16(buf[offset+4 : offset+6])
	if cryptoCode != cryptoCodeCleartext {
		return 0, nil, NewProtocolError("data response: unsupported crypto code 0x%04x", cryptoCode)
	}

	start := offset + 6
	end := offset + 4 + payloadLen
	if end > len(buf) {
		end = len(buf)
	}
	if end < start {
		end = start
	}

	return hdr.SeqID, buf[start:end], nil
}
