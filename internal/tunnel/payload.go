package tunnel

import "encoding/binary"

// Payload block types (TLV type byte).
const (
	PayloadIPX   byte = 0x35
	PayloadCPID  byte = 0x3F
	PayloadCrypt byte = 0x36
)

// cryptoCodeCleartext is the only crypto code this client implements.
// Any other value on the wire is a ProtocolError (spec.md section 9,
// "cleartext-only").
const cryptoCodeCleartext uint16 = 0x000A

// cpIDTypeEmail selects the email variant of the CP_ID payload body.
const cpIDTypeEmail byte = 0x01

// payloadHeaderSize is the size of the [type:1][flags:1][len:2] TLV header
// shared by every payload block.
const payloadHeaderSize = 4

// buildPayload wraps body in a generic TLV block whose length field covers
// the 4 header bytes plus the body, per spec.md section 4.1.
func buildPayload(typ, flags byte, body []byte) []byte {
	out := make([]byte, payloadHeaderSize, payloadHeaderSize+len(body))
	out[0] = typ
	out[1] = flags
	binary.BigEndian.PutUint16(out[2:4], uint16(payloadHeaderSize+len(body)))
	out = append(out, body...)
	return out
}

// buildIPXPayload builds the fixed 17-byte IPX payload: all zero except a
// trailing 0x80 byte signalling rendezvous-disabled.
func buildIPXPayload() []byte {
	body := make([]byte, 13)
	body[len(body)-1] = 0x80
	return buildPayload(PayloadIPX, 0, body)
}

// buildCPIDPayload builds the CP_ID payload carrying the client email.
func buildCPIDPayload(email string) []byte {
	body := make([]byte, 0, 1+len(email))
	body = append(body, cpIDTypeEmail)
	body = append(body, []byte(email)...)
	return buildPayload(PayloadCPID, 0, body)
}

// buildCryptPayload wraps command in the CRYPT payload: cleartext crypto
// code, the command buffer, and a trailing 0x02 terminator. The declared
// length is 9 + len(command) (2 bytes more than the generic TLV formula
// would give for this body) — this quirk is required by the round-trip
// codec law in spec.md section 8 and is preserved verbatim rather than
// "fixed", since real firmware validates against exactly this value.
func buildCryptPayload(command []byte) []byte {
	body := make([]byte, 0, 2+len(command)+1)
	var codeBuf [2]byte
	binary.BigEndian.PutUint16(codeBuf[:], cryptoCodeCleartext)
	body = append(body, codeBuf[:]...)
	body = append(body, command...)
	body = append(body, 0x02)

	out := make([]byte, payloadHeaderSize, payloadHeaderSize+len(body))
	out[0] = PayloadCrypt
	out[1] = 0
	binary.BigEndian.PutUint16(out[2:4], uint16(9+len(command)))
	out = append(out, body...)
	return out
}
