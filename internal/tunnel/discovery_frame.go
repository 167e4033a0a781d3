package tunnel

import "encoding/binary"

// Legacy discovery frame type words (4-byte big-endian, at offset 0 of the
// 12-byte discovery header).
const (
	discoveryTypeRequest  uint32 = 0x00000001
	discoveryTypeResponse uint32 = 0x00800001
)

// DiscoveryHeaderSize is the size of the legacy 12-byte discovery header.
const DiscoveryHeaderSize = 12

// deviceIDOffset is the byte offset of the null-terminated device ID
// within a discovery response frame.
const deviceIDOffset = 19

// BuildDiscoveryPacket builds a discovery request frame for deviceID
// ("*" is the wildcard used to discover any device).
func BuildDiscoveryPacket(deviceID string) []byte {
	buf := make([]byte, DiscoveryHeaderSize)
	binary.BigEndian.PutUint32(buf[0:4], discoveryTypeRequest)
	// bytes 4-11 are zero.
	buf = append(buf, []byte(deviceID)...)
	buf = append(buf, 0x00)
	return buf
}

// DiscoveryResponse is a parsed discovery reply.
type DiscoveryResponse struct {
	DeviceID string
}

// ParseDiscoveryResponse parses a discovery reply frame. It returns a
// ProtocolError if the frame is not a discovery response, or is too short
// to contain a device ID.
func ParseDiscoveryResponse(buf []byte) (DiscoveryResponse, error) {
	if len(buf) < DiscoveryHeaderSize {
		return DiscoveryResponse{}, NewProtocolError("short discovery frame: %d bytes", len(buf))
	}
	typeWord := binary.BigEndian.Uint32(buf[0:4])
	if typeWord != discoveryTypeResponse {
		return DiscoveryResponse{}, NewProtocolError("not a discovery response: type=0x%08x", typeWord)
	}
	if len(buf) <= deviceIDOffset {
		return DiscoveryResponse{}, NewProtocolError("discovery frame too short for device id: %d bytes", len(buf))
	}
	end := deviceIDOffset
	for end < len(buf) && buf[end] != 0x00 {
		end++
	}
	return DiscoveryResponse{DeviceID: string(buf[deviceIDOffset:end])}, nil
}
