package tunnel

import "encoding/binary"

// ParseDatapointValues parses the command bytes of a datapoint read
// response: count:2 followed by count signed 16-bit big-endian values, in
// request order. Trailing bytes beyond the declared count are ignored —
// see the doc comment on ParseDataResponse.
func ParseDatapointValues(commandBytes []byte) ([]int16, error) {
	if len(commandBytes) < 2 {
		return nil, NewProtocolError("datapoint response: short buffer %d bytes", len(commandBytes))
	}
	count := int(binary.BigEndian.Uint16(commandBytes[0:2]))
	out := make([]int16, 0, count)
	off := 2
	for i := 0; i < count; i++ {
		if off+2 > len(commandBytes) {
			// Fewer values than declared; surplus keys are left unset by
			// the caller (spec.md section 4.1, value-list parsing).
			break
		}
		out = append(out, int16(binary.BigEndian.Uint16(commandBytes[off:off+2])))
		off += 2
	}
	return out, nil
}

// ParseSetpointValues parses the command bytes of a setpoint read
// response: skip:1 followed by count:2 followed by count unsigned 16-bit
// big-endian values, in request order.
func ParseSetpointValues(commandBytes []byte) ([]uint16, error) {
	if len(commandBytes) < 3 {
		return nil, NewProtocolError("setpoint response: short buffer %d bytes", len(commandBytes))
	}
	count := int(binary.BigEndian.Uint16(commandBytes[1:3]))
	out := make([]uint16, 0, count)
	off := 3
	for i := 0; i < count; i++ {
		if off+2 > len(commandBytes) {
			break
		}
		out = append(out, binary.BigEndian.Uint16(commandBytes[off:off+2]))
		off += 2
	}
	return out, nil
}

// ModelInfo is the model identification extracted from the post-connect
// ping response.
type ModelInfo struct {
	DeviceNumber      uint32
	DeviceModel       uint32
	SlaveDeviceNumber uint32
	SlaveDeviceModel  uint32
}

// ParsePingResponse extracts model info from a ping response's command
// bytes. Any field whose offset falls outside the buffer defaults to 0.
func ParsePingResponse(commandBytes []byte) ModelInfo {
	read := func(offset int) uint32 {
		if offset+4 > len(commandBytes) {
			return 0
		}
		return binary.BigEndian.Uint32(commandBytes[offset : offset+4])
	}
	return ModelInfo{
		DeviceNumber:      read(0),
		DeviceModel:       read(4),
		SlaveDeviceNumber: read(12),
		SlaveDeviceModel:  read(16),
	}
}
