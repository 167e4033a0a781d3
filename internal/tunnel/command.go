package tunnel

import "encoding/binary"

// Command tags (first 4 bytes of a command buffer are
// [0x00 0x00 0x00 tag]).
const (
	CmdPing              byte = 0x11
	CmdDatapointReadList byte = 0x2D
	CmdSetpointReadList  byte = 0x2A
	CmdSetpointWriteList byte = 0x2B
)

// listTerminator is the single trailing byte that ends every *List
// command buffer.
const listTerminator byte = 0x01

func commandHeader(tag byte) []byte {
	return []byte{0x00, 0x00, 0x00, tag}
}

// BuildPingCommand builds the CMD_PING command buffer.
func BuildPingCommand() []byte {
	buf := commandHeader(CmdPing)
	return append(buf, 'p', 'i', 'n', 'g')
}

// DatapointRead is one entry of a datapoint read request: an object byte
// (always 0 in every observed capture) and a 32-bit register address.
type DatapointRead struct {
	Obj     byte
	Address uint32
}

// BuildDatapointReadListCommand builds a CMD_DATAPOINT_READLIST command
// requesting the given addresses, in order.
func BuildDatapointReadListCommand(entries []DatapointRead) []byte {
	buf := commandHeader(CmdDatapointReadList)
	var countBuf [2]byte
	binary.BigEndian.PutUint16(countBuf[:], uint16(len(entries)))
	buf = append(buf, countBuf[:]...)
	for _, e := range entries {
		var addrBuf [4]byte
		binary.BigEndian.PutUint32(addrBuf[:], e.Address)
		buf = append(buf, e.Obj)
		buf = append(buf, addrBuf[:]...)
	}
	return append(buf, listTerminator)
}

// SetpointRead is one entry of a setpoint read request: an object byte
// and a 16-bit register address.
type SetpointRead struct {
	Obj     byte
	Address uint16
}

// BuildSetpointReadListCommand builds a CMD_SETPOINT_READLIST command.
func BuildSetpointReadListCommand(entries []SetpointRead) []byte {
	buf := commandHeader(CmdSetpointReadList)
	var countBuf [2]byte
	binary.BigEndian.PutUint16(countBuf[:], uint16(len(entries)))
	buf = append(buf, countBuf[:]...)
	for _, e := range entries {
		var addrBuf [2]byte
		binary.BigEndian.PutUint16(addrBuf[:], e.Address)
		buf = append(buf, e.Obj)
		buf = append(buf, addrBuf[:]...)
	}
	return append(buf, listTerminator)
}

// SetpointWrite is one entry of a setpoint write request.
type SetpointWrite struct {
	ID    byte
	Value int32
	Param uint16
}

// BuildSetpointWriteListCommand builds a CMD_SETPOINT_WRITELIST command.
func BuildSetpointWriteListCommand(entries []SetpointWrite) []byte {
	buf := commandHeader(CmdSetpointWriteList)
	var countBuf [2]byte
	binary.BigEndian.PutUint16(countBuf[:], uint16(len(entries)))
	buf = append(buf, countBuf[:]...)
	for _, e := range entries {
		var valBuf [4]byte
		binary.BigEndian.PutUint32(valBuf[:], uint32(e.Value))
		var paramBuf [2]byte
		binary.BigEndian.PutUint16(paramBuf[:], e.Param)
		buf = append(buf, e.ID)
		buf = append(buf, valBuf[:]...)
		buf = append(buf, paramBuf[:]...)
	}
	return append(buf, listTerminator)
}
