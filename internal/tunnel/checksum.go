package tunnel

import "encoding/binary"

// Checksum is the 16-bit sum of all bytes in data, modulo 2^16.
func Checksum(data []byte) uint16 {
	var sum uint32
	for _, b := range data {
		sum += uint32(b)
	}
	return uint16(sum)
}

// appendChecksum appends the big-endian checksum of frame (as currently
// built) to frame and returns the result.
func appendChecksum(frame []byte) []byte {
	var buf [2]byte
	binary.BigEndian.PutUint16(buf[:], Checksum(frame))
	return append(frame, buf[:]...)
}
