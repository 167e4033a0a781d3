package tunnel

import (
	"bytes"
	"encoding/binary"
	"testing"
)

func TestHeaderRoundTrip(t *testing.T) {
	cases := []Header{
		{ClientID: 0x11223344, ServerID: 0, Type: PacketUConnect, Flags: 0, SeqID: 0, Length: 16},
		{ClientID: 0xDEADBEEF, ServerID: 0xCAFEBABE, Type: PacketData, Flags: FlagResponse, SeqID: 300, Length: 32},
		{ClientID: 1, ServerID: 2, Type: PacketUAlive, Flags: FlagTag | FlagResponse, SeqID: 150, Length: 18},
	}
	for _, h := range cases {
		buf := BuildHeader(h)
		got, err := ParseHeader(buf)
		if err != nil {
			t.Fatalf("ParseHeader: %v", err)
		}
		if got != h {
			t.Fatalf("round trip mismatch: want %+v got %+v", h, got)
		}
	}
}

func TestCryptPayloadLengthLaw(t *testing.T) {
	cmds := [][]byte{
		BuildPingCommand(),
		BuildDatapointReadListCommand([]DatapointRead{{Obj: 0, Address: 1}, {Obj: 0, Address: 2}}),
		{},
	}
	for _, c := range cmds {
		payload := buildCryptPayload(c)
		declared := binary.BigEndian.Uint16(payload[2:4])
		if int(declared) != 9+len(c) {
			t.Fatalf("declared length = %d, want %d", declared, 9+len(c))
		}
		if payload[len(payload)-1] != 0x02 {
			t.Fatalf("payload does not end with 0x02: %x", payload)
		}
	}
}

func TestDataPacketChecksumLaw(t *testing.T) {
	pkt := BuildDataPacket(1, 2, 300, BuildPingCommand(), false)
	body := pkt[:len(pkt)-2]
	want := Checksum(body)
	got := binary.BigEndian.Uint16(pkt[len(pkt)-2:])
	if got != want {
		t.Fatalf("checksum mismatch: want %d got %d", want, got)
	}
}

func TestDiscoveryBroadcastParse(t *testing.T) {
	req := BuildDiscoveryPacket("*")
	if len(req) < DiscoveryHeaderSize {
		t.Fatalf("discovery request too short")
	}

	reply := make([]byte, 25)
	binary.BigEndian.PutUint32(reply[0:4], discoveryTypeResponse)
	copy(reply[19:24], []byte("ABCDE"))
	reply[24] = 0x00

	resp, err := ParseDiscoveryResponse(reply)
	if err != nil {
		t.Fatalf("ParseDiscoveryResponse: %v", err)
	}
	if resp.DeviceID != "ABCDE" {
		t.Fatalf("deviceID = %q, want ABCDE", resp.DeviceID)
	}
}

func TestConnectHandshake(t *testing.T) {
	req := BuildConnectPacket(0x11223344, "a@b")
	hdr, err := ParseHeader(req)
	if err != nil {
		t.Fatalf("ParseHeader: %v", err)
	}
	if hdr.ClientID != 0x11223344 || hdr.Type != PacketUConnect {
		t.Fatalf("unexpected request header: %+v", hdr)
	}

	resp := make([]byte, 28)
	copy(resp, BuildHeader(Header{
		ClientID: 0x11223344,
		ServerID: 0,
		Type:     PacketUConnect,
		Flags:    FlagResponse,
		SeqID:    0,
		Length:   28,
	}))
	binary.BigEndian.PutUint32(resp[20:24], 0x00000001)
	binary.BigEndian.PutUint32(resp[24:28], 0xDEADBEEF)

	parsed, err := ParseConnectResponse(resp)
	if err != nil {
		t.Fatalf("ParseConnectResponse: %v", err)
	}
	if parsed.ServerID != 0xDEADBEEF {
		t.Fatalf("serverID = %#x, want 0xDEADBEEF", parsed.ServerID)
	}
}

func TestConnectResponseRejectsBadStatus(t *testing.T) {
	resp := make([]byte, 28)
	copy(resp, BuildHeader(Header{Type: PacketUConnect, Flags: FlagResponse, Length: 28}))
	binary.BigEndian.PutUint32(resp[20:24], 0x00000002)
	if _, err := ParseConnectResponse(resp); err == nil {
		t.Fatalf("expected error for non-OK status")
	}
}

func TestDatapointReadRoundTrip(t *testing.T) {
	entries := []DatapointRead{
		{Obj: 0, Address: 0x00D2},
		{Obj: 0, Address: 0x00C8},
		{Obj: 0, Address: 0x00D6},
	}
	cmd := BuildDatapointReadListCommand(entries)
	pkt := BuildDataPacket(1, 2, 300, cmd, false)

	seq, cmdBytes, err := ParseDataResponse(pkt)
	if err != nil {
		t.Fatalf("ParseDataResponse: %v", err)
	}
	if seq != 300 {
		t.Fatalf("seq = %d, want 300", seq)
	}
	if !bytes.Equal(cmdBytes[:len(cmd)], cmd) {
		t.Fatalf("round-tripped command mismatch:\n got  %x\n want %x", cmdBytes[:len(cmd)], cmd)
	}
}

func TestParseDatapointValuesScenario(t *testing.T) {
	// spec.md section 8 scenario 3.
	raw := []byte{0x00, 0x0C, 0x00, 0xD2, 0x00, 0xC8, 0x00, 0xD6, 0x00, 0xE0, 0x00, 0x2D,
		0x00, 0x32, 0x00, 0x28, 0x00, 0xA0, 0x00, 0x64, 0x00, 0x00, 0x00, 0x00}
	values, err := ParseDatapointValues(raw)
	if err != nil {
		t.Fatalf("ParseDatapointValues: %v", err)
	}
	want := []int16{210, 200, 214, 224, 45, 50, 40, 160, 100, 0, 0}
	if len(values) != len(want) {
		t.Fatalf("got %d values, want %d", len(values), len(want))
	}
	for i := range want {
		if values[i] != want[i] {
			t.Fatalf("value[%d] = %d, want %d", i, values[i], want[i])
		}
	}
}

func TestParseDatapointValuesShortResponse(t *testing.T) {
	// count=2 but only 2 values present: positional demux leaves the rest unset.
	raw := []byte{0x00, 0x02, 0x00, 0x01, 0x00, 0x02}
	values, err := ParseDatapointValues(raw)
	if err != nil {
		t.Fatalf("ParseDatapointValues: %v", err)
	}
	if len(values) != 2 {
		t.Fatalf("got %d values, want 2", len(values))
	}
}

func TestParseSetpointValues(t *testing.T) {
	raw := []byte{0x00, 0x00, 0x02, 0x00, 0x78, 0x00, 0x0A}
	values, err := ParseSetpointValues(raw)
	if err != nil {
		t.Fatalf("ParseSetpointValues: %v", err)
	}
	want := []uint16{0x0078, 0x000A}
	if len(values) != len(want) || values[0] != want[0] || values[1] != want[1] {
		t.Fatalf("values = %v, want %v", values, want)
	}
}

func TestParsePingResponseDefaults(t *testing.T) {
	info := ParsePingResponse([]byte{})
	if info != (ModelInfo{}) {
		t.Fatalf("expected zero model info for empty buffer, got %+v", info)
	}

	raw := make([]byte, 20)
	binary.BigEndian.PutUint32(raw[0:4], 1)
	binary.BigEndian.PutUint32(raw[4:8], 2)
	binary.BigEndian.PutUint32(raw[12:16], 3)
	binary.BigEndian.PutUint32(raw[16:20], 4)
	info = ParsePingResponse(raw)
	want := ModelInfo{DeviceNumber: 1, DeviceModel: 2, SlaveDeviceNumber: 3, SlaveDeviceModel: 4}
	if info != want {
		t.Fatalf("info = %+v, want %+v", info, want)
	}
}

func TestSetpointWriteListEncoding(t *testing.T) {
	// spec.md section 8 scenario 4: id=0, value=120, param=12 (writeAddress).
	cmd := BuildSetpointWriteListCommand([]SetpointWrite{{ID: 0, Value: 120, Param: 12}})
	want := []byte{
		0x00, 0x00, 0x00, CmdSetpointWriteList,
		0x00, 0x01,
		0x00, 0x00, 0x00, 0x00, 0x78, 0x00, 0x0C,
		listTerminator,
	}
	if !bytes.Equal(cmd, want) {
		t.Fatalf("cmd = %x, want %x", cmd, want)
	}
}
