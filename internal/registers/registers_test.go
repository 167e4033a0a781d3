package registers

import "testing"

func TestConvertDatapointTempSupplyScenario(t *testing.T) {
	d := Optima270.Datapoints()[0] // TEMP_SUPPLY
	if d.Name != "TEMP_SUPPLY" {
		t.Fatalf("expected TEMP_SUPPLY first, got %s", d.Name)
	}
	got := ConvertDatapoint(210, d)
	if got != -9.0 {
		t.Fatalf("ConvertDatapoint(210) = %v, want -9.0", got)
	}
}

func TestSetpointWriteScenario(t *testing.T) {
	// spec.md section 8 scenario 4.
	s, ok := Optima270.SetpointByName("TEMP_SETPOINT")
	if !ok {
		t.Fatalf("TEMP_SETPOINT not found")
	}
	raw := ToRawSetpoint(22.0, s)
	if raw != 120 {
		t.Fatalf("raw = %d, want 120", raw)
	}
	if raw < s.Min || raw > s.Max {
		t.Fatalf("raw %d out of bounds [%d,%d]", raw, s.Min, s.Max)
	}
	if s.WriteAddress != 12 {
		t.Fatalf("writeAddress = %d, want 12", s.WriteAddress)
	}
}

func TestRoundTripSetpointConversion(t *testing.T) {
	s := Setpoint{Divider: 10, Offset: -300}
	for _, display := range []float64{-30, -9, 0, 5, 12.5, 40} {
		raw := ToRawSetpoint(display, s)
		got := ConvertSetpoint(uint16(int16(raw)), s)
		if got != display {
			t.Fatalf("round trip display=%v: got raw=%d back=%v", display, raw, got)
		}
	}
}

func TestRoundTripRawConversion(t *testing.T) {
	s := Setpoint{Divider: 10, Offset: 100}
	for raw := int32(-300); raw <= 300; raw += 17 {
		display := ConvertSetpoint(uint16(int16(raw)), s)
		back := ToRawSetpoint(display, s)
		if back != raw {
			t.Fatalf("round trip raw=%d: display=%v back=%d", raw, display, back)
		}
	}
}

func TestDividerZeroTreatedAsOne(t *testing.T) {
	d := Datapoint{Divider: 0, Offset: 0}
	if got := ConvertDatapoint(5, d); got != 5 {
		t.Fatalf("ConvertDatapoint with divider 0 = %v, want 5", got)
	}
}

func TestOptima251SetpointRequestListSkipsWriteOnly(t *testing.T) {
	list := Optima251.SetpointRequestList()
	for _, s := range list {
		if s.Name == "FILTER_RESET" {
			t.Fatalf("write-only FILTER_RESET must be excluded from request list")
		}
	}
	if _, ok := Optima251.SetpointByName("FILTER_RESET"); !ok {
		t.Fatalf("FILTER_RESET should still be resolvable by name")
	}
}

func TestOptima251ReadWriteAddressesCoincide(t *testing.T) {
	for _, s := range Optima251.Setpoints() {
		if s.ReadAddress != s.WriteAddress {
			t.Fatalf("setpoint %s: read/write addresses differ on Optima251: %d != %d",
				s.Name, s.ReadAddress, s.WriteAddress)
		}
	}
}

func TestOptima270ReadWriteAddressesDiffer(t *testing.T) {
	fanSpeed, ok := Optima270.SetpointByName("FAN_SPEED")
	if !ok {
		t.Fatalf("FAN_SPEED not found")
	}
	if fanSpeed.ReadAddress == fanSpeed.WriteAddress {
		t.Fatalf("expected distinct read/write addresses on Optima270")
	}
	if fanSpeed.ReadAddress != 7 || fanSpeed.WriteAddress != 24 {
		t.Fatalf("FAN_SPEED addresses = (%d,%d), want (7,24)", fanSpeed.ReadAddress, fanSpeed.WriteAddress)
	}
}

func TestByModelName(t *testing.T) {
	if c, err := ByModelName("optima270"); err != nil || c.Name() != "optima270" {
		t.Fatalf("ByModelName(optima270) = %v, %v", c, err)
	}
	if _, err := ByModelName("bogus"); err == nil {
		t.Fatalf("expected error for unknown model")
	}
}
