package registers

// Optima270 is the register catalog for the Optima 270 controller family:
// setpoints have independent read and write addresses, and the fan stage
// setpoint ranges 1-4 (spec.md section 6).
var Optima270 = NewCatalog("optima270", optima270Datapoints, optima270Setpoints)

var optima270Datapoints = []Datapoint{
	{Name: "TEMP_SUPPLY", Address: 0, Divider: 10, Offset: -300, Unit: "C"},
	{Name: "TEMP_OUTSIDE", Address: 1, Divider: 10, Offset: -300, Unit: "C"},
	{Name: "TEMP_EXHAUST", Address: 2, Divider: 10, Offset: -300, Unit: "C"},
	{Name: "TEMP_EXTRACT", Address: 3, Divider: 10, Offset: -300, Unit: "C"},
	{Name: "HUMIDITY_SUPPLY", Address: 4, Divider: 1, Offset: 0, Unit: "%"},
	{Name: "HUMIDITY_EXTRACT", Address: 5, Divider: 1, Offset: 0, Unit: "%"},
	{Name: "FAN_RPM_SUPPLY", Address: 6, Divider: 1, Offset: 0, Unit: "rpm"},
	{Name: "FAN_RPM_EXHAUST", Address: 7, Divider: 1, Offset: 0, Unit: "rpm"},
	{Name: "BYPASS_STATE", Address: 8, Divider: 1, Offset: 0, Unit: ""},
	{Name: "FILTER_COUNTER", Address: 9, Divider: 1, Offset: 0, Unit: "days"},
	// SACRIFICIAL_ANODE and DUTYCYCLE_SUPPLY collide at address 18 on
	// this firmware family (spec.md open questions). Both are surfaced;
	// their raw values are identical when the firmware reuses the slot.
	{Name: "SACRIFICIAL_ANODE", Address: 18, Divider: 1, Offset: 0, Unit: ""},
	{Name: "DUTYCYCLE_SUPPLY", Address: 18, Divider: 1, Offset: 0, Unit: "%"},
}

var optima270Setpoints = []Setpoint{
	{
		Name: "TEMP_SETPOINT", ReadAddress: 1, WriteAddress: 12,
		Divider: 10, Offset: 100, Unit: "C", Min: 0, Max: 200,
	},
	{
		Name: "FAN_SPEED", ReadAddress: 7, WriteAddress: 24,
		Divider: 1, Offset: 0, Unit: "", Min: 1, Max: 4,
	},
	{
		Name: "REHEAT_ENABLE", ReadAddress: 31, WriteAddress: 32,
		Divider: 1, Offset: 0, Unit: "", Min: 0, Max: 1,
	},
}
