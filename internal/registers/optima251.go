package registers

// Optima251 is the register catalog for the Optima 251 controller:
// setpoint read and write addresses coincide, the fan stage setpoint
// ranges 0-4, and filter reset is a write-only pulse (spec.md section 6).
var Optima251 = NewCatalog("optima251", optima251Datapoints, optima251Setpoints)

var optima251Datapoints = []Datapoint{
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
}

var optima251Setpoints = []Setpoint{
	{
		Name: "TEMP_SETPOINT", ReadAddress: 1, WriteAddress: 1,
		Divider: 10, Offset: 100, Unit: "C", Min: 0, Max: 200,
	},
	{
		Name: "FAN_SPEED", ReadAddress: 7, WriteAddress: 7,
		Divider: 1, Offset: 0, Unit: "", Min: 0, Max: 4,
	},
	{
		Name: "REHEAT_ENABLE", ReadAddress: 31, WriteAddress: 31,
		Divider: 1, Offset: 0, Unit: "", Min: 0, Max: 1,
	},
	{
		Name: "FILTER_RESET", ReadAddress: 40, WriteAddress: 40,
		Divider: 1, Offset: 0, Unit: "", Min: 1, Max: 1, WriteOnly: true,
	},
}
