package engine

import "fmt"

// OutOfRangeError is returned by SetValue when the converted raw value
// falls outside the setpoint descriptor's bounds. The wire is never
// touched when this fires (spec.md section 4.3, "Write").
type OutOfRangeError struct {
	Name     string
	Raw      int32
	Min, Max int32
}

func (e *OutOfRangeError) Error() string {
	return fmt.Sprintf("engine: %s raw value %d out of range [%d,%d]", e.Name, e.Raw, e.Min, e.Max)
}

// UnknownSetpointError is returned by SetValue for a name absent from the
// catalog.
type UnknownSetpointError struct {
	Name string
}

func (e *UnknownSetpointError) Error() string {
	return fmt.Sprintf("engine: unknown setpoint %q", e.Name)
}
