package gamepad

import "math"

// AxisMapping describes how one raw axis index is normalized.
type AxisMapping struct {
	Index     int32
	IsTrigger bool
	Invert    bool
	// For triggers: raw range. Some devices use -32768..32767, others 0..32767.
	RawMin int16
	RawMax int16
}

// DeviceMapping holds the raw axis conventions for a specific device type.
// Raw axes not listed are normalized as plain, non-inverted sticks.
type DeviceMapping struct {
	Name   string
	Axes   []AxisMapping
	HasHat bool
}

// Axis returns the mapping for raw axis index, or a plain stick mapping.
func (m *DeviceMapping) Axis(index int32) AxisMapping {
	for _, am := range m.Axes {
		if am.Index == index {
			return am
		}
	}
	return AxisMapping{Index: index}
}

// NormalizeAxis converts a raw axis value (-32768..32767) to -1.0..1.0.
func NormalizeAxis(raw int16) float64 {
	v := float64(raw) / math.MaxInt16
	if v < -1.0 {
		v = -1.0
	}
	return v
}

// NormalizeTrigger converts a raw trigger value to 0.0..1.0.
func NormalizeTrigger(raw int16, rawMin, rawMax int16) float64 {
	if rawMax == rawMin {
		return 0
	}
	v := (float64(raw) - float64(rawMin)) / (float64(rawMax) - float64(rawMin))
	if v < 0 {
		v = 0
	}
	if v > 1 {
		v = 1
	}
	return v
}

// ApplyDeadzone returns 0 if the value is within the deadzone threshold.
func ApplyDeadzone(v float64, threshold float64) float64 {
	if math.Abs(v) < threshold {
		return 0
	}
	return v
}

const (
	hatUp    uint8 = 0x01
	hatRight uint8 = 0x02
	hatDown  uint8 = 0x04
	hatLeft  uint8 = 0x08
)

// HatAxes converts a hat bitmask into two axes, left and up positive.
func HatAxes(hat uint8) (x, y float64) {
	switch {
	case hat&hatLeft != 0:
		x = 1
	case hat&hatRight != 0:
		x = -1
	}
	switch {
	case hat&hatUp != 0:
		y = 1
	case hat&hatDown != 0:
		y = -1
	}
	return x, y
}

// BuildAxes normalizes raw axis readings through the mapping and dead-zone.
// When the device reports a hat, its two axes are appended after the raw axes.
func BuildAxes(m *DeviceMapping, raw []int16, hat uint8, deadzone float64) []float64 {
	n := len(raw)
	if m.HasHat {
		n += 2
	}
	axes := make([]float64, 0, n)
	for i, r := range raw {
		am := m.Axis(int32(i))
		var v float64
		if am.IsTrigger {
			v = NormalizeTrigger(r, am.RawMin, am.RawMax)
		} else {
			v = NormalizeAxis(r)
			if am.Invert {
				v = -v
			}
		}
		axes = append(axes, ApplyDeadzone(v, deadzone))
	}
	if m.HasHat {
		x, y := HatAxes(hat)
		axes = append(axes, x, y)
	}
	return axes
}

// Built-in mappings for common controllers. Stick axes are inverted so that
// up and left read positive.

var xboxMapping = &DeviceMapping{
	Name: "xbox",
	Axes: []AxisMapping{
		{Index: 0, Invert: true},
		{Index: 1, Invert: true},
		{Index: 2, Invert: true},
		{Index: 3, Invert: true},
		{Index: 4, IsTrigger: true, RawMin: -32768, RawMax: 32767},
		{Index: 5, IsTrigger: true, RawMin: -32768, RawMax: 32767},
	},
	HasHat: true,
}

var playstationMapping = &DeviceMapping{
	Name: "playstation",
	Axes: []AxisMapping{
		{Index: 0, Invert: true},
		{Index: 1, Invert: true},
		{Index: 2, Invert: true},
		{Index: 3, Invert: true},
		{Index: 4, IsTrigger: true, RawMin: -32768, RawMax: 32767},
		{Index: 5, IsTrigger: true, RawMin: -32768, RawMax: 32767},
	},
	HasHat: true,
}

var switchProMapping = &DeviceMapping{
	Name: "switch_pro",
	Axes: []AxisMapping{
		{Index: 0, Invert: true},
		{Index: 1, Invert: true},
		{Index: 2, Invert: true},
		{Index: 3, Invert: true},
	},
	HasHat: true,
}

var genericMapping = &DeviceMapping{
	Name: "generic",
	Axes: []AxisMapping{
		{Index: 0, Invert: true},
		{Index: 1, Invert: true},
		{Index: 2, Invert: true},
		{Index: 3, Invert: true},
	},
	HasHat: true,
}

// Known vendor/product IDs.
type deviceKey struct {
	VendorID  uint16
	ProductID uint16
}

var knownDevices = map[deviceKey]*DeviceMapping{
	// Microsoft Xbox controllers
	{0x045E, 0x028E}: xboxMapping, // Xbox 360
	{0x045E, 0x02FF}: xboxMapping, // Xbox One
	{0x045E, 0x0B12}: xboxMapping, // Xbox Series X|S
	{0x045E, 0x0B13}: xboxMapping, // Xbox Series X|S (wireless)
	// Logitech F710 in XInput mode
	{0x046D, 0xC21F}: xboxMapping,
	// Sony PlayStation controllers
	{0x054C, 0x0CE6}: playstationMapping, // DualSense
	{0x054C, 0x09CC}: playstationMapping, // DualShock 4 v2
	{0x054C, 0x05C4}: playstationMapping, // DualShock 4 v1
	// Nintendo Switch Pro Controller
	{0x057E, 0x2009}: switchProMapping,
}

// GetMapping returns the appropriate mapping for a device identified by vendor/product ID.
// Falls back to generic mapping if no specific mapping is found.
func GetMapping(vendorID, productID uint16) *DeviceMapping {
	key := deviceKey{VendorID: vendorID, ProductID: productID}
	if m, ok := knownDevices[key]; ok {
		return m
	}
	return genericMapping
}
