// Package binding resolves the joystick bindings of the teleop node: which
// axis drives which velocity channel, how strongly, and which buttons and
// axes select modes and nudge wheels.
package binding

import (
	"sort"

	"github.com/edaniels/golog"
)

// Channel names a velocity input channel.
type Channel string

// Linear and angular channels.
const (
	X     Channel = "x"
	Y     Channel = "y"
	Z     Channel = "z"
	Yaw   Channel = "yaw"
	Pitch Channel = "pitch"
	Roll  Channel = "roll"
)

var (
	linearChannels  = []Channel{X, Y, Z}
	angularChannels = []Channel{Yaw, Pitch, Roll}
)

// Mode names a driving mode selected by a held enable button.
type Mode string

// Driving modes, in dispatch priority order.
const (
	Drive Mode = "drive"
	Horiz Mode = "horiz"
	Twist Mode = "twist"
)

// Modes lists every mode in dispatch priority order.
var Modes = []Mode{Drive, Horiz, Twist}

// Disabled is the index sentinel for an unbound button or axis.
const Disabled = -1

// Config is the raw binding configuration. Keys follow the node parameter
// names. A negative index disables the feature.
type Config struct {
	EnableButton      int `mapstructure:"enable_button" yaml:"enable_button"`
	EnableHorizButton int `mapstructure:"enable_horiz_button" yaml:"enable_horiz_button"`
	EnableTwistButton int `mapstructure:"enable_twist_button" yaml:"enable_twist_button"`

	AxisAdjustFront    int `mapstructure:"axis_adjust_front" yaml:"axis_adjust_front"`
	AxisAdjustBack     int `mapstructure:"axis_adjust_back" yaml:"axis_adjust_back"`
	AxisAdjustSteering int `mapstructure:"axis_adjust_steering" yaml:"axis_adjust_steering"`

	AxisLinear   map[string]int     `mapstructure:"axis_linear" yaml:"axis_linear,omitempty"`
	ScaleLinear  map[string]float64 `mapstructure:"scale_linear" yaml:"scale_linear,omitempty"`
	AxisAngular  map[string]int     `mapstructure:"axis_angular" yaml:"axis_angular,omitempty"`
	ScaleAngular map[string]float64 `mapstructure:"scale_angular" yaml:"scale_angular,omitempty"`

	// ModeScale overrides individual scale entries for one mode.
	ModeScale map[string]map[string]float64 `mapstructure:"mode_scale" yaml:"mode_scale,omitempty"`
}

// DefaultConfig returns the stock bindings: the drive mode on button 0, no
// horiz/twist modes, no wheel nudging. Channel maps are left empty and fall
// back to x on axis 1 and yaw on axis 0, both at half scale.
func DefaultConfig() Config {
	return Config{
		EnableButton:       0,
		EnableHorizButton:  Disabled,
		EnableTwistButton:  Disabled,
		AxisAdjustFront:    Disabled,
		AxisAdjustBack:     Disabled,
		AxisAdjustSteering: Disabled,
	}
}

// Table is the resolved, immutable binding table. It is safe for concurrent
// use.
type Table struct {
	axis        map[Channel]int
	scale       map[Mode]map[Channel]float64
	enable      map[Mode]int
	adjustFront int
	adjustBack  int
	adjustSteer int
}

// New resolves cfg into a Table. It fails with a *ConfigurationError when cfg
// names an unknown channel or mode, or scales a channel that no axis feeds
// while a mode is enabled.
func New(cfg Config) (*Table, error) {
	axisLinear, scaleLinear := cfg.AxisLinear, cfg.ScaleLinear
	if len(axisLinear) == 0 {
		axisLinear = map[string]int{string(X): 1}
		scaleLinear = map[string]float64{string(X): 0.5}
	}
	axisAngular, scaleAngular := cfg.AxisAngular, cfg.ScaleAngular
	if len(axisAngular) == 0 {
		axisAngular = map[string]int{string(Yaw): 0}
		scaleAngular = map[string]float64{string(Yaw): 0.5}
	}

	t := &Table{
		axis:  make(map[Channel]int),
		scale: make(map[Mode]map[Channel]float64),
		enable: map[Mode]int{
			Drive: normalizeIndex(cfg.EnableButton),
			Horiz: normalizeIndex(cfg.EnableHorizButton),
			Twist: normalizeIndex(cfg.EnableTwistButton),
		},
		adjustFront: normalizeIndex(cfg.AxisAdjustFront),
		adjustBack:  normalizeIndex(cfg.AxisAdjustBack),
		adjustSteer: normalizeIndex(cfg.AxisAdjustSteering),
	}

	normal := make(map[Channel]float64)
	if err := t.addGroup("axis_linear", "scale_linear", linearChannels, axisLinear, scaleLinear, normal); err != nil {
		return nil, err
	}
	if err := t.addGroup("axis_angular", "scale_angular", angularChannels, axisAngular, scaleAngular, normal); err != nil {
		return nil, err
	}

	for _, m := range Modes {
		set := make(map[Channel]float64, len(normal))
		for ch, v := range normal {
			set[ch] = v
		}
		t.scale[m] = set
	}
	for name, overrides := range cfg.ModeScale {
		m := Mode(name)
		if !knownMode(m) {
			return nil, &ConfigurationError{Field: "mode_scale." + name, Reason: "unknown mode"}
		}
		for chName, v := range overrides {
			ch := Channel(chName)
			if !knownChannel(ch) {
				return nil, &ConfigurationError{Field: "mode_scale." + name + "." + chName, Reason: "unknown channel"}
			}
			t.scale[m][ch] = v
		}
	}

	// a disabled mode never reads its scales
	for _, m := range Modes {
		if _, ok := t.EnableButtonIndex(m); !ok {
			continue
		}
		for ch := range t.scale[m] {
			if _, ok := t.axis[ch]; !ok {
				return nil, &ConfigurationError{
					Field:  "scale." + string(ch),
					Reason: "channel is scaled for mode " + string(m) + " but has no mapped axis",
				}
			}
		}
	}

	return t, nil
}

func (t *Table) addGroup(
	axisField, scaleField string,
	allowed []Channel,
	axes map[string]int,
	scales map[string]float64,
	normal map[Channel]float64,
) error {
	for name, idx := range axes {
		ch := Channel(name)
		if !contains(allowed, ch) {
			return &ConfigurationError{Field: axisField + "." + name, Reason: "unknown channel"}
		}
		if idx >= 0 {
			t.axis[ch] = idx
		}
	}
	for name, v := range scales {
		ch := Channel(name)
		if !contains(allowed, ch) {
			return &ConfigurationError{Field: scaleField + "." + name, Reason: "unknown channel"}
		}
		normal[ch] = v
	}
	return nil
}

// AxisIndex returns the axis bound to ch.
func (t *Table) AxisIndex(ch Channel) (int, bool) {
	idx, ok := t.axis[ch]
	return idx, ok
}

// Scale returns the scale factor of ch in mode m, 0 if none is configured.
func (t *Table) Scale(m Mode, ch Channel) float64 {
	return t.scale[m][ch]
}

// EnableButtonIndex returns the button that selects mode m.
func (t *Table) EnableButtonIndex(m Mode) (int, bool) {
	idx, ok := t.enable[m]
	if !ok {
		return 0, false
	}
	return optional(idx)
}

// AdjustFrontIndex returns the axis that nudges the front wheels.
func (t *Table) AdjustFrontIndex() (int, bool) { return optional(t.adjustFront) }

// AdjustBackIndex returns the axis that nudges the back wheels.
func (t *Table) AdjustBackIndex() (int, bool) { return optional(t.adjustBack) }

// SteeringDeltaIndex returns the axis that qualifies a nudge as an increase
// or a decrease.
func (t *Table) SteeringDeltaIndex() (int, bool) { return optional(t.adjustSteer) }

// Describe logs the resolved bindings.
func (t *Table) Describe(logger golog.Logger) {
	for _, m := range Modes {
		if idx, ok := t.EnableButtonIndex(m); ok {
			logger.Infow("mode enable button", "mode", m, "button", idx)
		} else {
			logger.Infow("mode disabled", "mode", m)
		}
	}

	channels := make([]Channel, 0, len(t.axis))
	for ch := range t.axis {
		channels = append(channels, ch)
	}
	sort.Slice(channels, func(i, j int) bool { return channels[i] < channels[j] })
	for _, ch := range channels {
		logger.Infow("axis binding", "channel", ch, "axis", t.axis[ch], "scale", t.Scale(Drive, ch))
	}

	if idx, ok := t.AdjustFrontIndex(); ok {
		logger.Infow("front steering nudge", "axis", idx)
	}
	if idx, ok := t.AdjustBackIndex(); ok {
		logger.Infow("back steering nudge", "axis", idx)
	}
	if idx, ok := t.SteeringDeltaIndex(); ok {
		logger.Infow("steering delta", "axis", idx)
	}
}

func normalizeIndex(idx int) int {
	if idx < 0 {
		return Disabled
	}
	return idx
}

func optional(idx int) (int, bool) {
	if idx < 0 {
		return 0, false
	}
	return idx, true
}

func knownMode(m Mode) bool {
	for _, k := range Modes {
		if k == m {
			return true
		}
	}
	return false
}

func knownChannel(ch Channel) bool {
	return contains(linearChannels, ch) || contains(angularChannels, ch)
}

func contains(chs []Channel, ch Channel) bool {
	for _, c := range chs {
		if c == ch {
			return true
		}
	}
	return false
}
