package teleop

import (
	"testing"

	"github.com/edaniels/golog"
	"github.com/golang/geo/r3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/soar/freightteleop/backend/internal/binding"
	"github.com/soar/freightteleop/backend/internal/gamepad"
)

const (
	btnDrive = 0
	btnHoriz = 1
	btnTwist = 2

	axFront = 4
	axBack  = 5
	axDelta = 6
)

func fullConfig() binding.Config {
	cfg := binding.DefaultConfig()
	cfg.EnableButton = btnDrive
	cfg.EnableHorizButton = btnHoriz
	cfg.EnableTwistButton = btnTwist
	cfg.AxisAdjustFront = axFront
	cfg.AxisAdjustBack = axBack
	cfg.AxisAdjustSteering = axDelta
	return cfg
}

func newTranslator(t *testing.T, cfg binding.Config) *Translator {
	t.Helper()
	table, err := binding.New(cfg)
	require.NoError(t, err)
	return NewTranslator(table, golog.NewTestLogger(t))
}

// snap builds a snapshot with 4 buttons and 8 axes.
func snap(pressed []int, axes map[int]float64) gamepad.Snapshot {
	s := gamepad.Snapshot{Connected: true, Buttons: make([]bool, 4), Axes: make([]float64, 8)}
	for _, b := range pressed {
		s.Buttons[b] = true
	}
	for i, v := range axes {
		s.Axes[i] = v
	}
	return s
}

func idle() gamepad.Snapshot { return snap(nil, nil) }

func TestIdleEmitsNeutralOnce(t *testing.T) {
	tr := newTranslator(t, fullConfig())

	assert.Equal(t, []Command{Neutral}, tr.Evaluate(idle()))
	assert.Empty(t, tr.Evaluate(idle()))
	assert.Empty(t, tr.Evaluate(idle()))

	tr.Evaluate(snap([]int{btnDrive}, map[int]float64{1: 0.5}))
	assert.Equal(t, []Command{Neutral}, tr.Evaluate(idle()))
	assert.Empty(t, tr.Evaluate(idle()))
}

func TestTransitionIntoEachMode(t *testing.T) {
	for _, tc := range []struct {
		button  int
		mode    Mode
		realign Wheel
	}{
		{btnDrive, ModeDrive, WheelAllStraight},
		{btnHoriz, ModeHoriz, WheelAllHoriz},
		{btnTwist, ModeTwist, WheelAllTwist},
	} {
		t.Run(tc.mode.String(), func(t *testing.T) {
			tr := newTranslator(t, fullConfig())

			out := tr.Evaluate(snap([]int{tc.button}, map[int]float64{1: 1}))
			require.Len(t, out, 3)
			assert.Equal(t, SteeringAdjust{Target: tc.realign, Direction: Increase}, out[0])
			assert.Equal(t, Neutral, out[1])
			assert.Equal(t, Velocity{Linear: r3.Vector{X: 0.5}}, out[2])
			assert.Equal(t, tc.mode, tr.Mode())

			// staying in the mode only streams velocity
			out = tr.Evaluate(snap([]int{tc.button}, map[int]float64{1: -1}))
			assert.Equal(t, []Command{Velocity{Linear: r3.Vector{X: -0.5}}}, out)
		})
	}
}

func TestSwitchingModesRealigns(t *testing.T) {
	tr := newTranslator(t, fullConfig())

	tr.Evaluate(snap([]int{btnDrive}, nil))
	out := tr.Evaluate(snap([]int{btnHoriz}, nil))
	require.Len(t, out, 3)
	assert.Equal(t, SteeringAdjust{Target: WheelAllHoriz, Direction: Increase}, out[0])
	assert.Equal(t, Neutral, out[1])

	out = tr.Evaluate(snap([]int{btnTwist}, nil))
	require.Len(t, out, 3)
	assert.Equal(t, SteeringAdjust{Target: WheelAllTwist, Direction: Increase}, out[0])

	// leaving to idle stops the base, re-entering realigns again
	assert.Equal(t, []Command{Neutral}, tr.Evaluate(idle()))
	assert.Equal(t, ModeNone, tr.Mode())
	out = tr.Evaluate(snap([]int{btnTwist}, nil))
	require.Len(t, out, 3)
	assert.Equal(t, SteeringAdjust{Target: WheelAllTwist, Direction: Increase}, out[0])
}

func TestFixedPriority(t *testing.T) {
	tr := newTranslator(t, fullConfig())

	out := tr.Evaluate(snap([]int{btnTwist, btnHoriz, btnDrive}, map[int]float64{axFront: 1, axDelta: 1}))
	require.Len(t, out, 3)
	assert.Equal(t, SteeringAdjust{Target: WheelAllStraight, Direction: Increase}, out[0])
	assert.Equal(t, ModeDrive, tr.Mode())

	tr = newTranslator(t, fullConfig())
	tr.Evaluate(snap([]int{btnTwist, btnHoriz}, nil))
	assert.Equal(t, ModeHoriz, tr.Mode())

	// a held enable button wins over the nudge axes
	out = tr.Evaluate(snap([]int{btnHoriz}, map[int]float64{axFront: 1, axDelta: 1}))
	require.Len(t, out, 1)
	assert.Equal(t, KindVelocity, out[0].Kind())
}

func TestSteeringNudgeQualification(t *testing.T) {
	for _, tc := range []struct {
		name string
		axes map[int]float64
		want []Command
	}{
		{"front positive increase", map[int]float64{axFront: 1, axDelta: 0.9}, []Command{SteeringAdjust{WheelFL, Increase}}},
		{"front positive decrease", map[int]float64{axFront: 0.3, axDelta: -0.9}, []Command{SteeringAdjust{WheelFL, Decrease}}},
		{"front negative increase", map[int]float64{axFront: -1, axDelta: 0.6}, []Command{SteeringAdjust{WheelFR, Increase}}},
		{"front negative decrease", map[int]float64{axFront: -1, axDelta: -0.6}, []Command{SteeringAdjust{WheelFR, Decrease}}},
		{"back positive", map[int]float64{axBack: 1, axDelta: 1}, []Command{SteeringAdjust{WheelBL, Increase}}},
		{"back negative decrease", map[int]float64{axBack: -1, axDelta: -1}, []Command{SteeringAdjust{WheelBR, Decrease}}},
		{"front wins over back", map[int]float64{axFront: 1, axBack: -1, axDelta: 1}, []Command{SteeringAdjust{WheelFL, Increase}}},
		{"delta at upper bound", map[int]float64{axFront: 1, axDelta: 0.5}, nil},
		{"delta at lower bound", map[int]float64{axFront: 1, axDelta: -0.5}, nil},
		{"delta centered", map[int]float64{axBack: 1}, nil},
	} {
		t.Run(tc.name, func(t *testing.T) {
			tr := newTranslator(t, fullConfig())
			assert.Equal(t, tc.want, tr.Evaluate(snap(nil, tc.axes)))
		})
	}
}

func TestNudgeDoesNotChangeMode(t *testing.T) {
	tr := newTranslator(t, fullConfig())

	tr.Evaluate(snap([]int{btnDrive}, nil))
	out := tr.Evaluate(snap(nil, map[int]float64{axFront: 1, axDelta: 1}))
	assert.Equal(t, []Command{SteeringAdjust{WheelFL, Increase}}, out)
	assert.Equal(t, ModeDrive, tr.Mode())

	// back to drive without a realignment
	out = tr.Evaluate(snap([]int{btnDrive}, nil))
	require.Len(t, out, 1)
	assert.Equal(t, KindVelocity, out[0].Kind())
}

func TestSuppressedNudgeKeepsIdleState(t *testing.T) {
	tr := newTranslator(t, fullConfig())

	assert.Equal(t, []Command{Neutral}, tr.Evaluate(idle()))
	assert.Empty(t, tr.Evaluate(snap(nil, map[int]float64{axFront: 1})))
	assert.Empty(t, tr.Evaluate(idle()))
}

func TestNudgeWithoutDeltaAxis(t *testing.T) {
	cfg := fullConfig()
	cfg.AxisAdjustSteering = binding.Disabled
	tr := newTranslator(t, cfg)

	assert.Empty(t, tr.Evaluate(snap(nil, map[int]float64{axFront: 1})))
}

func TestAllWheelCodesAreUnqualified(t *testing.T) {
	for _, w := range []Wheel{WheelAllStraight, WheelAllHoriz, WheelAllTwist} {
		assert.Equal(t, int16(w), SteeringAdjust{Target: w, Direction: Decrease}.Code())
	}
	assert.Equal(t, int16(-2), SteeringAdjust{Target: WheelFL, Direction: Decrease}.Code())
	assert.Equal(t, int16(3), SteeringAdjust{Target: WheelBR, Direction: Increase}.Code())
	assert.Equal(t, SteeringAdjust{Target: WheelBL, Direction: Decrease}, SteeringFromCode(-4))
	assert.Equal(t, SteeringAdjust{Target: WheelAllHoriz, Direction: Increase}, SteeringFromCode(6))
}

func TestScaleScenario(t *testing.T) {
	cfg := binding.DefaultConfig()
	cfg.AxisLinear = map[string]int{"x": 1}
	cfg.ScaleLinear = map[string]float64{"x": 0.5}
	tr := newTranslator(t, cfg)

	tr.Evaluate(gamepad.Snapshot{Buttons: []bool{true}, Axes: []float64{0, 0.8}})
	out := tr.Evaluate(gamepad.Snapshot{Buttons: []bool{true}, Axes: []float64{0, 0.8}})
	require.Len(t, out, 1)
	v, ok := out[0].(Velocity)
	require.True(t, ok)
	assert.InDelta(t, 0.4, v.Linear.X, 1e-12)
	assert.Zero(t, v.Linear.Y)
	assert.Zero(t, v.Linear.Z)
	assert.Equal(t, r3.Vector{}, v.Angular)
}

func TestMissingYawAxis(t *testing.T) {
	cfg := binding.DefaultConfig()
	cfg.AxisAngular = map[string]int{"pitch": 2}
	cfg.ScaleAngular = map[string]float64{"pitch": 1}
	tr := newTranslator(t, cfg)

	out := tr.Evaluate(gamepad.Snapshot{Buttons: []bool{true}, Axes: []float64{1, 1, 1}})
	v := out[len(out)-1].(Velocity)
	assert.Zero(t, v.Angular.Z)
	assert.Equal(t, 1.0, v.Angular.Y)
}

func TestOutOfRangeAxis(t *testing.T) {
	cfg := binding.DefaultConfig()
	cfg.AxisLinear = map[string]int{"x": 5}
	cfg.ScaleLinear = map[string]float64{"x": 1}
	tr := newTranslator(t, cfg)

	out := tr.Evaluate(gamepad.Snapshot{Buttons: []bool{true}, Axes: []float64{1, 1, 1}})
	v := out[len(out)-1].(Velocity)
	assert.Zero(t, v.Linear.X)
}

func TestOutOfRangeButtonIsReleased(t *testing.T) {
	cfg := binding.DefaultConfig()
	cfg.EnableButton = 9
	tr := newTranslator(t, cfg)

	assert.Equal(t, []Command{Neutral}, tr.Evaluate(gamepad.Snapshot{Buttons: []bool{true}, Axes: []float64{1, 1}}))
	assert.Equal(t, ModeNone, tr.Mode())
}

func TestEmptySnapshot(t *testing.T) {
	tr := newTranslator(t, fullConfig())
	assert.Equal(t, []Command{Neutral}, tr.Evaluate(gamepad.Snapshot{}))
}
