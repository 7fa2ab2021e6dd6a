// Package joystick polls the first connected SDL3 joystick and emits raw
// button/axis snapshots for the teleop translator.
package joystick

import (
	"context"
	"runtime"
	"time"

	"github.com/edaniels/golog"
	"github.com/jupiterrider/purego-sdl3/sdl"

	"github.com/soar/freightteleop/backend/internal/gamepad"
)

// Config controls polling and snapshot emission.
type Config struct {
	Deadzone     float64
	PollInterval time.Duration
	// RepeatInterval re-emits an unchanged snapshot while any input is
	// active. Zero emits on change only.
	RepeatInterval time.Duration
}

type joystickInfo struct {
	joystick *sdl.Joystick
	mapping  *gamepad.DeviceMapping
	name     string
	id       sdl.JoystickID
}

// Reader reads joystick input from the SDL3 Joystick API and emits snapshots.
type Reader struct {
	cfg       Config
	logger    golog.Logger
	joysticks map[sdl.JoystickID]*joystickInfo
	activeID  sdl.JoystickID // the first connected joystick
	hasActive bool
	out       *gamepad.Emitter
}

// NewReader returns a reader; call Run to start polling.
func NewReader(cfg Config, logger golog.Logger) *Reader {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 16 * time.Millisecond // ~60Hz
	}
	return &Reader{
		cfg:       cfg,
		logger:    logger,
		joysticks: make(map[sdl.JoystickID]*joystickInfo),
		out:       gamepad.NewEmitter(64),
	}
}

// Snapshots returns the channel on which snapshots are sent, in poll order.
func (r *Reader) Snapshots() <-chan gamepad.Snapshot {
	return r.out.C()
}

// Current returns the last emitted snapshot.
func (r *Reader) Current() gamepad.Snapshot {
	return r.out.Last()
}

// Dropped returns how many snapshots were dropped because the consumer lagged.
func (r *Reader) Dropped() uint64 {
	return r.out.Dropped()
}

// Run initializes SDL and runs the event+polling loop on the current thread
// until ctx is done. The snapshot channel is closed on return.
func (r *Reader) Run(ctx context.Context) error {
	runtime.LockOSThread()
	defer runtime.UnlockOSThread()
	defer r.out.Close()

	if !sdl.Init(sdl.InitJoystick) {
		return &InitError{Reason: sdl.GetError()}
	}
	defer sdl.Quit()

	r.logger.Info("SDL3 joystick subsystem initialized")

	for _, id := range sdl.GetJoysticks() {
		r.openJoystick(id)
	}

	pollNS := uint64(r.cfg.PollInterval.Nanoseconds())
	for {
		select {
		case <-ctx.Done():
			r.closeAll()
			return nil
		default:
		}

		r.processEvents()
		r.pollState()
		sdl.DelayNS(pollNS)
	}
}

// InitError is returned by Run when SDL cannot be initialized.
type InitError struct {
	Reason string
}

func (e *InitError) Error() string {
	return "SDL init failed: " + e.Reason
}

func (r *Reader) processEvents() {
	var event sdl.Event
	for sdl.PollEvent(&event) {
		switch event.Type() {
		case sdl.EventJoystickAdded:
			r.openJoystick(event.JDevice().Which)
		case sdl.EventJoystickRemoved:
			r.removeJoystick(event.JDevice().Which)
		}
	}
}

func (r *Reader) openJoystick(instanceID sdl.JoystickID) {
	if _, exists := r.joysticks[instanceID]; exists {
		return
	}

	js := sdl.OpenJoystick(instanceID)
	if js == nil {
		r.logger.Warnw("failed to open joystick", "id", instanceID, "error", sdl.GetError())
		return
	}

	jsID := sdl.GetJoystickID(js)
	vendorID := sdl.GetJoystickVendor(js)
	productID := sdl.GetJoystickProduct(js)
	name := sdl.GetJoystickName(js)
	mapping := gamepad.GetMapping(vendorID, productID)

	r.joysticks[jsID] = &joystickInfo{
		joystick: js,
		mapping:  mapping,
		name:     name,
		id:       jsID,
	}

	r.logger.Infow("joystick connected",
		"name", name,
		"vid", vendorID,
		"pid", productID,
		"mapping", mapping.Name,
		"axes", sdl.GetNumJoystickAxes(js),
		"buttons", sdl.GetNumJoystickButtons(js),
		"hats", sdl.GetNumJoystickHats(js))

	if !r.hasActive {
		r.activeID = jsID
		r.hasActive = true
		r.logger.Infow("active joystick set", "name", name, "id", jsID)
	}
}

func (r *Reader) removeJoystick(instanceID sdl.JoystickID) {
	info, exists := r.joysticks[instanceID]
	if !exists {
		return
	}

	r.logger.Infow("joystick disconnected", "name", info.name)
	sdl.CloseJoystick(info.joystick)
	delete(r.joysticks, instanceID)

	if !r.hasActive || r.activeID != instanceID {
		return
	}
	r.hasActive = false

	// release everything so the translator stops the base; retried on every
	// poll until the runner takes it
	r.out.Release(time.Now())

	for id, js := range r.joysticks {
		if sdl.JoystickConnected(js.joystick) {
			r.activeID = id
			r.hasActive = true
			r.logger.Infow("active joystick switched", "name", js.name, "id", id)
			break
		}
	}
}

func (r *Reader) closeAll() {
	for id, info := range r.joysticks {
		sdl.CloseJoystick(info.joystick)
		delete(r.joysticks, id)
	}
}

func (r *Reader) pollState() {
	if !r.out.Flush(time.Now()) || !r.hasActive {
		return
	}

	info, exists := r.joysticks[r.activeID]
	if !exists || !sdl.JoystickConnected(info.joystick) {
		return
	}

	js := info.joystick
	numAxes := sdl.GetNumJoystickAxes(js)
	raw := make([]int16, numAxes)
	for i := int32(0); i < numAxes; i++ {
		raw[i] = sdl.GetJoystickAxis(js, i)
	}
	var hat uint8
	if info.mapping.HasHat && sdl.GetNumJoystickHats(js) > 0 {
		hat = sdl.GetJoystickHat(js, 0)
	}

	numButtons := sdl.GetNumJoystickButtons(js)
	buttons := make([]bool, numButtons)
	for i := int32(0); i < numButtons; i++ {
		buttons[i] = sdl.GetJoystickButton(js, i)
	}

	now := time.Now()
	state := gamepad.Snapshot{
		Time:      now,
		Connected: true,
		Name:      info.name,
		Buttons:   buttons,
		Axes:      gamepad.BuildAxes(info.mapping, raw, hat, r.cfg.Deadzone),
	}

	if r.out.Due(state, r.cfg.RepeatInterval) {
		r.out.Emit(state)
	}
}
