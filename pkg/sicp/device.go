package sicp

import (
	"context"
	"encoding/hex"
	"log"
	"sync"
	"time"

	"github.com/pkg/errors"
)

const (
	// The display needs a warm-up interval after power-on before it
	// reliably accepts input, volume or brightness commands.
	settleDelay = 300 * time.Millisecond

	defaultTimeout = 2 * time.Second
)

// Input maps a stable identifier to the command code that selects it.
type Input struct {
	Id    int
	Label string
	Code  byte
}

// Device tracks one physical display and owns its local state snapshot.
// All mutation happens through the operations below; commands reach the
// wire through the dispatcher, one at a time, and state is committed only
// after the round trip for the operation has resolved.
type Device struct {
	name   string
	target byte
	group  *byte

	dispatcher *Dispatcher
	handler    Handler
	verbose    bool

	inputs       []Input
	pollInterval time.Duration
	settle       time.Duration

	muteMode       muteMode
	muteSetCode    byte
	muteToggleCode byte

	// state snapshot; mux guards reads against in-flight commits
	mux        sync.Mutex
	power      bool
	input      int
	muted      bool
	volume     *Axis
	brightness *Axis
}

// NewDevice creates the engine for one configured display. The device is
// inert until Run is started; commands block until then.
func NewDevice(dc DeviceConfig, handler Handler, verbose bool) (*Device, error) {
	if err := dc.validate(); err != nil {
		return nil, err
	}

	timeout := defaultTimeout
	if dc.TimeoutMs > 0 {
		timeout = time.Duration(dc.TimeoutMs) * time.Millisecond
	}

	d := &Device{
		name: dc.Name,
		dispatcher: NewDispatcher(&Channel{
			Host:    dc.Host,
			Port:    dc.Port,
			Timeout: timeout,
		}),
		handler:      handler,
		verbose:      verbose,
		target:       dc.TargetId,
		pollInterval: time.Duration(dc.PollIntervalSeconds) * time.Second,
		settle:       settleDelay,
		volume:       &Axis{max: 100},
		brightness:   &Axis{max: 100},
	}

	if dc.GroupEnabled {
		group := dc.GroupId
		d.group = &group
	}

	for _, input := range dc.Inputs {
		d.inputs = append(d.inputs, Input{input.Id, input.Label, input.Code})
	}

	if dc.Volume != nil {
		d.volume = dc.Volume.axis()
		switch {
		case dc.Volume.MuteSetCode != nil:
			d.muteMode = muteAbsolute
			d.muteSetCode = *dc.Volume.MuteSetCode
		case dc.Volume.MuteToggleCode != nil:
			d.muteMode = muteToggle
			d.muteToggleCode = *dc.Volume.MuteToggleCode
		}
	}
	if dc.Brightness != nil {
		d.brightness = dc.Brightness.axis()
	}

	return d, nil
}

// Run drives the display's command queue until the context is cancelled.
func (d *Device) Run(ctx context.Context) error {
	return d.dispatcher.Run(ctx)
}

func (d *Device) Name() string { return d.name }

func (d *Device) Inputs() []Input { return d.inputs }

func (d *Device) PollInterval() time.Duration { return d.pollInterval }

// PowerState returns the locally tracked power state.
func (d *Device) PowerState() bool {
	d.mux.Lock()
	defer d.mux.Unlock()
	return d.power
}

// ActiveInput returns the identifier of the locally tracked input, 0 when
// no input switch has been observed yet.
func (d *Device) ActiveInput() int {
	d.mux.Lock()
	defer d.mux.Unlock()
	return d.input
}

func (d *Device) Volume() int {
	d.mux.Lock()
	defer d.mux.Unlock()
	return d.volume.current
}

func (d *Device) Muted() bool {
	d.mux.Lock()
	defer d.mux.Unlock()
	return d.muted
}

func (d *Device) Brightness() int {
	d.mux.Lock()
	defer d.mux.Unlock()
	return d.brightness.current
}

func (d *Device) VolumeRange() (min, max int) {
	return d.volume.min, d.volume.max
}

func (d *Device) BrightnessRange() (min, max int) {
	return d.brightness.min, d.brightness.max
}

// VolumeConfigured reports whether volume commands can reach the wire.
func (d *Device) VolumeConfigured() bool {
	return d.volume.mode != modeUnconfigured
}

// MuteConfigured reports whether mute commands can reach the wire.
func (d *Device) MuteConfigured() bool {
	return d.muteMode != muteUnconfigured
}

// send frames one command payload and transmits it through the queue.
func (d *Device) send(ctx context.Context, payload ...byte) ([]byte, error) {
	packet := Encode(d.target, d.group, payload)
	if d.verbose {
		log.Printf("%s: -> %s", d.name, hex.EncodeToString(packet))
	}
	reply, err := d.dispatcher.Send(ctx, packet)
	if d.verbose && err == nil {
		log.Printf("%s: <- %s", d.name, hex.EncodeToString(reply))
	}
	return reply, err
}

// checked sends a command and converts an explicit NACK or "not available"
// reply into ErrRejected. An indeterminate reply is not a rejection.
func (d *Device) checked(ctx context.Context, payload ...byte) error {
	reply, err := d.send(ctx, payload...)
	if err != nil {
		return err
	}
	return replyError(Classify(reply))
}

// GetPower queries the display and reconciles the local snapshot with the
// answer. It never fails: an unreachable or silent display is assumed off.
func (d *Device) GetPower(ctx context.Context) bool {
	on := false

	reply, err := d.send(ctx, CMD_POWER_GET)
	if err == nil {
		on = powerStateFromReply(reply)
	}

	d.mux.Lock()
	changed := d.power != on
	d.power = on
	d.mux.Unlock()

	if changed && d.handler != nil {
		d.handler.StatusPower(d, on)
	}

	return on
}

// powerStateFromReply scans a status reply for the power-get opcode
// followed by a known state marker. Anything else is indeterminate and
// defaults to off.
func powerStateFromReply(reply []byte) bool {
	if Classify(reply).Rejected() {
		return false
	}
	for i := 0; i+1 < len(reply); i++ {
		if reply[i] == CMD_POWER_GET {
			switch reply[i+1] {
			case POWER_STATE_ON:
				return true
			case POWER_STATE_OFF:
				return false
			}
		}
	}
	return false
}

// SetPower switches the display on or off.
func (d *Device) SetPower(ctx context.Context, on bool) error {
	state := POWER_STATE_OFF
	if on {
		state = POWER_STATE_ON
	}

	if err := d.checked(ctx, CMD_POWER_SET, state); err != nil {
		return err
	}

	d.mux.Lock()
	d.power = on
	d.mux.Unlock()

	if d.handler != nil {
		d.handler.StatusPower(d, on)
	}

	return nil
}

// ensureOn powers the display on when needed and waits out the settle
// delay, without which the display drops the command that follows. Already
// powered displays cost nothing. Two racing callers may both power on; the
// display treats the second set as a no-op.
func (d *Device) ensureOn(ctx context.Context) error {
	if d.PowerState() {
		return nil
	}

	if err := d.SetPower(ctx, true); err != nil {
		return err
	}

	select {
	case <-time.After(d.settle):
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// SetInput switches the display to the input with the given identifier.
func (d *Device) SetInput(ctx context.Context, id int) error {
	var input *Input
	for i := range d.inputs {
		if d.inputs[i].Id == id {
			input = &d.inputs[i]
			break
		}
	}
	if input == nil {
		return errors.Wrapf(ErrUnknownInput, "input %d", id)
	}

	if err := d.ensureOn(ctx); err != nil {
		return err
	}
	if err := d.checked(ctx, input.Code); err != nil {
		return err
	}

	d.mux.Lock()
	d.input = id
	d.mux.Unlock()

	if d.handler != nil {
		d.handler.StatusInput(d, id)
	}

	return nil
}

// SetVolume moves the volume axis to target, clamped to its range. With no
// configured volume codes the call logs a notice and does nothing.
func (d *Device) SetVolume(ctx context.Context, target int) error {
	target = d.volume.clamp(target)

	if err := d.ensureOn(ctx); err != nil {
		return err
	}

	switch d.volume.mode {
	case modeAbsolute:
		if err := d.setAbsolute(ctx, d.volume.setCode, target); err != nil {
			return err
		}
	case modeRelative:
		if err := d.step(ctx, d.volume, target); err != nil {
			return err
		}
	default:
		log.Printf("%s: no volume command codes configured; ignoring", d.name)
		return nil
	}

	d.mux.Lock()
	d.volume.current = target
	d.mux.Unlock()

	if d.handler != nil {
		d.handler.StatusVolume(d, target)
	}

	return nil
}

// SetBrightness moves the backlight axis to target, clamped to its range.
// A display that is off ignores the change with a notice rather than
// failing; backlight changes are only meaningful while on. Displays without
// configured brightness codes fall back to the video parameters command.
func (d *Device) SetBrightness(ctx context.Context, target int) error {
	if !d.PowerState() {
		log.Printf("%s: display is off; ignoring brightness change", d.name)
		return nil
	}

	target = d.brightness.clamp(target)

	switch d.brightness.mode {
	case modeAbsolute:
		if err := d.setAbsolute(ctx, d.brightness.setCode, target); err != nil {
			return err
		}
	case modeRelative:
		if err := d.step(ctx, d.brightness, target); err != nil {
			return err
		}
	default:
		if err := d.setAbsolute(ctx, CMD_VIDEO_PARAMS, target); err != nil {
			return err
		}
	}

	d.mux.Lock()
	d.brightness.current = target
	d.mux.Unlock()

	if d.handler != nil {
		d.handler.StatusBrightness(d, target)
	}

	return nil
}

// SetMute sets or clears mute. In toggle mode the command only goes on the
// wire when the target differs from the tracked state; asking for the
// current state costs zero round trips.
func (d *Device) SetMute(ctx context.Context, muted bool) error {
	if err := d.ensureOn(ctx); err != nil {
		return err
	}

	switch d.muteMode {
	case muteAbsolute:
		state := byte(0x00)
		if muted {
			state = 0x01
		}
		if err := d.checked(ctx, d.muteSetCode, state); err != nil {
			return err
		}
	case muteToggle:
		if muted != d.Muted() {
			if err := d.checked(ctx, d.muteToggleCode); err != nil {
				return err
			}
		}
	default:
		log.Printf("%s: no mute command codes configured; ignoring", d.name)
		return nil
	}

	d.mux.Lock()
	d.muted = muted
	d.mux.Unlock()

	if d.handler != nil {
		d.handler.StatusMute(d, muted)
	}

	return nil
}

// setAbsolute sends one set command carrying the value plus the "no change"
// fillers the command code packs behind it.
func (d *Device) setAbsolute(ctx context.Context, code byte, value int) error {
	payload := append([]byte{code, byte(value)}, fillerBytes(code)...)
	return d.checked(ctx, payload...)
}

// step converges a relative axis one command at a time, pausing between
// steps for the display to process. O(|target-current|) round trips; axes
// are small bounded ranges, and the operator sees the progress.
func (d *Device) step(ctx context.Context, axis *Axis, target int) error {
	d.mux.Lock()
	steps := target - axis.current
	d.mux.Unlock()

	code := axis.upCode
	if steps < 0 {
		steps, code = -steps, axis.downCode
	}

	for ; steps > 0; steps-- {
		if err := d.checked(ctx, code); err != nil {
			return err
		}
		select {
		case <-time.After(axis.stepDelay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}

	return nil
}
