package sicp

import "time"

type axisMode int

const (
	modeUnconfigured axisMode = iota
	modeAbsolute
	modeRelative
)

// Axis is a bounded control value (volume, backlight brightness) together
// with the command codes that move it. Depending on the display generation
// an axis is driven by one absolute set command or by repeated single-step
// up/down commands.
type Axis struct {
	min, max int
	current  int

	mode      axisMode
	setCode   byte
	upCode    byte
	downCode  byte
	stepDelay time.Duration
}

// clamp keeps min <= current <= max on every set.
func (a *Axis) clamp(value int) int {
	if value < a.min {
		return a.min
	}
	if value > a.max {
		return a.max
	}
	return value
}

type muteMode int

const (
	muteUnconfigured muteMode = iota
	muteAbsolute
	muteToggle
)
