package sicp

// Handler receives callbacks whenever a display's locally tracked state is
// committed. Callbacks fire after the wire round trip for the operation has
// resolved, from the goroutine that invoked the operation.
type Handler interface {
	// Power state updated
	StatusPower(device *Device, on bool)
	// Active input updated
	StatusInput(device *Device, input int)
	// Volume updated
	StatusVolume(device *Device, volume int)
	// Mute state updated
	StatusMute(device *Device, muted bool)
	// Backlight brightness updated
	StatusBrightness(device *Device, brightness int)
}
