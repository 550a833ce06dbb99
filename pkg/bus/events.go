package bus

import (
	evbus "github.com/asaskevich/EventBus"

	"github.com/sicpd/sicpd-go/pkg/sicp"
)

const (
	TOPIC_EVENT_POWER      = "event.display.power"
	TOPIC_EVENT_INPUT      = "event.display.input"
	TOPIC_EVENT_VOLUME     = "event.display.volume"
	TOPIC_EVENT_MUTE       = "event.display.mute"
	TOPIC_EVENT_BRIGHTNESS = "event.display.brightness"
)

// EventHandler publishes committed state changes as bus events.
type EventHandler struct {
	bus evbus.Bus
}

func (e *EventHandler) StatusPower(device *sicp.Device, on bool) {
	e.bus.Publish(TOPIC_EVENT_POWER, device.Name(), on)
}

func (e *EventHandler) StatusInput(device *sicp.Device, input int) {
	e.bus.Publish(TOPIC_EVENT_INPUT, device.Name(), input)
}

func (e *EventHandler) StatusVolume(device *sicp.Device, volume int) {
	e.bus.Publish(TOPIC_EVENT_VOLUME, device.Name(), volume)
}

func (e *EventHandler) StatusMute(device *sicp.Device, muted bool) {
	e.bus.Publish(TOPIC_EVENT_MUTE, device.Name(), muted)
}

func (e *EventHandler) StatusBrightness(device *sicp.Device, brightness int) {
	e.bus.Publish(TOPIC_EVENT_BRIGHTNESS, device.Name(), brightness)
}
