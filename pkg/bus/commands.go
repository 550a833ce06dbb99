package bus

import (
	"context"
	"log"

	evbus "github.com/asaskevich/EventBus"

	"github.com/sicpd/sicpd-go/pkg/sicp"
)

const (
	TOPIC_COMMAND_POWER      = "command.power"
	TOPIC_COMMAND_INPUT      = "command.input"
	TOPIC_COMMAND_VOLUME     = "command.volume"
	TOPIC_COMMAND_MUTE       = "command.mute"
	TOPIC_COMMAND_BRIGHTNESS = "command.brightness"
)

func createCommandHandler(ctx context.Context, devices map[string]*sicp.Device, bus evbus.Bus) {
	bus.SubscribeAsync(TOPIC_COMMAND_POWER, func(name string, on bool) {
		if device := devices[name]; device != nil {
			if err := device.SetPower(ctx, on); err != nil {
				log.Printf("WARNING: power command for display %s failed, state now unknown: %v\n", name, err)
			}
		} else {
			log.Printf("unknown display %s\n", name)
		}
	}, false)

	bus.SubscribeAsync(TOPIC_COMMAND_INPUT, func(name string, input int) {
		if device := devices[name]; device != nil {
			if err := device.SetInput(ctx, input); err != nil {
				log.Printf("WARNING: input command for display %s failed, state now unknown: %v\n", name, err)
			}
		} else {
			log.Printf("unknown display %s\n", name)
		}
	}, false)

	bus.SubscribeAsync(TOPIC_COMMAND_VOLUME, func(name string, volume int) {
		if device := devices[name]; device != nil {
			if err := device.SetVolume(ctx, volume); err != nil {
				log.Printf("WARNING: volume command for display %s failed, state now unknown: %v\n", name, err)
			}
		} else {
			log.Printf("unknown display %s\n", name)
		}
	}, false)

	bus.SubscribeAsync(TOPIC_COMMAND_MUTE, func(name string, muted bool) {
		if device := devices[name]; device != nil {
			if err := device.SetMute(ctx, muted); err != nil {
				log.Printf("WARNING: mute command for display %s failed, state now unknown: %v\n", name, err)
			}
		} else {
			log.Printf("unknown display %s\n", name)
		}
	}, false)

	bus.SubscribeAsync(TOPIC_COMMAND_BRIGHTNESS, func(name string, brightness int) {
		if device := devices[name]; device != nil {
			if err := device.SetBrightness(ctx, brightness); err != nil {
				log.Printf("WARNING: brightness command for display %s failed, state now unknown: %v\n", name, err)
			}
		} else {
			log.Printf("unknown display %s\n", name)
		}
	}, false)
}
