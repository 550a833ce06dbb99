package bus

import (
	"context"

	evbus "github.com/asaskevich/EventBus"

	"github.com/sicpd/sicpd-go/pkg/sicp"
)

// CreateMessageBus creates the in-process message bus and the handler that
// forwards engine state changes onto it. Fronts subscribe to the event
// topics and publish to the command topics; neither side touches the
// engines directly.
func CreateMessageBus(ctx context.Context) (evbus.Bus, *EventHandler) {
	bus := evbus.New()

	return bus, &EventHandler{bus: bus}
}

// CreateCommandHandler wires the command topics to the engines in the
// registry. Registered after the engines exist, since commands resolve
// displays by name.
func CreateCommandHandler(ctx context.Context, devices map[string]*sicp.Device, bus evbus.Bus) {
	createCommandHandler(ctx, devices, bus)
}
