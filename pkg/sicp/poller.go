package sicp

import (
	"context"
	"time"
)

// Poller keeps the tracked power state fresh by querying the display at a
// fixed interval. GetPower already swallows failures, so a bad tick never
// stops the next one. An interval of zero disables polling.
type Poller struct {
	device   *Device
	interval time.Duration
}

func NewPoller(device *Device, interval time.Duration) *Poller {
	return &Poller{device: device, interval: interval}
}

// Run polls until the context is cancelled.
func (p *Poller) Run(ctx context.Context) error {
	if p.interval <= 0 {
		<-ctx.Done()
		return nil
	}

	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			p.device.GetPower(ctx)
		case <-ctx.Done():
			return nil
		}
	}
}
