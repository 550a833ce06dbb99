package sicp

import (
	"context"

	"golang.org/x/sync/semaphore"
)

// Transmitter is the wire side the dispatcher serializes access to.
type Transmitter interface {
	Transmit(ctx context.Context, packet []byte) ([]byte, error)
}

type request struct {
	packet     []byte
	responseCh chan response
}

type response struct {
	reply []byte
	err   error
}

// Dispatcher owns a display's command queue. The protocol carries no
// request id to correlate replies, and rapid unserialized connects can
// overwhelm the embedded TCP stack, so commands go on the wire strictly one
// at a time, in submission order.
type Dispatcher struct {
	channel   Transmitter
	commands  chan request
	admission *semaphore.Weighted
}

func NewDispatcher(channel Transmitter) *Dispatcher {
	return &Dispatcher{
		channel:  channel,
		commands: make(chan request),
		// Only allow sixteen commands waiting in line
		admission: semaphore.NewWeighted(16),
	}
}

// Run processes queued commands until the context is cancelled. A failed
// command resolves only its own requester; the queue keeps going.
func (d *Dispatcher) Run(ctx context.Context) error {
	for {
		select {
		case req := <-d.commands:
			reply, err := d.channel.Transmit(ctx, req.packet)
			req.responseCh <- response{reply, err}

		case <-ctx.Done():
			return nil
		}
	}
}

// Send queues one packet and blocks until its turn on the wire has
// resolved, success or failure.
func (d *Dispatcher) Send(ctx context.Context, packet []byte) ([]byte, error) {
	if err := d.admission.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	defer d.admission.Release(1)

	responseCh := make(chan response, 1)
	select {
	case d.commands <- request{packet, responseCh}:
	case <-ctx.Done():
		return nil, ctx.Err()
	}

	res := <-responseCh
	return res.reply, res.err
}
