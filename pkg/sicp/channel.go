package sicp

import (
	"context"
	"io"
	"net"
	"strconv"
	"time"

	"github.com/pkg/errors"
)

// writeCloseGrace is how long after the write the channel half-closes its
// side of the connection. Displays that keep the connection open after
// replying would otherwise stall the read loop for the full timeout.
const writeCloseGrace = 200 * time.Millisecond

// Channel performs one framed command exchange per call. The display
// protocol is not proven to support pipelining, so every transmission gets
// a fresh connection that is torn down once the reply is in.
type Channel struct {
	Host    string
	Port    int
	Timeout time.Duration
}

// Transmit writes one packet and accumulates whatever the display sends
// back until it closes the connection or the timeout elapses. A deadline
// with zero bytes accumulated is reported as ErrNoReply; the caller decides
// whether that is fatal. Dial failures surface as connection errors.
func (c *Channel) Transmit(ctx context.Context, packet []byte) ([]byte, error) {
	var dialer net.Dialer

	addr := net.JoinHostPort(c.Host, strconv.Itoa(c.Port))
	conn, err := dialer.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, errors.Wrapf(err, "connect %s", addr)
	}
	defer conn.Close()

	if err := conn.SetDeadline(time.Now().Add(c.Timeout)); err != nil {
		return nil, errors.WithStack(err)
	}

	if _, err := conn.Write(packet); err != nil {
		return nil, errors.Wrapf(err, "write %s", addr)
	}

	grace := time.AfterFunc(writeCloseGrace, func() {
		if tcp, ok := conn.(*net.TCPConn); ok {
			tcp.CloseWrite()
		}
	})
	defer grace.Stop()

	var reply []byte
	buf := make([]byte, 64)
	for {
		n, err := conn.Read(buf)
		reply = append(reply, buf[:n]...)
		if err != nil {
			if len(reply) > 0 {
				return reply, nil
			}
			if nerr, ok := err.(net.Error); ok && nerr.Timeout() {
				return nil, ErrNoReply
			}
			if err == io.EOF {
				// Peer closed without sending anything; as
				// indeterminate as a timeout.
				return nil, ErrNoReply
			}
			return nil, errors.Wrapf(err, "read %s", addr)
		}
	}
}
