package sicp

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net"
	"testing"
	"time"
)

// fakeDisplay runs a one-shot TCP server that hands the accepted
// connection to serve.
func fakeDisplay(t *testing.T, serve func(conn net.Conn)) *Channel {
	t.Helper()

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { listener.Close() })

	go func() {
		conn, err := listener.Accept()
		if err != nil {
			return
		}
		defer conn.Close()
		serve(conn)
	}()

	addr := listener.Addr().(*net.TCPAddr)
	return &Channel{Host: "127.0.0.1", Port: addr.Port, Timeout: 2 * time.Second}
}

func TestTransmitCollectsReply(t *testing.T) {
	request := Encode(1, nil, []byte{CMD_POWER_GET})
	reply := []byte{0x04, 0x01, 0x19, 0x02, 0x1e}

	received := make(chan []byte, 1)

	channel := fakeDisplay(t, func(conn net.Conn) {
		buf := make([]byte, 16)
		n, _ := conn.Read(buf)
		received <- buf[:n]

		conn.Write(reply)
	})

	got, err := channel.Transmit(context.Background(), request)
	if err != nil {
		t.Fatalf("Transmit failed: %v", err)
	}
	if !bytes.Equal(got, reply) {
		t.Errorf("reply = %#v, want %#v", got, reply)
	}
	if sent := <-received; !bytes.Equal(sent, request) {
		t.Errorf("display received %#v, want %#v", sent, request)
	}
}

func TestTransmitPeerClosesWithoutData(t *testing.T) {
	channel := fakeDisplay(t, func(conn net.Conn) {
		io.Copy(io.Discard, conn)
	})

	_, err := channel.Transmit(context.Background(), Encode(1, nil, []byte{CMD_POWER_GET}))
	if !errors.Is(err, ErrNoReply) {
		t.Errorf("expected ErrNoReply, got %v", err)
	}
}

func TestTransmitTimeout(t *testing.T) {
	release := make(chan struct{})
	defer close(release)

	channel := fakeDisplay(t, func(conn net.Conn) {
		// Hold the connection open without replying
		<-release
	})
	channel.Timeout = 500 * time.Millisecond

	start := time.Now()
	_, err := channel.Transmit(context.Background(), Encode(1, nil, []byte{CMD_POWER_GET}))
	if !errors.Is(err, ErrNoReply) {
		t.Errorf("expected ErrNoReply, got %v", err)
	}
	if elapsed := time.Since(start); elapsed > 2*time.Second {
		t.Errorf("Transmit took %s, expected the timeout to cut it short", elapsed)
	}
}

func TestTransmitConnectionRefused(t *testing.T) {
	listener, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatal(err)
	}
	addr := listener.Addr().(*net.TCPAddr)
	listener.Close()

	channel := &Channel{Host: "127.0.0.1", Port: addr.Port, Timeout: time.Second}

	_, err = channel.Transmit(context.Background(), Encode(1, nil, []byte{CMD_POWER_GET}))
	if err == nil {
		t.Fatal("expected a connection error")
	}
	if errors.Is(err, ErrNoReply) {
		t.Error("refused connection must not classify as a missing reply")
	}
}

func TestTransmitLateReplyBeforeClose(t *testing.T) {
	reply := []byte{SICP_ACK}

	channel := fakeDisplay(t, func(conn net.Conn) {
		// Reply only once the write side has been half-closed
		io.Copy(io.Discard, conn)
		conn.Write(reply)
	})

	got, err := channel.Transmit(context.Background(), Encode(1, nil, []byte{CMD_POWER_SET, POWER_STATE_ON}))
	if err != nil {
		t.Fatalf("Transmit failed: %v", err)
	}
	if !bytes.Equal(got, reply) {
		t.Errorf("reply = %#v, want %#v", got, reply)
	}
}
