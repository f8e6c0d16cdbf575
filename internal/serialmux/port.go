package serialmux

import (
	"context"
	"fmt"
	"io"
	"time"
)

// SerialPorter is the byte stream a SerialMux reads lines from and writes
// commands to. go.bug.st/serial ports, SimulatedPort and TestableSerialPort
// all satisfy it.
type SerialPorter interface {
	io.ReadWriteCloser
}

// TimeoutSerialPorter is a port whose reads can be bounded.
type TimeoutSerialPorter interface {
	SerialPorter
	SetReadTimeout(timeout time.Duration) error
}

// applyReadTimeout bounds reads on ports that support it. A zero timeout
// leaves the port blocking.
func applyReadTimeout(port SerialPorter, timeout time.Duration) error {
	if timeout <= 0 {
		return nil
	}
	tp, ok := port.(TimeoutSerialPorter)
	if !ok {
		return fmt.Errorf("port %T does not support read timeouts", port)
	}
	if err := tp.SetReadTimeout(timeout); err != nil {
		return fmt.Errorf("failed to set read timeout %v: %w", timeout, err)
	}
	return nil
}

// timeoutReader retries the empty reads a timed-out serial port returns,
// which bufio.Scanner would otherwise report as io.ErrNoProgress, and gives
// up once ctx is done.
type timeoutReader struct {
	ctx context.Context
	r   io.Reader
}

func (t timeoutReader) Read(p []byte) (int, error) {
	for {
		if err := t.ctx.Err(); err != nil {
			return 0, err
		}
		n, err := t.r.Read(p)
		if n > 0 || err != nil || len(p) == 0 {
			return n, err
		}
	}
}
