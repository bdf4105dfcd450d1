package client

import (
	"bufio"
	"context"
	"fmt"
	"net"
	"sync"

	"go.uber.org/zap"

	"github.com/luma/cmdmgr/driver"
	"github.com/luma/cmdmgr/protocol"
)

// Conn sends frames to a cmdmgr server and streams back its output lines.
type Conn struct {
	conn *net.TCPConn

	output     chan string
	readErr    error
	loopWaiter sync.WaitGroup

	log *zap.Logger
}

func Dial(ctx context.Context, addr string, log *zap.Logger) (*Conn, error) {
	if log == nil {
		log = zap.NewNop()
	}

	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("Failed to connect to %s: %w", addr, err)
	}

	c := &Conn{
		conn:   conn.(*net.TCPConn),
		output: make(chan string, 255),
		log:    log.Named("client"),
	}

	c.loopWaiter.Add(1)
	go func() {
		defer c.loopWaiter.Done()
		c.readLoop()
	}()

	return c, nil
}

// Send writes each frame on its own line.
func (c *Conn) Send(frames ...string) error {
	if len(frames) == 0 {
		return nil
	}

	return protocol.WriteLines(c.conn, frames...)
}

// Output yields server output lines, without their newline. It is closed once
// the server closes the connection.
func (c *Conn) Output() <-chan string {
	return c.output
}

// Close sends EXIT, waits for the server to hang up and releases the connection.
func (c *Conn) Close() error {
	if err := c.Send(driver.ExitToken); err != nil {
		c.log.Warn("Failed to send EXIT", zap.Error(err))
	}

	if err := c.conn.CloseWrite(); err != nil {
		c.log.Warn("Failed to close writes cleanly", zap.Error(err))
	}

	c.loopWaiter.Wait()

	if err := c.conn.Close(); err != nil {
		return err
	}

	return c.readErr
}

func (c *Conn) readLoop() {
	defer close(c.output)

	scanner := bufio.NewScanner(c.conn)
	for scanner.Scan() {
		c.output <- scanner.Text()
	}

	if err := scanner.Err(); err != nil {
		c.log.Warn("Failed to read server output", zap.Error(err))
		c.readErr = err
	}
}
