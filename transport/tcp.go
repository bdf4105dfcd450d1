package transport

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"runtime"
	"strconv"
	"strings"
	"sync"

	reuseport "github.com/kavu/go_reuseport"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/luma/cmdmgr/driver"
	"github.com/luma/cmdmgr/protocol"
)

// TCP serves the Command Manager protocol over newline delimited TCP
// connections. Every connection gets its own History.
type TCP struct {
	cancel     context.CancelFunc
	stopWaiter sync.WaitGroup

	addr      string
	reuseport bool

	numListeners int
	listeners    []*TCPListener

	log   *zap.Logger
	trace bool
}

func NewTCP(options Options) *TCP {
	numListeners := options.NumListeners

	if numListeners < 1 {
		numListeners = 1
		if options.Reuseport {
			numListeners = runtime.NumCPU()
		}
	}

	if !options.Reuseport {
		// Without SO_REUSEPORT only one socket can bind the port
		numListeners = 1
	}

	log := options.Log
	if log == nil {
		log = zap.NewNop()
	}

	return &TCP{
		addr:         net.JoinHostPort(options.Host, strconv.Itoa(options.Port)),
		reuseport:    options.Reuseport,
		numListeners: numListeners,
		listeners:    make([]*TCPListener, 0, numListeners),
		trace:        options.Trace,
		log:          log,
	}
}

// Start binds every listener before returning, so clients can connect as soon
// as it succeeds.
func (t *TCP) Start(parentCtx context.Context) error {
	ctx, cancel := context.WithCancel(parentCtx)
	t.cancel = cancel

	t.log.Info("Starting tcp listeners", zap.Int("count", t.numListeners))

	for i := 0; i < t.numListeners; i++ {
		ln, err := t.listen()
		if err != nil {
			cancel()
			return multierr.Append(fmt.Errorf("Failed to listen on %s: %w", t.addr, err), t.closeListeners())
		}

		// Later listeners must share the port the first one was given
		t.addr = ln.Addr().String()

		t.startListener(ctx, ln)
	}

	return nil
}

// Addr is the address the listeners are bound to.
func (t *TCP) Addr() string {
	return t.addr
}

func (t *TCP) listen() (net.Listener, error) {
	if t.reuseport {
		return reuseport.Listen("tcp", t.addr)
	}

	return net.Listen("tcp", t.addr)
}

func (t *TCP) startListener(ctx context.Context, ln net.Listener) {
	listener := NewTCPListener(
		ctx,
		ln,
		t.trace,
		t.log.Named("listener").With(zap.Int("listener", len(t.listeners))),
	)

	t.listeners = append(t.listeners, listener)

	t.stopWaiter.Add(1)
	go func() {
		defer t.stopWaiter.Done()

		if err := listener.Listen(); err != nil {
			t.log.Error("Listener stopped accepting", zap.Error(err))
		}
	}()
}

// Close immediately closes all listeners and active connections.
func (t *TCP) Close() error {
	t.log.Info("Stopping TCP server")
	if t.cancel != nil {
		t.cancel()
	}

	err := t.closeListeners()
	t.stopWaiter.Wait()

	t.log.Info("TCP server stopped")
	return err
}

func (t *TCP) closeListeners() (err error) {
	for _, listener := range t.listeners {
		err = multierr.Append(err, listener.Close())
	}

	return err
}

type TCPListener struct {
	ctx context.Context

	listener net.Listener
	log      *zap.Logger
	trace    bool

	mu          sync.Mutex
	closed      bool
	activeConns map[*TCPConn]struct{}
	connWaiter  sync.WaitGroup
}

func NewTCPListener(
	ctx context.Context,
	listener net.Listener,
	trace bool,
	log *zap.Logger,
) *TCPListener {
	return &TCPListener{
		ctx:         ctx,
		listener:    listener,
		activeConns: make(map[*TCPConn]struct{}),
		trace:       trace,
		log:         log,
	}
}

// Close stops accepting and closes every active connection.
func (t *TCPListener) Close() error {
	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return nil
	}
	t.closed = true

	err := t.listener.Close()
	for conn := range t.activeConns {
		err = multierr.Append(err, conn.Close())
	}
	t.mu.Unlock()

	return err
}

func (t *TCPListener) Listen() error {
	go func() {
		<-t.ctx.Done()

		if err := t.Close(); err != nil {
			t.log.Warn("TCP listener did not close cleanly", zap.Error(err))
		}
	}()

	defer func() {
		t.log.Info("Waiting for connections to finish")
		t.connWaiter.Wait()
		t.log.Info("Listener stopped")
	}()

	for {
		conn, err := t.listener.Accept()
		if err != nil {
			if errors.Is(err, net.ErrClosed) || t.ctx.Err() != nil {
				// The listener was closed while we were waiting for new connections
				return nil
			}

			return err
		}

		tcpConn := NewTCPConn(conn, t.trace, t.log.Named("conn").With(
			zap.String("remote", conn.RemoteAddr().String())))

		if !t.addConn(tcpConn) {
			conn.Close()
			return nil
		}

		t.connWaiter.Add(1)
		go func() {
			defer t.connWaiter.Done()
			defer t.removeConn(tcpConn)

			tcpConn.Start()
		}()
	}
}

func (t *TCPListener) addConn(conn *TCPConn) bool {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.closed {
		return false
	}

	t.activeConns[conn] = struct{}{}
	return true
}

func (t *TCPListener) removeConn(conn *TCPConn) {
	t.mu.Lock()
	defer t.mu.Unlock()

	delete(t.activeConns, conn)
}

// TCPConn is a single client session. Lines are parsed in the order they
// arrive against the session's own History.
type TCPConn struct {
	conn    net.Conn
	history *protocol.History

	closeOnce sync.Once
	closeErr  error

	log   *zap.Logger
	trace bool
}

func NewTCPConn(conn net.Conn, trace bool, log *zap.Logger) *TCPConn {
	return &TCPConn{
		conn:    conn,
		history: protocol.NewHistory(),
		trace:   trace,
		log:     log,
	}
}

func (t *TCPConn) Close() error {
	t.closeOnce.Do(func() {
		t.closeErr = t.conn.Close()
	})

	return t.closeErr
}

// Start runs the read loop until the client sends EXIT, disconnects or the
// connection is closed.
func (t *TCPConn) Start() {
	t.log.Info("Client connected")

	defer func() {
		if err := t.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
			t.log.Warn("Failed to close connection cleanly", zap.Error(err))
		}

		t.log.Info("Client disconnected")
	}()

	if err := t.ReadLoop(); err != nil && !errors.Is(err, net.ErrClosed) {
		t.log.Warn("Read loop failed", zap.Error(err))
	}
}

func (t *TCPConn) ReadLoop() error {
	r := bufio.NewReader(t.conn)

	for {
		line, err := r.ReadString('\n')
		if err != nil && !(errors.Is(err, io.EOF) && line != "") {
			if errors.Is(err, io.EOF) {
				return nil
			}

			return err
		}

		line = protocol.RemoveTrailingCR(strings.TrimSuffix(line, "\n"))
		if line == driver.ExitToken {
			t.log.Info("Client sent EXIT")
			return nil
		}

		if werr := t.handle(line); werr != nil {
			return fmt.Errorf("Failed to write response: %w", werr)
		}

		if err != nil {
			// A final line without a newline, the client is done
			return nil
		}
	}
}

func (t *TCPConn) handle(line string) error {
	res := protocol.Decode(t.history, line)

	if t.trace {
		t.log.Info("Decoded message",
			zap.Bool("framed", res.Framed),
			zap.String("opcode", res.Prefix),
			zap.Strings("lines", res.Lines),
			zap.Bool("recorded", res.Recorded))
	}

	_, err := res.WriteTo(t.conn)
	return err
}
