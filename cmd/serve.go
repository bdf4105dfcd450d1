package cmd

import (
	"context"
	"errors"
	"io"
	"net"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"sync"
	"syscall"
	"time"

	ginzap "github.com/gin-contrib/zap"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/tidwall/gjson"
	"go.uber.org/zap"

	"github.com/luma/cmdmgr/protocol"
	"github.com/luma/cmdmgr/transport"
)

var (
	// The host to listen on
	host string

	// The port to listen for http requests on
	httpPort int

	// The port to listen for tcp clients on
	port int

	// The number of tcp listeners sharing the port
	numListeners int
)

func init() {
	flags := ServeCmd.PersistentFlags()

	flags.IntVarP(&port, "port", "p", 7363, "The port to listen for client connections on")
	flags.IntVar(&httpPort, "http-port", 7362, "The port to listen to HTTP requests on")
	flags.StringVarP(&host, "host", "a", "0.0.0.0", "The host to listen on")
	flags.IntVar(&numListeners, "listeners", 0, "Number of TCP listeners, defaults to the number of CPUs")
}

var ServeCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the Command Manager protocol over TCP and HTTP",
	Long: `Serve the Command Manager protocol over TCP and HTTP

Every TCP connection is a separate session with its own history. Send one
message per line, EXIT ends the session.

The HTTP server exposes a single shared session:

	GET  /ping
	POST /parse    {"message": "RUN_NO____123#"}
	GET  /history

Usage
	cmdmgr serve

`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) (err error) {
		ctx, signalStop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer signalStop()

		conf, log, err := setup(ctx)
		if err != nil {
			return err
		}
		defer log.Sync() //nolint:errcheck

		router := setupRouter(conf.DebugHTTP, conf.Trace, log)

		s := &http.Server{
			Addr:    net.JoinHostPort(host, strconv.Itoa(httpPort)),
			Handler: router,
		}

		// Initializing the server in a goroutine so that
		// it won't block the graceful shutdown handling below
		go func() {
			if err := s.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Error("Http server errored", zap.Error(err))
			}
		}()

		tcp := transport.NewTCP(transport.Options{
			Host:         host,
			Port:         port,
			Reuseport:    true,
			NumListeners: numListeners,
			Trace:        conf.Trace,
			Log:          log.Named("transport"),
		})

		if err := tcp.Start(ctx); err != nil {
			return err
		}

		log.Info("Listening",
			zap.Any("config", conf),
			zap.String("addr", tcp.Addr()),
			zap.Int("httpPort", httpPort))

		// Listen for the interrupt signal.
		<-ctx.Done()

		// Restore default behavior on the interrupt signal and notify user of shutdown.
		signalStop()
		log.Info("Shutting down gracefully, press Ctrl+C again to force")

		// The context is used to inform the server it has 5 seconds to finish
		// the request it is currently handling
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()

		s.SetKeepAlivesEnabled(false)

		if err := s.Shutdown(shutdownCtx); err != nil {
			log.Error("Http server forced to shutdown", zap.Error(err))
		}

		if err := tcp.Close(); err != nil {
			log.Error("TCP server forced to shutdown", zap.Error(err))
		}

		log.Info("Exiting")
		return nil
	},
}

// session is the history shared by every HTTP request. Parse calls against it
// are serialised by mu.
type session struct {
	mu      sync.Mutex
	history *protocol.History
	trace   bool
	log     *zap.Logger
}

func setupRouter(debugHTTP, trace bool, log *zap.Logger) *gin.Engine {
	gin.DisableConsoleColor()
	if !debugHTTP {
		gin.SetMode(gin.ReleaseMode)
	}

	r := gin.New()

	// Logs all requests, like a combined access and error log, in UTC RFC3339
	r.Use(ginzap.GinzapWithConfig(log, &ginzap.Config{
		TimeFormat: time.RFC3339,
		UTC:        true,
		SkipPaths:  []string{"/ping"},
	}))

	// Logs all panic to error log
	//   - stack means whether output the stack info.
	r.Use(ginzap.RecoveryWithZap(log, true))

	sess := &session{
		history: protocol.NewHistory(),
		trace:   trace,
		log:     log.Named("http"),
	}

	r.GET("/ping", func(c *gin.Context) {
		c.String(http.StatusOK, "pong")
	})

	r.POST("/parse", sess.parse)
	r.GET("/history", sess.entries)

	return r
}

func (s *session) parse(c *gin.Context) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, 64*1024))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	message := gjson.GetBytes(body, "message")
	if message.Type != gjson.String {
		c.JSON(http.StatusBadRequest, gin.H{"error": `body must be {"message": "<frame>"}`})
		return
	}

	s.mu.Lock()
	res := protocol.Decode(s.history, message.String())
	s.mu.Unlock()

	if s.trace {
		s.log.Info("Decoded message",
			zap.String("opcode", res.Prefix),
			zap.Strings("lines", res.Lines),
			zap.Bool("recorded", res.Recorded))
	}

	data, err := res.MarshalJSON()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.Data(http.StatusOK, "application/json", data)
}

func (s *session) entries(c *gin.Context) {
	s.mu.Lock()
	entries := s.history.Entries()
	s.mu.Unlock()

	out := make([]string, 0, len(entries))
	for _, op := range entries {
		out = append(out, string(op))
	}

	c.JSON(http.StatusOK, gin.H{"history": out})
}
