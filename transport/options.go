package transport

import (
	"go.uber.org/zap"
)

type Options struct {
	// Host to listen on
	Host string

	// Port to listen on, 0 picks a free port
	Port int

	// Reuseport controls setting SO_REUSEPORT, which lets several listeners
	// share the one port
	Reuseport bool

	// Trace logs every decoded message. This is only useful in local debugging
	Trace bool

	// NumListeners defaults to the number of CPUs when Reuseport is set and to
	// one otherwise
	NumListeners int

	Log *zap.Logger
}
