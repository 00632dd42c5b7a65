// Package engine defines the contract between the management core and the
// transfer engine: the component that speaks the actual file-transfer wire
// protocol.
//
// The management core (pkg/supervisor) configures and supervises an Engine
// through this narrow interface. It never touches sockets or protocol
// state directly; the engine owns those. A reference implementation backed
// by a plain TCP listener is provided in this package so the supervision
// machinery can be exercised against real sockets.
package engine

import (
	"context"
	"net"
	"strconv"

	"github.com/marmos91/ftpkeeper/pkg/perm"
)

// PortRange is an inclusive TCP port interval offered to clients for
// passive-mode data connections.
type PortRange struct {
	Start int
	End   int
}

// BindSpec describes one engine generation: everything the engine needs to
// start serving, extracted from a resolved configuration.
type BindSpec struct {
	// ListenAddress is the interface address to bind, e.g. "0.0.0.0".
	ListenAddress string

	// Port is the control-connection port to bind.
	Port int

	// MaxConnections caps concurrent client connections. 0 means unlimited.
	MaxConnections int

	// MaxConnectionsPerIP caps concurrent connections from a single
	// client address. 0 means unlimited.
	MaxConnectionsPerIP int

	// ConnRate caps connection attempts per second across all clients.
	// 0 means unlimited.
	ConnRate int

	// PassivePorts, if non-nil, restricts passive-mode data connections
	// to the given port interval.
	PassivePorts *PortRange

	// Banner is the greeting sent to connecting clients. Empty means the
	// engine's built-in greeting.
	Banner string
}

// Addr returns the listen address in host:port form.
func (s BindSpec) Addr() string {
	return net.JoinHostPort(s.ListenAddress, strconv.Itoa(s.Port))
}

// UserSpec is one account registered with a bound engine.
type UserSpec struct {
	Username    string
	Password    string
	Permissions perm.Set

	// HomeDir is the absolute directory the user is rooted in. Always set:
	// the caller resolves unset per-user homes to the shared directory
	// before registration.
	HomeDir string
}

// Engine creates bound engine generations.
//
// Bind is attempted exactly once per call: a bind failure (port in use,
// permission denied) is a configuration problem, not a transient fault,
// so implementations must not retry internally.
type Engine interface {
	// Bind acquires the listening socket described by spec and returns a
	// handle to the running generation. On failure the engine holds no
	// resources and the returned error wraps the underlying OS error.
	Bind(ctx context.Context, spec BindSpec) (Handle, error)
}

// Handle is one running engine generation.
type Handle interface {
	// RegisterUser makes an account available for authentication on this
	// generation. Called after Bind and before clients are expected.
	RegisterUser(user UserSpec) error

	// Shutdown closes the listening socket, terminates active sessions,
	// and blocks until the engine has fully drained.
	//
	// Safe to call multiple times; subsequent calls wait for the same
	// drain and return the same outcome.
	Shutdown(ctx context.Context) error

	// Fatal delivers at most one asynchronous engine failure (e.g. the
	// accept loop dying). The channel is closed when the generation ends,
	// whether by failure or by Shutdown.
	Fatal() <-chan error
}
