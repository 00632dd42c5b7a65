package engine

import (
	"context"
	"fmt"
	"net"
	"os"
	"sync"
	"sync/atomic"

	"github.com/marmos91/ftpkeeper/internal/climit"
	"github.com/marmos91/ftpkeeper/internal/logger"
	"github.com/marmos91/ftpkeeper/pkg/metrics"
)

// ListenerEngine is the reference Engine implementation: it binds a real
// TCP listener and tracks client connections, but does not speak the
// transfer protocol itself. Accepted connections are closed immediately.
//
// This is enough to surface genuine OS bind errors (port in use,
// permission denied), exercise connection limiting, and drive the full
// supervision state machine against real sockets. The wire-protocol
// session layer plugs in behind the same Handle contract.
type ListenerEngine struct {
	// metrics is shared across generations; collectors register once
	metrics metrics.EngineMetrics
}

// NewListenerEngine returns a ListenerEngine ready to bind.
func NewListenerEngine() *ListenerEngine {
	return &ListenerEngine{metrics: metrics.NewEngineMetrics()}
}

// Bind acquires the TCP listener for spec and starts the accept loop.
//
// Binding is attempted exactly once. On failure the returned error wraps
// the OS error and no resources are held.
func (e *ListenerEngine) Bind(ctx context.Context, spec BindSpec) (Handle, error) {
	listener, err := net.Listen("tcp", spec.Addr())
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", spec.Addr(), err)
	}

	h := &listenerHandle{
		spec:     spec,
		listener: listener,
		users:    make(map[string]UserSpec),
		guard:    climit.NewGuard(spec.MaxConnectionsPerIP, uint(max(spec.ConnRate, 0))),
		metrics:  e.metrics,
		shutdown: make(chan struct{}),
		fatal:    make(chan error, 1),
		done:     make(chan struct{}),
	}

	// Connection semaphore, same mechanism as the per-generation cap.
	if spec.MaxConnections > 0 {
		h.connSemaphore = make(chan struct{}, spec.MaxConnections)
	}

	logger.Info("engine listening on %s", spec.Addr())
	go h.acceptLoop()

	return h, nil
}

// listenerHandle is one bound generation of the ListenerEngine.
type listenerHandle struct {
	spec     BindSpec
	listener net.Listener

	// mu guards users
	mu    sync.Mutex
	users map[string]UserSpec

	// sessions tracks accepted connections for drain on shutdown
	sessions sync.WaitGroup

	// connCount is the number of currently active connections
	connCount atomic.Int32

	// connSemaphore limits concurrent connections when MaxConnections > 0
	connSemaphore chan struct{}

	// guard enforces the per-address cap and connection-attempt rate
	guard *climit.Guard

	metrics metrics.EngineMetrics

	// shutdownOnce makes Shutdown idempotent
	shutdownOnce sync.Once

	// shutdown is closed when shutdown begins; the accept loop uses it to
	// distinguish expected listener-closed errors from real failures
	shutdown chan struct{}

	// fatal carries at most one accept-loop failure to the supervisor
	fatal chan error

	// done is closed when the accept loop has exited and all sessions
	// have drained
	done chan struct{}
}

// RegisterUser indexes the account and makes sure its home directory
// exists on disk.
func (h *listenerHandle) RegisterUser(user UserSpec) error {
	if user.Username == "" {
		return fmt.Errorf("cannot register user with empty username")
	}
	if user.HomeDir == "" {
		return fmt.Errorf("cannot register user %q without a home directory", user.Username)
	}

	if err := os.MkdirAll(user.HomeDir, 0o755); err != nil {
		return fmt.Errorf("create home directory for %q: %w", user.Username, err)
	}

	h.mu.Lock()
	h.users[user.Username] = user
	h.mu.Unlock()

	h.metrics.UserRegistered()
	logger.Debug("engine: registered user %q (perm=%s) -> %s",
		user.Username, user.Permissions, user.HomeDir)
	return nil
}

// Authenticate resolves a username/password pair against the registered
// accounts. Exposed for session handlers layered on top of the listener.
func (h *listenerHandle) Authenticate(username, password string) (UserSpec, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()

	user, ok := h.users[username]
	if !ok || user.Password != password {
		return UserSpec{}, false
	}
	return user, true
}

// Addr returns the address the listener is actually bound to. Useful when
// the spec requested port 0.
func (h *listenerHandle) Addr() net.Addr {
	return h.listener.Addr()
}

// acceptLoop accepts connections until shutdown or a fatal listener error.
func (h *listenerHandle) acceptLoop() {
	defer close(h.done)
	defer close(h.fatal)

	for {
		if h.connSemaphore != nil {
			select {
			case h.connSemaphore <- struct{}{}:
			case <-h.shutdown:
				h.sessions.Wait()
				return
			}
		}

		conn, err := h.listener.Accept()
		if err != nil {
			if h.connSemaphore != nil {
				<-h.connSemaphore
			}

			select {
			case <-h.shutdown:
				// Expected: listener closed by Shutdown.
				h.sessions.Wait()
				return
			default:
				// The accept loop cannot continue; report and end the
				// generation. The supervisor decides what happens next.
				logger.Error("engine accept loop failed: %v", err)
				h.fatal <- fmt.Errorf("accept on %s: %w", h.spec.Addr(), err)
				h.sessions.Wait()
				return
			}
		}

		ip := remoteIP(conn)
		if !h.guard.Admit(ip) {
			logger.Debug("engine: rejecting connection from %s (limit reached)", conn.RemoteAddr())
			h.metrics.ConnectionRejected()
			_ = conn.Close()
			if h.connSemaphore != nil {
				<-h.connSemaphore
			}
			continue
		}

		h.sessions.Add(1)
		h.metrics.ConnectionAccepted()
		h.metrics.SetActiveConnections(h.connCount.Add(1))
		logger.Debug("engine: connection from %s (active: %d)",
			conn.RemoteAddr(), h.connCount.Load())

		go h.serveConn(conn, ip)
	}
}

// serveConn handles a single accepted connection. The reference engine has
// no session layer, so the connection is closed right away.
func (h *listenerHandle) serveConn(conn net.Conn, ip string) {
	defer func() {
		h.guard.Release(ip)
		h.sessions.Done()
		h.metrics.ConnectionClosed()
		h.metrics.SetActiveConnections(h.connCount.Add(-1))
		if h.connSemaphore != nil {
			<-h.connSemaphore
		}
	}()

	_ = conn.Close()
}

// remoteIP extracts the client address without the port.
func remoteIP(conn net.Conn) string {
	host, _, err := net.SplitHostPort(conn.RemoteAddr().String())
	if err != nil {
		return conn.RemoteAddr().String()
	}
	return host
}

// Shutdown closes the listener and blocks until the accept loop has exited
// and all sessions have drained, or until ctx is cancelled.
func (h *listenerHandle) Shutdown(ctx context.Context) error {
	h.shutdownOnce.Do(func() {
		logger.Info("engine shutting down on %s", h.spec.Addr())
		close(h.shutdown)
		if err := h.listener.Close(); err != nil {
			logger.Debug("engine: error closing listener: %v", err)
		}
	})

	select {
	case <-h.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Fatal implements Handle.
func (h *listenerHandle) Fatal() <-chan error {
	return h.fatal
}
