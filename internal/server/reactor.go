package server

import (
	"context"
	"fmt"
	"net"
	"time"

	"golang.org/x/sys/unix"

	"github.com/marmos91/recorddb/internal/logger"
	"github.com/marmos91/recorddb/pkg/store"
)

const (
	// DefaultMaxClients is the session table capacity.
	DefaultMaxClients = 256

	// DefaultPollTimeout bounds every readiness wait so cancellation is
	// observed within one interval even when the server is idle.
	DefaultPollTimeout = 100 * time.Millisecond
)

// Config carries the reactor's runtime settings.
type Config struct {
	// Port to listen on. 0 binds an ephemeral port (see Port()).
	Port int

	// MaxClients bounds concurrent sessions; beyond it new connections
	// are accepted and immediately closed.
	MaxClients int

	// PollTimeout is the bounded readiness-wait interval.
	PollTimeout time.Duration
}

// Reactor is the single-threaded readiness-driven event loop. It owns
// the listening socket and the session table; the record table is
// mutated only from Run's goroutine, which is what lets the whole server
// run without locks.
type Reactor struct {
	cfg      Config
	table    *store.Table
	sessions *sessionTable
	machine  *machine

	listenFD  int
	boundPort int
	ready     chan struct{}
}

// New builds a reactor serving table. Zero config fields get defaults.
func New(cfg Config, table *store.Table) *Reactor {
	if cfg.MaxClients <= 0 {
		cfg.MaxClients = DefaultMaxClients
	}
	if cfg.PollTimeout <= 0 {
		cfg.PollTimeout = DefaultPollTimeout
	}

	sessions := newSessionTable(cfg.MaxClients)
	return &Reactor{
		cfg:      cfg,
		table:    table,
		sessions: sessions,
		machine:  newMachine(table, sessions),
		listenFD: -1,
		ready:    make(chan struct{}),
	}
}

// Ready is closed once the listening socket is bound.
func (r *Reactor) Ready() <-chan struct{} {
	return r.ready
}

// Port returns the bound listen port. Valid after Ready.
func (r *Reactor) Port() int {
	return r.boundPort
}

// Run drives the event loop until ctx is cancelled, then tears down all
// sessions and the listener. The caller persists the table afterwards.
// A listen/bind failure or a non-EINTR poll failure is fatal; a single
// connection's failure never is.
func (r *Reactor) Run(ctx context.Context) error {
	if err := r.listen(); err != nil {
		return err
	}
	defer r.shutdown()

	logger.Info("Server listening on port %d", r.boundPort)
	close(r.ready)

	timeoutMs := int(r.cfg.PollTimeout.Milliseconds())
	pollSet := make([]unix.PollFd, 0, r.cfg.MaxClients+1)

	for ctx.Err() == nil {
		pollSet = pollSet[:0]
		pollSet = append(pollSet, unix.PollFd{Fd: int32(r.listenFD), Events: unix.POLLIN})
		for _, fd := range r.sessions.fds() {
			pollSet = append(pollSet, unix.PollFd{Fd: int32(fd), Events: unix.POLLIN})
		}

		n, err := unix.Poll(pollSet, timeoutMs)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return fmt.Errorf("poll: %w", err)
		}
		if n == 0 {
			continue
		}

		if pollSet[0].Revents&unix.POLLIN != 0 {
			r.accept()
		}

		for _, p := range pollSet[1:] {
			s := r.sessions.byFD(int(p.Fd))
			if s == nil {
				continue
			}
			if p.Revents&unix.POLLIN != 0 {
				r.machine.onReadable(s)
				continue
			}
			if p.Revents&(unix.POLLERR|unix.POLLHUP|unix.POLLNVAL) != 0 {
				r.sessions.release(s)
			}
		}
	}

	logger.Info("Cancellation observed, reactor exiting")
	return nil
}

// listen creates, binds, and starts the listening socket.
func (r *Reactor) listen() error {
	fd, err := unix.Socket(unix.AF_INET, unix.SOCK_STREAM, 0)
	if err != nil {
		return fmt.Errorf("socket: %w", err)
	}

	if err := unix.SetsockoptInt(fd, unix.SOL_SOCKET, unix.SO_REUSEADDR, 1); err != nil {
		unix.Close(fd)
		return fmt.Errorf("setsockopt: %w", err)
	}

	if err := unix.Bind(fd, &unix.SockaddrInet4{Port: r.cfg.Port}); err != nil {
		unix.Close(fd)
		return fmt.Errorf("bind port %d: %w", r.cfg.Port, err)
	}

	if err := unix.Listen(fd, unix.SOMAXCONN); err != nil {
		unix.Close(fd)
		return fmt.Errorf("listen: %w", err)
	}

	sa, err := unix.Getsockname(fd)
	if err != nil {
		unix.Close(fd)
		return fmt.Errorf("getsockname: %w", err)
	}
	if inet, ok := sa.(*unix.SockaddrInet4); ok {
		r.boundPort = inet.Port
	}

	r.listenFD = fd
	return nil
}

// accept takes exactly one pending connection per listener wakeup. The
// listener stays in the poll set, so further pending connections wake
// the loop again immediately.
func (r *Reactor) accept() {
	fd, sa, err := unix.Accept(r.listenFD)
	if err != nil {
		if err != unix.EINTR && err != unix.EAGAIN {
			logger.Warn("Accept: %v", err)
		}
		return
	}

	s, err := r.sessions.add(fd)
	if err != nil {
		logger.Warn("Server full (%d sessions): rejecting fd=%d", r.sessions.len(), fd)
		unix.Close(fd)
		return
	}

	logger.Debug("New connection from %s assigned fd=%d, state %s",
		sockaddrString(sa), fd, s.state)
}

// shutdown releases every session and the listener.
func (r *Reactor) shutdown() {
	r.sessions.releaseAll()
	if r.listenFD != -1 {
		if err := unix.Close(r.listenFD); err != nil {
			logger.Warn("Close listener: %v", err)
		}
		r.listenFD = -1
	}
}

func sockaddrString(sa unix.Sockaddr) string {
	switch a := sa.(type) {
	case *unix.SockaddrInet4:
		return fmt.Sprintf("%s:%d", net.IP(a.Addr[:]).String(), a.Port)
	case *unix.SockaddrInet6:
		return fmt.Sprintf("[%s]:%d", net.IP(a.Addr[:]).String(), a.Port)
	default:
		return "unknown"
	}
}
