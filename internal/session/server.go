// Package session runs one goroutine pair per connected client: a reader
// that turns lines into engine intents and a writer that drains the
// client's outbox.
package session

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"castle-wars/internal/auth"
	"castle-wars/internal/config"
	"castle-wars/internal/game"
	"castle-wars/internal/protocol"
)

// ErrHandshake is returned for a missing or malformed first line.
var ErrHandshake = errors.New("bad handshake")

// Engine is the part of the game engine sessions talk to.
type Engine interface {
	Join(ctx context.Context, name, subject string, out *protocol.Outbox) (game.JoinResult, error)
	Submit(in game.Intent) error
}

// Verifier checks the handshake token.
type Verifier interface {
	Verify(token string) (auth.Identity, error)
}

// Observer receives session measurements. Implementations must not block.
type Observer interface {
	SessionOpened(transport string)
	SessionClosed(transport string)
	ConnectionRejected(reason string)
	CommandDropped(reason string)
	BytesWritten(n int)
}

type nopObserver struct{}

func (nopObserver) SessionOpened(string)      {}
func (nopObserver) SessionClosed(string)      {}
func (nopObserver) ConnectionRejected(string) {}
func (nopObserver) CommandDropped(string)     {}
func (nopObserver) BytesWritten(int)          {}

// Config holds session limits.
type Config struct {
	MaxLineLength     int
	HandshakeWait     time.Duration
	CommandsPerSecond float64
	CommandBurst      int
	OutboxBytes       int
	MaxConnsPerIP     int
	WritePoll         time.Duration // Writer wakes at least this often
	LeaveRetry        time.Duration // Retry period for a Leave refused as busy
}

// ConfigFrom builds the session config from the application config.
func ConfigFrom(srv config.ServerConfig, lim config.ResourceLimits) Config {
	return Config{
		MaxLineLength:     srv.MaxLineLength,
		HandshakeWait:     srv.HandshakeWait,
		CommandsPerSecond: lim.CommandsPerSecond,
		CommandBurst:      lim.CommandBurst,
		OutboxBytes:       lim.OutboxBytes,
		MaxConnsPerIP:     lim.MaxConnsPerIP,
		WritePoll:         50 * time.Millisecond,
		LeaveRetry:        5 * time.Millisecond,
	}
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the server logger.
func WithLogger(l logrus.FieldLogger) Option {
	return func(s *Server) { s.log = l }
}

// WithObserver sets the metrics observer.
func WithObserver(o Observer) Option {
	return func(s *Server) { s.obs = o }
}

// Server accepts clients and runs their sessions.
type Server struct {
	cfg      Config
	engine   Engine
	verifier Verifier
	obs      Observer
	log      logrus.FieldLogger

	ipMu  sync.Mutex
	perIP map[string]int

	wg sync.WaitGroup
}

// NewServer creates a session server.
func NewServer(cfg Config, engine Engine, verifier Verifier, opts ...Option) *Server {
	if cfg.MaxLineLength <= 0 {
		cfg.MaxLineLength = config.DefaultServer().MaxLineLength
	}
	if cfg.WritePoll <= 0 {
		cfg.WritePoll = 50 * time.Millisecond
	}
	if cfg.LeaveRetry <= 0 {
		cfg.LeaveRetry = 5 * time.Millisecond
	}
	s := &Server{
		cfg:      cfg,
		engine:   engine,
		verifier: verifier,
		obs:      nopObserver{},
		log:      logrus.StandardLogger(),
		perIP:    make(map[string]int),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// MaxLineLength returns the longest accepted client line.
func (s *Server) MaxLineLength() int { return s.cfg.MaxLineLength }

// AcquireIP reserves a connection slot for ip.
func (s *Server) AcquireIP(ip string) bool {
	if s.cfg.MaxConnsPerIP <= 0 {
		return true
	}
	s.ipMu.Lock()
	defer s.ipMu.Unlock()
	if s.perIP[ip] >= s.cfg.MaxConnsPerIP {
		s.obs.ConnectionRejected("ip_limit")
		return false
	}
	s.perIP[ip]++
	return true
}

// ReleaseIP frees a slot taken by AcquireIP.
func (s *Server) ReleaseIP(ip string) {
	if s.cfg.MaxConnsPerIP <= 0 {
		return
	}
	s.ipMu.Lock()
	defer s.ipMu.Unlock()
	if s.perIP[ip] <= 1 {
		delete(s.perIP, ip)
		return
	}
	s.perIP[ip]--
}

// ListenTCP accepts game connections on addr until ctx is done.
func (s *Server) ListenTCP(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", addr, err)
	}
	return s.ServeListener(ctx, ln)
}

// ServeListener accepts connections from ln until ctx is done.
func (s *Server) ServeListener(ctx context.Context, ln net.Listener) error {
	s.log.WithField("addr", ln.Addr().String()).Info("🏰 Game listener started")
	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	for {
		c, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			var ne net.Error
			if errors.As(err, &ne) && ne.Timeout() {
				continue
			}
			return err
		}

		ip := hostOf(c.RemoteAddr().String())
		if !s.AcquireIP(ip) {
			s.log.WithField("ip", ip).Warn("⚠️ Connection rejected: per-IP limit reached")
			c.Close()
			continue
		}
		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			defer s.ReleaseIP(ip)
			s.Serve(ctx, NewStreamConn(c, s.cfg.MaxLineLength), "tcp")
		}()
	}
}

// Wait blocks until every session started by ServeListener has ended.
func (s *Server) Wait() { s.wg.Wait() }

// Serve runs one session on conn and returns when it has ended.
func (s *Server) Serve(ctx context.Context, conn LineConn, transport string) {
	defer conn.Close()
	log := s.log.WithFields(logrus.Fields{"session": uuid.NewString(), "remote": conn.RemoteAddr()})

	name, ident, err := s.handshake(conn)
	if err != nil {
		log.WithError(err).Debug("Handshake failed")
		s.obs.ConnectionRejected("handshake")
		return
	}

	out := protocol.NewOutbox(s.cfg.OutboxBytes)
	res, err := s.engine.Join(ctx, name, ident.Subject, out)
	if err != nil {
		log.WithError(err).WithField("player", name).Info("🚫 Join refused")
		s.obs.ConnectionRejected("join")
		return
	}
	log = log.WithFields(logrus.Fields{"player": name, "id": res.ID, "team": res.Team.String()})
	log.Info("🔌 Session started")
	s.obs.SessionOpened(transport)
	defer s.obs.SessionClosed(transport)

	stop := make(chan struct{})
	writerDone := make(chan struct{})
	go func() {
		defer close(writerDone)
		s.writeLoop(conn, out, stop, log)
		// Unblocks the reader after game over or a write failure.
		conn.Close()
	}()
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-writerDone:
		}
	}()

	s.readLoop(conn, res.ID, out, log)
	close(stop)
	<-writerDone

	s.leave(ctx, res.ID)
	log.Info("🔌 Session ended")
}

// handshake reads "<token> <name…>" and verifies the token.
func (s *Server) handshake(conn LineConn) (string, auth.Identity, error) {
	if s.cfg.HandshakeWait > 0 {
		conn.SetReadDeadline(time.Now().Add(s.cfg.HandshakeWait))
		defer conn.SetReadDeadline(time.Time{})
	}
	line, err := conn.ReadLine()
	if err != nil {
		return "", auth.Identity{}, fmt.Errorf("%w: %v", ErrHandshake, err)
	}
	token, name, _ := strings.Cut(strings.TrimSpace(line), " ")
	if token == "" {
		return "", auth.Identity{}, ErrHandshake
	}
	ident, err := s.verifier.Verify(token)
	if err != nil {
		return "", auth.Identity{}, err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		name = ident.Name
	}
	if name == "" {
		return "", auth.Identity{}, fmt.Errorf("%w: missing name", ErrHandshake)
	}
	if len(name) > protocol.MaxTextLen {
		name = name[:protocol.MaxTextLen]
	}
	return name, ident, nil
}

func (s *Server) readLoop(conn LineConn, id game.EntityID, out *protocol.Outbox, log logrus.FieldLogger) {
	var limiter *rate.Limiter
	if s.cfg.CommandsPerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(s.cfg.CommandsPerSecond), max(s.cfg.CommandBurst, 1))
	}
	for {
		line, err := conn.ReadLine()
		if err != nil {
			return
		}
		if limiter != nil && !limiter.Allow() {
			s.obs.CommandDropped("rate_limit")
			continue
		}
		cmd, err := protocol.ParseCommand(line)
		if err != nil {
			if !errors.Is(err, protocol.ErrEmptyCommand) {
				log.WithError(err).WithField("line", line).Debug("Dropped malformed command")
				s.obs.CommandDropped("malformed")
			}
			continue
		}
		if cmd.Op == protocol.OpPing {
			out.Send(protocol.RecPong)
			continue
		}
		if err := s.engine.Submit(game.CommandIntent(id, cmd)); err != nil {
			s.obs.CommandDropped("busy")
		}
	}
}

func (s *Server) writeLoop(conn LineConn, out *protocol.Outbox, stop <-chan struct{}, log logrus.FieldLogger) {
	poll := time.NewTicker(s.cfg.WritePoll)
	defer poll.Stop()
	for {
		select {
		case <-out.Signal():
		case <-poll.C:
		case <-stop:
			return
		}
		lines, done, err := out.Take()
		if err != nil {
			log.WithError(err).Warn("⚠️ Slow client, closing session")
			return
		}
		if len(lines) > 0 {
			if err := conn.WriteLines(lines); err != nil {
				return
			}
			n := 0
			for _, l := range lines {
				n += len(l) + 1
			}
			s.obs.BytesWritten(n)
			out.Recycle(lines[len(lines)-1])
		}
		if done {
			return
		}
	}
}

// leave submits the Leave intent, retrying while the queue is full: a lost
// Leave would keep the player in the world.
func (s *Server) leave(ctx context.Context, id game.EntityID) {
	for {
		err := s.engine.Submit(game.LeaveIntent(id))
		if !errors.Is(err, game.ErrBusy) {
			return
		}
		select {
		case <-time.After(s.cfg.LeaveRetry):
		case <-ctx.Done():
			return
		}
	}
}

func hostOf(addr string) string {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return addr
	}
	return host
}
