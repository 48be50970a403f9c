package bus

import (
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/nats-io/nats-server/v2/server"
	"github.com/nats-io/nats.go"
	"github.com/sirupsen/logrus"

	"castle-wars/internal/config"
	"castle-wars/internal/game"
)

// NATS publishes broadcasts to subjects <prefix>.all and
// <prefix>.team.<n>; its subscriptions deliver whatever arrives to the
// local sessions, including this process's own messages.
type NATS struct {
	conn   *nats.Conn
	prefix string
	d      Deliverer
	log    logrus.FieldLogger

	mu   sync.Mutex
	subs []*nats.Subscription
}

// NewNATS creates a relay on conn. Call Subscribe before the engine starts.
func NewNATS(conn *nats.Conn, prefix string, d Deliverer, log logrus.FieldLogger) *NATS {
	if prefix == "" {
		prefix = config.DefaultNats().Subject
	}
	return &NATS{conn: conn, prefix: prefix, d: d, log: log}
}

func (n *NATS) allSubject() string { return n.prefix + ".all" }

func (n *NATS) teamSubject(team game.Team) string {
	return n.prefix + ".team." + strconv.Itoa(int(team))
}

// Subscribe starts delivering relayed records.
func (n *NATS) Subscribe() error {
	all, err := n.conn.Subscribe(n.allSubject(), func(msg *nats.Msg) {
		n.d.DeliverAll(msg.Data)
	})
	if err != nil {
		return fmt.Errorf("subscribing %s: %w", n.allSubject(), err)
	}
	team, err := n.conn.Subscribe(n.prefix+".team.*", func(msg *nats.Msg) {
		i := strings.LastIndexByte(msg.Subject, '.')
		t, err := strconv.Atoi(msg.Subject[i+1:])
		if err != nil {
			return
		}
		n.d.DeliverTeam(game.Team(t), msg.Data)
	})
	if err != nil {
		all.Unsubscribe()
		return fmt.Errorf("subscribing team subjects: %w", err)
	}

	n.mu.Lock()
	n.subs = append(n.subs, all, team)
	n.mu.Unlock()
	return n.conn.Flush()
}

// Broadcast implements game.Broadcaster. A failed publish falls back to
// local delivery so this process's players still see the record.
func (n *NATS) Broadcast(line string) {
	if err := n.conn.Publish(n.allSubject(), []byte(line)); err != nil {
		n.log.WithError(err).Warn("⚠️ NATS publish failed, delivering locally")
		n.d.DeliverAll([]byte(line))
	}
}

// BroadcastTeam implements game.Broadcaster.
func (n *NATS) BroadcastTeam(team game.Team, line string) {
	if err := n.conn.Publish(n.teamSubject(team), []byte(line)); err != nil {
		n.log.WithError(err).Warn("⚠️ NATS publish failed, delivering locally")
		n.d.DeliverTeam(team, []byte(line))
	}
}

// Close removes the subscriptions. The connection is left to its owner.
func (n *NATS) Close() {
	n.mu.Lock()
	defer n.mu.Unlock()
	for _, s := range n.subs {
		s.Unsubscribe()
	}
	n.subs = nil
}

var _ game.Broadcaster = (*NATS)(nil)

// EmbeddedServer is an in-process NATS server for single-host deployments.
type EmbeddedServer struct {
	ns      *server.Server
	timeout time.Duration
}

// NewEmbeddedServer configures a server on host:port. Port -1 picks a
// random free port.
func NewEmbeddedServer(host string, port int, timeout time.Duration) (*EmbeddedServer, error) {
	ns, err := server.NewServer(&server.Options{
		Host:   host,
		Port:   port,
		NoSigs: true, // Let the application handle signals
	})
	if err != nil {
		return nil, err
	}
	return &EmbeddedServer{ns: ns, timeout: timeout}, nil
}

// Start runs the server and waits until it accepts connections.
func (s *EmbeddedServer) Start() error {
	go s.ns.Start()
	if !s.ns.ReadyForConnections(s.timeout) {
		return fmt.Errorf("nats server not ready for connections")
	}
	return nil
}

// ClientURL returns the URL clients connect to.
func (s *EmbeddedServer) ClientURL() string { return s.ns.ClientURL() }

// Shutdown stops the server.
func (s *EmbeddedServer) Shutdown() {
	s.ns.Shutdown()
	s.ns.WaitForShutdown()
}

// Connect dials the configured NATS server, starting an embedded one when
// no URL is set. The returned server is nil for external connections.
func Connect(cfg config.NatsConfig, log logrus.FieldLogger) (*nats.Conn, *EmbeddedServer, error) {
	url := cfg.URL
	var embedded *EmbeddedServer
	if url == "" {
		s, err := NewEmbeddedServer(cfg.Host, cfg.Port, cfg.StartTimeout)
		if err != nil {
			return nil, nil, fmt.Errorf("creating nats server: %w", err)
		}
		if err := s.Start(); err != nil {
			return nil, nil, err
		}
		embedded = s
		url = s.ClientURL()
		log.WithField("url", url).Info("📡 Embedded NATS server listening")
	}

	conn, err := nats.Connect(url, nats.Name("castle-wars"))
	if err != nil {
		if embedded != nil {
			embedded.Shutdown()
		}
		return nil, nil, fmt.Errorf("connecting to nats %s: %w", url, err)
	}
	return conn, embedded, nil
}
