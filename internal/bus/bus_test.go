package bus

import (
	"io"
	"sync"
	"testing"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/sirupsen/logrus"

	"castle-wars/internal/game"
)

type delivered struct {
	team game.Team // Neutral for DeliverAll
	line string
}

type fakeDeliverer struct {
	mu  sync.Mutex
	got []delivered
	ch  chan struct{}
}

func newFakeDeliverer() *fakeDeliverer {
	return &fakeDeliverer{ch: make(chan struct{}, 16)}
}

func (f *fakeDeliverer) DeliverAll(line []byte) {
	f.mu.Lock()
	f.got = append(f.got, delivered{line: string(line)})
	f.mu.Unlock()
	f.ch <- struct{}{}
}

func (f *fakeDeliverer) DeliverTeam(team game.Team, line []byte) {
	f.mu.Lock()
	f.got = append(f.got, delivered{team: team, line: string(line)})
	f.mu.Unlock()
	f.ch <- struct{}{}
}

func (f *fakeDeliverer) wait(t *testing.T, n int) []delivered {
	t.Helper()
	for i := 0; i < n; i++ {
		select {
		case <-f.ch:
		case <-time.After(5 * time.Second):
			t.Fatalf("Timed out after %d of %d deliveries", i, n)
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]delivered(nil), f.got...)
}

func TestLocal(t *testing.T) {
	d := newFakeDeliverer()
	l := NewLocal(d)

	l.Broadcast("SK")
	l.BroadcastTeam(game.Blue, "CH T 1 2bob 1 hi")

	got := d.wait(t, 2)
	if got[0].team != game.Neutral || got[0].line != "SK" {
		t.Errorf("Expected broadcast SK, got %+v", got[0])
	}
	if got[1].team != game.Blue || got[1].line != "CH T 1 2bob 1 hi" {
		t.Errorf("Expected blue team chat, got %+v", got[1])
	}
}

func TestNATSRelay(t *testing.T) {
	srv, err := NewEmbeddedServer("127.0.0.1", -1, 5*time.Second)
	if err != nil {
		t.Fatalf("NewEmbeddedServer failed: %v", err)
	}
	if err := srv.Start(); err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	defer srv.Shutdown()

	log := logrus.New()
	log.SetOutput(io.Discard)

	// Two processes sharing one subject prefix.
	var relays []*NATS
	var sinks []*fakeDeliverer
	for i := 0; i < 2; i++ {
		conn, err := nats.Connect(srv.ClientURL())
		if err != nil {
			t.Fatalf("Connect failed: %v", err)
		}
		defer conn.Close()
		d := newFakeDeliverer()
		r := NewNATS(conn, "test", d, log)
		if err := r.Subscribe(); err != nil {
			t.Fatalf("Subscribe failed: %v", err)
		}
		defer r.Close()
		relays = append(relays, r)
		sinks = append(sinks, d)
	}

	relays[0].Broadcast("KF1 2 1 2")
	relays[0].BroadcastTeam(game.Red, "CH T 1 1al 1 go")

	for i, d := range sinks {
		got := d.wait(t, 2)
		var all, team bool
		for _, g := range got {
			if g.team == game.Neutral && g.line == "KF1 2 1 2" {
				all = true
			}
			if g.team == game.Red && g.line == "CH T 1 1al 1 go" {
				team = true
			}
		}
		if !all || !team {
			t.Errorf("Expected process %d to receive both records, got %+v", i, got)
		}
	}
}
