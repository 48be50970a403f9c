// Package bus fans broadcast records out to player sessions, either
// directly in-process or relayed through NATS so several server
// processes share chat and the kill feed.
package bus

import "castle-wars/internal/game"

// Deliverer queues a record on local sessions. *game.Engine implements it.
type Deliverer interface {
	DeliverAll(line []byte)
	DeliverTeam(team game.Team, line []byte)
}

// Local delivers broadcasts straight to the local sessions.
type Local struct {
	d Deliverer
}

// NewLocal wraps d.
func NewLocal(d Deliverer) *Local {
	return &Local{d: d}
}

// Broadcast implements game.Broadcaster.
func (l *Local) Broadcast(line string) {
	l.d.DeliverAll([]byte(line))
}

// BroadcastTeam implements game.Broadcaster.
func (l *Local) BroadcastTeam(team game.Team, line string) {
	l.d.DeliverTeam(team, []byte(line))
}

var _ game.Broadcaster = (*Local)(nil)
