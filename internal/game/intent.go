package game

import (
	"context"
	"errors"

	"castle-wars/internal/protocol"
)

// ErrBusy is returned when the intent queue is full.
var ErrBusy = errors.New("engine busy")

// IntentKind selects what an Intent asks the tick loop to do.
type IntentKind uint8

const (
	IntentCommand IntentKind = iota
	IntentJoin
	IntentLeave
)

// Intent is the only way sessions change the world. Intents are applied
// by the tick loop in arrival order at the start of the next tick.
type Intent struct {
	Kind   IntentKind
	Player EntityID
	Cmd    protocol.Command
	Join   *JoinRequest
}

// JoinRequest asks for a new player. The reply is sent exactly once.
type JoinRequest struct {
	Name    string
	Subject string
	Out     *protocol.Outbox
	Reply   chan JoinResult
}

// JoinResult answers a JoinRequest.
type JoinResult struct {
	ID   EntityID
	Team Team
	Err  error
}

// CommandIntent wraps a parsed client command.
func CommandIntent(id EntityID, cmd protocol.Command) Intent {
	return Intent{Kind: IntentCommand, Player: id, Cmd: cmd}
}

// LeaveIntent tears a player down.
func LeaveIntent(id EntityID) Intent {
	return Intent{Kind: IntentLeave, Player: id}
}

// Submit queues an intent without blocking.
func (e *Engine) Submit(in Intent) error {
	select {
	case e.intents <- in:
		return nil
	default:
		e.observer.CommandRejected("busy")
		return ErrBusy
	}
}

// Join asks the tick loop for a new player and waits for the answer.
// The handshake reply is queued on out before Join returns.
func (e *Engine) Join(ctx context.Context, name, subject string, out *protocol.Outbox) (JoinResult, error) {
	req := &JoinRequest{Name: name, Subject: subject, Out: out, Reply: make(chan JoinResult, 1)}
	if err := e.Submit(Intent{Kind: IntentJoin, Join: req}); err != nil {
		return JoinResult{}, err
	}
	select {
	case res := <-req.Reply:
		return res, res.Err
	case <-ctx.Done():
		// The join may still complete; make sure the player does not linger.
		go func() {
			select {
			case res := <-req.Reply:
				if res.Err == nil {
					_ = e.Submit(LeaveIntent(res.ID))
				}
			case <-e.stopChan:
			}
		}()
		return JoinResult{}, ctx.Err()
	}
}

// drainIntents applies everything queued so far. Intents arriving while
// the drain runs wait for the next tick.
func (e *Engine) drainIntents() {
	for n := len(e.intents); n > 0; n-- {
		e.apply(<-e.intents)
	}
}

func (e *Engine) apply(in Intent) {
	switch in.Kind {
	case IntentJoin:
		e.join(in.Join)
	case IntentLeave:
		e.leave(in.Player)
	case IntentCommand:
		if in.Cmd.Op == protocol.OpChat {
			e.say(in.Player, in.Cmd.Text)
			return
		}
		if !e.world.Apply(in.Player, in.Cmd) {
			e.observer.CommandRejected(in.Cmd.Op.String())
		}
	}
}
