package game

import (
	"strconv"

	"castle-wars/internal/protocol"
)

// Damage text colours, the first character of a text cue.
const (
	TextYellow     = 'Y'
	TextBlue       = 'B'
	TextRed        = 'R'
	TextLightGreen = 'G'
	TextPurple     = 'P'
)

// inflictDamage applies a hit to target. source may be nil when the
// attacker is gone. HP never drops below 0; reaching 0 kills the target.
func (w *World) inflictDamage(target *Entity, amount int, source *Entity) {
	life := target.Life
	if life == nil || !life.Alive {
		return
	}

	colour := byte(TextYellow)
	if p := target.Player; p != nil {
		if armour := p.ArmourValue(); armour > 0 {
			amount -= int(float64(amount) * armour)
		}
		if amount <= 0 {
			amount = 1
		}
		colour = TextRed
		if p.Action.Kind == ActionBlock {
			colour = TextBlue
			amount = 0
		}
	} else if amount <= 0 {
		amount = 0
		colour = TextBlue
	}

	dealt := min(amount, life.HP)
	if source != nil && source.IsAgent() && source.Team() != life.Team {
		source.Player.DamageDealt += dealt
		w.addCastleXP(source.Team(), dealt)
	}
	life.HP -= amount
	if life.HP < 0 {
		life.HP = 0
	}

	tx := target.X + w.rng.Float64()*target.W
	ty := target.Y + w.rng.Float64()*target.H/2 - target.H/3
	w.floatText(tx, ty, colour, strconv.Itoa(amount))

	if life.HP == 0 {
		w.die(target, source)
	}
}

func (w *World) die(e *Entity, source *Entity) {
	switch e.Kind {
	case KindPlayer:
		w.playerKilled(e, source)
		w.killPlayer(e)
	case KindBuilding:
		e.Life.Alive = false
		w.dropAll(e)
		w.store.Destroy(e.ID)
		w.buildingDestroyed(e)
	default:
		e.Life.Alive = false
		w.dropAll(e)
		w.store.Destroy(e.ID)
	}
}

// playerKilled broadcasts the scoreboard and kill feed records.
func (w *World) playerKilled(victim, source *Entity) {
	var killer string
	killerTeam := Neutral
	if source != nil {
		killer = source.Name()
		killerTeam = source.Team()
		if source.Player != nil {
			source.Player.Kills++
			w.teams[killerTeam].Kills++
			w.broadcast(protocol.Record(protocol.RecScoreKill, protocol.EncodeB94(int(source.ID)), strconv.Itoa(int(killerTeam))))
		}
	}
	victimTeam := victim.Team()
	w.broadcast(protocol.Record(protocol.RecScoreDeath, protocol.EncodeB94(int(victim.ID)), strconv.Itoa(int(victimTeam))))

	victimName := strconv.Itoa(int(victimTeam)) + victim.Name()
	var l protocol.Line
	if killerTeam == Neutral {
		killerName := strconv.Itoa(int(Neutral)) + killer
		l.Op(protocol.RecKillFeed1).
			Int(protocol.WordCount(victimName)).Str(victimName).
			Int(protocol.WordCount(killerName)).Str(killerName)
	} else {
		killerName := strconv.Itoa(int(killerTeam)) + killer
		l.Op(protocol.RecKillFeed2).
			Int(protocol.WordCount(killerName)).Str(killerName).
			Int(protocol.WordCount(victimName)).Str(victimName)
	}
	w.broadcast(l.String())

	var killerID EntityID
	if source != nil {
		killerID = source.ID
	}
	w.emit(EventTypeKill, "", KillPayload{
		Killer:     killerID,
		KillerName: killer,
		Victim:     victim.ID,
		VictimName: victim.Name(),
		VictimTeam: victimTeam.String(),
	})
}

// addCastleXP grants XP to a team castle and applies any upgrade.
func (w *World) addCastleXP(team Team, amount int) {
	ts := w.team(team)
	if ts == nil || ts.Castle == nil {
		return
	}
	if up, ok := ts.Castle.AddXP(amount); ok {
		w.applyTierUp(ts, up)
	}
}

// applyTierUp carries out everything a castle upgrade changes outside the
// castle economy itself.
func (w *World) applyTierUp(ts *TeamState, up TierUp) {
	ts.Config.applyTierUp()
	w.rebuildCastleTurrets(ts.Castle)

	for _, id := range w.store.Roster(ts.Team) {
		e := w.store.Live(id)
		if e == nil || e.Player == nil || !e.Life.Alive {
			continue
		}
		w.buffPlayer(e)
		w.playSound(e, SoundLevelUp)
		w.floatText(e.X, e.Y-30, TextLightGreen, "***Level Up***")
	}

	w.log.WithField("team", ts.Team.String()).WithField("tier", up.Tier).Info("🏰 Castle upgraded")
	w.emit(EventTypeTierUp, "", TierPayload{Team: ts.Team.String(), Tier: up.Tier, Arrow: up.Arrow.Spec().Code})
}

// findTarget returns the first alive enemy on the roster whose centre is
// within rng of (x, y).
func (w *World) findTarget(team Team, x, y, rng float64) *Entity {
	enemy := team.Enemy()
	if enemy == Neutral {
		return nil
	}
	r2 := rng * rng
	for _, id := range w.store.Roster(enemy) {
		e := w.store.Live(id)
		if e == nil || !e.Life.Damageable(team) {
			continue
		}
		dx, dy := e.CenterX()-x, e.CenterY()-y
		if dx*dx+dy*dy <= r2 {
			return e
		}
	}
	return nil
}
