package game

// AttackPhase defines the stages of an action animation
type AttackPhase int

const (
	PhaseIdle     AttackPhase = iota // Not acting
	PhaseWindUp                      // Anticipation before the hit frame
	PhaseActive                      // The hit frame has been reached
	PhaseRecovery                    // Follow-through until the action ends
)

// Sprite sheet layout. Every creature image index is base + frame, with
// facing left adding FacingLeftFrames.
const (
	FrameStand       = 0
	FrameWalk1       = 1
	FrameWalk2       = 2
	FrameJump        = 3
	FrameDead        = 4
	FrameActionFirst = 5 // first of three per-action frames
	FacingLeftFrames = 20

	walkFrameTicks = 6
)

// ActionAnimation maps an action kind to its frames on the sheet.
type ActionAnimation struct {
	Kind ActionKind

	// Row is which block of three frames the action uses.
	Row int

	// HitAt is the fraction of the action delay where the active frame
	// starts. Punches use their fixed hit frame instead.
	HitAt float64

	// RecoverAt is the fraction of the delay where recovery starts.
	RecoverAt float64
}

// DefaultActionAnimations returns the frame layout for every action kind
func DefaultActionAnimations() map[ActionKind]ActionAnimation {
	return map[ActionKind]ActionAnimation{
		// ==========================================================================
		// 👊 PUNCH - fixed hit frame, short recovery
		// ==========================================================================
		ActionPunch: {Kind: ActionPunch, Row: 0, HitAt: float64(PunchHitFrame) / PunchDelay, RecoverAt: 0.7},

		// ==========================================================================
		// ⚔️ SWING - hits half way through the delay
		// ==========================================================================
		ActionSwing: {Kind: ActionSwing, Row: 1, HitAt: 0.5, RecoverAt: 0.75},

		// ==========================================================================
		// 🏹 SHOOT / 🔮 CAST - projectile leaves at the start
		// ==========================================================================
		ActionShoot: {Kind: ActionShoot, Row: 2, HitAt: 0, RecoverAt: 0.5},
		ActionCast:  {Kind: ActionCast, Row: 3, HitAt: 0, RecoverAt: 0.5},

		// ==========================================================================
		// 🛡️ BLOCK - a single held pose
		// ==========================================================================
		ActionBlock: {Kind: ActionBlock, Row: 4, HitAt: 0, RecoverAt: 1},
	}
}

var actionAnimations = DefaultActionAnimations()

// GetActionAnimation returns the animation for an action kind
func GetActionAnimation(k ActionKind) (ActionAnimation, bool) {
	anim, ok := actionAnimations[k]
	return anim, ok
}

// Phase returns the animation phase of an action at its current progress
func (a Action) Phase() AttackPhase {
	if a.Idle() || a.Delay <= 0 {
		return PhaseIdle
	}
	anim, ok := GetActionAnimation(a.Kind)
	if !ok {
		return PhaseIdle
	}
	f := float64(a.Progress) / float64(a.Delay)
	switch {
	case f >= anim.RecoverAt:
		return PhaseRecovery
	case f >= anim.HitAt:
		return PhaseActive
	default:
		return PhaseWindUp
	}
}

// actionFrame returns the sheet frame for an action in progress.
func actionFrame(a Action) int {
	anim, ok := GetActionAnimation(a.Kind)
	if !ok {
		return FrameStand
	}
	step := 0
	switch a.Phase() {
	case PhaseActive:
		step = 1
	case PhaseRecovery:
		step = 2
	}
	return FrameActionFirst + anim.Row*3 + step
}

func motionFrame(e *Entity, tick uint64) int {
	switch {
	case !e.OnSurface:
		return FrameJump
	case e.VX != 0:
		if (tick/walkFrameTicks)%2 == 0 {
			return FrameWalk1
		}
		return FrameWalk2
	default:
		return FrameStand
	}
}

func facingOffset(e *Entity) int {
	if e.Life != nil && e.Life.Facing == FacingLeft {
		return FacingLeftFrames
	}
	return 0
}

// playerImage picks the sprite for a player this tick.
func playerImage(e *Entity, tick uint64) int {
	frame := FrameStand
	switch {
	case !e.Life.Alive:
		frame = FrameDead
	case !e.Player.Action.Idle():
		frame = actionFrame(e.Player.Action)
	default:
		frame = motionFrame(e, tick)
	}
	return PlayerImage + frame + facingOffset(e)
}

// unitImage picks the sprite for a unit this tick. Units attack without
// an action state, so they only animate movement.
func unitImage(e *Entity, tick uint64) int {
	frame := motionFrame(e, tick)
	if e.Unit.NextAttack > tick && e.VX == 0 {
		frame = FrameActionFirst + 1
	}
	return e.Unit.Kind.Spec().Image + frame + facingOffset(e)
}
