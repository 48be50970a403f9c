package game

// TeamConfig is the per-team defaults for newly spawned and respawned
// players. Castle upgrades are the only thing that changes it.
type TeamConfig struct {
	MoveSpeed  float64 `json:"moveSpeed"`
	JumpSpeed  float64 `json:"jumpSpeed"`
	StartHP    int     `json:"startHp"`
	StartMana  int     `json:"startMana"`
	BaseDamage int     `json:"baseDamage"`
}

// DefaultTeamConfig returns the tier 0 player defaults.
func DefaultTeamConfig() TeamConfig {
	return TeamConfig{
		MoveSpeed:  PlayerMoveSpeed,
		JumpSpeed:  PlayerJumpSpeed,
		StartHP:    PlayerBaseHP,
		StartMana:  PlayerBaseMana,
		BaseDamage: 0,
	}
}

// applyTierUp raises the defaults by one upgrade's worth, within the
// player caps.
func (c *TeamConfig) applyTierUp() {
	c.MoveSpeed = min(c.MoveSpeed+SpeedIncrease, MaxMoveSpeed)
	c.JumpSpeed = min(c.JumpSpeed+JumpIncrease, MaxJumpSpeed)
	c.StartHP = min(c.StartHP+MaxHPIncrease, MaxPlayerHP)
	c.StartMana = min(c.StartMana+MaxManaIncrease, MaxPlayerMana)
	c.BaseDamage = min(c.BaseDamage+DamageIncrease, MaxDamageAdd)
}

// TeamState is everything the world tracks per playing team.
type TeamState struct {
	Team    Team
	Config  TeamConfig
	Castle  *Castle
	Players int
	Kills   int
}

func newTeamState(team Team) *TeamState {
	return &TeamState{Team: team, Config: DefaultTeamConfig()}
}

// pickTeam returns the team with fewer connected players; ties go to red.
func pickTeam(red, blue *TeamState) Team {
	if blue.Players < red.Players {
		return Blue
	}
	return Red
}
