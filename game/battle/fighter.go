package battle

import "math"

// Fighter is a combat-ready snapshot of a character or monster.
// Character stats arrive pre-derived (level, max health, power include
// equipment bonuses); monsters carry their catalog values with current
// health taken from the battle row.
//
// Health is a float so a forfeit can be marked with negative infinity;
// it is clamped back to a non-negative integer before persisting.
type Fighter struct {
	CharacterID int64 // 0 for monsters
	MonsterID   int64 // 0 for characters
	UserID      int64 // owner; 0 for monsters
	Name        string
	Element     string
	Level       int

	Health    float64
	MaxHealth int

	Mana    int
	MaxMana int
	HasMana bool // monsters have no mana pool

	Power  int
	Exp    int
	HasExp bool // monsters do not track exp
}

// IsMonster reports whether the fighter is a monster.
func (f *Fighter) IsMonster() bool { return f.MonsterID != 0 && f.CharacterID == 0 }

// Forfeit marks the fighter as a guaranteed loser for outcome resolution.
func (f *Fighter) Forfeit() { f.Health = math.Inf(-1) }

// FighterState is the health/mana snapshot returned to the caller.
type FighterState struct {
	Health int `json:"health"`
	Mana   int `json:"mana"`
}

// State returns the fighter's current health/mana, health clamped to 0.
func (f *Fighter) State() FighterState {
	h := f.Health
	if h < 0 {
		h = 0
	}
	return FighterState{Health: int(h), Mana: f.Mana}
}

// SideLog is one side's starting snapshot within a turn log.
type SideLog struct {
	StartingHealth int `json:"starting_health"`
	StartingMana   int `json:"starting_mana"`
}

// TurnLog narrates one executed turn. Guard, forfeit and skill use each
// produce exactly one; a monster reply produces a second within the same
// request. Only the latest log's text survives on the battle row.
type TurnLog struct {
	Attacker     SideLog `json:"attacker"`
	Defender     SideLog `json:"defender"`
	Result       string  `json:"result"`
	EffectResult string  `json:"effect_result"`
}

// TurnResult is the full outcome of one turn request.
type TurnResult struct {
	Logs     []*TurnLog   `json:"logs"`
	Attacker FighterState `json:"attacker"`
	Defender FighterState `json:"defender"`
}
