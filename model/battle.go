package model

import "time"

// Battle effect targets, fixed battle roles resolved at creation time.
const (
	RoleAttacker = "Attacker"
	RoleDefender = "Defender"
)

// Battle is one PvP or PvE encounter. Exactly one of DefenderID and
// MonsterID is set. Turn parity decides who acts: even = attacker.
// Rows are never deleted; Finished marks termination.
type Battle struct {
	ID               int64     `gorm:"primaryKey;autoIncrement" json:"battle_id"`
	AttackerID       int64     `gorm:"index:idx_battle_attacker;not null" json:"attacker_id"`
	DefenderID       *int64    `gorm:"index:idx_battle_defender" json:"defender_id"`
	MonsterID        *int64    `json:"monster_id"`
	MonsterHealth    *int      `json:"monster_health"`
	Turns            int       `gorm:"default:0" json:"turns"`
	Finished         bool      `gorm:"default:false" json:"finished"`
	WinnerID         *int64    `json:"winner"`
	LastResult       string    `gorm:"type:text" json:"last_result"`
	LastEffectResult string    `gorm:"type:text" json:"last_effect_result"`
	CreatedAt        time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt        time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// PvE reports whether the battle is against a monster.
func (b *Battle) PvE() bool { return b.MonsterID != nil }

// BattleRequest is a pending PvP invitation from a character to a user.
type BattleRequest struct {
	ID          int64     `gorm:"primaryKey;autoIncrement" json:"request_id"`
	RequesterID int64     `gorm:"index:idx_request_requester;not null" json:"requester_id"` // character
	UserID      int64     `gorm:"index:idx_request_user;not null" json:"user_id"`           // requestee
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// BattleEffect is an active, turn-counted modifier bound to an ongoing
// battle. Created when a skill effect lands, decremented every turn, and
// deleted once its counter runs out. Target names the battle role the
// effect applies to, fixed when the effect was created.
type BattleEffect struct {
	ID       int64  `gorm:"primaryKey;autoIncrement" json:"battle_effect_id"`
	BattleID int64  `gorm:"index:idx_effect_battle;not null" json:"battle_id"`
	Type     string `gorm:"size:20;not null" json:"type"`
	Value    int    `gorm:"not null" json:"value"`
	Target   string `gorm:"size:10;not null" json:"target"`
	Turns    int    `gorm:"not null" json:"turns"`
}
