package model

// Effect types.
const (
	EffectHealth         = "Health"
	EffectIncomingDamage = "Incoming Damage"
	EffectOutgoingDamage = "Outgoing Damage"
	EffectAccuracy       = "Accuracy"
)

// Effect template targets, relative to the fighter using the skill.
const (
	TargetSelf     = "Self"
	TargetOpponent = "Opponent"
)

// Skill is a catalog entry purchasable with skillpoints and usable in battle.
type Skill struct {
	ID           int64  `gorm:"primaryKey;autoIncrement" json:"skill_id"`
	Name         string `gorm:"uniqueIndex;size:64;not null" json:"name"`
	Description  string `gorm:"type:text" json:"description"`
	Accuracy     int    `gorm:"not null" json:"accuracy"` // 0-100
	Damage       int    `gorm:"not null" json:"damage"`
	ManaCost     int    `gorm:"not null" json:"mana_cost"`
	Element      string `gorm:"size:16;not null" json:"element"`
	PurchaseCost int    `gorm:"not null" json:"purchase_cost"` // skillpoints
}

// SkillEffect is a static effect template attached to a skill. A skill may
// carry several, applied in insertion order when it lands.
type SkillEffect struct {
	ID       int64  `gorm:"primaryKey;autoIncrement" json:"effect_id"`
	SkillID  int64  `gorm:"index:idx_effect_skill;not null" json:"skill_id"`
	Type     string `gorm:"size:20;not null" json:"type"`
	Value    int    `gorm:"not null" json:"value"` // flat amount (Health) or signed percentage
	Target   string `gorm:"size:10;not null" json:"target"`
	Duration int    `gorm:"not null" json:"duration"` // turns
}

// SkillOwnership records that a character has purchased a skill.
type SkillOwnership struct {
	ID          int64 `gorm:"primaryKey;autoIncrement" json:"ownership_id"`
	CharacterID int64 `gorm:"uniqueIndex:idx_skill_owner;not null" json:"character_id"`
	SkillID     int64 `gorm:"uniqueIndex:idx_skill_owner;not null" json:"skill_id"`
}
