package model

import "time"

// Elements. Same-element skill or equipment grants a bonus.
const (
	ElementFire     = "Fire"
	ElementWater    = "Water"
	ElementEarth    = "Earth"
	ElementAir      = "Air"
	ElementLight    = "Light"
	ElementDarkness = "Darkness"
)

// Elements lists every valid element value.
var Elements = []string{
	ElementFire, ElementWater, ElementEarth,
	ElementAir, ElementLight, ElementDarkness,
}

// ValidElement reports whether e is a known element.
func ValidElement(e string) bool {
	for _, v := range Elements {
		if v == e {
			return true
		}
	}
	return false
}

// Character is a user's battle avatar. Level, max health, max mana and
// power are derived values (exp + equipped items), not stored columns.
type Character struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"character_id"`
	UserID    int64     `gorm:"index:idx_character_user;not null" json:"user_id"`
	Name      string    `gorm:"size:32;not null" json:"name"`
	Element   string    `gorm:"size:16;not null" json:"element"`
	Health    int       `gorm:"default:100" json:"health"`
	Mana      int       `gorm:"default:40" json:"mana"`
	Exp       int       `gorm:"default:0" json:"exp"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}
