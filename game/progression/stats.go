package progression

import "github.com/fitquest/fitquest/model"

const (
	baseMaxHealth = 100
	baseMaxMana   = 40
	manaPerLevel  = 10

	// Equipment matching the character's element is 25% more effective.
	sameElementBonus = 1.25
)

// Stats holds a character's derived combat values.
type Stats struct {
	Level     int `json:"level"`
	MaxExp    int `json:"max_exp"`
	MaxHealth int `json:"max_health"`
	MaxMana   int `json:"max_mana"`
	Power     int `json:"power"`
}

// Compute derives a character's stats from its exp and equipped items.
// Weapon power raises attack power; armor power raises max health.
func Compute(ch *model.Character, equipment []EquippedItem) Stats {
	level := Level(ch.Exp)

	maxHealth := float64(baseMaxHealth)
	power := 0.0
	for _, eq := range equipment {
		effective := float64(eq.Power)
		if eq.Element == ch.Element {
			effective *= sameElementBonus
		}
		switch eq.Slot {
		case model.SlotWeapon:
			power += effective
		case model.SlotHelmet, model.SlotChestplate, model.SlotLeggings, model.SlotBoots:
			maxHealth += effective
		}
	}

	return Stats{
		Level:     level,
		MaxExp:    MaxExp(level),
		MaxHealth: int(maxHealth),
		MaxMana:   baseMaxMana + level*manaPerLevel,
		Power:     int(power),
	}
}

// EquippedItem is the subset of an equipped item that affects stats.
type EquippedItem struct {
	Slot    string
	Power   int
	Element string
}
