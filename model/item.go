package model

import "time"

// Item slots. Weapon power adds to attack; armor power adds to max health;
// potions are consumed to restore health.
const (
	SlotWeapon     = "Weapon"
	SlotHelmet     = "Helmet"
	SlotChestplate = "Chestplate"
	SlotLeggings   = "Leggings"
	SlotBoots      = "Boots"
	SlotPotion     = "Potion"
)

// Rarities, in descending drop weight.
const (
	RarityCommon    = "Common"
	RarityRare      = "Rare"
	RarityEpic      = "Epic"
	RarityLegendary = "Legendary"
)

// Item is a catalog entry obtainable as dungeon loot.
type Item struct {
	ID      int64  `gorm:"primaryKey;autoIncrement" json:"item_id"`
	Name    string `gorm:"uniqueIndex;size:64;not null" json:"name"`
	Slot    string `gorm:"size:16;not null" json:"slot"`
	Rarity  string `gorm:"size:16;not null" json:"rarity"`
	Power   int    `gorm:"not null" json:"power"`
	Element string `gorm:"size:16;not null" json:"element"`
	Req     int    `gorm:"not null" json:"req"` // required character level
	Special bool   `gorm:"default:false" json:"special"`
}

// ItemOwnership is one item instance in a character's inventory.
// Equipped holds the occupied slot name, or nil when unequipped.
type ItemOwnership struct {
	ID          int64     `gorm:"primaryKey;autoIncrement" json:"ownership_id"`
	CharacterID int64     `gorm:"index:idx_item_owner;not null" json:"character_id"`
	ItemID      int64     `gorm:"not null" json:"item_id"`
	Equipped    *string   `gorm:"size:16" json:"equipped"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
}
