package model

// Monster is a catalog entry encountered in dungeons. Health is the
// monster's maximum; the current value during a fight lives on the battle
// row. Monsters have no mana pool and no tracked exp.
type Monster struct {
	ID      int64  `gorm:"primaryKey;autoIncrement" json:"monster_id"`
	Name    string `gorm:"size:64;not null" json:"name"`
	Element string `gorm:"size:16;not null" json:"element"`
	Health  int    `gorm:"not null" json:"health"`
	Power   int    `gorm:"not null" json:"power"`
	Level   int    `gorm:"index:idx_monster_level;not null" json:"level"`
}
