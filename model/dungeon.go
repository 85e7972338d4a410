package model

// Dungeon is an explorable area gated by character level and an entry fee
// in skillpoints.
type Dungeon struct {
	ID          int64  `gorm:"primaryKey;autoIncrement" json:"dungeon_id"`
	Name        string `gorm:"size:64;not null" json:"name"`
	Description string `gorm:"type:text" json:"description"`
	Req         int    `gorm:"not null" json:"req"` // required character level
	Fee         int    `gorm:"not null" json:"fee"` // skillpoints
}
