package model

import "time"

// User is an account holder. Skillpoints are the currency earned from
// fitness challenges and spent on skills, items and services.
type User struct {
	ID           int64     `gorm:"primaryKey;autoIncrement" json:"user_id"`
	Username     string    `gorm:"uniqueIndex;size:32;not null" json:"username"`
	Email        string    `gorm:"uniqueIndex;size:254;not null" json:"email"`
	PasswordHash string    `gorm:"size:72;not null" json:"-"`
	Skillpoints  int       `gorm:"default:0" json:"skillpoints"`
	CreatedAt    time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}
