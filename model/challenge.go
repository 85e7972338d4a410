package model

import "time"

// Challenge is a real-world fitness task created by a user. Completing it
// rewards the full skillpoint amount; attempting it rewards a small
// consolation amount.
type Challenge struct {
	ID          int64     `gorm:"primaryKey;autoIncrement" json:"challenge_id"`
	CreatorID   int64     `gorm:"index:idx_challenge_creator;not null" json:"creator_id"`
	Name        string    `gorm:"size:128;not null" json:"name"`
	Description string    `gorm:"type:text" json:"description"`
	Skillpoints int       `gorm:"not null" json:"skillpoints"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// CompletionRecord is one user's attempt at a challenge.
type CompletionRecord struct {
	ID          int64     `gorm:"primaryKey;autoIncrement" json:"record_id"`
	ChallengeID int64     `gorm:"index:idx_record_challenge;not null" json:"challenge_id"`
	UserID      int64     `gorm:"index:idx_record_user;not null" json:"user_id"`
	Completed   bool      `gorm:"default:false" json:"completed"`
	Notes       string    `gorm:"type:text" json:"notes"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
}

// Review is a rating left by a user who completed the challenge.
// One review per user per challenge.
type Review struct {
	ID          int64     `gorm:"primaryKey;autoIncrement" json:"review_id"`
	ChallengeID int64     `gorm:"uniqueIndex:idx_review_once;not null" json:"challenge_id"`
	UserID      int64     `gorm:"uniqueIndex:idx_review_once;not null" json:"user_id"`
	Rating      int       `gorm:"not null" json:"rating"` // 1-5
	Content     string    `gorm:"type:text" json:"content"`
	CreatedAt   time.Time `gorm:"autoCreateTime" json:"created_at"`
}
