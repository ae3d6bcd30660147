package models

import "time"

// User: the account that owns purchase orders, requirements and supply history.
type User struct {
	ID           string `gorm:"primaryKey;size:36"`
	Name         string `gorm:"size:100;not null"`
	Email        string `gorm:"size:100;uniqueIndex;not null"`
	PasswordHash string `gorm:"size:255;not null"`
	CreatedAt    time.Time
	UpdatedAt    time.Time
}
