package models

import "time"

// DefaultChatTitle is used when a chat is created without a usable title.
const DefaultChatTitle = "New Chat"

type Chat struct {
	ID        string    `json:"id" gorm:"primaryKey;size:36"`
	Title     string    `json:"title" gorm:"size:200;not null"`
	CreatedAt time.Time `json:"created_at" gorm:"not null;precision:6;autoCreateTime:false"`
	UpdatedAt time.Time `json:"updated_at" gorm:"not null;index;precision:6;autoUpdateTime:false"`
}
