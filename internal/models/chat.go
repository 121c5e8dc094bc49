package models

import (
	"time"
)

// ChatMessage is an append-only log entry; rows are never updated.
type ChatMessage struct {
	ID         uint      `json:"id" gorm:"primaryKey"`
	SenderID   uint      `json:"sender_id" gorm:"not null;index:idx_chats_pair,priority:1"`
	ReceiverID uint      `json:"receiver_id" gorm:"not null;index:idx_chats_pair,priority:2"`
	Message    string    `json:"message" gorm:"type:text;not null"`
	Timestamp  time.Time `json:"timestamp" gorm:"not null;index"`
}

func (ChatMessage) TableName() string { return "chats" }
