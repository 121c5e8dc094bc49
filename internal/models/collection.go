package models

import (
	"time"
)

const (
	ItemTypeText = "text"
	ItemTypeFile = "file"
)

type Collection struct {
	ID        uint             `json:"id" gorm:"primaryKey"`
	UserID    uint             `json:"user_id" gorm:"not null;index"`
	Name      string           `json:"name" gorm:"not null"`
	CreatedAt time.Time        `json:"created_at"`
	User      User             `json:"-" gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
	Items     []CollectionItem `json:"items,omitempty" gorm:"constraint:OnDelete:CASCADE"`
}

// CollectionItem holds either free text or a stored file reference in Content.
type CollectionItem struct {
	ID           uint      `json:"id" gorm:"primaryKey"`
	CollectionID uint      `json:"collection_id" gorm:"not null;index"`
	ItemType     string    `json:"type" gorm:"size:10;not null"`
	Content      string    `json:"content" gorm:"type:text;not null"`
	CreatedAt    time.Time `json:"created_at"`
}
