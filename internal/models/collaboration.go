package models

import (
	"time"
)

const (
	RoleAdmin  = "admin"
	RoleMember = "member"
)

const (
	RequestPending  = "pending"
	RequestApproved = "approved"
	RequestRejected = "rejected"
)

type Collaboration struct {
	ID             uint      `json:"id" gorm:"primaryKey"`
	AdminID        uint      `json:"admin_id" gorm:"not null;index"`
	Name           string    `json:"name" gorm:"not null"`
	Description    *string   `json:"description"`
	ProfilePicture *string   `json:"profile_picture"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
	Admin          User      `json:"-" gorm:"foreignKey:AdminID"`
}

// UserCollaboration is the membership row; one per (user, collaboration).
type UserCollaboration struct {
	ID              uint          `json:"id" gorm:"primaryKey"`
	UserID          uint          `json:"user_id" gorm:"not null;uniqueIndex:idx_membership"`
	CollaborationID uint          `json:"collaboration_id" gorm:"not null;uniqueIndex:idx_membership;index"`
	Role            string        `json:"role" gorm:"size:20;not null"`
	CreatedAt       time.Time     `json:"created_at"`
	User            User          `json:"-" gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
	Collaboration   Collaboration `json:"-" gorm:"foreignKey:CollaborationID;constraint:OnDelete:CASCADE"`
}

// CollaborationRequest allows at most one pending row per (user, collaboration).
type CollaborationRequest struct {
	ID              uint          `json:"id" gorm:"primaryKey"`
	UserID          uint          `json:"user_id" gorm:"not null;uniqueIndex:idx_pending_request,where:status = 'pending'"`
	CollaborationID uint          `json:"collaboration_id" gorm:"not null;uniqueIndex:idx_pending_request,where:status = 'pending';index"`
	Status          string        `json:"status" gorm:"size:20;not null;default:pending"`
	CreatedAt       time.Time     `json:"created_at"`
	UpdatedAt       time.Time     `json:"updated_at"`
	User            User          `json:"-" gorm:"foreignKey:UserID;constraint:OnDelete:CASCADE"`
	Collaboration   Collaboration `json:"-" gorm:"foreignKey:CollaborationID;constraint:OnDelete:CASCADE"`
}

type CollaborationPhoto struct {
	ID              uint          `json:"id" gorm:"primaryKey"`
	CollaborationID uint          `json:"collaboration_id" gorm:"not null;index"`
	PhotoPath       string        `json:"photo_path" gorm:"not null"`
	CreatedAt       time.Time     `json:"created_at"`
	Collaboration   Collaboration `json:"-" gorm:"foreignKey:CollaborationID;constraint:OnDelete:CASCADE"`
}
