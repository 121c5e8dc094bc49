package models

import (
	"time"
)

type User struct {
	ID                 uint      `json:"id" gorm:"primaryKey"`
	Username           string    `json:"username" gorm:"size:50;uniqueIndex;not null"`
	PasswordHash       string    `json:"-" gorm:"not null"`
	Bio                *string   `json:"bio" gorm:"size:255"`
	Skills             StringSet `json:"skills"`
	Location           *string   `json:"location" gorm:"size:100"`
	Availability       *string   `json:"availability" gorm:"size:100"`
	ProfilePicture     *string   `json:"profile_picture"`
	VerificationStatus bool      `json:"verification_status" gorm:"default:false"`
	DeviceToken        *string   `json:"-"`
	CreatedAt          time.Time `json:"created_at"`
	UpdatedAt          time.Time `json:"updated_at"`
}

// HasProfile reports whether any of the editable profile attributes is set.
func (u *User) HasProfile() bool {
	return notEmpty(u.Bio) || len(u.Skills) > 0 || notEmpty(u.Location) || notEmpty(u.Availability)
}

// Summary is the public card shown in candidate, match and like lists.
func (u *User) Summary() UserSummary {
	return UserSummary{
		ID:             u.ID,
		Username:       u.Username,
		Bio:            u.Bio,
		Skills:         u.Skills,
		Location:       u.Location,
		ProfilePicture: u.ProfilePicture,
	}
}

type UserSummary struct {
	ID             uint      `json:"id"`
	Username       string    `json:"username"`
	Bio            *string   `json:"bio"`
	Skills         StringSet `json:"skills"`
	Location       *string   `json:"location"`
	ProfilePicture *string   `json:"profile_picture"`
}

func notEmpty(s *string) bool {
	return s != nil && *s != ""
}
