package models

import (
	"time"
)

// Swipe is one "swipe right" from SwiperID towards TargetID.
type Swipe struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	SwiperID  uint      `json:"swiper_id" gorm:"not null;uniqueIndex:idx_swipes_pair"`
	TargetID  uint      `json:"target_id" gorm:"not null;uniqueIndex:idx_swipes_pair;index"`
	CreatedAt time.Time `json:"created_at"`
	Swiper    User      `json:"-" gorm:"foreignKey:SwiperID;constraint:OnDelete:CASCADE"`
	Target    User      `json:"-" gorm:"foreignKey:TargetID;constraint:OnDelete:CASCADE"`
}

// Match is stored once per unordered pair with User1ID < User2ID.
type Match struct {
	ID        uint      `json:"id" gorm:"primaryKey"`
	User1ID   uint      `json:"user1_id" gorm:"not null;uniqueIndex:idx_matches_pair;check:chk_matches_order,user1_id < user2_id"`
	User2ID   uint      `json:"user2_id" gorm:"not null;uniqueIndex:idx_matches_pair;index"`
	MatchedAt time.Time `json:"matched_at" gorm:"not null"`
	User1     User      `json:"-" gorm:"foreignKey:User1ID;constraint:OnDelete:CASCADE"`
	User2     User      `json:"-" gorm:"foreignKey:User2ID;constraint:OnDelete:CASCADE"`
}

// CanonicalPair orders two user ids the way the matches table stores them.
func CanonicalPair(a, b uint) (uint, uint) {
	if a < b {
		return a, b
	}
	return b, a
}
