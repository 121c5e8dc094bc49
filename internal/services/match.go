package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"synergy-backend/internal/apperrors"
	"synergy-backend/internal/metrics"
	"synergy-backend/internal/models"
	"synergy-backend/internal/notify"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// UserDetail is the full card of another user as seen by the viewer.
type UserDetail struct {
	ID                 uint                    `json:"id"`
	Username           string                  `json:"username"`
	Bio                *string                 `json:"bio"`
	Skills             models.StringSet        `json:"skills"`
	Location           *string                 `json:"location"`
	Availability       *string                 `json:"availability"`
	ProfilePicture     *string                 `json:"profile_picture"`
	Collaborations     []UserCollaborationView `json:"collaborations"`
	Collections        []CollectionSummary     `json:"collections"`
	AlreadySwipedRight bool                    `json:"already_swiped_right"`
}

type MatchService struct {
	db             *gorm.DB
	collaborations *CollaborationService
	collections    *CollectionService
	notifier       *notify.Notifier
	metrics        *metrics.Metrics
	log            *logrus.Logger
}

func NewMatchService(db *gorm.DB, collaborations *CollaborationService, collections *CollectionService, notifier *notify.Notifier, m *metrics.Metrics, log *logrus.Logger) *MatchService {
	return &MatchService{
		db:             db,
		collaborations: collaborations,
		collections:    collections,
		notifier:       notifier,
		metrics:        m,
		log:            log,
	}
}

// Candidates lists users the caller has neither swiped on nor matched with,
// optionally limited to members of one collaboration.
func (s *MatchService) Candidates(ctx context.Context, userID uint, collaborationID *uint) ([]models.UserSummary, error) {
	db := s.db.WithContext(ctx)
	q := db.Model(&models.User{}).
		Where("users.id <> ?", userID).
		Where("users.id NOT IN (?)", db.Model(&models.Swipe{}).Select("target_id").Where("swiper_id = ?", userID)).
		Where("users.id NOT IN (?)", matchedIDs(db, userID, true)).
		Where("users.id NOT IN (?)", matchedIDs(db, userID, false))

	if collaborationID != nil {
		if _, err := findCollaboration(db, *collaborationID); err != nil {
			return nil, err
		}
		q = q.Where("users.id IN (?)", db.Model(&models.UserCollaboration{}).Select("user_id").Where("collaboration_id = ?", *collaborationID))
	}

	var users []models.User
	if err := q.Order("users.id").Find(&users).Error; err != nil {
		return nil, fmt.Errorf("listing candidates: %w", err)
	}
	return summaries(users), nil
}

// SwipeRight records a like from swiperID to targetID and reports whether
// it completed a mutual match.
func (s *MatchService) SwipeRight(ctx context.Context, swiperID, targetID uint) (bool, error) {
	if swiperID == targetID {
		return false, apperrors.Validation("You cannot swipe right on yourself")
	}

	var mutual, created bool
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&models.User{}).Where("id = ?", targetID).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return apperrors.NotFound("Target user not found")
		}

		if err := tx.Create(&models.Swipe{SwiperID: swiperID, TargetID: targetID}).Error; err != nil {
			if errors.Is(err, gorm.ErrDuplicatedKey) {
				return apperrors.Conflict("Already swiped right")
			}
			return err
		}

		var err error
		mutual, created, err = recordMatchIfMutual(tx, swiperID, targetID)
		return err
	})
	if err != nil {
		if apperrors.As(err) != nil {
			return false, err
		}
		return false, fmt.Errorf("recording swipe: %w", err)
	}

	// Two users swiping on each other at once can each miss the other's
	// uncommitted swipe. Checking again after commit closes that window;
	// the pair's unique index keeps the match single.
	if !mutual {
		mutual, created, err = recordMatchIfMutual(s.db.WithContext(ctx), swiperID, targetID)
		if err != nil {
			return false, fmt.Errorf("rechecking match: %w", err)
		}
	}

	if created {
		s.metrics.MatchCreated()
		s.log.WithFields(logrus.Fields{"user_id": swiperID, "target_id": targetID}).Info("New match")
		s.notifyMatch(ctx, swiperID, targetID)
		s.notifyMatch(ctx, targetID, swiperID)
	}
	return mutual, nil
}

func recordMatchIfMutual(db *gorm.DB, swiperID, targetID uint) (mutual, created bool, err error) {
	var count int64
	err = db.Model(&models.Swipe{}).Where("swiper_id = ? AND target_id = ?", targetID, swiperID).Count(&count).Error
	if err != nil || count == 0 {
		return false, false, err
	}

	u1, u2 := models.CanonicalPair(swiperID, targetID)
	res := db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "user1_id"}, {Name: "user2_id"}},
		DoNothing: true,
	}).Create(&models.Match{User1ID: u1, User2ID: u2, MatchedAt: time.Now().UTC()})
	if res.Error != nil {
		return false, false, res.Error
	}
	return true, res.RowsAffected > 0, nil
}

func (s *MatchService) notifyMatch(ctx context.Context, userID, otherID uint) {
	s.notifier.NotifyUser(ctx, userID, notify.Notification{
		Title: "It's a match!",
		Body:  "You have a new match. Start chatting now.",
		Data:  map[string]string{"type": "match", "user_id": fmt.Sprint(otherID)},
	})
}

// Matches lists everyone paired with userID, whichever side of the pair
// they are stored on.
func (s *MatchService) Matches(ctx context.Context, userID uint) ([]models.UserSummary, error) {
	db := s.db.WithContext(ctx)
	var users []models.User
	err := db.Where("id IN (?) OR id IN (?)", matchedIDs(db, userID, true), matchedIDs(db, userID, false)).
		Order("id").Find(&users).Error
	if err != nil {
		return nil, fmt.Errorf("listing matches: %w", err)
	}
	return summaries(users), nil
}

// Likes lists users who swiped right on userID and are not yet matched.
func (s *MatchService) Likes(ctx context.Context, userID uint) ([]models.UserSummary, error) {
	db := s.db.WithContext(ctx)
	var users []models.User
	err := db.Where("id IN (?)", db.Model(&models.Swipe{}).Select("swiper_id").Where("target_id = ?", userID)).
		Where("id NOT IN (?)", matchedIDs(db, userID, true)).
		Where("id NOT IN (?)", matchedIDs(db, userID, false)).
		Order("id").Find(&users).Error
	if err != nil {
		return nil, fmt.Errorf("listing likes: %w", err)
	}
	return summaries(users), nil
}

func (s *MatchService) AreMatched(ctx context.Context, a, b uint) (bool, error) {
	u1, u2 := models.CanonicalPair(a, b)
	var count int64
	err := s.db.WithContext(ctx).Model(&models.Match{}).
		Where("user1_id = ? AND user2_id = ?", u1, u2).Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("checking match: %w", err)
	}
	return count > 0, nil
}

func (s *MatchService) GetUser(ctx context.Context, viewerID, userID uint) (*UserDetail, error) {
	db := s.db.WithContext(ctx)
	user, err := loadUser(db, userID)
	if err != nil {
		return nil, err
	}

	var swiped int64
	if err := db.Model(&models.Swipe{}).Where("swiper_id = ? AND target_id = ?", viewerID, userID).Count(&swiped).Error; err != nil {
		return nil, fmt.Errorf("checking swipe: %w", err)
	}
	collabs, err := s.collaborations.ForUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	collections, err := s.collections.Summaries(ctx, userID)
	if err != nil {
		return nil, err
	}

	return &UserDetail{
		ID:                 user.ID,
		Username:           user.Username,
		Bio:                user.Bio,
		Skills:             user.Skills,
		Location:           user.Location,
		Availability:       user.Availability,
		ProfilePicture:     user.ProfilePicture,
		Collaborations:     collabs,
		Collections:        collections,
		AlreadySwipedRight: swiped > 0,
	}, nil
}

// UserCollaborations lists another user's collaborations, 404 for an
// unknown user.
func (s *MatchService) UserCollaborations(ctx context.Context, userID uint) ([]UserCollaborationView, error) {
	if _, err := loadUser(s.db.WithContext(ctx), userID); err != nil {
		return nil, err
	}
	return s.collaborations.ForUser(ctx, userID)
}

// matchedIDs selects the partner column of matches where userID sits on
// the other side.
func matchedIDs(db *gorm.DB, userID uint, asFirst bool) *gorm.DB {
	if asFirst {
		return db.Model(&models.Match{}).Select("user2_id").Where("user1_id = ?", userID)
	}
	return db.Model(&models.Match{}).Select("user1_id").Where("user2_id = ?", userID)
}

func summaries(users []models.User) []models.UserSummary {
	out := make([]models.UserSummary, 0, len(users))
	for i := range users {
		out = append(out, users[i].Summary())
	}
	return out
}
