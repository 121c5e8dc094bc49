package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"synergy-backend/internal/apperrors"
	"synergy-backend/internal/models"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
)

// ProfileInput carries the editable profile attributes. A nil field is
// left untouched by Update.
type ProfileInput struct {
	Bio          *string  `json:"bio" binding:"omitempty,max=255"`
	Skills       []string `json:"skills" binding:"omitempty,max=50,dive,max=100"`
	Location     *string  `json:"location" binding:"omitempty,max=100"`
	Availability *string  `json:"availability" binding:"omitempty,max=100"`
}

type ProfileService struct {
	db    *gorm.DB
	files *FileStore
	log   *logrus.Logger
}

func NewProfileService(db *gorm.DB, files *FileStore, log *logrus.Logger) *ProfileService {
	return &ProfileService{db: db, files: files, log: log}
}

func (s *ProfileService) View(ctx context.Context, userID uint) (*models.User, error) {
	return loadUser(s.db.WithContext(ctx), userID)
}

// Update applies only the supplied fields.
func (s *ProfileService) Update(ctx context.Context, userID uint, in ProfileInput) (*models.User, error) {
	user, err := loadUser(s.db.WithContext(ctx), userID)
	if err != nil {
		return nil, err
	}

	updates := map[string]any{}
	if in.Bio != nil {
		updates["bio"] = *in.Bio
	}
	if in.Skills != nil {
		updates["skills"] = normalizeSkills(in.Skills)
	}
	if in.Location != nil {
		updates["location"] = *in.Location
	}
	if in.Availability != nil {
		updates["availability"] = *in.Availability
	}
	if len(updates) == 0 {
		return user, nil
	}

	if err := s.db.WithContext(ctx).Model(user).Updates(updates).Error; err != nil {
		return nil, fmt.Errorf("updating profile: %w", err)
	}
	return loadUser(s.db.WithContext(ctx), userID)
}

// Add fills in a profile for the first time.
func (s *ProfileService) Add(ctx context.Context, userID uint, in ProfileInput) (*models.User, error) {
	user, err := loadUser(s.db.WithContext(ctx), userID)
	if err != nil {
		return nil, err
	}
	if user.HasProfile() {
		return nil, apperrors.Validation("Profile already exists. Use update endpoint to modify it.")
	}

	user.Bio = in.Bio
	user.Skills = normalizeSkills(in.Skills)
	user.Location = in.Location
	user.Availability = in.Availability
	err = s.db.WithContext(ctx).Model(user).
		Select("bio", "skills", "location", "availability").
		Updates(user).Error
	if err != nil {
		return nil, fmt.Errorf("adding profile: %w", err)
	}
	return user, nil
}

func (s *ProfileService) SetPicture(ctx context.Context, userID uint, u Upload) (string, error) {
	user, err := loadUser(s.db.WithContext(ctx), userID)
	if err != nil {
		return "", err
	}

	ref, err := s.files.Store(ctx, fmt.Sprintf("profiles/%d", userID), u)
	if err != nil {
		return "", err
	}
	if err := s.db.WithContext(ctx).Model(user).Update("profile_picture", ref).Error; err != nil {
		s.files.Discard(ctx, &ref)
		return "", fmt.Errorf("saving profile picture: %w", err)
	}

	s.files.Discard(ctx, user.ProfilePicture)
	return ref, nil
}

func (s *ProfileService) SetDeviceToken(ctx context.Context, userID uint, token string) error {
	token = strings.TrimSpace(token)
	if token == "" {
		return apperrors.Validation("Device token is required")
	}
	res := s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", userID).Update("device_token", token)
	if res.Error != nil {
		return fmt.Errorf("saving device token: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return apperrors.NotFound("User not found")
	}
	return nil
}

func loadUser(db *gorm.DB, id uint) (*models.User, error) {
	var user models.User
	if err := db.First(&user, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.NotFound("User not found")
		}
		return nil, fmt.Errorf("loading user %d: %w", id, err)
	}
	return &user, nil
}

// normalizeSkills trims, drops blanks and keeps the first of any duplicates.
func normalizeSkills(skills []string) models.StringSet {
	if skills == nil {
		return nil
	}
	out := make(models.StringSet, 0, len(skills))
	seen := make(map[string]struct{}, len(skills))
	for _, s := range skills {
		s = strings.TrimSpace(s)
		key := strings.ToLower(s)
		if s == "" {
			continue
		}
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, s)
	}
	return out
}
