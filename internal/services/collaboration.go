package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"synergy-backend/internal/apperrors"
	"synergy-backend/internal/models"
	"synergy-backend/internal/notify"

	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type CollaborationView struct {
	ID             uint      `json:"id"`
	Name           string    `json:"name"`
	Description    *string   `json:"description"`
	ProfilePicture *string   `json:"profile_picture"`
	AdminID        uint      `json:"admin_id"`
	AdminName      string    `json:"admin_name"`
	CreatedAt      time.Time `json:"created_at"`
}

// UserCollaborationView is a collaboration seen through one member's row.
type UserCollaborationView struct {
	ID          uint    `json:"id"`
	Name        string  `json:"name"`
	Description *string `json:"description"`
	Role        string  `json:"role"`
}

type PhotoView struct {
	ID       uint   `json:"id"`
	PhotoURL string `json:"photo_url"`
}

type MemberView struct {
	UserID   uint      `json:"user_id"`
	Username string    `json:"username"`
	Role     string    `json:"role"`
	JoinedAt time.Time `json:"joined_at"`
}

type RequestView struct {
	ID                uint      `json:"id"`
	UserID            uint      `json:"user_id"`
	Username          string    `json:"username"`
	CollaborationID   uint      `json:"collaboration_id"`
	CollaborationName string    `json:"collaboration_name"`
	Status            string    `json:"status"`
	CreatedAt         time.Time `json:"created_at"`
}

type CollaborationService struct {
	db       *gorm.DB
	files    *FileStore
	notifier *notify.Notifier
	baseURL  string
	log      *logrus.Logger
}

func NewCollaborationService(db *gorm.DB, files *FileStore, notifier *notify.Notifier, baseURL string, log *logrus.Logger) *CollaborationService {
	return &CollaborationService{
		db:       db,
		files:    files,
		notifier: notifier,
		baseURL:  baseURL,
		log:      log,
	}
}

// Create stores the collaboration and its creator's admin membership together.
func (s *CollaborationService) Create(ctx context.Context, adminID uint, name string, description *string) (*models.Collaboration, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperrors.Validation("Collaboration name is required")
	}

	collab := models.Collaboration{AdminID: adminID, Name: name, Description: description}
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&collab).Error; err != nil {
			return err
		}
		return tx.Create(&models.UserCollaboration{
			UserID:          adminID,
			CollaborationID: collab.ID,
			Role:            models.RoleAdmin,
		}).Error
	})
	if err != nil {
		return nil, fmt.Errorf("creating collaboration: %w", err)
	}
	return &collab, nil
}

func (s *CollaborationService) Edit(ctx context.Context, userID, collabID uint, name, description *string) (*models.Collaboration, error) {
	db := s.db.WithContext(ctx)
	collab, err := s.requireAdmin(db, userID, collabID)
	if err != nil {
		return nil, err
	}

	updates := map[string]any{}
	if name != nil {
		trimmed := strings.TrimSpace(*name)
		if trimmed == "" {
			return nil, apperrors.Validation("Collaboration name cannot be empty")
		}
		updates["name"] = trimmed
	}
	if description != nil {
		updates["description"] = *description
	}
	if len(updates) > 0 {
		if err := db.Model(collab).Updates(updates).Error; err != nil {
			return nil, fmt.Errorf("updating collaboration: %w", err)
		}
	}
	if err := db.First(collab, collabID).Error; err != nil {
		return nil, fmt.Errorf("reloading collaboration: %w", err)
	}
	return collab, nil
}

func (s *CollaborationService) viewQuery(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx).Table("collaborations AS c").
		Select("c.id, c.name, c.description, c.profile_picture, c.admin_id, c.created_at, u.username AS admin_name").
		Joins("JOIN users u ON u.id = c.admin_id")
}

func (s *CollaborationService) List(ctx context.Context) ([]CollaborationView, error) {
	views := []CollaborationView{}
	if err := s.viewQuery(ctx).Order("c.id").Scan(&views).Error; err != nil {
		return nil, fmt.Errorf("listing collaborations: %w", err)
	}
	return views, nil
}

func (s *CollaborationService) Get(ctx context.Context, collabID uint) (*CollaborationView, error) {
	views := []CollaborationView{}
	if err := s.viewQuery(ctx).Where("c.id = ?", collabID).Limit(1).Scan(&views).Error; err != nil {
		return nil, fmt.Errorf("loading collaboration: %w", err)
	}
	if len(views) == 0 {
		return nil, apperrors.NotFound("Collaboration not found")
	}
	return &views[0], nil
}

// Mine lists the collaborations the user administers.
func (s *CollaborationService) Mine(ctx context.Context, userID uint) ([]models.Collaboration, error) {
	collabs := []models.Collaboration{}
	if err := s.db.WithContext(ctx).Where("admin_id = ?", userID).Order("id").Find(&collabs).Error; err != nil {
		return nil, fmt.Errorf("listing own collaborations: %w", err)
	}
	return collabs, nil
}

// ForUser lists every collaboration the user belongs to, in any role.
func (s *CollaborationService) ForUser(ctx context.Context, userID uint) ([]UserCollaborationView, error) {
	views := []UserCollaborationView{}
	err := s.db.WithContext(ctx).Table("collaborations AS c").
		Select("c.id, c.name, c.description, uc.role").
		Joins("JOIN user_collaborations uc ON uc.collaboration_id = c.id").
		Where("uc.user_id = ?", userID).
		Order("c.id").
		Scan(&views).Error
	if err != nil {
		return nil, fmt.Errorf("listing user collaborations: %w", err)
	}
	return views, nil
}

func (s *CollaborationService) AddPhoto(ctx context.Context, userID, collabID uint, u Upload) (*PhotoView, error) {
	db := s.db.WithContext(ctx)
	if _, err := s.requireAdmin(db, userID, collabID); err != nil {
		return nil, err
	}

	ref, err := s.files.Store(ctx, fmt.Sprintf("collaborations/%d", collabID), u)
	if err != nil {
		return nil, err
	}
	photo := models.CollaborationPhoto{CollaborationID: collabID, PhotoPath: ref}
	if err := db.Create(&photo).Error; err != nil {
		s.files.Discard(ctx, &ref)
		return nil, fmt.Errorf("saving collaboration photo: %w", err)
	}
	return &PhotoView{ID: photo.ID, PhotoURL: ResolveURL(s.baseURL, ref)}, nil
}

func (s *CollaborationService) Photos(ctx context.Context, collabID uint) ([]PhotoView, error) {
	db := s.db.WithContext(ctx)
	if _, err := findCollaboration(db, collabID); err != nil {
		return nil, err
	}
	var photos []models.CollaborationPhoto
	if err := db.Where("collaboration_id = ?", collabID).Order("id").Find(&photos).Error; err != nil {
		return nil, fmt.Errorf("listing collaboration photos: %w", err)
	}
	views := make([]PhotoView, 0, len(photos))
	for _, p := range photos {
		views = append(views, PhotoView{ID: p.ID, PhotoURL: ResolveURL(s.baseURL, p.PhotoPath)})
	}
	return views, nil
}

func (s *CollaborationService) SetPicture(ctx context.Context, userID, collabID uint, u Upload) (string, error) {
	db := s.db.WithContext(ctx)
	collab, err := s.requireAdmin(db, userID, collabID)
	if err != nil {
		return "", err
	}
	ref, err := s.files.Store(ctx, fmt.Sprintf("collaborations/%d", collabID), u)
	if err != nil {
		return "", err
	}
	if err := db.Model(collab).Update("profile_picture", ref).Error; err != nil {
		s.files.Discard(ctx, &ref)
		return "", fmt.Errorf("saving collaboration picture: %w", err)
	}
	s.files.Discard(ctx, collab.ProfilePicture)
	return ref, nil
}

// RequestJoin files a pending request. Members and users with a request
// already pending are refused.
func (s *CollaborationService) RequestJoin(ctx context.Context, userID, collabID uint) (*models.CollaborationRequest, error) {
	db := s.db.WithContext(ctx)
	collab, err := findCollaboration(db, collabID)
	if err != nil {
		return nil, err
	}

	var count int64
	if err := db.Model(&models.UserCollaboration{}).
		Where("user_id = ? AND collaboration_id = ?", userID, collabID).
		Count(&count).Error; err != nil {
		return nil, fmt.Errorf("checking membership: %w", err)
	}
	if count > 0 {
		return nil, apperrors.Conflict("You are already a member of this collaboration")
	}

	if err := db.Model(&models.CollaborationRequest{}).
		Where("user_id = ? AND collaboration_id = ? AND status = ?", userID, collabID, models.RequestPending).
		Count(&count).Error; err != nil {
		return nil, fmt.Errorf("checking pending requests: %w", err)
	}
	if count > 0 {
		return nil, apperrors.Conflict("A join request is already pending")
	}

	req := models.CollaborationRequest{UserID: userID, CollaborationID: collabID, Status: models.RequestPending}
	if err := db.Create(&req).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apperrors.Conflict("A join request is already pending")
		}
		return nil, fmt.Errorf("creating join request: %w", err)
	}

	s.notifier.NotifyUser(ctx, collab.AdminID, notify.Notification{
		Title: "New join request",
		Body:  fmt.Sprintf("Someone wants to join %s", collab.Name),
		Data:  map[string]string{"collaboration_id": fmt.Sprint(collabID), "request_id": fmt.Sprint(req.ID)},
	})
	return &req, nil
}

func (s *CollaborationService) requestQuery(ctx context.Context) *gorm.DB {
	return s.db.WithContext(ctx).Table("collaboration_requests AS r").
		Select("r.id, r.user_id, u.username, r.collaboration_id, c.name AS collaboration_name, r.status, r.created_at").
		Joins("JOIN users u ON u.id = r.user_id").
		Joins("JOIN collaborations c ON c.id = r.collaboration_id")
}

// PendingRequests is visible to the collaboration's admins only.
func (s *CollaborationService) PendingRequests(ctx context.Context, userID, collabID uint) ([]RequestView, error) {
	if _, err := s.requireAdmin(s.db.WithContext(ctx), userID, collabID); err != nil {
		return nil, err
	}
	views := []RequestView{}
	err := s.requestQuery(ctx).
		Where("r.collaboration_id = ? AND r.status = ?", collabID, models.RequestPending).
		Order("r.id").
		Scan(&views).Error
	if err != nil {
		return nil, fmt.Errorf("listing join requests: %w", err)
	}
	return views, nil
}

func (s *CollaborationService) MyRequests(ctx context.Context, userID uint) ([]RequestView, error) {
	views := []RequestView{}
	if err := s.requestQuery(ctx).Where("r.user_id = ?", userID).Order("r.id").Scan(&views).Error; err != nil {
		return nil, fmt.Errorf("listing own join requests: %w", err)
	}
	return views, nil
}

// Approve moves a pending request to approved and adds exactly one member
// row, both in one transaction.
func (s *CollaborationService) Approve(ctx context.Context, adminID, collabID, requestID uint) (*models.CollaborationRequest, error) {
	req, collab, err := s.decide(ctx, adminID, collabID, requestID, models.RequestApproved, func(tx *gorm.DB, req *models.CollaborationRequest) error {
		return tx.Clauses(clause.OnConflict{DoNothing: true}).Create(&models.UserCollaboration{
			UserID:          req.UserID,
			CollaborationID: req.CollaborationID,
			Role:            models.RoleMember,
		}).Error
	})
	if err != nil {
		return nil, err
	}

	s.notifier.NotifyUser(ctx, req.UserID, notify.Notification{
		Title: "Request approved",
		Body:  fmt.Sprintf("You are now a member of %s", collab.Name),
		Data:  map[string]string{"collaboration_id": fmt.Sprint(collabID)},
	})
	return req, nil
}

func (s *CollaborationService) Reject(ctx context.Context, adminID, collabID, requestID uint) (*models.CollaborationRequest, error) {
	req, _, err := s.decide(ctx, adminID, collabID, requestID, models.RequestRejected, nil)
	return req, err
}

func (s *CollaborationService) decide(ctx context.Context, adminID, collabID, requestID uint, status string, then func(*gorm.DB, *models.CollaborationRequest) error) (*models.CollaborationRequest, *models.Collaboration, error) {
	var req models.CollaborationRequest
	var collab *models.Collaboration
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		if collab, err = s.requireAdmin(tx, adminID, collabID); err != nil {
			return err
		}
		err = tx.Where("id = ? AND collaboration_id = ?", requestID, collabID).First(&req).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperrors.NotFound("Request not found")
		}
		if err != nil {
			return err
		}
		if req.Status != models.RequestPending {
			return apperrors.Conflict("Request is no longer pending")
		}

		res := tx.Model(&req).Where("status = ?", models.RequestPending).Update("status", status)
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperrors.Conflict("Request is no longer pending")
		}
		req.Status = status
		if then != nil {
			return then(tx, &req)
		}
		return nil
	})
	if err != nil {
		if apperrors.As(err) != nil {
			return nil, nil, err
		}
		return nil, nil, fmt.Errorf("deciding join request: %w", err)
	}
	return &req, collab, nil
}

func (s *CollaborationService) Members(ctx context.Context, collabID uint) ([]MemberView, error) {
	db := s.db.WithContext(ctx)
	if _, err := findCollaboration(db, collabID); err != nil {
		return nil, err
	}
	members := []MemberView{}
	err := db.Table("user_collaborations AS uc").
		Select("uc.user_id, u.username, uc.role, uc.created_at AS joined_at").
		Joins("JOIN users u ON u.id = uc.user_id").
		Where("uc.collaboration_id = ?", collabID).
		Order("uc.id").
		Scan(&members).Error
	if err != nil {
		return nil, fmt.Errorf("listing members: %w", err)
	}
	return members, nil
}

// requireAdmin answers not found for an unknown collaboration and forbidden
// when the user holds no admin membership in it.
func (s *CollaborationService) requireAdmin(db *gorm.DB, userID, collabID uint) (*models.Collaboration, error) {
	collab, err := findCollaboration(db, collabID)
	if err != nil {
		return nil, err
	}
	var count int64
	err = db.Model(&models.UserCollaboration{}).
		Where("user_id = ? AND collaboration_id = ? AND role = ?", userID, collabID, models.RoleAdmin).
		Count(&count).Error
	if err != nil {
		return nil, fmt.Errorf("checking admin role: %w", err)
	}
	if count == 0 {
		return nil, apperrors.Forbidden("You are not an admin of this collaboration")
	}
	return collab, nil
}

func findCollaboration(db *gorm.DB, collabID uint) (*models.Collaboration, error) {
	var collab models.Collaboration
	err := db.First(&collab, collabID).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.NotFound("Collaboration not found")
	}
	if err != nil {
		return nil, fmt.Errorf("loading collaboration: %w", err)
	}
	return &collab, nil
}
