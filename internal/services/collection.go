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

type CollectionService struct {
	db    *gorm.DB
	files *FileStore
	log   *logrus.Logger
}

func NewCollectionService(db *gorm.DB, files *FileStore, log *logrus.Logger) *CollectionService {
	return &CollectionService{db: db, files: files, log: log}
}

func (s *CollectionService) List(ctx context.Context, userID uint) ([]models.Collection, error) {
	collections := []models.Collection{}
	err := s.db.WithContext(ctx).Where("user_id = ?", userID).Order("id").Find(&collections).Error
	if err != nil {
		return nil, fmt.Errorf("listing collections: %w", err)
	}
	return collections, nil
}

func (s *CollectionService) Create(ctx context.Context, userID uint, name string) (*models.Collection, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, apperrors.Validation("Collection name is required")
	}
	collection := models.Collection{UserID: userID, Name: name}
	if err := s.db.WithContext(ctx).Create(&collection).Error; err != nil {
		return nil, fmt.Errorf("creating collection: %w", err)
	}
	return &collection, nil
}

// Delete removes the collection with its items. Stored files of file items
// are deleted afterwards on a best-effort basis.
func (s *CollectionService) Delete(ctx context.Context, userID, collectionID uint) error {
	var files []models.CollectionItem
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if _, err := ownedCollection(tx, userID, collectionID); err != nil {
			return err
		}
		if err := tx.Where("collection_id = ? AND item_type = ?", collectionID, models.ItemTypeFile).Find(&files).Error; err != nil {
			return err
		}
		if err := tx.Where("collection_id = ?", collectionID).Delete(&models.CollectionItem{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Collection{}, collectionID).Error
	})
	if err != nil {
		return err
	}

	for i := range files {
		s.files.Discard(ctx, &files[i].Content)
	}
	return nil
}

func (s *CollectionService) Items(ctx context.Context, userID, collectionID uint) ([]models.CollectionItem, error) {
	db := s.db.WithContext(ctx)
	if _, err := ownedCollection(db, userID, collectionID); err != nil {
		return nil, err
	}
	items := []models.CollectionItem{}
	if err := db.Where("collection_id = ?", collectionID).Order("id").Find(&items).Error; err != nil {
		return nil, fmt.Errorf("listing collection items: %w", err)
	}
	return items, nil
}

func (s *CollectionService) AddText(ctx context.Context, userID, collectionID uint, content string) (*models.CollectionItem, error) {
	if strings.TrimSpace(content) == "" {
		return nil, apperrors.Validation("Item content is required")
	}
	db := s.db.WithContext(ctx)
	if _, err := ownedCollection(db, userID, collectionID); err != nil {
		return nil, err
	}
	item := models.CollectionItem{CollectionID: collectionID, ItemType: models.ItemTypeText, Content: content}
	if err := db.Create(&item).Error; err != nil {
		return nil, fmt.Errorf("adding collection item: %w", err)
	}
	return &item, nil
}

func (s *CollectionService) AddFile(ctx context.Context, userID, collectionID uint, u Upload) (*models.CollectionItem, error) {
	db := s.db.WithContext(ctx)
	if _, err := ownedCollection(db, userID, collectionID); err != nil {
		return nil, err
	}
	ref, err := s.files.Store(ctx, fmt.Sprintf("collections/%d", collectionID), u)
	if err != nil {
		return nil, err
	}
	item := models.CollectionItem{CollectionID: collectionID, ItemType: models.ItemTypeFile, Content: ref}
	if err := db.Create(&item).Error; err != nil {
		s.files.Discard(ctx, &ref)
		return nil, fmt.Errorf("adding collection item: %w", err)
	}
	return &item, nil
}

func (s *CollectionService) DeleteItem(ctx context.Context, userID, collectionID, itemID uint) error {
	db := s.db.WithContext(ctx)
	if _, err := ownedCollection(db, userID, collectionID); err != nil {
		return err
	}
	var item models.CollectionItem
	err := db.Where("id = ? AND collection_id = ?", itemID, collectionID).First(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperrors.NotFound("Item not found")
	}
	if err != nil {
		return fmt.Errorf("loading collection item: %w", err)
	}
	if err := db.Delete(&item).Error; err != nil {
		return fmt.Errorf("deleting collection item: %w", err)
	}
	if item.ItemType == models.ItemTypeFile {
		s.files.Discard(ctx, &item.Content)
	}
	return nil
}

// Summaries lists another user's collections by id and name only.
func (s *CollectionService) Summaries(ctx context.Context, userID uint) ([]CollectionSummary, error) {
	out := []CollectionSummary{}
	err := s.db.WithContext(ctx).Model(&models.Collection{}).
		Select("id", "name").Where("user_id = ?", userID).Order("id").Scan(&out).Error
	if err != nil {
		return nil, fmt.Errorf("listing collections: %w", err)
	}
	return out, nil
}

type CollectionSummary struct {
	ID   uint   `json:"id"`
	Name string `json:"name"`
}

// Foreign collections answer not found, never forbidden.
func ownedCollection(db *gorm.DB, userID, collectionID uint) (*models.Collection, error) {
	var c models.Collection
	err := db.Where("id = ? AND user_id = ?", collectionID, userID).First(&c).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.NotFound("Collection not found")
	}
	if err != nil {
		return nil, fmt.Errorf("loading collection: %w", err)
	}
	return &c, nil
}
