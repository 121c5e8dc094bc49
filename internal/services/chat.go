package services

import (
	"context"
	"fmt"
	"strings"
	"time"

	"synergy-backend/internal/apperrors"
	"synergy-backend/internal/models"

	"gorm.io/gorm"
)

const maxMessageLength = 4000

type ChatService struct {
	db *gorm.DB
}

func NewChatService(db *gorm.DB) *ChatService {
	return &ChatService{db: db}
}

// Save appends a message to the log with a server-side timestamp.
func (s *ChatService) Save(ctx context.Context, senderID, receiverID uint, text string) (*models.ChatMessage, error) {
	if strings.TrimSpace(text) == "" {
		return nil, apperrors.Validation("Message cannot be empty")
	}
	if len(text) > maxMessageLength {
		return nil, apperrors.Validation(fmt.Sprintf("Message must be at most %d characters", maxMessageLength))
	}
	msg := models.ChatMessage{
		SenderID:   senderID,
		ReceiverID: receiverID,
		Message:    text,
		Timestamp:  time.Now().UTC(),
	}
	if err := s.db.WithContext(ctx).Create(&msg).Error; err != nil {
		return &msg, fmt.Errorf("saving chat message: %w", err)
	}
	return &msg, nil
}

// History returns the messages between a and b in both directions, oldest
// first. The result does not depend on argument order.
func (s *ChatService) History(ctx context.Context, a, b uint) ([]models.ChatMessage, error) {
	messages := []models.ChatMessage{}
	err := s.db.WithContext(ctx).
		Where("(sender_id = ? AND receiver_id = ?) OR (sender_id = ? AND receiver_id = ?)", a, b, b, a).
		Order("timestamp ASC").Order("id ASC").
		Find(&messages).Error
	if err != nil {
		return nil, fmt.Errorf("loading chat history: %w", err)
	}
	return messages, nil
}
