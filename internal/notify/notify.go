package notify

import (
	"context"
	"errors"
	"fmt"

	"synergy-backend/internal/models"

	firebase "firebase.google.com/go/v4"
	"firebase.google.com/go/v4/messaging"
	"github.com/sirupsen/logrus"
	"google.golang.org/api/option"
	"gorm.io/gorm"
)

type Notification struct {
	Title string
	Body  string
	Data  map[string]string
}

// Pusher delivers a notification to one device.
type Pusher interface {
	Push(ctx context.Context, deviceToken string, n Notification) error
}

type FCMPusher struct {
	client *messaging.Client
}

func NewFCMPusher(ctx context.Context, projectID, credentialsFile string) (*FCMPusher, error) {
	app, err := firebase.NewApp(ctx, &firebase.Config{ProjectID: projectID}, option.WithCredentialsFile(credentialsFile))
	if err != nil {
		return nil, fmt.Errorf("failed to initialize firebase app: %w", err)
	}
	client, err := app.Messaging(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize firebase messaging: %w", err)
	}
	return &FCMPusher{client: client}, nil
}

func (p *FCMPusher) Push(ctx context.Context, deviceToken string, n Notification) error {
	_, err := p.client.Send(ctx, &messaging.Message{
		Token: deviceToken,
		Notification: &messaging.Notification{
			Title: n.Title,
			Body:  n.Body,
		},
		Data: n.Data,
	})
	return err
}

// LogPusher stands in for FCM when Firebase is not configured.
type LogPusher struct {
	log *logrus.Logger
}

func NewLogPusher(log *logrus.Logger) *LogPusher {
	return &LogPusher{log: log}
}

func (p *LogPusher) Push(_ context.Context, deviceToken string, n Notification) error {
	p.log.WithFields(logrus.Fields{
		"device": deviceToken,
		"title":  n.Title,
		"data":   n.Data,
	}).Info("push notification (not delivered, push disabled)")
	return nil
}

// Notifier resolves a user's device token and pushes to it. Failures are
// logged and never returned, a missing notification must not fail a request.
type Notifier struct {
	db     *gorm.DB
	pusher Pusher
	log    *logrus.Logger
}

func NewNotifier(db *gorm.DB, pusher Pusher, log *logrus.Logger) *Notifier {
	return &Notifier{db: db, pusher: pusher, log: log}
}

func (n *Notifier) NotifyUser(ctx context.Context, userID uint, msg Notification) {
	if n == nil || n.pusher == nil {
		return
	}

	var user models.User
	err := n.db.WithContext(ctx).Select("id", "device_token").First(&user, userID).Error
	if err != nil {
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			n.log.WithError(err).WithField("user_id", userID).Warn("Failed to load device token")
		}
		return
	}
	if user.DeviceToken == nil || *user.DeviceToken == "" {
		return
	}

	if err := n.pusher.Push(ctx, *user.DeviceToken, msg); err != nil {
		n.log.WithError(err).WithField("user_id", userID).Warn("Failed to send push notification")
	}
}
